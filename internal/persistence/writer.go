package persistence

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clubmap/core-go/internal/metrics"
	"clubmap/core-go/internal/plane"
	"clubmap/core-go/internal/registry"
)

// PositionStore is the write half of the gateway.
type PositionStore interface {
	SaveOverride(ctx context.Context, clubID string, p plane.Point) error
}

// Writer drains drag-release saves on its own goroutine so a gesture never
// waits on the store. Saves are at-most-once: failures are logged, not retried,
// and never roll back the in-memory position.
type Writer struct {
	log     zerolog.Logger
	store   PositionStore
	queue   chan registry.Override
	timeout time.Duration
	metrics *metrics.Metrics
}

type WriterOptions struct {
	QueueSize int
	Timeout   time.Duration
}

func NewWriter(log zerolog.Logger, store PositionStore, opts WriterOptions, m *metrics.Metrics) *Writer {
	size := opts.QueueSize
	if size <= 0 {
		size = 256
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		log:     log,
		store:   store,
		queue:   make(chan registry.Override, size),
		timeout: timeout,
		metrics: m,
	}
}

// SaveOverrideAsync queues a save and returns immediately. A full queue drops
// the save.
func (w *Writer) SaveOverrideAsync(clubID string, pos plane.Point) {
	if w == nil || w.store == nil {
		return
	}
	select {
	case w.queue <- registry.Override{ClubID: clubID, Position: pos}:
	default:
		w.metrics.IncPositionSave(metrics.ResultDropped)
		w.log.Warn().Str("club_id", clubID).Msg("position save queue full; dropping save")
	}
}

// Run processes queued saves until ctx is cancelled, then flushes whatever is
// already queued.
func (w *Writer) Run(ctx context.Context) {
	if w == nil || w.store == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return
		case o := <-w.queue:
			w.save(ctx, o)
		}
	}
}

func (w *Writer) flush() {
	for {
		select {
		case o := <-w.queue:
			w.save(context.Background(), o)
		default:
			return
		}
	}
}

func (w *Writer) save(parent context.Context, o registry.Override) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.timeout)
	defer cancel()

	if err := w.store.SaveOverride(ctx, o.ClubID, o.Position); err != nil {
		w.metrics.IncPositionSave(metrics.ResultError)
		w.log.Error().Err(err).Str("club_id", o.ClubID).Msg("position save failed")
		return
	}
	w.metrics.IncPositionSave(metrics.ResultOK)
	w.log.Debug().Str("club_id", o.ClubID).Float64("x", o.Position.X).Float64("y", o.Position.Y).Msg("position saved")
}
