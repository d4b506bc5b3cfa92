package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"clubmap/core-go/internal/db"
	"clubmap/core-go/internal/mapview"
	"clubmap/core-go/internal/metrics"
	"clubmap/core-go/internal/registry"
	"clubmap/core-go/internal/roster"
)

type Handler struct {
	log            zerolog.Logger
	pool           *db.Pool
	roster         roster.Provider
	positions      registry.OverrideLoader
	saver          mapview.PositionSaver
	metrics        *metrics.Metrics
	sessions       *sessionStore
	validate       *validator.Validate
	upgrader       websocket.Upgrader
	requestTimeout time.Duration
}

// Options wires the map's collaborators. Nil fields degrade: no roster
// provider uses the built-in roster, no position gateway renders defaults,
// no saver keeps drag results in memory only.
type Options struct {
	Roster         roster.Provider
	Positions      registry.OverrideLoader
	Saver          mapview.PositionSaver
	Metrics        *metrics.Metrics
	SessionTTL     time.Duration
	RequestTimeout time.Duration
}

func NewHandler(log zerolog.Logger, pool *db.Pool, opts Options) *Handler {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Handler{
		log:            log,
		pool:           pool,
		roster:         opts.Roster,
		positions:      opts.Positions,
		saver:          opts.Saver,
		metrics:        opts.Metrics,
		sessions:       newSessionStore(opts.SessionTTL, opts.Metrics),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		upgrader:       websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		requestTimeout: timeout,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Handle("/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			timeout := middleware.Timeout(h.requestTimeout)

			r.With(timeout).Get("/countries", h.handleListCountries)
			r.With(timeout).Get("/positions", h.handleListPositions)

			r.Route("/sessions", func(r chi.Router) {
				r.With(timeout).Post("/", h.handleCreateSession)
				r.Route("/{id}", func(r chi.Router) {
					// Event streams are long-lived and stay outside the request timeout.
					r.Get("/events", h.handleSessionEvents)

					r.Group(func(r chi.Router) {
						r.Use(timeout)
						r.Get("/", h.handleGetFrame)
						r.Delete("/", h.handleDeleteSession)
						r.Post("/countries/{country}", h.handleSelectCountry)
						r.Post("/cities", h.handleExpandCity)
						r.Post("/background-click", h.handleBackgroundClick)
						r.Post("/reset", h.handleReset)
						r.Post("/drag/start", h.handleDragStart)
						r.Post("/drag/move", h.handleDragMove)
						r.Post("/drag/end", h.handleDragEnd)
					})
				})
			})
		})
	})

	return r
}

// RunJanitor evicts idle sessions until ctx is cancelled.
func (h *Handler) RunJanitor(ctx context.Context) {
	interval := h.sessions.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	h.sessions.runJanitor(ctx, interval)
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

var errEmptyBody = errors.New("empty body")

func decodeJSONStrict(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

// decodeOptionalJSON is decodeJSONStrict for endpoints whose body may be omitted.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if err := decodeJSONStrict(r, dst); err != nil && !errors.Is(err, errEmptyBody) {
		return err
	}
	return nil
}

// decodeAndValidate writes a 400 and returns false when the body is unusable.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	decode := decodeJSONStrict
	if optional {
		decode = decodeOptionalJSON
	}
	if err := decode(r, dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid request", map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.pool == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return
	}

	if err := h.pool.Ping(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (h *Handler) handleListCountries(w http.ResponseWriter, r *http.Request) {
	rs := roster.LoadOrDefault(r.Context(), h.log, h.roster)
	countries := rs.Countries
	if countries == nil {
		countries = []roster.Country{}
	}
	h.writeJSON(w, http.StatusOK, countries)
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	if h.positions == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return
	}
	rows, err := h.positions.LoadOverrides(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list positions failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list positions", nil)
		return
	}
	if rows == nil {
		rows = []registry.Override{}
	}
	h.writeJSON(w, http.StatusOK, rows)
}
