package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"clubmap/core-go/internal/mapview"
	"clubmap/core-go/internal/naming"
	"clubmap/core-go/internal/plane"
	"clubmap/core-go/internal/registry"
	"clubmap/core-go/internal/roster"
)

type createSessionRequest struct {
	InitialCountry string `json:"initial_country" validate:"omitempty,max=128"`
}

type sessionResponse struct {
	ID    string        `json:"id"`
	Frame mapview.Frame `json:"frame"`
}

type expandCityRequest struct {
	City    string `json:"city" validate:"required,max=128"`
	Country string `json:"country" validate:"omitempty,max=128"`
}

type dragStartRequest struct {
	ClubID string `json:"club_id" validate:"required,max=128"`
}

type dragMoveRequest struct {
	PointerX *float64         `json:"pointer_x" validate:"required"`
	PointerY *float64         `json:"pointer_y" validate:"required"`
	Screen   plane.ScreenRect `json:"screen"`
}

type gestureResponse struct {
	Outcome string        `json:"outcome,omitempty"`
	Moved   bool          `json:"moved"`
	Frame   mapview.Frame `json:"frame"`
}

type sessionEvent struct {
	Type     string       `json:"type"`
	ClubID   string       `json:"club_id,omitempty"`
	Position *plane.Point `json:"position,omitempty"`
}

// handleCreateSession mounts a map: the roster is loaded, stored overrides
// are merged in and an optional initial country is jumped to.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !h.decodeAndValidate(w, r, &req, true) {
		return
	}

	rs := roster.LoadOrDefault(r.Context(), h.log, h.roster)
	reg := registry.New(rs.Clubs)
	applied := reg.Hydrate(r.Context(), h.log, h.positions)

	sess := h.sessions.newSession()
	events := sess.hub
	sess.state = mapview.New(reg, rs.Countries, mapview.Options{
		Saver: h.saver,
		OnPositionChange: func(c mapview.PositionChange) {
			pos := c.Position
			b, err := json.Marshal(sessionEvent{Type: "position_changed", ClubID: c.ClubID, Position: &pos})
			if err != nil {
				return
			}
			events.publish(b)
		},
	})

	if req.InitialCountry != "" {
		if err := sess.state.SelectCountry(req.InitialCountry); err != nil {
			h.log.Warn().Err(err).Str("initial_country", req.InitialCountry).Msg("initial country ignored")
		}
	}

	frame := sess.state.Frame()
	h.sessions.put(sess)

	h.log.Debug().
		Str("session_id", sess.id).
		Int("clubs", len(rs.Clubs)).
		Int("overrides", applied).
		Msg("map session created")

	h.writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.id, Frame: frame})
}

// withSession resolves {id}, serializes access to its state and records
// activity. It writes a 404 and returns false when the session is gone.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(*session)) bool {
	id := chi.URLParam(r, "id")
	sess, ok := h.sessions.get(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "session not found", nil)
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	h.sessions.touch(sess)
	fn(sess)
	return true
}

func (h *Handler) writeStateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mapview.ErrUnknownEntity),
		errors.Is(err, mapview.ErrUnknownCountry),
		errors.Is(err, mapview.ErrUnknownCity):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, mapview.ErrNoCountry),
		errors.Is(err, mapview.ErrDragInProgress):
		h.writeError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, mapview.ErrUnsupportedZoom):
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
	default:
		h.log.Error().Err(err).Msg("map gesture failed")
		h.writeError(w, http.StatusInternalServerError, "internal_error", "gesture failed", nil)
	}
}

func (h *Handler) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	var frame mapview.Frame
	if !h.withSession(w, r, func(s *session) { frame = s.state.Frame() }) {
		return
	}
	h.writeJSON(w, http.StatusOK, frame)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.remove(chi.URLParam(r, "id")) {
		h.writeError(w, http.StatusNotFound, "not_found", "session not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSelectCountry(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	var (
		frame mapview.Frame
		err   error
	)
	if !h.withSession(w, r, func(s *session) {
		if err = s.state.SelectCountry(country); err == nil {
			frame = s.state.Frame()
		}
	}) {
		return
	}
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, gestureResponse{Frame: frame})
}

func (h *Handler) handleExpandCity(w http.ResponseWriter, r *http.Request) {
	var req expandCityRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	var (
		frame mapview.Frame
		err   error
	)
	if !h.withSession(w, r, func(s *session) {
		country := req.Country
		if country == "" {
			country = s.state.SelectedCountry()
		}
		if _, err = s.state.ExpandCity(naming.CityKey(req.City, country)); err == nil {
			frame = s.state.Frame()
		}
	}) {
		return
	}
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, gestureResponse{Frame: frame})
}

func (h *Handler) handleBackgroundClick(w http.ResponseWriter, r *http.Request) {
	var resp gestureResponse
	if !h.withSession(w, r, func(s *session) {
		resp.Outcome = string(s.state.BackgroundClick())
		resp.Frame = s.state.Frame()
	}) {
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var resp gestureResponse
	if !h.withSession(w, r, func(s *session) {
		s.state.Reset()
		resp.Frame = s.state.Frame()
	}) {
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDragStart(w http.ResponseWriter, r *http.Request) {
	var req dragStartRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	var (
		frame mapview.Frame
		err   error
	)
	if !h.withSession(w, r, func(s *session) {
		if err = s.state.DragStart(req.ClubID); err == nil {
			frame = s.state.Frame()
		}
	}) {
		return
	}
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, gestureResponse{Frame: frame})
}

func (h *Handler) handleDragMove(w http.ResponseWriter, r *http.Request) {
	var req dragMoveRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	var resp gestureResponse
	if !h.withSession(w, r, func(s *session) {
		_, resp.Moved = s.state.DragMove(*req.PointerX, *req.PointerY, req.Screen)
		resp.Frame = s.state.Frame()
	}) {
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	var resp gestureResponse
	if !h.withSession(w, r, func(s *session) {
		_, resp.Moved = s.state.DragEnd()
		resp.Frame = s.state.Frame()
	}) {
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

const (
	eventWriteWait  = 10 * time.Second
	eventPingPeriod = 30 * time.Second
)

// handleSessionEvents streams position changes of one session over a
// websocket. The first message is always {"type":"subscribed"}.
func (h *Handler) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.get(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "session not found", nil)
		return
	}
	ch, ok := sess.hub.subscribe()
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "session not found", nil)
		return
	}
	defer sess.hub.unsubscribe(ch)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the failure response.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Drain reads so close frames and pings from the client are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
		return conn.WriteMessage(websocket.TextMessage, msg)
	}

	hello, _ := json.Marshal(sessionEvent{Type: "subscribed"})
	if err := write(hello); err != nil {
		return
	}

	ping := time.NewTicker(eventPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(eventWriteWait))
				return
			}
			if err := write(msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return
			}
		}
	}
}
