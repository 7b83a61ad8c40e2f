package registry

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"audiocast/internal/platform/metrics"
	"audiocast/internal/platform/qr"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the registry and tracker HTTP endpoints using go-chi.
// It also derives the publisher/viewer URLs and QR codes that decorate
// room responses; the Service itself never builds URLs.
type Handler struct {
	svc     *Service
	links   *LinkBuilder
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, LinkBuilder,
// Logger, and optional Metrics. Metrics may be nil to disable metric
// recording (e.g. in tests).
func NewHandler(svc *Service, links *LinkBuilder, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, links: links, log: log, metrics: m}
}

// Register mounts all application routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", h.CreateRoom)
			r.Get("/", h.ListRooms)
			r.Route("/{room_id}", func(r chi.Router) {
				r.Get("/", h.GetRoom)
				r.Delete("/", h.DeleteRoom)
				r.Post("/join", h.JoinRoom)
				r.Post("/leave", h.LeaveRoom)
			})
		})
		r.Get("/room/{room_id}/stream-url", h.GetStreamURL)
		r.Get("/stream/{stream_key}/status", h.GetStreamStatus)
	})
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/stream_start", h.StreamStart)
		r.Post("/stream_end", h.StreamEnd)
	})
}

// Health handles GET /. It reports liveness and the number of rooms with
// an active broadcast.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Live Audio Broadcast Registry",
		"status":       "running",
		"active_rooms": h.svc.ActiveRoomCount(),
	})
}

// CreateRoom handles POST /api/rooms. Body: { "title": ..., "description": ... }.
// This is the only endpoint that returns the stream key and ingest URL;
// everything viewer-reachable omits them.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid create room body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	room, err := h.svc.CreateRoom(req.Title, req.Description)
	if err != nil {
		h.log.Error("create room failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "could not create room")
		return
	}

	viewerURL := h.links.ViewerURL(room.ID)
	qrCode, err := qr.DataURI(viewerURL)
	if err != nil {
		h.log.Error("qr encode failed", slog.String("room_id", string(room.ID)), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "could not render qr code")
		return
	}

	h.log.Info("room created",
		slog.String("room_id", string(room.ID)),
		slog.String("title", room.Title))
	if h.metrics != nil {
		h.metrics.IncRoomsCreated()
	}

	writeJSON(w, http.StatusCreated, PublisherRoomResponse{
		RoomID:      string(room.ID),
		StreamKey:   string(room.StreamKey),
		Title:       room.Title,
		Description: room.Description,
		RTMPURL:     h.links.RTMPURL(room.StreamKey),
		ViewerURL:   viewerURL,
		QRCode:      qrCode,
		CreatedAt:   room.CreatedAt,
		IsActive:    room.IsActive,
		ViewerCount: room.ViewerCount,
	})
}

// GetRoom handles GET /api/rooms/{room_id}. The response is viewer-facing:
// no stream key, no ingest URL.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := RoomID(chi.URLParam(r, "room_id"))

	room, err := h.svc.GetRoom(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	viewerURL := h.links.ViewerURL(room.ID)
	qrCode, err := qr.DataURI(viewerURL)
	if err != nil {
		h.log.Error("qr encode failed", slog.String("room_id", string(room.ID)), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "could not render qr code")
		return
	}

	writeJSON(w, http.StatusOK, ViewerRoomResponse{
		RoomID:      string(room.ID),
		Title:       room.Title,
		Description: room.Description,
		ViewerURL:   viewerURL,
		QRCode:      qrCode,
		CreatedAt:   room.CreatedAt,
		IsActive:    room.IsActive,
		ViewerCount: room.ViewerCount,
	})
}

// ListRooms handles GET /api/rooms. Order is unspecified; callers must not
// depend on it.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.svc.ListRooms()
	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, RoomSummary{
			RoomID:      string(room.ID),
			Title:       room.Title,
			CreatedAt:   room.CreatedAt,
			IsActive:    room.IsActive,
			ViewerCount: room.ViewerCount,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// DeleteRoom handles DELETE /api/rooms/{room_id}.
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	id := RoomID(chi.URLParam(r, "room_id"))

	if err := h.svc.DeleteRoom(id); err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	h.log.Info("room deleted", slog.String("room_id", string(id)))
	if h.metrics != nil {
		h.metrics.IncRoomsDeleted()
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "room deleted"})
}

// JoinRoom handles POST /api/rooms/{room_id}/join.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	h.adjustViewers(w, r, 1)
}

// LeaveRoom handles POST /api/rooms/{room_id}/leave.
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	h.adjustViewers(w, r, -1)
}

func (h *Handler) adjustViewers(w http.ResponseWriter, r *http.Request, delta int) {
	id := RoomID(chi.URLParam(r, "room_id"))

	var room Room
	var err error
	if delta > 0 {
		room, err = h.svc.Join(id)
	} else {
		room, err = h.svc.Leave(id)
	}
	if err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	writeJSON(w, http.StatusOK, ViewerCountResponse{
		RoomID:      string(room.ID),
		ViewerCount: room.ViewerCount,
	})
}

// GetStreamURL handles GET /api/room/{room_id}/stream-url, the viewer-page
// lookup for a room's playback address.
func (h *Handler) GetStreamURL(w http.ResponseWriter, r *http.Request) {
	id := RoomID(chi.URLParam(r, "room_id"))

	room, err := h.svc.GetRoom(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	writeJSON(w, http.StatusOK, PlaybackResponse{
		RoomID:   string(room.ID),
		HLSURL:   h.links.HLSURL(room.StreamKey),
		IsActive: room.IsActive,
		Title:    room.Title,
	})
}

// GetStreamStatus handles GET /api/stream/{stream_key}/status. It reads the
// session table only, not the room flag.
func (h *Handler) GetStreamStatus(w http.ResponseWriter, r *http.Request) {
	key := StreamKey(chi.URLParam(r, "stream_key"))

	active, startedAt := h.svc.StreamStatus(key)
	resp := StreamStatusResponse{StreamKey: string(key), IsActive: active}
	if active {
		resp.StartedAt = &startedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// StreamStart handles POST /webhooks/stream_start from the media server.
// The body is form-encoded with the stream key in the "name" field, as
// nginx-rtmp sends it. The media server has no retry or error contract, so
// this always answers {"status": "ok"}.
func (h *Handler) StreamStart(w http.ResponseWriter, r *http.Request) {
	key := StreamKey(r.PostFormValue("name"))
	if key == "" {
		h.log.Warn("stream_start webhook without stream key")
		writeWebhookOK(w)
		return
	}

	room, found := h.svc.StreamStarted(key)
	if found {
		h.log.Info("stream started",
			slog.String("room_id", string(room.ID)),
			slog.String("title", room.Title))
	} else {
		h.log.Warn("stream_start for unknown stream key")
		if h.metrics != nil {
			h.metrics.IncOrphanNotifications()
		}
	}
	if h.metrics != nil {
		h.metrics.IncStreamStarts()
	}
	writeWebhookOK(w)
}

// StreamEnd handles POST /webhooks/stream_end from the media server. Same
// contract as StreamStart: never fails the caller.
func (h *Handler) StreamEnd(w http.ResponseWriter, r *http.Request) {
	key := StreamKey(r.PostFormValue("name"))
	if key == "" {
		h.log.Warn("stream_end webhook without stream key")
		writeWebhookOK(w)
		return
	}

	room, found := h.svc.StreamEnded(key)
	if found {
		h.log.Info("stream ended",
			slog.String("room_id", string(room.ID)),
			slog.String("title", room.Title))
	} else {
		h.log.Warn("stream_end for unknown stream key")
	}
	if h.metrics != nil {
		h.metrics.IncStreamEnds()
	}
	writeWebhookOK(w)
}

func writeWebhookOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
