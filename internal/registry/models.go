package registry

import "time"

// RoomID is the public, opaque identifier of a broadcast room.
type RoomID string

// StreamKey is the publisher credential; it is also the join key between
// the room registry and the session tracker. It must never appear in
// viewer-facing responses.
type StreamKey string

// Room is a logical broadcast session: a public identifier plus a private
// publishing credential and mutable activity state.
type Room struct {
	ID          RoomID
	StreamKey   StreamKey
	Title       string
	Description string
	CreatedAt   time.Time
	IsActive    bool
	ViewerCount int
}

// CreateRoomRequest is the JSON payload for room creation.
type CreateRoomRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// PublisherRoomResponse is returned only from room creation. It carries the
// publishing credential and ingest address alongside the viewer fields.
type PublisherRoomResponse struct {
	RoomID      string    `json:"room_id"`
	StreamKey   string    `json:"stream_key"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	RTMPURL     string    `json:"rtmp_url"`
	ViewerURL   string    `json:"viewer_url"`
	QRCode      string    `json:"qr_code"`
	CreatedAt   time.Time `json:"created_at"`
	IsActive    bool      `json:"is_active"`
	ViewerCount int       `json:"viewer_count"`
}

// ViewerRoomResponse is the read-only room shape. It omits the stream key
// and ingest address so the publishing credential never reaches viewers.
type ViewerRoomResponse struct {
	RoomID      string    `json:"room_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ViewerURL   string    `json:"viewer_url"`
	QRCode      string    `json:"qr_code"`
	CreatedAt   time.Time `json:"created_at"`
	IsActive    bool      `json:"is_active"`
	ViewerCount int       `json:"viewer_count"`
}

// RoomSummary is one element of the room listing.
type RoomSummary struct {
	RoomID      string    `json:"room_id"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
	IsActive    bool      `json:"is_active"`
	ViewerCount int       `json:"viewer_count"`
}

// StreamStatusResponse reports the session table's view of a stream key.
type StreamStatusResponse struct {
	StreamKey string     `json:"stream_key"`
	IsActive  bool       `json:"is_active"`
	StartedAt *time.Time `json:"started_at"`
}

// PlaybackResponse is the viewer-page payload for a room's HLS endpoint.
type PlaybackResponse struct {
	RoomID   string `json:"room_id"`
	HLSURL   string `json:"hls_url"`
	IsActive bool   `json:"is_active"`
	Title    string `json:"title"`
}

// ViewerCountResponse is returned by the join/leave endpoints.
type ViewerCountResponse struct {
	RoomID      string `json:"room_id"`
	ViewerCount int    `json:"viewer_count"`
}
