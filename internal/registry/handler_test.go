package registry

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"audiocast/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	repo := NewInMemoryRepository()
	tracker := NewTracker(repo)
	svc := NewService(repo, tracker)
	links := &LinkBuilder{
		RTMPHost:      "media.example.com",
		RTMPPort:      1935,
		PublicBaseURL: "https://example.com",
		HLSBasePath:   "/hls",
	}
	h := NewHandler(svc, links, logger.Discard(), nil)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func createRoom(t *testing.T, r *chi.Mux, title string) map[string]any {
	t.Helper()
	b, _ := json.Marshal(map[string]string{"title": title})
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create room: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("create room: invalid json: %v", err)
	}
	return body
}

func postWebhook(t *testing.T, r *chi.Mux, path, streamKey string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	if streamKey != "" {
		form.Set("name", streamKey)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, r *chi.Mux, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec.Code, body
}

func TestHandler_CreateRoom(t *testing.T) {
	r := newTestRouter(t)
	body := createRoom(t, r, "Morning Show")

	if body["title"] != "Morning Show" {
		t.Errorf("title = %v", body["title"])
	}
	key, _ := body["stream_key"].(string)
	if key == "" {
		t.Fatal("publisher response must include stream_key")
	}
	rtmpURL, _ := body["rtmp_url"].(string)
	if rtmpURL != "rtmp://media.example.com:1935/live/"+key {
		t.Errorf("rtmp_url = %q", rtmpURL)
	}
	viewerURL, _ := body["viewer_url"].(string)
	if viewerURL != "https://example.com/room/"+body["room_id"].(string) {
		t.Errorf("viewer_url = %q", viewerURL)
	}
	qr, _ := body["qr_code"].(string)
	if !strings.HasPrefix(qr, "data:image/png;base64,") {
		t.Errorf("qr_code should be a png data uri, got %.40q", qr)
	}
	if body["is_active"] != false {
		t.Errorf("is_active = %v", body["is_active"])
	}
}

func TestHandler_CreateRoom_bad_request(t *testing.T) {
	r := newTestRouter(t)

	t.Run("not_json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader("not json"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing_title", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(`{"description":"x"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandler_GetRoom_hides_stream_key(t *testing.T) {
	r := newTestRouter(t)
	created := createRoom(t, r, "Morning Show")
	roomID := created["room_id"].(string)

	code, body := getJSON(t, r, "/api/rooms/"+roomID)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if _, ok := body["stream_key"]; ok {
		t.Error("viewer-facing room response must not contain stream_key")
	}
	if _, ok := body["rtmp_url"]; ok {
		t.Error("viewer-facing room response must not contain rtmp_url")
	}
	if body["title"] != "Morning Show" || body["is_active"] != false {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestHandler_GetRoom_not_found(t *testing.T) {
	r := newTestRouter(t)
	code, body := getJSON(t, r, "/api/rooms/missing")
	if code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if body["error"] == "" {
		t.Errorf("expected error body, got %v", body)
	}
}

func TestHandler_ListRooms(t *testing.T) {
	r := newTestRouter(t)
	createRoom(t, r, "a")
	createRoom(t, r, "b")

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(list))
	}
	for _, item := range list {
		if _, ok := item["stream_key"]; ok {
			t.Error("room summaries must not contain stream_key")
		}
	}
}

func TestHandler_DeleteRoom(t *testing.T) {
	r := newTestRouter(t)
	created := createRoom(t, r, "Morning Show")
	roomID := created["room_id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/api/rooms/"+roomID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if code, _ := getJSON(t, r, "/api/rooms/"+roomID); code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/rooms/"+roomID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestHandler_webhooks_never_fail_the_caller(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/webhooks/stream_start", "/webhooks/stream_end"} {
		t.Run(path, func(t *testing.T) {
			rec := postWebhook(t, r, path, "totally-unknown-key")
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
			var body map[string]string
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body["status"] != "ok" {
				t.Errorf("expected status ok, got %v", body)
			}
		})
		t.Run(path+"_without_name", func(t *testing.T) {
			rec := postWebhook(t, r, path, "")
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200 for missing name field, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_join_leave(t *testing.T) {
	r := newTestRouter(t)
	created := createRoom(t, r, "Morning Show")
	roomID := created["room_id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/api/rooms/"+roomID+"/join", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["viewer_count"] != float64(1) {
		t.Errorf("viewer_count = %v, want 1", body["viewer_count"])
	}

	req = httptest.NewRequest(http.MethodPost, "/api/rooms/"+roomID+"/leave", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["viewer_count"] != float64(0) {
		t.Errorf("viewer_count = %v, want 0", body["viewer_count"])
	}

	req = httptest.NewRequest(http.MethodPost, "/api/rooms/missing/join", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("join unknown room: expected 404, got %d", rec.Code)
	}
}

func TestHandler_health(t *testing.T) {
	r := newTestRouter(t)
	created := createRoom(t, r, "Morning Show")
	postWebhook(t, r, "/webhooks/stream_start", created["stream_key"].(string))

	code, body := getJSON(t, r, "/")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "running" || body["active_rooms"] != float64(1) {
		t.Errorf("unexpected health body: %v", body)
	}
}

// Full reconciliation scenario: create a room, receive a start notification
// for its stream key, observe activation from every read path, then end the
// stream and observe deactivation.
func TestHandler_stream_lifecycle_scenario(t *testing.T) {
	r := newTestRouter(t)

	created := createRoom(t, r, "Morning Show")
	roomID := created["room_id"].(string)
	streamKey := created["stream_key"].(string)

	rec := postWebhook(t, r, "/webhooks/stream_start", streamKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("stream_start: expected 200, got %d", rec.Code)
	}

	code, room := getJSON(t, r, "/api/rooms/"+roomID)
	if code != http.StatusOK || room["is_active"] != true {
		t.Errorf("room after start: code=%d is_active=%v", code, room["is_active"])
	}

	code, status := getJSON(t, r, "/api/stream/"+streamKey+"/status")
	if code != http.StatusOK || status["is_active"] != true || status["started_at"] == nil {
		t.Errorf("status after start: code=%d body=%v", code, status)
	}

	code, playback := getJSON(t, r, "/api/room/"+roomID+"/stream-url")
	if code != http.StatusOK {
		t.Fatalf("stream-url: expected 200, got %d", code)
	}
	if playback["hls_url"] != "/hls/"+streamKey+".m3u8" || playback["is_active"] != true {
		t.Errorf("playback body: %v", playback)
	}

	rec = postWebhook(t, r, "/webhooks/stream_end", streamKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("stream_end: expected 200, got %d", rec.Code)
	}

	_, room = getJSON(t, r, "/api/rooms/"+roomID)
	if room["is_active"] != false {
		t.Errorf("room after end: is_active=%v", room["is_active"])
	}
	_, status = getJSON(t, r, "/api/stream/"+streamKey+"/status")
	if status["is_active"] != false || status["started_at"] != nil {
		t.Errorf("status after end: %v", status)
	}
}

func TestHandler_stream_url_not_found(t *testing.T) {
	r := newTestRouter(t)
	if code, _ := getJSON(t, r, "/api/room/missing/stream-url"); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_stream_status_unknown_key(t *testing.T) {
	r := newTestRouter(t)
	code, body := getJSON(t, r, "/api/stream/nope/status")
	if code != http.StatusOK {
		t.Fatalf("status is a total read, expected 200, got %d", code)
	}
	if body["is_active"] != false || body["started_at"] != nil {
		t.Errorf("unknown key status: %v", body)
	}
}
