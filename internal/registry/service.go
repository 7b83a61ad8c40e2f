package registry

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// streamKeyBytes is the entropy of a stream key before encoding.
const streamKeyBytes = 32

// maxCreateAttempts bounds identifier regeneration when a freshly minted id
// or key collides with an existing room. With crypto/rand sources a single
// collision is already astronomically unlikely.
const maxCreateAttempts = 3

// Service applies room lifecycle logic on top of the Repository and the
// session Tracker. It owns identifier and credential generation; URL and
// QR derivation happen outside, after the Service returns.
type Service struct {
	repo    Repository
	tracker *Tracker
}

// NewService returns a Service over repo and tracker.
func NewService(repo Repository, tracker *Tracker) *Service {
	return &Service{repo: repo, tracker: tracker}
}

// CreateRoom mints a fresh room id and stream key, stores the room, and
// returns it. On the unlikely event of an identifier collision the ids are
// regenerated rather than overwriting an existing room.
func (s *Service) CreateRoom(title, description string) (Room, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		key, err := newStreamKey()
		if err != nil {
			return Room{}, err
		}
		room := Room{
			ID:          RoomID(uuid.NewString()),
			StreamKey:   key,
			Title:       title,
			Description: description,
			CreatedAt:   time.Now().UTC(),
		}
		err = s.repo.CreateRoom(room)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, ErrRoomIDConflict) && !errors.Is(err, ErrStreamKeyConflict) {
			return Room{}, err
		}
	}
	return Room{}, fmt.Errorf("could not mint unique room identifiers after %d attempts", maxCreateAttempts)
}

// GetRoom returns the room with the given id.
func (s *Service) GetRoom(id RoomID) (Room, error) {
	return s.repo.GetRoom(id)
}

// ListRooms returns all rooms in unspecified order.
func (s *Service) ListRooms() []Room {
	return s.repo.ListRooms()
}

// DeleteRoom removes the room and purges any open session for its stream
// key, so the tracker never reports a session whose room no longer exists.
func (s *Service) DeleteRoom(id RoomID) error {
	room, err := s.repo.DeleteRoom(id)
	if err != nil {
		return err
	}
	s.tracker.Forget(room.StreamKey)
	return nil
}

// StreamStarted handles a start notification from the media server.
// The second return is false for orphan notifications (no owning room).
func (s *Service) StreamStarted(key StreamKey) (Room, bool) {
	return s.tracker.OnStreamStart(key)
}

// StreamEnded handles an end notification from the media server.
func (s *Service) StreamEnded(key StreamKey) (Room, bool) {
	return s.tracker.OnStreamEnd(key)
}

// StreamStatus reports whether key currently has an open session and when
// it started.
func (s *Service) StreamStatus(key StreamKey) (bool, time.Time) {
	return s.tracker.Status(key)
}

// Join increments a room's viewer count.
func (s *Service) Join(id RoomID) (Room, error) {
	return s.repo.AdjustViewerCount(id, 1)
}

// Leave decrements a room's viewer count, clamping at zero.
func (s *Service) Leave(id RoomID) (Room, error) {
	return s.repo.AdjustViewerCount(id, -1)
}

// ActiveRoomCount returns the number of rooms currently marked active.
func (s *Service) ActiveRoomCount() int {
	return s.repo.ActiveRoomCount()
}

// newStreamKey returns a fresh high-entropy, URL-safe publishing credential.
func newStreamKey() (StreamKey, error) {
	b := make([]byte, streamKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating stream key: %w", err)
	}
	return StreamKey(base64.RawURLEncoding.EncodeToString(b)), nil
}
