package registry

import (
	"errors"
	"sync"
)

// Repository defines the concurrency-safe contract for accessing and
// mutating room state.
type Repository interface {
	// CreateRoom stores a new room. It never overwrites: if the room id or
	// the stream key is already taken, ErrRoomIDConflict or
	// ErrStreamKeyConflict is returned and the registry is unchanged.
	CreateRoom(r Room) error

	// GetRoom returns the room with the given id, or ErrRoomNotFound.
	GetRoom(id RoomID) (Room, error)

	// ListRooms returns a snapshot of all rooms in unspecified order.
	ListRooms() []Room

	// DeleteRoom removes the room and returns it so the caller can purge
	// any session state keyed by its stream key. Returns ErrRoomNotFound
	// if absent.
	DeleteRoom(id RoomID) (Room, error)

	// FindByStreamKey resolves the room owning the given stream key, or
	// ErrRoomNotFound.
	FindByStreamKey(key StreamKey) (Room, error)

	// SetActive flips the activity flag of the room owning key. The second
	// return is false when no room owns the key (an orphan notification).
	SetActive(key StreamKey, active bool) (Room, bool)

	// AdjustViewerCount adds delta to the room's viewer count, clamping at
	// zero, and returns the updated room.
	AdjustViewerCount(id RoomID, delta int) (Room, error)

	// ActiveRoomCount returns the number of rooms currently marked active.
	// Used for metrics and the health endpoint.
	ActiveRoomCount() int
}

var (
	// ErrRoomNotFound is returned when a room id or stream key resolves to
	// no known room.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomIDConflict is returned when creating a room whose id is
	// already in use.
	ErrRoomIDConflict = errors.New("room id already in use")

	// ErrStreamKeyConflict is returned when creating a room whose stream
	// key is already in use. A silent overwrite here would reassign
	// activation state to the wrong room.
	ErrStreamKeyConflict = errors.New("stream key already in use")
)

// RoomRepository is a concurrency-safe Repository backed by a Store.
// All access goes through a single RWMutex; critical sections are short
// and never block on I/O with the default in-memory store.
type RoomRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a repository with a default in-memory store.
func NewInMemoryRepository() *RoomRepository {
	return NewRoomRepository(NewInMemoryStore())
}

// NewRoomRepository constructs a repository that uses the given Store.
// Useful for testing or for plugging in a durable persistence backend.
func NewRoomRepository(store Store) *RoomRepository {
	return &RoomRepository{store: store}
}

// CreateRoom implements Repository.CreateRoom.
func (r *RoomRepository) CreateRoom(room Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.GetRoom(room.ID); err == nil {
		return ErrRoomIDConflict
	} else if !errors.Is(err, ErrRoomNotFound) {
		return err
	}
	if _, err := r.store.GetRoomByKey(room.StreamKey); err == nil {
		return ErrStreamKeyConflict
	} else if !errors.Is(err, ErrRoomNotFound) {
		return err
	}

	return r.store.PutRoom(&room)
}

// GetRoom implements Repository.GetRoom.
func (r *RoomRepository) GetRoom(id RoomID) (Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, err := r.store.GetRoom(id)
	if err != nil {
		return Room{}, err
	}
	return *room, nil
}

// ListRooms implements Repository.ListRooms.
func (r *RoomRepository) ListRooms() []Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, err := r.store.ListRooms()
	if err != nil {
		return nil
	}
	rooms := make([]Room, 0, len(stored))
	for _, room := range stored {
		rooms = append(rooms, *room)
	}
	return rooms
}

// DeleteRoom implements Repository.DeleteRoom.
func (r *RoomRepository) DeleteRoom(id RoomID) (Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, err := r.store.GetRoom(id)
	if err != nil {
		return Room{}, err
	}
	deleted := *room
	if err := r.store.DeleteRoom(id); err != nil {
		return Room{}, err
	}
	return deleted, nil
}

// FindByStreamKey implements Repository.FindByStreamKey.
func (r *RoomRepository) FindByStreamKey(key StreamKey) (Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, err := r.store.GetRoomByKey(key)
	if err != nil {
		return Room{}, err
	}
	return *room, nil
}

// SetActive implements Repository.SetActive.
func (r *RoomRepository) SetActive(key StreamKey, active bool) (Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, err := r.store.GetRoomByKey(key)
	if err != nil {
		return Room{}, false
	}
	room.IsActive = active
	if err := r.store.PutRoom(room); err != nil {
		return Room{}, false
	}
	return *room, true
}

// AdjustViewerCount implements Repository.AdjustViewerCount.
func (r *RoomRepository) AdjustViewerCount(id RoomID, delta int) (Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, err := r.store.GetRoom(id)
	if err != nil {
		return Room{}, err
	}
	room.ViewerCount += delta
	if room.ViewerCount < 0 {
		room.ViewerCount = 0
	}
	if err := r.store.PutRoom(room); err != nil {
		return Room{}, err
	}
	return *room, nil
}

// ActiveRoomCount implements Repository.ActiveRoomCount.
func (r *RoomRepository) ActiveRoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, err := r.store.ListRooms()
	if err != nil {
		return 0
	}
	n := 0
	for _, room := range stored {
		if room.IsActive {
			n++
		}
	}
	return n
}
