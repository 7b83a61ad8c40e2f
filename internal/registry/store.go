package registry

// Store is the persistence abstraction for room state. Implementations can
// be in-memory or durable; the Repository performs all reads and writes
// through it and callers of Repository never see which Store is in use.
// Store implementations are not required to be concurrency-safe; the
// Repository serializes access.
type Store interface {
	// GetRoom returns the room with the given id, or ErrRoomNotFound.
	GetRoom(id RoomID) (*Room, error)

	// GetRoomByKey returns the room owning the given stream key, or
	// ErrRoomNotFound. This is the secondary index behind the tracker's
	// reverse lookup; implementations must keep it consistent with
	// PutRoom and DeleteRoom.
	GetRoomByKey(key StreamKey) (*Room, error)

	// PutRoom inserts or replaces the room identified by r.ID.
	PutRoom(r *Room) error

	// DeleteRoom removes the room with the given id, or returns
	// ErrRoomNotFound.
	DeleteRoom(id RoomID) error

	// ListRooms returns all rooms in unspecified order.
	ListRooms() ([]*Room, error)
}

// InMemoryStore is the in-memory implementation of Store. It keeps a
// stream-key index alongside the room table so reverse lookups stay O(1)
// instead of rescanning every room.
type InMemoryStore struct {
	rooms map[RoomID]*Room
	byKey map[StreamKey]*Room
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		rooms: make(map[RoomID]*Room),
		byKey: make(map[StreamKey]*Room),
	}
}

// GetRoom implements Store.GetRoom.
func (s *InMemoryStore) GetRoom(id RoomID) (*Room, error) {
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// GetRoomByKey implements Store.GetRoomByKey.
func (s *InMemoryStore) GetRoomByKey(key StreamKey) (*Room, error) {
	r, ok := s.byKey[key]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// PutRoom implements Store.PutRoom, keeping the key index in step.
func (s *InMemoryStore) PutRoom(r *Room) error {
	if old, ok := s.rooms[r.ID]; ok && old.StreamKey != r.StreamKey {
		delete(s.byKey, old.StreamKey)
	}
	s.rooms[r.ID] = r
	s.byKey[r.StreamKey] = r
	return nil
}

// DeleteRoom implements Store.DeleteRoom, keeping the key index in step.
func (s *InMemoryStore) DeleteRoom(id RoomID) error {
	r, ok := s.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	delete(s.rooms, id)
	delete(s.byKey, r.StreamKey)
	return nil
}

// ListRooms implements Store.ListRooms.
func (s *InMemoryStore) ListRooms() ([]*Room, error) {
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	return rooms, nil
}
