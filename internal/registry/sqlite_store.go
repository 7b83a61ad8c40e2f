package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const roomsSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	room_id      TEXT PRIMARY KEY,
	stream_key   TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL,
	is_active    INTEGER NOT NULL DEFAULT 0,
	viewer_count INTEGER NOT NULL DEFAULT 0
);`

// SQLiteStore is a durable implementation of Store. The component contracts
// do not change relative to the in-memory store; only the backing does.
// Rooms survive process restarts; session state stays in-memory by design,
// since the media server re-announces publishing after a restart.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at dsn and ensures the
// rooms table exists.
func OpenSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	// One connection: sqlite serializes writers anyway, and an in-memory
	// database is per-connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(roomsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating rooms table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetRoom implements Store.GetRoom.
func (s *SQLiteStore) GetRoom(id RoomID) (*Room, error) {
	return s.queryRoom(`SELECT room_id, stream_key, title, description, created_at, is_active, viewer_count
		FROM rooms WHERE room_id = ?`, string(id))
}

// GetRoomByKey implements Store.GetRoomByKey. The UNIQUE constraint on
// stream_key doubles as the reverse-lookup index.
func (s *SQLiteStore) GetRoomByKey(key StreamKey) (*Room, error) {
	return s.queryRoom(`SELECT room_id, stream_key, title, description, created_at, is_active, viewer_count
		FROM rooms WHERE stream_key = ?`, string(key))
}

func (s *SQLiteStore) queryRoom(query string, arg string) (*Room, error) {
	var (
		room      Room
		id, key   string
		createdAt time.Time
		active    int
	)
	err := s.db.QueryRow(query, arg).Scan(&id, &key, &room.Title, &room.Description, &createdAt, &active, &room.ViewerCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying room: %w", err)
	}
	room.ID = RoomID(id)
	room.StreamKey = StreamKey(key)
	room.CreatedAt = createdAt.UTC()
	room.IsActive = active != 0
	return &room, nil
}

// PutRoom implements Store.PutRoom as an upsert keyed on room_id.
func (s *SQLiteStore) PutRoom(r *Room) error {
	_, err := s.db.Exec(`INSERT INTO rooms (room_id, stream_key, title, description, created_at, is_active, viewer_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			is_active = excluded.is_active,
			viewer_count = excluded.viewer_count`,
		string(r.ID), string(r.StreamKey), r.Title, r.Description, r.CreatedAt, boolToInt(r.IsActive), r.ViewerCount)
	if err != nil {
		return fmt.Errorf("writing room: %w", err)
	}
	return nil
}

// DeleteRoom implements Store.DeleteRoom.
func (s *SQLiteStore) DeleteRoom(id RoomID) error {
	res, err := s.db.Exec(`DELETE FROM rooms WHERE room_id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// ListRooms implements Store.ListRooms.
func (s *SQLiteStore) ListRooms() ([]*Room, error) {
	rows, err := s.db.Query(`SELECT room_id, stream_key, title, description, created_at, is_active, viewer_count FROM rooms`)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*Room
	for rows.Next() {
		var (
			room      Room
			id, key   string
			createdAt time.Time
			active    int
		)
		if err := rows.Scan(&id, &key, &room.Title, &room.Description, &createdAt, &active, &room.ViewerCount); err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		room.ID = RoomID(id)
		room.StreamKey = StreamKey(key)
		room.CreatedAt = createdAt.UTC()
		room.IsActive = active != 0
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	return rooms, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
