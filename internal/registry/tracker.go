package registry

import (
	"sync"
	"time"
)

// Tracker maps stream keys to publishing sessions, reconciled by lifecycle
// notifications from the external media server. Session state and the
// owning room's activity flag are stored separately; the start/end handlers
// keep them in step.
//
// Per stream key the state machine is Idle -> Publishing -> Idle. A start
// while already Publishing re-stamps the session (restart semantics); an
// end while Idle is a no-op.
type Tracker struct {
	mu       sync.Mutex
	sessions map[StreamKey]time.Time
	repo     Repository
	now      func() time.Time
}

// NewTracker returns a Tracker that resolves owning rooms through repo.
func NewTracker(repo Repository) *Tracker {
	return &Tracker{
		sessions: make(map[StreamKey]time.Time),
		repo:     repo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OnStreamStart records a publishing session for key and marks the owning
// room active. Idempotent: a repeated start overwrites the session's start
// time. Unknown keys are accepted as orphan sessions; the media server has
// no error-handling contract, so this never fails. The second return is
// false for orphans.
func (t *Tracker) OnStreamStart(key StreamKey) (Room, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessions[key] = t.now()
	return t.repo.SetActive(key, true)
}

// OnStreamEnd removes the session for key, if any, and marks the owning
// room inactive. Idempotent: an end without a prior start is a no-op. The
// second return is false when no room owns the key.
func (t *Tracker) OnStreamEnd(key StreamKey) (Room, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.sessions, key)
	return t.repo.SetActive(key, false)
}

// Status reports whether key has an open session and when it started.
// It reflects session table membership only, independent of any room flag.
func (t *Tracker) Status(key StreamKey) (bool, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	startedAt, ok := t.sessions[key]
	return ok, startedAt
}

// Forget drops any session for key without touching room state. Used when
// a room is deleted while its stream is still publishing, so the tracker
// is not left holding a session with no resolvable room.
func (t *Tracker) Forget(key StreamKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.sessions, key)
}

// ActiveSessionCount returns the number of open sessions. Used for metrics.
func (t *Tracker) ActiveSessionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.sessions)
}

// SweepStale expires sessions whose start notification is older than maxAge
// and marks their rooms inactive, covering the case where the media server
// crashed without sending an end notification. Returns the number of
// sessions expired.
func (t *Tracker) SweepStale(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-maxAge)
	n := 0
	for key, startedAt := range t.sessions {
		if startedAt.After(cutoff) {
			continue
		}
		delete(t.sessions, key)
		t.repo.SetActive(key, false)
		n++
	}
	return n
}
