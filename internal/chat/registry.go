package chat

import "sync"

// RemoveResult describes the outcome of removing a session.
type RemoveResult struct {
	UserID         int64
	WasLastSession bool
}

// Registry tracks which users currently have at least one live connection
// and which connections belong to which user. It keeps a forward index
// (user to ordered connection ids) and a reverse index (connection id to
// user) so that disconnect cleanup is O(1) on the lookup side.
//
// Invariant: userBySession[c] == u exactly when c is in sessionsByUser[u].
// A user's entry is deleted entirely when the last session closes; an empty
// list is never left behind.
type Registry struct {
	mu             sync.Mutex
	sessionsByUser map[int64][]string
	userBySession  map[string]int64
}

// NewRegistry constructs an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		sessionsByUser: make(map[int64][]string),
		userBySession:  make(map[string]int64),
	}
}

// AddSession records a connection for a user and returns the user's new
// session count.
func (r *Registry) AddSession(userID int64, connID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessionsByUser[userID] = append(r.sessionsByUser[userID], connID)
	r.userBySession[connID] = userID
	return len(r.sessionsByUser[userID])
}

// RemoveSession removes a connection. The second return value is false when
// the connection was never mapped, which callers treat as a no-op.
func (r *Registry) RemoveSession(connID string) (RemoveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.userBySession[connID]
	if !ok {
		return RemoveResult{}, false
	}
	delete(r.userBySession, connID)

	sessions := r.sessionsByUser[userID]
	for i, id := range sessions {
		if id == connID {
			sessions = append(sessions[:i], sessions[i+1:]...)
			break
		}
	}

	if len(sessions) == 0 {
		delete(r.sessionsByUser, userID)
		return RemoveResult{UserID: userID, WasLastSession: true}, true
	}
	r.sessionsByUser[userID] = sessions
	return RemoveResult{UserID: userID, WasLastSession: false}, true
}

// OnlineUserIDs returns the ids of users with at least one live connection.
// Order is unspecified.
func (r *Registry) OnlineUserIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.sessionsByUser))
	for id := range r.sessionsByUser {
		ids = append(ids, id)
	}
	return ids
}

// SessionsFor returns a copy of the user's connection ids in connection
// order, or an empty slice when the user is offline.
func (r *Registry) SessionsFor(userID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.sessionsByUser[userID]
	out := make([]string, len(sessions))
	copy(out, sessions)
	return out
}
