package session

import "sync"

// Registry holds the active session per chat. Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

// Get returns the chat's pending session, or nil.
func (r *Registry) Get(chatID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[chatID]
}

// Put installs s as the chat's session, replacing any pending one.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ChatID] = s
}

// Remove drops the chat's session if present.
func (r *Registry) Remove(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, chatID)
}

// RemoveIf drops the chat's session only when it still is s. Cleanup of a
// finished session must not evict a successor installed by a newer link.
func (r *Registry) RemoveIf(chatID int64, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[chatID] == s {
		delete(r.sessions, chatID)
	}
}

// Len reports how many chats have a pending session.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
