package chat

import (
	"sort"
	"strings"
	"sync"

	apperrors "github.com/Mynotaurus/gostreaming/internal/errors"
)

// Registry holds every authenticated session, indexed by connection id
// and by lowercased display name within each room. A single lock covers
// both indexes so uniqueness checks, room listings and field mutations
// are atomic with respect to each other.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]map[string]string // room -> lower(name) -> conn id
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]string),
	}
}

// Insert stores a new session. It fails when the connection already has
// a session or when the display name is taken in the room, so callers
// that checked beforehand are still safe against races.
func (r *Registry) Insert(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return apperrors.Unauthorized("Connection is already logged in")
	}

	room := r.rooms[s.Room]
	if room == nil {
		room = make(map[string]string)
		r.rooms[s.Room] = room
	}
	lower := strings.ToLower(s.Name)
	if _, ok := room[lower]; ok {
		return apperrors.Conflict("Username is taken")
	}

	room[lower] = s.ID
	r.sessions[s.ID] = s
	return nil
}

// Get returns a snapshot of the session for a connection id.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Remove deletes a connection's session and returns the removed
// snapshot for departure broadcasts.
func (r *Registry) Remove(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, id)

	if room := r.rooms[s.Room]; room != nil {
		delete(room, strings.ToLower(s.Name))
		if len(room) == 0 {
			delete(r.rooms, s.Room)
		}
	}
	return *s, true
}

// FindByName looks a session up by display name within a room,
// case-insensitively.
func (r *Registry) FindByName(room, name string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.rooms[room][strings.ToLower(name)]
	if !ok {
		return Session{}, false
	}
	return *r.sessions[id], true
}

// ListRoom returns the public roster of a room, sorted by name.
func (r *Registry) ListRoom(room string) []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.rooms[room]))
	for _, id := range r.rooms[room] {
		users = append(users, r.sessions[id].User())
	}
	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i].Username) < strings.ToLower(users[j].Username)
	})
	return users
}

// Mutate applies an in-place change to a session under the registry
// lock and returns the updated snapshot. fn must not touch the ID,
// Name or Room fields; renames go through Rename so the name index
// stays consistent.
func (r *Registry) Mutate(id string, fn func(*Session)) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	fn(s)
	return *s, true
}

// Rename changes a session's display name, enforcing room uniqueness in
// the same critical section. Renaming to a name that only differs in
// case still counts as taken.
func (r *Registry) Rename(id, newName string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, apperrors.Unauthorized("User is not authenticated")
	}

	room := r.rooms[s.Room]
	lower := strings.ToLower(newName)
	if _, taken := room[lower]; taken {
		return Session{}, apperrors.Conflict("Name is taken")
	}

	delete(room, strings.ToLower(s.Name))
	room[lower] = id
	s.Name = newName
	return *s, nil
}
