package registry

import (
	"slices"
	"strings"
	"sync"

	"roomrelay/internal/pkg/errs"
)

// Registry is the process-local user directory shared by every session.
// A single RWMutex makes each operation atomic with respect to the others.
type Registry struct {
	mu sync.RWMutex

	// users maps connection id to its joined user.
	users map[string]User

	// nextSeq is the join sequence handed to the next added user.
	nextSeq uint64
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		users: make(map[string]User),
	}
}

// AddUser registers a user for connID after trimming name and room.
// It fails with a validation error when either is empty or when connID already has a user;
// the registry is left unchanged on failure.
func (r *Registry) AddUser(connID, name, room string) (User, error) {
	name = strings.TrimSpace(name)
	room = strings.TrimSpace(room)

	if name == "" || room == "" {
		return User{}, errs.NewError(errs.ErrNameAndRoomRequired)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[connID]; exists {
		return User{}, errs.NewError(errs.ErrAlreadyJoined)
	}

	r.nextSeq++
	u := User{
		ConnID: connID,
		Name:   name,
		Room:   room,
		seq:    r.nextSeq,
	}
	r.users[connID] = u

	return u, nil
}

// RemoveUser deletes the user for connID and returns it. Removing an unknown id is a no-op.
func (r *Registry) RemoveUser(connID string) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[connID]
	if ok {
		delete(r.users, connID)
	}
	return u, ok
}

// GetUser returns the user registered for connID.
func (r *Registry) GetUser(connID string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[connID]
	return u, ok
}

// GetUserByName finds a user by exact (trimmed) display name.
// A non-empty room restricts the search to that room. Names are not unique, so the
// earliest joiner among the matches is returned.
func (r *Registry) GetUserByName(name, room string) (User, bool) {
	name = strings.TrimSpace(name)
	room = strings.TrimSpace(room)
	if name == "" {
		return User{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found User
		ok    bool
	)
	for _, u := range r.users {
		if u.Name != name || (room != "" && u.Room != room) {
			continue
		}
		if !ok || u.seq < found.seq {
			found, ok = u, true
		}
	}
	return found, ok
}

// GetUsersInRoom returns a fresh snapshot of the room's roster in join order.
func (r *Registry) GetUsersInRoom(room string) []User {
	r.mu.RLock()
	members := make([]User, 0)
	for _, u := range r.users {
		if u.Room == room {
			members = append(members, u)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(members, func(a, b User) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})
	return members
}

// Len returns the number of joined users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}

// Rooms returns the distinct names of rooms that currently have members, sorted.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	seen := make(map[string]struct{})
	for _, u := range r.users {
		seen[u.Room] = struct{}{}
	}
	r.mu.RUnlock()

	rooms := make([]string, 0, len(seen))
	for room := range seen {
		rooms = append(rooms, room)
	}
	slices.Sort(rooms)
	return rooms
}
