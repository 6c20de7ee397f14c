// Package rooms keeps an in-process registry of active chat rooms.
// Room lifecycle on the realtime media server itself is out of scope; this
// registry only tracks what this backend has been asked to create.
package rooms

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("room not found")

// Room is a registered chat room.
type Room struct {
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	Participants []string  `json:"participants"`
}

// Registry is a mutex-guarded room map. The original deployment shared a bare
// map across request handlers; concurrent HTTP handlers make the lock
// mandatory here.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

// Create registers a room and reports whether it was newly created.
// Creating an existing room is not an error; the existing room is returned.
func (r *Registry) Create(name string) (Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rooms[name]; ok {
		return clone(existing), false
	}

	room := &Room{
		Name:      name,
		CreatedAt: r.now().UTC(),
	}
	r.rooms[name] = room
	return clone(room), true
}

// Get returns a room by name.
func (r *Registry) Get(name string) (Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[name]
	if !ok {
		return Room{}, ErrNotFound
	}
	return clone(room), nil
}

// Close unregisters a room.
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[name]; !ok {
		return ErrNotFound
	}
	delete(r.rooms, name)
	return nil
}

// Join records a participant in a room. Joining twice is a no-op.
func (r *Registry) Join(name, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[name]
	if !ok {
		return ErrNotFound
	}
	for _, p := range room.Participants {
		if p == username {
			return nil
		}
	}
	room.Participants = append(room.Participants, username)
	return nil
}

// List returns all rooms ordered by creation time, oldest first.
func (r *Registry) List() []Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, clone(room))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Names returns the registered room names, sorted like List.
func (r *Registry) Names() []string {
	rooms := r.List()
	names := make([]string, len(rooms))
	for i, room := range rooms {
		names[i] = room.Name
	}
	return names
}

// Len returns the number of registered rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func clone(room *Room) Room {
	c := *room
	c.Participants = append([]string(nil), room.Participants...)
	return c
}
