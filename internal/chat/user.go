package chat

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateUserID   = errors.New("user id already registered")
	ErrDuplicateUserName = errors.New("user name already registered")
)

// User is a registered chat participant. Users stay in the registry after
// they disconnect; Active reports whether a live connection is attached.
type User struct {
	ID     int
	Name   string
	Active bool
}

// UserRegistry holds every known user in registration order.
type UserRegistry struct {
	users  []*User
	byID   map[int]*User
	byName map[string]*User
	nextID int
}

// NewUserRegistry returns an empty registry whose automatically assigned ids
// start at firstID.
func NewUserRegistry(firstID int) *UserRegistry {
	return &UserRegistry{
		byID:   make(map[int]*User),
		byName: make(map[string]*User),
		nextID: firstID,
	}
}

func nameKey(name string) string {
	return strings.ToLower(name)
}

// Add inserts u, rejecting a duplicate id or a name that matches an existing
// one case-insensitively.
func (r *UserRegistry) Add(u *User) error {
	if _, exists := r.byID[u.ID]; exists {
		return fmt.Errorf("add user %d: %w", u.ID, ErrDuplicateUserID)
	}
	if _, exists := r.byName[nameKey(u.Name)]; exists {
		return fmt.Errorf("add user %q: %w", u.Name, ErrDuplicateUserName)
	}

	r.users = append(r.users, u)
	r.byID[u.ID] = u
	r.byName[nameKey(u.Name)] = u
	if u.ID >= r.nextID {
		r.nextID = u.ID + 1
	}
	return nil
}

// Register creates an active user with the next free id and the default
// name user-<id>. Ids are never reused.
func (r *UserRegistry) Register() (*User, error) {
	for {
		id := r.nextID
		r.nextID++

		u := &User{ID: id, Name: fmt.Sprintf("user-%d", id), Active: true}
		err := r.Add(u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, ErrDuplicateUserName) && !errors.Is(err, ErrDuplicateUserID) {
			return nil, err
		}
	}
}

// Get looks a user up by id.
func (r *UserRegistry) Get(id int) (*User, bool) {
	u, ok := r.byID[id]
	return u, ok
}

// All returns the users in registration order.
func (r *UserRegistry) All() []*User {
	return append([]*User(nil), r.users...)
}

func (r *UserRegistry) Len() int {
	return len(r.users)
}

// Online counts users with an attached connection.
func (r *UserRegistry) Online() int {
	n := 0
	for _, u := range r.users {
		if u.Active {
			n++
		}
	}
	return n
}
