package chat

import "strings"

// Room is a named group with ordered membership and an append-only history
// of already formatted lines.
type Room struct {
	Name    string
	members []*User
	history []string
}

func NewRoom(name string) *Room {
	return &Room{Name: name}
}

// AddMember appends u unless a member with the same id is present. It
// reports whether the membership changed.
func (r *Room) AddMember(u *User) bool {
	if u == nil || r.HasMember(u.ID) {
		return false
	}
	r.members = append(r.members, u)
	return true
}

// RemoveMember drops the member with the given id, if any.
func (r *Room) RemoveMember(id int) bool {
	for i, m := range r.members {
		if m.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) HasMember(id int) bool {
	for _, m := range r.members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Members returns the members in insertion order.
func (r *Room) Members() []*User {
	return append([]*User(nil), r.members...)
}

func (r *Room) MemberNames() []string {
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.Name)
	}
	return names
}

func (r *Room) Len() int {
	return len(r.members)
}

// Append records a line in the history.
func (r *Room) Append(line string) {
	r.history = append(r.history, line)
}

// History returns a copy of the history, oldest first.
func (r *Room) History() []string {
	return append([]string(nil), r.history...)
}

// RoomRegistry is the insertion-ordered set of rooms. Names are not unique;
// Find returns the first case-insensitive match.
type RoomRegistry struct {
	rooms []*Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{}
}

// Create registers a new room even if another room already uses the name.
func (r *RoomRegistry) Create(name string) *Room {
	room := NewRoom(name)
	r.rooms = append(r.rooms, room)
	return room
}

func (r *RoomRegistry) Find(name string) *Room {
	for _, room := range r.rooms {
		if strings.EqualFold(room.Name, name) {
			return room
		}
	}
	return nil
}

func (r *RoomRegistry) All() []*Room {
	return append([]*Room(nil), r.rooms...)
}

// RoomsOf lists the rooms that currently count userID as a member.
func (r *RoomRegistry) RoomsOf(userID int) []*Room {
	var rooms []*Room
	for _, room := range r.rooms {
		if room.HasMember(userID) {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

func (r *RoomRegistry) Len() int {
	return len(r.rooms)
}
