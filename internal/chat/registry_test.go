package chat

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegisterAssignsMonotonicIDs verifies that automatically registered
// users get distinct, increasing ids and the default user-<id> name.
func TestRegisterAssignsMonotonicIDs(t *testing.T) {
	r := NewUserRegistry(1000)

	prev := 0
	for i := 0; i < 5; i++ {
		u, err := r.Register()
		require.NoError(t, err)
		assert.Greater(t, u.ID, prev)
		assert.Equal(t, 1000+i, u.ID)
		assert.Equal(t, "user-"+strconv.Itoa(u.ID), u.Name)
		assert.True(t, u.Active)
		prev = u.ID
	}
	assert.Equal(t, 5, r.Len())
}

// TestAddRejectsDuplicates covers the unique id and case-insensitive unique
// name rules.
func TestAddRejectsDuplicates(t *testing.T) {
	r := NewUserRegistry(1000)
	require.NoError(t, r.Add(&User{ID: 1, Name: "Alice"}))

	err := r.Add(&User{ID: 1, Name: "Other"})
	assert.ErrorIs(t, err, ErrDuplicateUserID)

	err = r.Add(&User{ID: 2, Name: "aLiCe"})
	assert.ErrorIs(t, err, ErrDuplicateUserName)

	assert.Equal(t, 1, r.Len())
}

// TestRegisterSkipsTakenNames checks that a seeded name colliding with a
// default name does not stall registration.
func TestRegisterSkipsTakenNames(t *testing.T) {
	r := NewUserRegistry(1000)
	require.NoError(t, r.Add(&User{ID: 7, Name: "USER-1000"}))

	u, err := r.Register()
	require.NoError(t, err)
	assert.Equal(t, 1001, u.ID)
}

// TestAddAdvancesNextID keeps ids monotonic when a high id is added by hand.
func TestAddAdvancesNextID(t *testing.T) {
	r := NewUserRegistry(1000)
	require.NoError(t, r.Add(&User{ID: 2000, Name: "big"}))

	u, err := r.Register()
	require.NoError(t, err)
	assert.Equal(t, 2001, u.ID)
}

func TestOnlineCountsActiveUsers(t *testing.T) {
	r := NewUserRegistry(1000)
	a, _ := r.Register()
	_, _ = r.Register()
	a.Active = false

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 1, r.Online())

	got, ok := r.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Get(42)
	assert.False(t, ok)
}

// TestAddMemberIsIdempotent ensures a user appears once however many times
// it joins.
func TestAddMemberIsIdempotent(t *testing.T) {
	room := NewRoom("R")
	u := &User{ID: 1, Name: "a"}

	assert.True(t, room.AddMember(u))
	assert.False(t, room.AddMember(u))
	assert.False(t, room.AddMember(&User{ID: 1, Name: "copy"}))
	assert.Equal(t, 1, room.Len())
}

func TestRemoveMember(t *testing.T) {
	room := NewRoom("R")
	a := &User{ID: 1, Name: "a"}
	b := &User{ID: 2, Name: "b"}
	c := &User{ID: 3, Name: "c"}
	room.AddMember(a)
	room.AddMember(b)
	room.AddMember(c)

	assert.True(t, room.RemoveMember(2))
	assert.False(t, room.RemoveMember(2))
	assert.Equal(t, []string{"a", "c"}, room.MemberNames())
}

func TestHistoryIsAppendOnlyCopy(t *testing.T) {
	room := NewRoom("R")
	room.Append("one")
	room.Append("two")

	h := room.History()
	h[0] = "changed"

	assert.Equal(t, []string{"one", "two"}, room.History())
}

// TestFindReturnsFirstMatch documents that duplicate room names resolve to
// the oldest room.
func TestFindReturnsFirstMatch(t *testing.T) {
	rooms := NewRoomRegistry()
	first := rooms.Create("Lobby")
	second := rooms.Create("lobby")

	assert.Same(t, first, rooms.Find("LOBBY"))
	assert.NotSame(t, second, rooms.Find("lobby"))
	assert.Nil(t, rooms.Find("nope"))
	assert.Equal(t, 2, rooms.Len())
}

func TestRoomsOf(t *testing.T) {
	rooms := NewRoomRegistry()
	u := &User{ID: 5, Name: "u"}
	a := rooms.Create("a")
	rooms.Create("b")
	c := rooms.Create("c")
	a.AddMember(u)
	c.AddMember(u)

	assert.Equal(t, []*Room{a, c}, rooms.RoomsOf(5))

	c.RemoveMember(5)
	assert.Equal(t, []*Room{a}, rooms.RoomsOf(5))
	assert.Empty(t, rooms.RoomsOf(6))
}
