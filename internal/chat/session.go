package chat

// State is the position of a connection in the menu protocol.
type State int

const (
	StateIdle State = iota
	StateAwaitCreateIDs
	StateAwaitCreateName
	StateAwaitEnterChat
	StateAwaitLeaveChat
	StateInChat
	// StateClosing ignores input once a goodbye has been queued or the
	// connection has been cleaned up.
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitCreateIDs:
		return "AWAIT_CREATE_IDS"
	case StateAwaitCreateName:
		return "AWAIT_CREATE_NAME"
	case StateAwaitEnterChat:
		return "AWAIT_ENTER_CHAT"
	case StateAwaitLeaveChat:
		return "AWAIT_LEAVE_CHAT"
	case StateInChat:
		return "IN_CHAT"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Session is the protocol state owned by one connection.
type Session struct {
	User  *User
	State State

	// Scratch holds the id list typed between option 3 and the room name.
	Scratch string

	// Room is the room the session is chatting in while State is StateInChat.
	Room *Room
}

// Delivery is one unit of output for the connection of UserID: either a
// newline terminated text chunk or, with Close set, the close-after-flush
// marker.
type Delivery struct {
	UserID int
	Text   string
	Close  bool
}
