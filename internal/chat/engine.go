package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Options configures an Engine.
type Options struct {
	// FirstUserID is the id given to the first connecting client.
	FirstUserID int

	// SeedDemo preloads the demo users Alice, Bob and Reu and the room
	// Sala-Prueba.
	SeedDemo bool

	// Now stamps chat and private lines. Defaults to time.Now.
	Now func() time.Time
}

// Engine is the protocol state machine together with the registries it
// reads and mutates.
type Engine struct {
	users *UserRegistry
	rooms *RoomRegistry
	now   func() time.Time
}

func NewEngine(opts Options) *Engine {
	if opts.FirstUserID <= 0 {
		opts.FirstUserID = 1000
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		users: NewUserRegistry(opts.FirstUserID),
		rooms: NewRoomRegistry(),
		now:   opts.Now,
	}
	if opts.SeedDemo {
		e.seed()
	}
	return e
}

func (e *Engine) seed() {
	alice := &User{ID: 1, Name: "Alice"}
	bob := &User{ID: 2, Name: "Bob"}
	reu := &User{ID: 3, Name: "Reu"}
	for _, u := range []*User{alice, bob, reu} {
		// The registry is empty and the ids sit below FirstUserID.
		_ = e.users.Add(u)
	}

	room := e.rooms.Create("Sala-Prueba")
	room.AddMember(alice)
	room.AddMember(bob)
}

func (e *Engine) Users() *UserRegistry { return e.users }
func (e *Engine) Rooms() *RoomRegistry { return e.rooms }

// Connect registers a user for a newly accepted connection and returns its
// session along with the welcome output.
func (e *Engine) Connect() (*Session, []Delivery, error) {
	u, err := e.users.Register()
	if err != nil {
		return nil, nil, fmt.Errorf("register user: %w", err)
	}

	s := &Session{User: u, State: StateIdle}
	var out batch
	out.to(u, WelcomeText(u.Name))
	return s, out, nil
}

// Handle feeds one complete, trimmed input line to the session's state
// machine.
func (e *Engine) Handle(s *Session, line string) []Delivery {
	var out batch

	switch s.State {
	case StateIdle:
		e.handleMenu(s, ParseMenuCommand(line), &out)
	case StateAwaitCreateIDs:
		s.Scratch = line
		out.reply(s, "Escribe nombre del chat grupal:")
		s.State = StateAwaitCreateName
	case StateAwaitCreateName:
		e.createRoom(s, line, &out)
	case StateAwaitEnterChat:
		e.enterRoom(s, line, &out)
	case StateAwaitLeaveChat:
		e.leaveRoom(s, line, &out)
	case StateInChat:
		e.handleChat(s, ParseChatCommand(line), &out)
	case StateClosing:
	}

	return out
}

// Disconnect marks the session's user offline and notifies every room the
// user belongs to. Calling it again for the same session is a no-op.
func (e *Engine) Disconnect(s *Session) []Delivery {
	if s == nil || s.User == nil || !s.User.Active {
		return nil
	}

	var out batch
	u := s.User
	u.Active = false
	for _, room := range e.rooms.RoomsOf(u.ID) {
		e.announce(room, disconnectNotice(u.Name), &out)
	}

	s.State = StateClosing
	s.Scratch = ""
	s.Room = nil
	return out
}

func (e *Engine) handleMenu(s *Session, cmd Command, out *batch) {
	switch cmd.Kind {
	case CommandListUsers:
		out.reply(s, e.userListing("Usuarios (id - nombre):")...)
	case CommandListRooms:
		out.reply(s, e.roomListing()...)
	case CommandCreateRoom:
		lines := e.userListing("Crear chat - lista de usuarios (id - nombre):")
		lines = append(lines, "Escribe los IDs separados por comas (puedes incluirte):")
		out.reply(s, lines...)
		s.State = StateAwaitCreateIDs
	case CommandEnterRoom:
		lines := []string{"Tus chats:"}
		for _, room := range e.rooms.RoomsOf(s.User.ID) {
			lines = append(lines, "- "+room.Name)
		}
		lines = append(lines, "Si quieres entrar a un chat (o crearlo con opción 3), escribe el nombre del chat ahora:")
		out.reply(s, lines...)
		s.State = StateAwaitEnterChat
	case CommandLeaveRoom:
		out.reply(s, "Escribe el nombre del chat del que quieres salir:")
		s.State = StateAwaitLeaveChat
	case CommandQuit:
		out.reply(s, "Adios!")
		out.closeAfterFlush(s)
		s.State = StateClosing
	default:
		out.to(s.User, block("Recibido: "+cmd.Text)+MenuText())
	}
}

func (e *Engine) userListing(header string) []string {
	users := e.users.All()
	if len(users) == 0 {
		return []string{"No hay usuarios."}
	}
	lines := []string{header}
	for _, u := range users {
		lines = append(lines, fmt.Sprintf("%d - %s", u.ID, u.Name))
	}
	return lines
}

func (e *Engine) roomListing() []string {
	rooms := e.rooms.All()
	if len(rooms) == 0 {
		return []string{"No hay chats disponibles."}
	}
	lines := []string{"Chats:"}
	for _, room := range rooms {
		lines = append(lines, fmt.Sprintf("- %s (miembros: %d)", room.Name, room.Len()))
	}
	return lines
}

func (e *Engine) createRoom(s *Session, name string, out *batch) {
	ids := s.Scratch
	s.Scratch = ""

	room := e.rooms.Create(name)
	for _, field := range strings.FieldsFunc(ids, isIDSeparator) {
		id, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		if u, ok := e.users.Get(id); ok {
			room.AddMember(u)
		}
	}
	room.AddMember(s.User)

	e.announce(room, joinNotice(s.User.Name), out)
	out.reply(s, memberListing("Chat creado: "+name, room)...)
	s.Room = room
	s.State = StateInChat
}

func isIDSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

func (e *Engine) enterRoom(s *Session, name string, out *batch) {
	room := e.rooms.Find(name)
	if room == nil {
		out.reply(s, roomNotFound(name))
		s.State = StateIdle
		return
	}

	room.AddMember(s.User)
	if history := room.History(); len(history) > 0 {
		out.reply(s, history...)
	}
	for _, m := range room.Members() {
		out.reply(s, presenceLine(m))
	}

	e.announce(room, joinNotice(s.User.Name), out)
	out.reply(s, memberListing("Te has unido a "+room.Name, room)...)
	s.Room = room
	s.State = StateInChat
}

func (e *Engine) leaveRoom(s *Session, name string, out *batch) {
	s.State = StateIdle

	room := e.rooms.Find(name)
	if room == nil {
		out.reply(s, roomNotFound(name))
		return
	}

	room.RemoveMember(s.User.ID)
	e.announce(room, leaveNotice(s.User.Name), out)
	out.reply(s, "Has salido de "+room.Name)
}

func memberListing(header string, room *Room) []string {
	lines := []string{header, "Miembros:"}
	for _, name := range room.MemberNames() {
		lines = append(lines, "- "+name)
	}
	return append(lines, "Entrando al chat. Para volver al menu escribe MEN0")
}

func (e *Engine) handleChat(s *Session, cmd Command, out *batch) {
	switch cmd.Kind {
	case CommandPrivate:
		e.sendPrivate(s, cmd, out)
	case CommandFile:
		if s.Room == nil {
			out.reply(s, noActiveRoom)
			return
		}
		e.broadcast(s.Room, RelayFrame(s.User.Name, cmd.FileName, cmd.Payload), out)
	case CommandBackToMenu:
		s.State = StateIdle
		s.Room = nil
		out.to(s.User, block("Saliendo del chat.")+MenuText())
	case CommandUsageError:
		out.reply(s, cmd.Usage)
	default:
		if s.Room == nil {
			out.reply(s, "No hay chat activo.")
			s.State = StateIdle
			return
		}
		e.announce(s.Room, ChatLine(s.User.Name, e.now(), cmd.Text), out)
	}
}

func (e *Engine) sendPrivate(s *Session, cmd Command, out *batch) {
	dest, ok := e.users.Get(cmd.TargetID)
	if !ok || !dest.Active {
		out.reply(s, recipientNotFound(cmd.TargetID))
		return
	}
	out.to(dest, block(PrivateLine(s.User.Name, e.now(), cmd.Text)))
	out.reply(s, privateConfirmation(dest.Name))
}

// announce appends line to the room history and then broadcasts it.
func (e *Engine) announce(room *Room, line string, out *batch) {
	room.Append(line)
	e.broadcast(room, line, out)
}

// broadcast delivers line to every online member in membership order.
func (e *Engine) broadcast(room *Room, line string, out *batch) {
	chunk := block(line)
	for _, m := range room.Members() {
		if m.Active {
			out.to(m, chunk)
		}
	}
}

// batch accumulates the deliveries produced by one input.
type batch []Delivery

func (b *batch) to(u *User, chunk string) {
	*b = append(*b, Delivery{UserID: u.ID, Text: chunk})
}

func (b *batch) reply(s *Session, lines ...string) {
	b.to(s.User, block(lines...))
}

func (b *batch) closeAfterFlush(s *Session) {
	*b = append(*b, Delivery{UserID: s.User.ID, Close: true})
}
