// Package server coordinates connection registration, line dispatch, and
// connection cleanup for linechat via the Hub type.
package server

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tyrowin/linechat/internal/chat"
)

type inboundLine struct {
	conn *Connection
	line string
}

// Hub owns the protocol engine and every live Connection. All engine calls
// and routing-table changes happen on the goroutine running Run, so the
// registries need no locking and broadcasts are applied in the order their
// lines were read.
type Hub struct {
	cfg        Config
	engine     *chat.Engine
	routes     map[int]*Connection
	conns      map[*Connection]struct{}
	register   chan *Connection
	unregister chan *Connection
	inbound    chan inboundLine
	queries    chan chan Stats
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a hub with a fresh engine built from cfg.
func NewHub(cfg Config) *Hub {
	cfg = cfg.sanitized()
	return NewHubWithEngine(cfg, chat.NewEngine(chat.Options{
		FirstUserID: cfg.FirstUserID,
		SeedDemo:    cfg.SeedDemo,
	}))
}

// NewHubWithEngine creates a hub around an existing engine.
func NewHubWithEngine(cfg Config, engine *chat.Engine) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:        cfg.sanitized(),
		engine:     engine,
		routes:     make(map[int]*Connection),
		conns:      make(map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		inbound:    make(chan inboundLine, 256),
		queries:    make(chan chan Stats),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Attach registers stream as a new client. The hub assigns a user, queues
// the welcome text and starts the connection's pumps.
func (h *Hub) Attach(stream io.ReadWriteCloser, addr string) (*Connection, error) {
	c := NewConnection(stream, h, addr)
	select {
	case h.register <- c:
		return c, nil
	case <-h.ctx.Done():
		c.closeStream()
		return nil, ErrHubClosed
	}
}

// deliver hands a line to the hub goroutine. It reports false after shutdown.
func (h *Hub) deliver(c *Connection, line string) bool {
	select {
	case h.inbound <- inboundLine{conn: c, line: line}:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// disconnect asks the hub to clean c up. Reports after the first are ignored.
func (h *Hub) disconnect(c *Connection) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Run starts the hub's main event loop, handling registration, input lines,
// cleanup and stats queries. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownConnections()
			return

		case c := <-h.register:
			h.accept(c)

		case in := <-h.inbound:
			h.dispatch(in)

		case c := <-h.unregister:
			h.cleanup(c)

		case reply := <-h.queries:
			reply <- h.snapshot()
		}
	}
}

func (h *Hub) accept(c *Connection) {
	session, deliveries, err := h.engine.Connect()
	if err != nil {
		c.logger.Error().Err(err).Msg("cannot register user; dropping connection")
		c.closeStream()
		return
	}

	c.session = session
	c.logger = c.logger.With().Int("user_id", session.User.ID).Logger()
	h.conns[c] = struct{}{}
	h.routes[session.User.ID] = c
	c.logger.Info().
		Str("user", session.User.Name).
		Int("connections", len(h.conns)).
		Msg("connection accepted")

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()

	h.route(deliveries)
}

func (h *Hub) dispatch(in inboundLine) {
	c := in.conn
	if c.cleaned || c.session == nil {
		return
	}

	c.logger.Debug().Str("state", c.session.State.String()).Str("line", in.line).Msg("line received")
	h.route(h.engine.Handle(c.session, in.line))
}

// route queues each delivery on the connection currently mapped to its user.
// Users without a live connection are skipped.
func (h *Hub) route(deliveries []chat.Delivery) {
	for _, d := range deliveries {
		c, ok := h.routes[d.UserID]
		if !ok {
			continue
		}
		if d.Close {
			c.enqueueClose()
			continue
		}
		c.enqueue(d.Text)
	}
}

// cleanup tears a connection down once: it leaves the routing table, its
// user goes offline with a notice to each of the user's rooms, and the socket
// is closed.
func (h *Hub) cleanup(c *Connection) {
	if c.cleaned {
		return
	}
	c.cleaned = true

	delete(h.conns, c)
	if c.session != nil {
		if h.routes[c.session.User.ID] == c {
			delete(h.routes, c.session.User.ID)
		}
		h.route(h.engine.Disconnect(c.session))
	}

	c.out.close()
	c.closeStream()
	c.logger.Info().Int("connections", len(h.conns)).Msg("connection closed")
}

func (h *Hub) snapshot() Stats {
	users := h.engine.Users()
	stats := Stats{
		Users:       users.Len(),
		Online:      users.Online(),
		Rooms:       h.engine.Rooms().Len(),
		Connections: len(h.conns),
	}
	for c := range h.conns {
		stats.QueuedBytes += c.Pending()
	}
	return stats
}

// Stats asks the hub goroutine for a snapshot.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.queries <- reply:
	case <-h.ctx.Done():
		return Stats{}, ErrHubClosed
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// shutdownConnections closes every live connection without notifying rooms.
func (h *Hub) shutdownConnections() {
	log.Info().Int("connections", len(h.conns)).Msg("shutting down all client connections")

	for c := range h.conns {
		c.cleaned = true
		c.out.close()
		c.closeStream()
	}
	clear(h.conns)
	clear(h.routes)
}

// Shutdown stops the hub and waits for all connection goroutines to finish,
// or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Info().Msg("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Warn().Msg("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
