// Package server manages individual connections, handling read/write pumps,
// input throttling, and lifecycle control for each socket.
package server

import (
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/linechat/internal/chat"
)

const readChunkSize = 2048

// closeMarker asks the write pump to close the socket once every earlier
// chunk has been written.
var closeMarker = []byte{}

// Connection is one live client socket, TCP or WebSocket. The session and
// cleaned fields belong to the hub goroutine.
type Connection struct {
	stream      io.ReadWriteCloser
	addr        string
	hub         *Hub
	out         *outbox
	lines       lineBuffer
	rateLimiter *rate.Limiter
	rateLimit   RateLimitConfig
	logger      zerolog.Logger
	closeOnce   sync.Once

	session *chat.Session
	cleaned bool
}

// NewConnection wraps stream for use with hub. Most callers go through
// Hub.Attach instead.
func NewConnection(stream io.ReadWriteCloser, hub *Hub, addr string) *Connection {
	cfg := hub.cfg
	id := uuid.NewString()

	return &Connection{
		stream:      stream,
		addr:        addr,
		hub:         hub,
		out:         newOutbox(),
		lines:       lineBuffer{max: cfg.MaxLineBytes},
		rateLimiter: newRateLimiter(cfg.RateLimit),
		rateLimit:   cfg.RateLimit,
		logger:      log.With().Str("session", id).Str("addr", addr).Logger(),
	}
}

// Pending returns the bytes queued for this client and not yet written.
func (c *Connection) Pending() int {
	return c.out.pending()
}

func (c *Connection) enqueue(text string) {
	if text == "" {
		return
	}
	c.out.push([]byte(text))
}

func (c *Connection) enqueueClose() {
	c.out.push(closeMarker)
}

func (c *Connection) closeStream() {
	c.closeOnce.Do(func() {
		if err := c.stream.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn().Err(err).Msg("error closing connection")
		}
	})
}

// waitRateLimit blocks until the limiter admits one more line. Lines are
// never dropped: a fast sender is slowed down and the stream's own flow
// control pushes back on it. It reports false once the hub shuts down.
func (c *Connection) waitRateLimit() bool {
	if c.rateLimiter == nil {
		return true
	}
	if err := c.rateLimiter.Wait(c.hub.ctx); err != nil {
		c.logger.Debug().Err(err).Int("burst", c.rateLimit.Burst).Msg("rate limit wait aborted")
		return false
	}
	return true
}

// logReadError logs read failures, keeping ordinary disconnects at debug.
func (c *Connection) logReadError(err error) {
	switch {
	case errors.Is(err, ErrLineTooLong):
		c.logger.Warn().Err(err).Int("max", c.lines.max).Msg("closing connection")
	case isExpectedCloseError(err):
		c.logger.Debug().Err(err).Msg("connection closed by peer")
	default:
		c.logger.Warn().Err(err).Msg("read error")
	}
}

// readPump reads until EOF or error and forwards each complete line to the
// hub in arrival order. Any exit reports the connection as gone.
func (c *Connection) readPump() {
	defer c.hub.disconnect(c)

	buf := make([]byte, readChunkSize)
	for {
		n, err := c.stream.Read(buf)
		if n > 0 {
			lines, ferr := c.lines.feed(buf[:n])
			for _, line := range lines {
				if !c.waitRateLimit() || !c.hub.deliver(c, line) {
					return
				}
			}
			if ferr != nil {
				c.logReadError(ferr)
				return
			}
		}
		if err != nil {
			c.logReadError(err)
			return
		}
	}
}

// writePump drains the outbox in FIFO order. It stops on the close marker
// after prior chunks are written, on a write error, or when the outbox is
// closed by cleanup.
func (c *Connection) writePump() {
	defer c.hub.disconnect(c)

	for {
		chunks, ok := c.out.take(c.hub.ctx.Done())
		if !ok {
			return
		}
		for _, chunk := range chunks {
			if len(chunk) == 0 {
				c.logger.Debug().Msg("output flushed; closing on request")
				c.closeStream()
				return
			}
			if _, err := c.stream.Write(chunk); err != nil {
				if !isExpectedCloseError(err) {
					c.logger.Warn().Err(err).Msg("write error")
				}
				return
			}
		}
	}
}
