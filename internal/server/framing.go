package server

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
)

// lineBuffer assembles newline delimited lines from arbitrary read chunks.
// An incomplete trailing fragment stays buffered until its newline arrives.
type lineBuffer struct {
	buf []byte
	max int
	// scanned is how much of buf is known to hold no newline, so a long
	// line arriving in many reads is searched once.
	scanned int
}

// feed appends p and returns every completed line with surrounding
// whitespace trimmed. Lines returned before an ErrLineTooLong are valid.
func (b *lineBuffer) feed(p []byte) ([]string, error) {
	b.buf = append(b.buf, p...)

	var lines []string
	start, from := 0, b.scanned
	for {
		i := bytes.IndexByte(b.buf[from:], '\n')
		if i < 0 {
			break
		}
		end := from + i
		if b.max > 0 && end-start > b.max {
			return lines, fmt.Errorf("line of %d bytes: %w", end-start, ErrLineTooLong)
		}
		lines = append(lines, strings.TrimSpace(string(b.buf[start:end])))
		start = end + 1
		from = start
	}

	if start > 0 {
		n := copy(b.buf, b.buf[start:])
		b.buf = b.buf[:n]
	}
	b.scanned = len(b.buf)

	if b.max > 0 && len(b.buf) > b.max {
		return lines, fmt.Errorf("partial line of %d bytes: %w", len(b.buf), ErrLineTooLong)
	}
	return lines, nil
}

// buffered reports the size of the pending fragment.
func (b *lineBuffer) buffered() int {
	return len(b.buf)
}

// outbox is the unbounded outbound FIFO of one connection. A zero-length
// chunk is the close-after-flush marker. push never blocks, so the hub is
// never held up by a slow reader.
type outbox struct {
	mu     sync.Mutex
	chunks [][]byte
	bytes  int
	closed bool
	ready  chan struct{}
}

func newOutbox() *outbox {
	return &outbox{ready: make(chan struct{}, 1)}
}

// push queues a chunk and wakes the writer. It reports false once the outbox
// is closed.
func (o *outbox) push(chunk []byte) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.chunks = append(o.chunks, chunk)
	o.bytes += len(chunk)
	o.mu.Unlock()

	select {
	case o.ready <- struct{}{}:
	default:
	}
	return true
}

// take blocks until chunks are queued, the outbox is closed, or done fires,
// and returns everything queued so far in FIFO order.
func (o *outbox) take(done <-chan struct{}) ([][]byte, bool) {
	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return nil, false
		}
		if len(o.chunks) > 0 {
			chunks := o.chunks
			o.chunks = nil
			o.bytes = 0
			o.mu.Unlock()
			return chunks, true
		}
		o.mu.Unlock()

		select {
		case <-o.ready:
		case <-done:
			return nil, false
		}
	}
}

// pending returns the number of queued bytes not yet handed to the writer.
func (o *outbox) pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bytes
}

func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.chunks = nil
	o.bytes = 0
	o.mu.Unlock()

	select {
	case o.ready <- struct{}{}:
	default:
	}
}
