package server

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLineBufferAssemblesSplitLines tests that a line split across several
// reads is only released once its newline arrives.
func TestLineBufferAssemblesSplitLines(t *testing.T) {
	b := lineBuffer{max: 64}

	lines, err := b.feed([]byte("hel"))
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, 3, b.buffered())

	lines, err = b.feed([]byte("lo\nwor"))
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, lines)
	assert.Equal(t, 3, b.buffered())

	lines, err = b.feed([]byte("ld\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"world"}, lines)
	assert.Zero(t, b.buffered())
}

// TestLineBufferBatchedLines tests that several lines in one read come out in
// order with whitespace and carriage returns trimmed.
func TestLineBufferBatchedLines(t *testing.T) {
	b := lineBuffer{max: 64}

	lines, err := b.feed([]byte("1\r\n  2  \n\nsalir\n"))

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "", "salir"}, lines)
}

// TestLineBufferResumesSearch tests that a long line delivered over many
// reads is assembled whole while only the new bytes are searched.
func TestLineBufferResumesSearch(t *testing.T) {
	b := lineBuffer{max: 1 << 20}
	chunk := bytes.Repeat([]byte("A"), readChunkSize)

	for i := 0; i < 100; i++ {
		lines, err := b.feed(chunk)
		require.NoError(t, err)
		require.Empty(t, lines)
		require.Equal(t, b.buffered(), b.scanned)
	}

	lines, err := b.feed([]byte("B\nnext"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Len(t, lines[0], 100*readChunkSize+1)
	assert.Equal(t, "next", string(b.buf))
	assert.Equal(t, 4, b.scanned)

	lines, err = b.feed([]byte("\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"next"}, lines)
	assert.Zero(t, b.scanned)
}

func TestLineBufferRejectsLongLines(t *testing.T) {
	t.Run("complete line", func(t *testing.T) {
		b := lineBuffer{max: 4}

		lines, err := b.feed([]byte("ok\ntoolong\n"))

		require.ErrorIs(t, err, ErrLineTooLong)
		assert.Equal(t, []string{"ok"}, lines)
	})

	t.Run("partial line", func(t *testing.T) {
		b := lineBuffer{max: 4}

		_, err := b.feed([]byte("abc"))
		require.NoError(t, err)
		_, err = b.feed([]byte("de"))
		require.ErrorIs(t, err, ErrLineTooLong)
	})

	t.Run("no limit", func(t *testing.T) {
		var b lineBuffer

		lines, err := b.feed(make([]byte, 1<<16))
		require.NoError(t, err)
		assert.Empty(t, lines)
	})
}

// TestOutboxKeepsOrder tests that chunks come out in the order they were
// pushed, the close marker included.
func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox()
	require.True(t, o.push([]byte("a\n")))
	require.True(t, o.push([]byte("bc\n")))
	require.True(t, o.push(closeMarker))
	assert.Equal(t, 5, o.pending())

	chunks, ok := o.take(nil)

	require.True(t, ok)
	require.Len(t, chunks, 3)
	assert.Equal(t, "a\n", string(chunks[0]))
	assert.Equal(t, "bc\n", string(chunks[1]))
	assert.Empty(t, chunks[2])
	assert.Zero(t, o.pending())
}

// TestOutboxWakesWriter tests that a blocked take returns once a chunk is
// pushed from another goroutine.
func TestOutboxWakesWriter(t *testing.T) {
	o := newOutbox()
	got := make(chan string, 1)

	go func() {
		chunks, ok := o.take(nil)
		if ok && len(chunks) > 0 {
			got <- string(chunks[0])
		}
		close(got)
	}()

	time.Sleep(10 * time.Millisecond)
	o.push([]byte("late\n"))

	select {
	case s := <-got:
		assert.Equal(t, "late\n", s)
	case <-time.After(time.Second):
		t.Fatal("take did not wake up")
	}
}

func TestOutboxClose(t *testing.T) {
	o := newOutbox()
	o.push([]byte("dropped\n"))
	o.close()

	assert.False(t, o.push([]byte("x")))
	chunks, ok := o.take(nil)
	assert.False(t, ok)
	assert.Nil(t, chunks)
	assert.Zero(t, o.pending())
}

func TestOutboxTakeStopsOnDone(t *testing.T) {
	o := newOutbox()
	done := make(chan struct{})
	close(done)

	chunks, ok := o.take(done)

	assert.False(t, ok)
	assert.Nil(t, chunks)
}
