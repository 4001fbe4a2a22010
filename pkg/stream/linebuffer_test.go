package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineBufferReassemblesSplitFrames(t *testing.T) {
	var b LineBuffer

	assert.Empty(t, b.Write([]byte(`data: {"type":"chu`)))
	assert.Equal(t, 18, b.Pending())

	lines := b.Write([]byte("nk\",\"content\":\"A\"}\r\ndata: {\"type\":\"chunk\",\"content\":\"B\"}\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, `data: {"type":"chunk","content":"A"}`, string(lines[0]))
	assert.Equal(t, `data: {"type":"chunk","content":"B"}`, string(lines[1]))
	assert.Zero(t, b.Pending())

	_, ok := b.Flush()
	assert.False(t, ok)
}

func TestLineBufferFlushTrailingPartial(t *testing.T) {
	var b LineBuffer
	b.Write([]byte("first\nsecond"))

	line, ok := b.Flush()
	require.True(t, ok)
	assert.Equal(t, "second", string(line))
	assert.Zero(t, b.Pending())
}

func TestLineBufferReturnedLinesAreStable(t *testing.T) {
	var b LineBuffer
	lines := b.Write([]byte("abc\n"))
	b.Write([]byte("xyz\n"))
	assert.Equal(t, "abc", string(lines[0]))
}

func TestFrameReaderOneByteReads(t *testing.T) {
	input := "data: {\"type\":\"chunk\",\"content\":\"Hel\"}\n\n" +
		"data: {\"type\":\"chunk\",\"content\":\"lo\"}\n" +
		"data: {\"type\":\"complete\",\"response\":\"Hello\"}"

	r := NewFrameReader(iotest.OneByteReader(strings.NewReader(input)))
	d := NewDecoder()

	var text string
	var completed bool
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)

		ev, ok := d.Decode(frame)
		if !ok {
			continue
		}
		switch e := ev.(type) {
		case TextChunk:
			text += e.Content
		case Complete:
			completed = true
			assert.Equal(t, "Hello", e.Response)
		}
	}

	assert.Equal(t, "Hello", text)
	assert.True(t, completed, "trailing frame without newline must still be delivered")
}

func TestFrameReaderPropagatesReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewFrameReader(io.MultiReader(strings.NewReader("a\npartial"), iotest.ErrReader(boom)))

	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", string(frame))

	_, err = r.Next()
	assert.ErrorIs(t, err, boom)

	_, err = r.Next()
	assert.ErrorIs(t, err, boom)
}
