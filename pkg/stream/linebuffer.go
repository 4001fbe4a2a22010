package stream

import (
	"bytes"
	"errors"
	"io"
)

// LineBuffer reassembles newline-terminated frames from arbitrarily split reads.
// Bytes after the last newline are held until more data arrives or Flush is called.
type LineBuffer struct {
	buf []byte
}

// Write appends p and returns every line it completed, without terminators.
func (b *LineBuffer) Write(p []byte) [][]byte {
	b.buf = append(b.buf, p...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(b.buf[:i], []byte("\r"))
		lines = append(lines, bytes.Clone(line))
		b.buf = b.buf[i+1:]
	}

	if len(b.buf) == 0 {
		b.buf = nil
	}
	return lines
}

// Flush releases the trailing partial line, if any.
func (b *LineBuffer) Flush() ([]byte, bool) {
	if len(b.buf) == 0 {
		return nil, false
	}
	line := bytes.TrimSuffix(b.buf, []byte("\r"))
	b.buf = nil
	return line, true
}

// Pending reports how many bytes are waiting for a newline.
func (b *LineBuffer) Pending() int {
	return len(b.buf)
}

// FrameReader yields one frame per call from an underlying reader.
type FrameReader struct {
	r       io.Reader
	buf     LineBuffer
	ready   [][]byte
	chunk   []byte
	err     error
	flushed bool
}

// NewFrameReader creates a FrameReader reading up to 4KiB per call into r
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, chunk: make([]byte, 4096)}
}

// Next returns the next complete frame. It returns io.EOF once the reader is
// exhausted and the trailing partial frame has been delivered.
func (f *FrameReader) Next() ([]byte, error) {
	for len(f.ready) == 0 {
		if f.err != nil {
			if !f.flushed {
				f.flushed = true
				if line, ok := f.buf.Flush(); ok && errors.Is(f.err, io.EOF) {
					return line, nil
				}
			}
			return nil, f.err
		}

		n, err := f.r.Read(f.chunk)
		if n > 0 {
			f.ready = append(f.ready, f.buf.Write(f.chunk[:n])...)
		}
		if err != nil {
			f.err = err
		}
	}

	line := f.ready[0]
	f.ready = f.ready[1:]
	return line, nil
}
