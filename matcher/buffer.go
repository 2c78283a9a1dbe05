// Package matcher executes a compiled automaton over an input stream:
// a scan loop that lets the predictor skip ahead to candidate
// positions, and a step loop that interprets the opcode table byte by
// byte with POSIX leftmost-longest semantics.
package matcher

import "io"

const (
	initialBufSize = 16 << 10
	minReadSize    = 4 << 10

	// maxEmptyReads bounds consecutive (0, nil) reads before the reader
	// is declared broken, as bufio does.
	maxEmptyReads = 100
)

// Buffer is a sliding window over the input. Positions handed to the
// matcher are absolute stream offsets; the window covers
// [off, off+len(data)) and refills from the reader on demand, shifting
// out bytes the matcher no longer needs.
type Buffer struct {
	r    io.Reader
	data []byte
	off  int
	eof  bool
	err  error
}

// NewBuffer wraps a reader for streamed matching.
func NewBuffer(r io.Reader) *Buffer {
	return &Buffer{r: r, data: make([]byte, 0, initialBufSize)}
}

// NewBytesBuffer wraps in-memory input; no refills ever happen.
func NewBytesBuffer(data []byte) *Buffer {
	return &Buffer{data: data, eof: true}
}

// Err returns the reader error that ended the input, if it was not a
// plain EOF.
func (b *Buffer) Err() error {
	return b.err
}

// end returns the absolute offset one past the last buffered byte.
func (b *Buffer) end() int {
	return b.off + len(b.data)
}

// refill discards bytes below the absolute offset keep, then reads
// more input. It reports whether new bytes arrived.
func (b *Buffer) refill(keep int) bool {
	if b.eof {
		return false
	}
	if keep > b.off {
		n := copy(b.data, b.data[keep-b.off:])
		b.data = b.data[:n]
		b.off = keep
	}
	if cap(b.data)-len(b.data) < minReadSize {
		grown := make([]byte, len(b.data), 2*cap(b.data)+minReadSize)
		copy(grown, b.data)
		b.data = grown
	}
	for tries := 0; ; tries++ {
		n, err := b.r.Read(b.data[len(b.data):cap(b.data)])
		b.data = b.data[:len(b.data)+n]
		if err != nil {
			b.eof = true
			if err != io.EOF {
				b.err = err
			}
			return n > 0
		}
		if n > 0 {
			return true
		}
		if tries >= maxEmptyReads {
			b.eof = true
			b.err = io.ErrNoProgress
			return false
		}
	}
}
