// Package stream provides a big-endian byte cursor that can step backwards
// over a small window of recently read bytes.
//
// The SMF decoder needs this for running status: a status byte is read, and if
// it turns out to be a data byte it is pushed back and re-read as data.
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultHistory is the number of bytes that can be undone by default.
const DefaultHistory = 4

// readAhead is the number of bytes kept buffered ahead of the cursor.
// It equals the widest fixed read (ReadU32).
const readAhead = 4

var (
	// ErrInsufficientBytes is returned when a read needs more bytes than remain.
	ErrInsufficientBytes = errors.New("insufficient bytes")

	// ErrSourceUnavailable is returned when the input cannot be opened.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// Option configures a Stream.
type Option func(*Stream)

// WithHistory sets how many bytes behind the furthest read can be undone.
// Values below 1 are ignored.
func WithHistory(n int) Option {
	return func(s *Stream) {
		if n >= 1 {
			s.history = n
		}
	}
}

// Stream is a rewindable cursor over an io.Reader.
//
// Bytes live in a ring of history+readAhead slots. fetched counts bytes pulled
// from the source, pos is the next byte to hand out and high is the furthest
// pos ever reached. The ring always holds [fetched-len(ring), fetched).
//
// A Stream is not safe for concurrent use.
type Stream struct {
	src    *bufio.Reader
	closer io.Closer

	ring    []byte
	history int

	fetched int64
	pos     int64
	high    int64

	eof bool
	err error // sticky non-EOF error from the source
}

// New wraps r. If r is an io.Closer, Close closes it.
func New(r io.Reader, opts ...Option) *Stream {
	s := &Stream{
		src:     bufio.NewReader(r),
		history: DefaultHistory,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ring = make([]byte, s.history+readAhead)
	s.fill()
	return s
}

// Open opens the file at path for reading.
func Open(path string, opts ...Option) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return New(f, opts...), nil
}

// Close releases the underlying source.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// fill tops up the read-ahead window.
func (s *Stream) fill() {
	for !s.eof && s.fetched-s.pos < readAhead {
		b, err := s.src.ReadByte()
		if err != nil {
			s.eof = true
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
			return
		}
		s.ring[s.fetched%int64(len(s.ring))] = b
		s.fetched++
	}
}

func (s *Stream) available() int64 {
	return s.fetched - s.pos
}

func (s *Stream) need(n int) error {
	if s.available() >= int64(n) {
		return nil
	}
	if s.err != nil {
		return fmt.Errorf("%w at offset %d: %w", ErrInsufficientBytes, s.pos, s.err)
	}
	return fmt.Errorf("%w at offset %d: need %d, have %d", ErrInsufficientBytes, s.pos, n, s.available())
}

// next hands out one byte. The caller has checked availability.
func (s *Stream) next() byte {
	b := s.ring[s.pos%int64(len(s.ring))]
	s.pos++
	if s.pos > s.high {
		s.high = s.pos
	}
	return b
}

// ReadU8 reads one byte.
func (s *Stream) ReadU8() (uint8, error) {
	if err := s.need(1); err != nil {
		return 0, err
	}
	b := s.next()
	s.fill()
	return b, nil
}

// ReadByte implements io.ByteReader.
func (s *Stream) ReadByte() (byte, error) {
	return s.ReadU8()
}

// ReadU16 reads a big-endian 16-bit value.
func (s *Stream) ReadU16() (uint16, error) {
	if err := s.need(2); err != nil {
		return 0, err
	}
	v := uint16(s.next())<<8 | uint16(s.next())
	s.fill()
	return v, nil
}

// ReadU32 reads a big-endian 32-bit value.
func (s *Stream) ReadU32() (uint32, error) {
	if err := s.need(4); err != nil {
		return 0, err
	}
	var v uint32
	for range 4 {
		v = v<<8 | uint32(s.next())
	}
	s.fill()
	return v, nil
}

// ReadBytes reads exactly n bytes. On failure nothing is returned and the
// cursor position is unspecified.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	// Lengths come from the file, so grow as bytes arrive instead of trusting n.
	buf := make([]byte, 0, min(n, 4096))
	for range n {
		b, err := s.ReadU8()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b)
	}
	return buf, nil
}

// Skip discards n bytes.
func (s *Stream) Skip(n int) error {
	for range n {
		if _, err := s.ReadU8(); err != nil {
			return err
		}
	}
	return nil
}

// UndoByte moves the cursor back by one byte. It reports false, leaving the
// cursor untouched, at the start of the input or when the previous byte has
// already left the history window.
func (s *Stream) UndoByte() bool {
	if s.pos == 0 {
		return false
	}
	if s.high-(s.pos-1) > int64(s.history) {
		return false
	}
	s.pos--
	return true
}

// HasBytesAvailable reports whether at least one more byte can be read.
func (s *Stream) HasBytesAvailable() bool {
	return s.available() > 0
}

// Offset returns the absolute position of the cursor.
func (s *Stream) Offset() int64 {
	return s.pos
}
