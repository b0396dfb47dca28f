package stream

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestReadBigEndian(t *testing.T) {
	s := New(bytes.NewReader([]byte{0x4D, 0x54, 0x68, 0x64, 0x00, 0x06, 0x81, 0x02, 0x03}))

	tests := []struct {
		name string
		read func() (uint32, error)
		want uint32
	}{
		{"u32", func() (uint32, error) { v, err := s.ReadU32(); return v, err }, 0x4D546864},
		{"u16", func() (uint32, error) { v, err := s.ReadU16(); return uint32(v), err }, 0x0006},
		{"u8", func() (uint32, error) { v, err := s.ReadU8(); return uint32(v), err }, 0x81},
		{"u16 at odd offset", func() (uint32, error) { v, err := s.ReadU16(); return uint32(v), err }, 0x0203},
	}

	// Reads share one stream, so these run in order without subtests.
	for _, tt := range tests {
		got, err := tt.read()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s = 0x%X, want 0x%X", tt.name, got, tt.want)
		}
	}

	if s.HasBytesAvailable() {
		t.Error("HasBytesAvailable() = true at end of input")
	}
	if got := s.Offset(); got != 9 {
		t.Errorf("Offset() = %d, want 9", got)
	}
}

func TestInsufficientBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(*Stream) error
	}{
		{"u8 on empty", nil, func(s *Stream) error { _, err := s.ReadU8(); return err }},
		{"u16 with one byte", []byte{0x01}, func(s *Stream) error { _, err := s.ReadU16(); return err }},
		{"u32 with three bytes", []byte{0x01, 0x02, 0x03}, func(s *Stream) error { _, err := s.ReadU32(); return err }},
		{"skip past end", []byte{0x01, 0x02}, func(s *Stream) error { return s.Skip(3) }},
		{"read bytes past end", []byte{0x01}, func(s *Stream) error { _, err := s.ReadBytes(2); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(bytes.NewReader(tt.data))
			if err := tt.read(s); !errors.Is(err, ErrInsufficientBytes) {
				t.Errorf("expected ErrInsufficientBytes, got %v", err)
			}
		})
	}
}

func TestFailedWideReadDoesNotConsume(t *testing.T) {
	s := New(bytes.NewReader([]byte{0xAA, 0xBB, 0xCC}))

	if _, err := s.ReadU32(); !errors.Is(err, ErrInsufficientBytes) {
		t.Fatalf("expected ErrInsufficientBytes, got %v", err)
	}
	if got := s.Offset(); got != 0 {
		t.Errorf("Offset() after failed read = %d, want 0", got)
	}

	v, err := s.ReadU16()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0xAABB {
		t.Errorf("ReadU16() = 0x%X, want 0xAABB", v)
	}
}

func TestUndoByte(t *testing.T) {
	t.Run("at start", func(t *testing.T) {
		s := New(bytes.NewReader([]byte{0x01}))
		if s.UndoByte() {
			t.Error("UndoByte() at start = true, want false")
		}
		if got := s.Offset(); got != 0 {
			t.Errorf("Offset() = %d, want 0", got)
		}
	})

	t.Run("undo then re-read returns same byte", func(t *testing.T) {
		s := New(bytes.NewReader([]byte{0x10, 0x20, 0x30}))
		if err := s.Skip(1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		b, err := s.ReadU8()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		before := s.Offset()

		if !s.UndoByte() {
			t.Fatal("UndoByte() = false, want true")
		}
		again, err := s.ReadU8()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != b {
			t.Errorf("re-read = 0x%X, want 0x%X", again, b)
		}
		if got := s.Offset(); got != before {
			t.Errorf("Offset() = %d, want %d", got, before)
		}
	})

	t.Run("bounded by history", func(t *testing.T) {
		s := New(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))
		if err := s.Skip(8); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for i := 0; i < DefaultHistory; i++ {
			if !s.UndoByte() {
				t.Fatalf("undo %d failed within history", i)
			}
		}
		if s.UndoByte() {
			t.Error("undo past history succeeded")
		}
		if got, want := s.Offset(), int64(8-DefaultHistory); got != want {
			t.Errorf("Offset() = %d, want %d", got, want)
		}

		b, err := s.ReadU8()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b != 5 {
			t.Errorf("ReadU8() = %d, want 5", b)
		}
	})

	t.Run("custom history", func(t *testing.T) {
		s := New(bytes.NewReader([]byte{1, 2, 3, 4, 5}), WithHistory(1))
		if err := s.Skip(3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !s.UndoByte() {
			t.Error("first undo failed")
		}
		if s.UndoByte() {
			t.Error("second undo succeeded with history 1")
		}
	})

	t.Run("undo at end of input", func(t *testing.T) {
		s := New(bytes.NewReader([]byte{0x7F}))
		if _, err := s.ReadU8(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.HasBytesAvailable() {
			t.Fatal("HasBytesAvailable() = true at end of input")
		}
		if !s.UndoByte() {
			t.Fatal("UndoByte() = false, want true")
		}
		if !s.HasBytesAvailable() {
			t.Error("HasBytesAvailable() = false after undo")
		}
	})
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestSourceErrorSurfaces(t *testing.T) {
	boom := errors.New("disk on fire")
	s := New(&failingReader{data: []byte{0x01}, err: boom})

	if _, err := s.ReadU8(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := s.ReadU8()
	if !errors.Is(err, ErrInsufficientBytes) {
		t.Errorf("expected ErrInsufficientBytes, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected source error to be wrapped, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Open(filepath.Join(t.TempDir(), "nope.mid")); !errors.Is(err, ErrSourceUnavailable) {
			t.Errorf("expected ErrSourceUnavailable, got %v", err)
		}
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "x.bin")
		if err := os.WriteFile(path, []byte{0xCA, 0xFE}, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		s, err := Open(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		v, err := s.ReadU16()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 0xCAFE {
			t.Errorf("ReadU16() = 0x%X, want 0xCAFE", v)
		}
	})
}

func TestCloseNonCloser(t *testing.T) {
	s := New(io.LimitReader(bytes.NewReader(nil), 0))
	if err := s.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

// TestStreamProperties checks the cursor against a plain slice.
func TestStreamProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("sequential u8 reads reproduce the input", prop.ForAll(
		func(data []byte) bool {
			s := New(bytes.NewReader(data))
			for _, want := range data {
				got, err := s.ReadU8()
				if err != nil || got != want {
					return false
				}
			}
			_, err := s.ReadU8()
			return errors.Is(err, ErrInsufficientBytes)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("undo then re-read is the identity", prop.ForAll(
		func(data []byte, at int) bool {
			if len(data) == 0 {
				return true
			}
			at %= len(data)
			s := New(bytes.NewReader(data))
			if err := s.Skip(at + 1); err != nil {
				return false
			}
			before := s.Offset()
			if !s.UndoByte() {
				return false
			}
			b, err := s.ReadU8()
			return err == nil && b == data[at] && s.Offset() == before
		},
		gen.SliceOfN(64, gen.UInt8()),
		gen.IntRange(0, 1000),
	))

	properties.Property("u32 matches manual big-endian assembly", prop.ForAll(
		func(a, b, c, d uint8) bool {
			s := New(bytes.NewReader([]byte{a, b, c, d}))
			v, err := s.ReadU32()
			want := uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
			return err == nil && v == want
		},
		gen.UInt8(), gen.UInt8(), gen.UInt8(), gen.UInt8(),
	))

	properties.TestingRun(t)
}
