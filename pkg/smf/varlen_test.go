package smf

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var varLenFixtures = []struct {
	encoded []byte
	value   uint32
}{
	{[]byte{0x00}, 0},
	{[]byte{0x40}, 64},
	{[]byte{0x7F}, 127},
	{[]byte{0x81, 0x00}, 128},
	{[]byte{0xC0, 0x00}, 8192},
	{[]byte{0xFF, 0x7F}, 16383},
	{[]byte{0x81, 0x80, 0x00}, 16384},
	{[]byte{0xFF, 0xFF, 0x7F}, 2097151},
	{[]byte{0x81, 0x80, 0x80, 0x00}, 2097152},
	{[]byte{0xFF, 0xFF, 0xFF, 0x7F}, MaxVarLen},
}

func TestReadVarLen(t *testing.T) {
	for _, tt := range varLenFixtures {
		r := bytes.NewReader(tt.encoded)
		got, err := ReadVarLen(r)
		if err != nil {
			t.Errorf("ReadVarLen(% X) error: %v", tt.encoded, err)
			continue
		}
		if got != tt.value {
			t.Errorf("ReadVarLen(% X) = %d, want %d", tt.encoded, got, tt.value)
		}
		if r.Len() != 0 {
			t.Errorf("ReadVarLen(% X) left %d bytes unread", tt.encoded, r.Len())
		}
	}
}

func TestReadVarLen_StopsAtFourBytes(t *testing.T) {
	r := bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	if _, err := ReadVarLen(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected exactly four bytes consumed, %d left", r.Len())
	}
}

func TestReadVarLen_Truncated(t *testing.T) {
	if _, err := ReadVarLen(bytes.NewReader([]byte{0x81})); err == nil {
		t.Error("expected error for a continuation byte at end of input")
	}
}

func TestAppendVarLen(t *testing.T) {
	for _, tt := range varLenFixtures {
		got := AppendVarLen(nil, tt.value)
		if !bytes.Equal(got, tt.encoded) {
			t.Errorf("AppendVarLen(%d) = % X, want % X", tt.value, got, tt.encoded)
		}
	}

	prefix := AppendVarLen([]byte{0xAA}, 128)
	if !bytes.Equal(prefix, []byte{0xAA, 0x81, 0x00}) {
		t.Errorf("AppendVarLen should append to dst, got % X", prefix)
	}
}

func TestVarLenRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(v)) == v", prop.ForAll(
		func(v uint32) bool {
			encoded := AppendVarLen(nil, v)
			if len(encoded) > maxVarLenBytes {
				return false
			}
			got, err := ReadVarLen(bytes.NewReader(encoded))
			return err == nil && got == v
		},
		gen.UInt32Range(0, MaxVarLen),
	))

	properties.TestingRun(t)
}
