package smf

import (
	"math"
	"slices"
	"time"
)

// DefaultTempo is 120 BPM in microseconds per quarter note.
const DefaultTempo = 500_000

// Note is one percussion hit.
type Note struct {
	Key       uint8
	Velocity  uint8
	StartTick uint32 // ticks since the first accepted note-on
	Duration  uint32 // valid only when HasDuration is set

	// HasDuration is false while the matching note-off has not been seen.
	HasDuration bool
}

// End returns the tick at which the note stops sounding.
func (n Note) End() uint32 {
	if !n.HasDuration {
		return n.StartTick
	}
	return n.StartTick + n.Duration
}

// TimeSignature comes from the Time Signature meta event (0x58).
//
// Denominator is the note value (4 for a quarter), decoded from the
// power-of-two exponent stored in the file.
type TimeSignature struct {
	Numerator               uint8
	Denominator             uint8
	ClocksPerTick           uint8
	ThirtySecondsPerQuarter uint8
}

// DefaultTimeSignature is 4/4 with 24 clocks per click and 8 32nds per quarter.
var DefaultTimeSignature = TimeSignature{
	Numerator:               4,
	Denominator:             4,
	ClocksPerTick:           24,
	ThirtySecondsPerQuarter: 8,
}

// KeySignature comes from the Key Signature meta event (0x59).
type KeySignature struct {
	Sharps int8 // negative for flats
	Minor  bool
	Name   string // e.g. "D major", "F# minor"
}

// Valid reports whether a key signature was present in the file.
func (k KeySignature) Valid() bool {
	return k.Name != ""
}

var (
	majorKeys = [15]string{"Cb", "Gb", "Db", "Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#"}
	minorKeys = [15]string{"Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#", "G#", "D#", "A#"}
)

func newKeySignature(sf int8, mi uint8) KeySignature {
	idx := int(sf) + 7
	idx = max(0, min(idx, len(majorKeys)-1))
	if mi == 1 {
		return KeySignature{Sharps: sf, Minor: true, Name: minorKeys[idx] + " minor"}
	}
	return KeySignature{Sharps: sf, Name: majorKeys[idx] + " major"}
}

// MetaType is the type byte of a meta event.
type MetaType uint8

const (
	MetaSequenceNumber    MetaType = 0x00
	MetaText              MetaType = 0x01
	MetaCopyright         MetaType = 0x02
	MetaTrackName         MetaType = 0x03
	MetaInstrumentName    MetaType = 0x04
	MetaLyric             MetaType = 0x05
	MetaMarker            MetaType = 0x06
	MetaCuePoint          MetaType = 0x07
	MetaChannelPrefix     MetaType = 0x20
	MetaPort              MetaType = 0x21
	MetaEndOfTrack        MetaType = 0x2F
	MetaTempo             MetaType = 0x51
	MetaSMPTEOffset       MetaType = 0x54
	MetaTimeSignature     MetaType = 0x58
	MetaKeySignature      MetaType = 0x59
	MetaSequencerSpecific MetaType = 0x7F
)

func (t MetaType) String() string {
	switch t {
	case MetaText:
		return "text"
	case MetaCopyright:
		return "copyright"
	case MetaTrackName:
		return "track name"
	case MetaInstrumentName:
		return "instrument name"
	case MetaLyric:
		return "lyric"
	case MetaMarker:
		return "marker"
	case MetaCuePoint:
		return "cue point"
	default:
		return "meta"
	}
}

// TextEvent is a decoded text-like meta event (0x01-0x07).
type TextEvent struct {
	Track int
	Type  MetaType
	Tick  uint32
	Text  string
}

// Division is the header's time division word.
type Division uint16

// IsSMPTE reports whether bit 15 selects SMPTE frames.
func (d Division) IsSMPTE() bool {
	return d&0x8000 != 0
}

// TicksPerBeat returns ticks per quarter note (metrical timing only).
func (d Division) TicksPerBeat() uint16 {
	return uint16(d & 0x7FFF)
}

// FramesPerSecond returns the SMPTE frame rate (24, 25, 29 or 30).
// The high byte holds it as a negative two's complement value.
func (d Division) FramesPerSecond() int {
	fps := int(int8(d >> 8))
	if fps < 0 {
		fps = -fps
	}
	return fps
}

// TicksPerFrame returns the SMPTE sub-frame resolution.
func (d Division) TicksPerFrame() int {
	return int(d & 0xFF)
}

// Song is the decoded percussion part of a MIDI file.
type Song struct {
	Format     uint16
	TrackCount uint16
	Division   Division

	Tempo uint32 // microseconds per quarter note
	BPM   uint32

	Notes       []Note
	Instruments map[uint8]struct{}

	TimeSignature TimeSignature
	KeySignature  KeySignature

	// TickLength is microseconds per tick.
	TickLength float64

	Title string
	Texts []TextEvent

	// Anomalies counts events that were skipped as unrecognized.
	Anomalies int
}

func newSong() *Song {
	return &Song{
		Tempo:         DefaultTempo,
		BPM:           60_000_000 / DefaultTempo,
		Instruments:   make(map[uint8]struct{}),
		TimeSignature: DefaultTimeSignature,
	}
}

// InstrumentKeys returns the distinct keys that produced a note, ascending.
func (s *Song) InstrumentKeys() []uint8 {
	keys := make([]uint8, 0, len(s.Instruments))
	for k := range s.Instruments {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// TickDuration converts ticks to wall-clock time. Times past the range of
// time.Duration saturate at its maximum.
func (s *Song) TickDuration(ticks uint32) time.Duration {
	ns := float64(ticks) * s.TickLength * float64(time.Microsecond)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// NoteTime returns when n starts.
func (s *Song) NoteTime(n Note) time.Duration {
	return s.TickDuration(n.StartTick)
}

// EndTick returns the tick at which the last note stops.
func (s *Song) EndTick() uint32 {
	var end uint32
	for _, n := range s.Notes {
		end = max(end, n.End())
	}
	return end
}

// Length returns the time at which the last note stops.
func (s *Song) Length() time.Duration {
	return s.TickDuration(s.EndTick())
}

// CountByKey returns how many notes each key produced.
func (s *Song) CountByKey() map[uint8]int {
	counts := make(map[uint8]int, len(s.Instruments))
	for _, n := range s.Notes {
		counts[n.Key]++
	}
	return counts
}
