// Package smf decodes the percussion part of a Standard MIDI File.
//
// Only channel 10 (index 9) notes inside the General MIDI drum range are kept.
// Note-on and note-off events are paired per key into notes with a duration.
// All other channel messages are read and dropped.
package smf

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/zurustar/drumsmf/pkg/drumkit"
	"github.com/zurustar/drumsmf/pkg/logger"
	"github.com/zurustar/drumsmf/pkg/stream"
)

var (
	// ErrInsufficientBytes is returned when the input ends in the middle of a
	// header, chunk or event.
	ErrInsufficientBytes = stream.ErrInsufficientBytes

	// ErrSourceUnavailable is returned when the input cannot be opened.
	ErrSourceUnavailable = stream.ErrSourceUnavailable

	// ErrInvalidHeader is returned in strict mode when the file does not start with MThd.
	ErrInvalidHeader = errors.New("invalid SMF header")
)

const (
	headerMagic = 0x4D546864 // "MThd"
	trackMagic  = 0x4D54726B // "MTrk"

	// headerDataLen is the size of format, ntrks and division.
	headerDataLen = 6
)

// Source is what the decoder reads from. *stream.Stream implements it.
type Source interface {
	ReadU8() (uint8, error)
	ReadU16() (uint16, error)
	ReadU32() (uint32, error)
	ReadByte() (byte, error)
	ReadBytes(n int) ([]byte, error)
	Skip(n int) error
	UndoByte() bool
	HasBytesAvailable() bool
	Offset() int64
}

// Option configures Parse.
type Option func(*options)

type options struct {
	log          *slog.Logger
	strictHeader bool
}

// WithLogger sets the logger used for anomalies and progress.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithStrictHeader rejects input that does not start with "MThd".
func WithStrictHeader() Option {
	return func(o *options) {
		o.strictHeader = true
	}
}

// ParseFile opens path and decodes it.
func ParseFile(path string, opts ...Option) (*Song, error) {
	s, err := stream.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return Parse(s, opts...)
}

// Parse decodes a whole SMF from src. It either returns a complete song or an
// error; a truncated file never yields a partial result.
func Parse(src Source, opts ...Option) (*Song, error) {
	o := options{log: logger.GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	d := &decoder{
		src:  src,
		log:  o.log,
		opts: o,
		song: newSong(),
	}
	if err := d.decode(); err != nil {
		return nil, err
	}
	return d.song, nil
}

// decoder holds the state of a single parse.
type decoder struct {
	src  Source
	log  *slog.Logger
	opts options
	song *Song

	// pending holds the in-progress note per drum key.
	pending [drumkit.KeyCount]*Note

	seenNote bool // first accepted note-on resets the clock
	tempoSet bool // first Set Tempo wins

	track      int
	wallTime   uint32
	endOfTrack bool
}

func (d *decoder) decode() error {
	if err := d.decodeHeader(); err != nil {
		return fmt.Errorf("header: %w", err)
	}

	for d.track = 0; d.track < int(d.song.TrackCount); d.track++ {
		if err := d.decodeTrack(); err != nil {
			return fmt.Errorf("track %d: %w", d.track, err)
		}
	}

	// Tracks flush their own notes; this only matters if one ended abnormally.
	d.flushPending()

	slices.SortStableFunc(d.song.Notes, func(a, b Note) int {
		return cmp.Compare(a.StartTick, b.StartTick)
	})

	d.song.TickLength = d.tickLength()

	d.log.Debug("SMF decoded",
		"notes", len(d.song.Notes),
		"instruments", len(d.song.Instruments),
		"tempo", d.song.Tempo,
		"tickLength", d.song.TickLength,
		"anomalies", d.song.Anomalies)
	return nil
}

func (d *decoder) decodeHeader() error {
	id, err := d.src.ReadU32()
	if err != nil {
		return err
	}
	if d.opts.strictHeader && id != headerMagic {
		return fmt.Errorf("%w: file ID 0x%08X", ErrInvalidHeader, id)
	}

	length, err := d.src.ReadU32()
	if err != nil {
		return err
	}
	format, err := d.src.ReadU16()
	if err != nil {
		return err
	}
	tracks, err := d.src.ReadU16()
	if err != nil {
		return err
	}
	division, err := d.src.ReadU16()
	if err != nil {
		return err
	}

	// Header chunks may grow in future revisions; skip what we do not know.
	if length > headerDataLen {
		if err := d.src.Skip(int(length - headerDataLen)); err != nil {
			return err
		}
	}

	d.song.Format = format
	d.song.TrackCount = tracks
	d.song.Division = Division(division)

	d.log.Debug("SMF header", "format", format, "tracks", tracks, "division", division)
	return nil
}

func (d *decoder) decodeTrack() error {
	id, err := d.src.ReadU32()
	if err != nil {
		return err
	}
	length, err := d.src.ReadU32()
	if err != nil {
		return err
	}

	if id != trackMagic {
		d.anomaly("skipping unknown chunk", "id", fmt.Sprintf("0x%08X", id), "length", length)
		return d.src.Skip(int(length))
	}

	d.log.Debug("track chunk", "track", d.track, "length", length, "offset", d.src.Offset())

	d.wallTime = 0
	d.endOfTrack = false
	var previousStatus uint8

	for d.src.HasBytesAvailable() && !d.endOfTrack {
		delta, err := ReadVarLen(d.src)
		if err != nil {
			return err
		}
		d.wallTime += delta

		status, err := d.src.ReadU8()
		if err != nil {
			return err
		}
		if status < 0x80 {
			// Running status: this was the first data byte of a repeated event.
			if !d.src.UndoByte() {
				return fmt.Errorf("running status at offset %d: cannot push back data byte", d.src.Offset())
			}
			status = previousStatus
		}

		switch status & 0xF0 {
		case 0x80:
			previousStatus = status
			key, _, err := d.readPair()
			if err != nil {
				return err
			}
			d.noteOff(status&0x0F, key)
		case 0x90:
			previousStatus = status
			key, velocity, err := d.readPair()
			if err != nil {
				return err
			}
			d.noteOn(status&0x0F, key, velocity)
		case 0xA0, 0xB0, 0xE0:
			// Aftertouch, control change, pitch bend.
			previousStatus = status
			if err := d.src.Skip(2); err != nil {
				return err
			}
		case 0xC0, 0xD0:
			// Program change, channel pressure.
			previousStatus = status
			if err := d.src.Skip(1); err != nil {
				return err
			}
		case 0xF0:
			previousStatus = 0
			if err := d.decodeSystem(status); err != nil {
				return err
			}
		default:
			d.anomaly("unrecognized event", "status", fmt.Sprintf("0x%02X", status))
		}
	}

	d.flushPending()
	return nil
}

func (d *decoder) readPair() (uint8, uint8, error) {
	a, err := d.src.ReadU8()
	if err != nil {
		return 0, 0, err
	}
	b, err := d.src.ReadU8()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func (d *decoder) decodeSystem(status uint8) error {
	switch status {
	case 0xFF:
		return d.decodeMeta()
	case 0xF0, 0xF7:
		length, err := ReadVarLen(d.src)
		if err != nil {
			return err
		}
		return d.src.Skip(int(length))
	default:
		d.anomaly("unrecognized system event", "status", fmt.Sprintf("0x%02X", status))
		return nil
	}
}

// decodeMeta handles an 0xFF event. The declared length is always consumed,
// whether or not the type is understood.
func (d *decoder) decodeMeta() error {
	typ, err := d.src.ReadU8()
	if err != nil {
		return err
	}
	length, err := ReadVarLen(d.src)
	if err != nil {
		return err
	}

	mt := MetaType(typ)
	switch mt {
	case MetaText, MetaCopyright, MetaTrackName, MetaInstrumentName, MetaLyric, MetaMarker, MetaCuePoint:
		body, err := d.src.ReadBytes(int(length))
		if err != nil {
			return err
		}
		d.addText(mt, body)
		return nil
	case MetaEndOfTrack:
		d.endOfTrack = true
		return d.src.Skip(int(length))
	case MetaTempo:
		return d.readFixed(mt, length, 3, func(b []byte) {
			tempo := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
			d.setTempo(tempo)
		})
	case MetaTimeSignature:
		return d.readFixed(mt, length, 4, func(b []byte) {
			d.song.TimeSignature = TimeSignature{
				Numerator:               b[0],
				Denominator:             uint8(1) << min(b[1], 7),
				ClocksPerTick:           b[2],
				ThirtySecondsPerQuarter: b[3],
			}
		})
	case MetaKeySignature:
		return d.readFixed(mt, length, 2, func(b []byte) {
			if !d.song.KeySignature.Valid() {
				d.song.KeySignature = newKeySignature(int8(b[0]), b[1])
			}
		})
	case MetaSequenceNumber, MetaChannelPrefix, MetaPort, MetaSMPTEOffset, MetaSequencerSpecific:
		return d.src.Skip(int(length))
	default:
		d.anomaly("unrecognized meta event", "type", fmt.Sprintf("0x%02X", typ), "length", length)
		return d.src.Skip(int(length))
	}
}

// readFixed reads a meta body that carries want bytes of data and hands them
// to apply. Extra bytes are skipped; a short body is skipped as an anomaly.
func (d *decoder) readFixed(mt MetaType, length uint32, want int, apply func([]byte)) error {
	if int(length) < want {
		d.anomaly("short meta event", "type", fmt.Sprintf("0x%02X", uint8(mt)), "length", length)
		return d.src.Skip(int(length))
	}
	body, err := d.src.ReadBytes(want)
	if err != nil {
		return err
	}
	if err := d.src.Skip(int(length) - want); err != nil {
		return err
	}
	apply(body)
	return nil
}

func (d *decoder) setTempo(tempo uint32) {
	if d.tempoSet {
		d.log.Debug("ignoring later tempo change", "tempo", tempo, "tick", d.wallTime)
		return
	}
	if tempo == 0 {
		d.anomaly("zero tempo")
		return
	}
	d.tempoSet = true
	d.song.Tempo = tempo
	d.song.BPM = 60_000_000 / tempo
}

func (d *decoder) addText(mt MetaType, body []byte) {
	text := decodeText(body)
	if mt == MetaTrackName && d.song.Title == "" {
		d.song.Title = text
	}
	d.song.Texts = append(d.song.Texts, TextEvent{
		Track: d.track,
		Type:  mt,
		Tick:  d.wallTime,
		Text:  text,
	})
}

func (d *decoder) noteOn(channel, key, velocity uint8) {
	if channel != drumkit.PercussionChannel || !drumkit.InRange(key) {
		return
	}
	if !d.seenNote {
		d.seenNote = true
		d.wallTime = 0
	}

	idx := drumkit.Index(key)
	if velocity == 0 {
		d.closeNote(idx)
		return
	}

	// A second note-on for a sounding key closes the earlier note now.
	d.closeNote(idx)
	d.pending[idx] = &Note{
		Key:       key,
		Velocity:  velocity,
		StartTick: d.wallTime,
	}
	d.song.Instruments[key] = struct{}{}
}

func (d *decoder) noteOff(channel, key uint8) {
	if channel != drumkit.PercussionChannel || !drumkit.InRange(key) {
		return
	}
	d.closeNote(drumkit.Index(key))
}

// closeNote finishes the in-progress note at idx, if any, against the
// current clock and appends it to the song.
func (d *decoder) closeNote(idx int) {
	n := d.pending[idx]
	if n == nil {
		return
	}
	if d.wallTime >= n.StartTick {
		n.Duration = d.wallTime - n.StartTick
	}
	n.HasDuration = true
	d.song.Notes = append(d.song.Notes, *n)
	d.pending[idx] = nil
}

func (d *decoder) flushPending() {
	for i := range d.pending {
		d.closeNote(i)
	}
}

func (d *decoder) tickLength() float64 {
	div := d.song.Division
	if div.IsSMPTE() {
		frames := div.FramesPerSecond() * div.TicksPerFrame()
		if frames == 0 {
			d.anomaly("SMPTE division without resolution", "division", uint16(div))
			return 0
		}
		return 1_000_000 / float64(frames)
	}
	tpb := div.TicksPerBeat()
	if tpb == 0 {
		d.anomaly("zero ticks per beat")
		return 0
	}
	return float64(d.song.Tempo) / float64(tpb)
}

func (d *decoder) anomaly(msg string, args ...any) {
	d.song.Anomalies++
	args = append(args, "track", d.track, "offset", d.src.Offset())
	d.log.Warn(msg, args...)
}
