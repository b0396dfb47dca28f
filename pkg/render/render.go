// Package render produces an audio preview of a decoded percussion part.
//
// Notes are played on the GM percussion channel of a SoundFont synthesizer
// at the times the song's tick length gives them. The result is 16-bit
// interleaved stereo PCM that can be written as a WAV file.
package render

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/go-audio/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/drumsmf/pkg/drumkit"
	"github.com/zurustar/drumsmf/pkg/logger"
	"github.com/zurustar/drumsmf/pkg/smf"
)

const (
	// DefaultSampleRate is the output rate used unless WithSampleRate is given.
	DefaultSampleRate = 44100

	// DefaultTail is rendered after the last note so cymbals can ring out.
	DefaultTail = time.Second

	// DefaultMaxLength caps the rendered audio, tail included.
	DefaultMaxLength = 30 * time.Minute

	// BitDepth of the rendered PCM.
	BitDepth = 16

	numChannels = 2
	blockFrames = 1024

	// maxFrame keeps frame arithmetic clear of int64 overflow.
	maxFrame = math.MaxInt64 / 4

	// initialFrames bounds the up-front buffer; longer renders grow it.
	initialFrames = 60 * DefaultSampleRate

	noteOnCommand  = 0x90
	noteOffCommand = 0x80
)

var (
	// ErrNoTiming is returned when a song with notes has no usable tick length.
	ErrNoTiming = errors.New("song has no tick length")

	// ErrTooLong is returned when the song would render past the maximum length.
	ErrTooLong = errors.New("song exceeds maximum render length")
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithSampleRate sets the output sample rate.
func WithSampleRate(rate int) Option {
	return func(r *Renderer) {
		if rate > 0 {
			r.sampleRate = rate
		}
	}
}

// WithTail sets how long to keep rendering after the last note ends.
func WithTail(d time.Duration) Option {
	return func(r *Renderer) {
		if d >= 0 {
			r.tail = d
		}
	}
}

// WithMaxLength sets the longest audio Render will produce.
func WithMaxLength(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.maxLength = d
		}
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// Renderer turns songs into PCM using one SoundFont.
type Renderer struct {
	soundFont  *meltysynth.SoundFont
	sampleRate int
	tail       time.Duration
	maxLength  time.Duration
	log        *slog.Logger
}

// NewRenderer creates a Renderer for sf.
func NewRenderer(sf *meltysynth.SoundFont, opts ...Option) *Renderer {
	r := &Renderer{
		soundFont:  sf,
		sampleRate: DefaultSampleRate,
		tail:       DefaultTail,
		maxLength:  DefaultMaxLength,
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SampleRate returns the output sample rate.
func (r *Renderer) SampleRate() int {
	return r.sampleRate
}

// MaxLength returns the longest audio Render will produce.
func (r *Renderer) MaxLength() time.Duration {
	return r.maxLength
}

// event is a note-on or note-off placed on the sample timeline.
type event struct {
	frame    int64
	key      uint8
	velocity uint8
	on       bool
}

// schedule places every note of song on a timeline of frames at sampleRate.
// At equal frames, note-offs come first so a re-struck key is not cut short.
func schedule(song *smf.Song, sampleRate int) []event {
	framesPerTick := song.TickLength * float64(sampleRate) / 1e6
	toFrame := func(tick uint32) int64 {
		f := math.Round(float64(tick) * framesPerTick)
		if f >= maxFrame {
			return maxFrame
		}
		return int64(f)
	}

	events := make([]event, 0, len(song.Notes)*2)
	for _, n := range song.Notes {
		on := toFrame(n.StartTick)
		// A zero-length note still needs its off after its on.
		off := max(toFrame(n.End()), on+1)
		events = append(events,
			event{frame: on, key: n.Key, velocity: n.Velocity, on: true},
			event{frame: off, key: n.Key},
		)
	}

	slices.SortStableFunc(events, func(a, b event) int {
		if c := cmp.Compare(a.frame, b.frame); c != 0 {
			return c
		}
		switch {
		case a.on == b.on:
			return 0
		case !a.on:
			return -1
		default:
			return 1
		}
	})
	return events
}

// Render plays song through the synthesizer and returns the PCM.
// It stops early with ctx.Err() when ctx is cancelled, and fails with
// ErrTooLong before rendering anything when the song is longer than the
// renderer's maximum length.
func (r *Renderer) Render(ctx context.Context, song *smf.Song) (*audio.IntBuffer, error) {
	if len(song.Notes) > 0 && song.TickLength <= 0 {
		return nil, ErrNoTiming
	}

	events := schedule(song, r.sampleRate)
	tailFrames := int64(r.tail.Seconds() * float64(r.sampleRate))
	var totalFrames int64
	if len(events) > 0 {
		totalFrames = events[len(events)-1].frame
	}
	totalFrames += tailFrames

	if limit := int64(r.maxLength.Seconds() * float64(r.sampleRate)); totalFrames > limit {
		return nil, fmt.Errorf("%w: %.1fs > %s", ErrTooLong, float64(totalFrames)/float64(r.sampleRate), r.maxLength)
	}

	settings := meltysynth.NewSynthesizerSettings(int32(r.sampleRate))
	synth, err := meltysynth.NewSynthesizer(r.soundFont, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}

	r.log.Debug("rendering",
		"notes", len(song.Notes),
		"frames", totalFrames,
		"sampleRate", r.sampleRate)

	out := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  r.sampleRate,
		},
		Data:           make([]int, 0, min(totalFrames, initialFrames)*numChannels),
		SourceBitDepth: BitDepth,
	}

	b := newBlockWriter(synth, out)
	for _, ev := range events {
		if err := b.renderTo(ctx, ev.frame); err != nil {
			return nil, err
		}
		if ev.on {
			synth.ProcessMidiMessage(drumkit.PercussionChannel, noteOnCommand, int32(ev.key), int32(ev.velocity))
		} else {
			synth.ProcessMidiMessage(drumkit.PercussionChannel, noteOffCommand, int32(ev.key), 0)
		}
	}
	if err := b.renderTo(ctx, totalFrames); err != nil {
		return nil, err
	}

	return out, nil
}

// blockWriter pulls fixed-size blocks from the synthesizer and appends them
// to out as interleaved 16-bit samples.
type blockWriter struct {
	synth       *meltysynth.Synthesizer
	out         *audio.IntBuffer
	left, right []float32
	frame       int64
}

func newBlockWriter(synth *meltysynth.Synthesizer, out *audio.IntBuffer) *blockWriter {
	return &blockWriter{
		synth: synth,
		out:   out,
		left:  make([]float32, blockFrames),
		right: make([]float32, blockFrames),
	}
}

func (b *blockWriter) renderTo(ctx context.Context, frame int64) error {
	for b.frame < frame {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := int(min(frame-b.frame, blockFrames))
		left, right := b.left[:n], b.right[:n]
		b.synth.Render(left, right)
		for i := range n {
			b.out.Data = append(b.out.Data, toPCM16(left[i]), toPCM16(right[i]))
		}
		b.frame += int64(n)
	}
	return nil
}

// toPCM16 converts a float sample in [-1, 1] to a signed 16-bit value.
func toPCM16(v float32) int {
	v = max(-1, min(v, 1))
	return int(v * math.MaxInt16)
}
