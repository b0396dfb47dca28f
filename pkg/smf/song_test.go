package smf

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDivision(t *testing.T) {
	tests := []struct {
		name         string
		division     Division
		smpte        bool
		ticksPerBeat uint16
		fps          int
		ticksFrame   int
	}{
		{"480 ticks per beat", 480, false, 480, 0, 0},
		{"96 ticks per beat", 0x0060, false, 96, 0, 0},
		{"SMPTE 24", 0xE804, true, 0x6804, 24, 4},
		{"SMPTE 25", 0xE728, true, 0x6728, 25, 40},
		{"SMPTE 29", 0xE350, true, 0x6350, 29, 80},
		{"SMPTE 30", 0xE250, true, 0x6250, 30, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.smpte, tt.division.IsSMPTE())
			assert.Equal(t, tt.ticksPerBeat, tt.division.TicksPerBeat())
			if tt.smpte {
				assert.Equal(t, tt.fps, tt.division.FramesPerSecond())
				assert.Equal(t, tt.ticksFrame, tt.division.TicksPerFrame())
			}
		})
	}
}

func TestNewKeySignature(t *testing.T) {
	tests := []struct {
		sf   int8
		mi   uint8
		want string
	}{
		{0, 0, "C major"},
		{0, 1, "A minor"},
		{2, 0, "D major"},
		{-3, 1, "C minor"},
		{-7, 0, "Cb major"},
		{7, 1, "A# minor"},
		{-1, 0, "F major"},
		{3, 1, "F# minor"},
	}

	for _, tt := range tests {
		ks := newKeySignature(tt.sf, tt.mi)
		assert.Equal(t, tt.want, ks.Name, "sf=%d mi=%d", tt.sf, tt.mi)
		assert.Equal(t, tt.sf, ks.Sharps)
		assert.Equal(t, tt.mi == 1, ks.Minor)
		assert.True(t, ks.Valid())
	}

	// Out-of-range counts are clamped rather than indexing past the table.
	assert.Equal(t, "C# major", newKeySignature(12, 0).Name)
	assert.Equal(t, "Ab minor", newKeySignature(-12, 1).Name)
}

func TestNoteEnd(t *testing.T) {
	assert.Equal(t, uint32(150), Note{StartTick: 100, Duration: 50, HasDuration: true}.End())
	assert.Equal(t, uint32(100), Note{StartTick: 100, Duration: 50}.End())
}

func TestSongTiming(t *testing.T) {
	song := newSong()
	song.TickLength = 1000
	song.Notes = []Note{
		{Key: 36, StartTick: 0, Duration: 240, HasDuration: true},
		{Key: 42, StartTick: 480, Duration: 60, HasDuration: true},
		{Key: 36, StartTick: 960, Duration: 480, HasDuration: true},
		{Key: 42, StartTick: 1200, Duration: 10, HasDuration: true},
	}
	song.Instruments[42] = struct{}{}
	song.Instruments[36] = struct{}{}

	assert.Equal(t, 480*time.Millisecond, song.TickDuration(480))
	assert.Equal(t, 960*time.Millisecond, song.NoteTime(song.Notes[2]))
	assert.Equal(t, uint32(1440), song.EndTick())
	assert.Equal(t, 1440*time.Millisecond, song.Length())
	assert.Equal(t, map[uint8]int{36: 2, 42: 2}, song.CountByKey())
	assert.Equal(t, []uint8{36, 42}, song.InstrumentKeys())
}

func TestSongTiming_Saturates(t *testing.T) {
	// Division 1 with tempo 0xFFFFFF: the slowest tick a file can express.
	song := newSong()
	song.TickLength = 16777215
	song.Notes = []Note{{Key: 36, StartTick: 4_000_000_000, HasDuration: true}}

	limit := time.Duration(math.MaxInt64)
	assert.Equal(t, limit, song.TickDuration(math.MaxUint32))
	assert.Equal(t, limit, song.NoteTime(song.Notes[0]))
	assert.Equal(t, limit, song.Length())
	assert.Positive(t, song.Length().Seconds())

	// The whole tick range fits at ordinary tick lengths.
	song.TickLength = 1000
	assert.Equal(t, time.Duration(math.MaxUint32)*time.Millisecond, song.TickDuration(math.MaxUint32))
}

func TestMetaTypeString(t *testing.T) {
	assert.Equal(t, "track name", MetaTrackName.String())
	assert.Equal(t, "marker", MetaMarker.String())
	assert.Equal(t, "meta", MetaTempo.String())
}
