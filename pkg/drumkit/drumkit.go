// Package drumkit holds the General MIDI percussion key map.
package drumkit

const (
	// PercussionChannel is MIDI channel 10, zero-indexed.
	PercussionChannel = 9

	// DrumKeyStart and DrumKeyEnd bound the GM percussion keys (inclusive).
	DrumKeyStart = 35
	DrumKeyEnd   = 81

	// KeyCount is the number of keys in the drum range.
	KeyCount = DrumKeyEnd - DrumKeyStart + 1
)

// Category groups drum keys by how a chart lays them out.
type Category int

const (
	CategoryNone Category = iota
	CategoryHigherPitch
	CategoryLowerPitch
	CategoryCymbals
	CategoryHiHats
	CategoryPercussion
)

func (c Category) String() string {
	switch c {
	case CategoryHigherPitch:
		return "Higher Pitch"
	case CategoryLowerPitch:
		return "Lower Pitch"
	case CategoryCymbals:
		return "Cymbals"
	case CategoryHiHats:
		return "Hi-Hats"
	case CategoryPercussion:
		return "Percussion"
	default:
		return "none"
	}
}

type instrument struct {
	name     string
	category Category
}

// instruments is indexed by key - DrumKeyStart.
var instruments = [KeyCount]instrument{
	{"Acoustic Bass Drum", CategoryLowerPitch}, // 35
	{"Bass Drum 1", CategoryLowerPitch},
	{"Side Stick", CategoryPercussion},
	{"Acoustic Snare", CategoryHigherPitch},
	{"Hand Clap", CategoryPercussion},
	{"Electric Snare", CategoryHigherPitch}, // 40
	{"Low Floor Tom", CategoryLowerPitch},
	{"Closed Hi-Hat", CategoryHiHats},
	{"High Floor Tom", CategoryLowerPitch},
	{"Pedal Hi-Hat", CategoryHiHats},
	{"Low Tom", CategoryLowerPitch}, // 45
	{"Open Hi-Hat", CategoryCymbals},
	{"Low-Mid Tom", CategoryLowerPitch},
	{"Hi Mid Tom", CategoryHigherPitch},
	{"Crash Cymbal 1", CategoryCymbals},
	{"High Tom", CategoryHigherPitch}, // 50
	{"Ride Cymbal 1", CategoryCymbals},
	{"Chinese Cymbal", CategoryCymbals},
	{"Ride Bell", CategoryCymbals},
	{"Tambourine", CategoryPercussion},
	{"Splash Cymbal", CategoryCymbals}, // 55
	{"Cowbell", CategoryPercussion},
	{"Crash Cymbal 2", CategoryCymbals},
	{"Vibraslap", CategoryPercussion},
	{"Ride Cymbal 2", CategoryCymbals},
	{"Hi Bongo", CategoryPercussion}, // 60
	{"Low Bongo", CategoryPercussion},
	{"Mute Hi Conga", CategoryPercussion},
	{"Open Hi Conga", CategoryPercussion},
	{"Low Conga", CategoryPercussion},
	{"High Timbale", CategoryPercussion}, // 65
	{"Low Timbale", CategoryPercussion},
	{"High Agogo", CategoryPercussion},
	{"Low Agogo", CategoryPercussion},
	{"Cabasa", CategoryPercussion},
	{"Maracas", CategoryPercussion}, // 70
	{"Short Whistle", CategoryPercussion},
	{"Long Whistle", CategoryPercussion},
	{"Short Guiro", CategoryPercussion},
	{"Long Guiro", CategoryPercussion},
	{"Claves", CategoryPercussion}, // 75
	{"Hi Wood Block", CategoryPercussion},
	{"Low Wood Block", CategoryPercussion},
	{"Mute Cuica", CategoryPercussion},
	{"Open Cuica", CategoryPercussion},
	{"Mute Triangle", CategoryPercussion}, // 80
	{"Open Triangle", CategoryPercussion},
}

// InRange reports whether key is a GM percussion key.
func InRange(key uint8) bool {
	return key >= DrumKeyStart && key <= DrumKeyEnd
}

// Index maps a drum key to 0..KeyCount-1. The key must be in range.
func Index(key uint8) int {
	return int(key) - DrumKeyStart
}

// Name returns the GM instrument name for key.
func Name(key uint8) (string, bool) {
	if !InRange(key) {
		return "", false
	}
	return instruments[Index(key)].name, true
}

// CategoryOf returns the chart category for key.
func CategoryOf(key uint8) (Category, bool) {
	if !InRange(key) {
		return CategoryNone, false
	}
	return instruments[Index(key)].category, true
}

// Keys returns every key of the given category in ascending order.
func Keys(c Category) []uint8 {
	var keys []uint8
	for i, inst := range instruments {
		if inst.category == c {
			keys = append(keys, uint8(i+DrumKeyStart))
		}
	}
	return keys
}
