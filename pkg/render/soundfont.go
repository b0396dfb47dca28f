package render

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/drumsmf/pkg/fileutil"
)

// ErrSoundFontNotFound is returned when the SoundFont file cannot be read.
var ErrSoundFontNotFound = errors.New("SoundFont not found")

// ReadSoundFont reads a SoundFont through fsys, or from the real file system
// when fsys is nil.
func ReadSoundFont(fsys fileutil.FileSystem, path string) ([]byte, error) {
	if fsys == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrSoundFontNotFound, path)
			}
			return nil, fmt.Errorf("failed to read SoundFont file: %w", err)
		}
		return data, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSoundFontNotFound, path)
	}
	return data, nil
}

// LoadSoundFont reads and parses a SoundFont.
func LoadSoundFont(fsys fileutil.FileSystem, path string) (*meltysynth.SoundFont, error) {
	data, err := ReadSoundFont(fsys, path)
	if err != nil {
		return nil, err
	}

	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoundFont %s: %w", path, err)
	}
	return sf, nil
}
