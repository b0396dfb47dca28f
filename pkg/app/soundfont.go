package app

import (
	"io/fs"
	"path/filepath"

	"github.com/zurustar/drumsmf/pkg/fileutil"
)

// soundFontExt はSoundFontファイルの拡張子
const soundFontExt = ".sf2"

// embeddedSoundFontDir は埋め込みSoundFontを置くディレクトリ
const embeddedSoundFontDir = "soundfonts"

// SoundFontLocation represents the location of a SoundFont file.
type SoundFontLocation struct {
	// Path is the path to the SoundFont file
	Path string
	// FileSystem is the FileSystem to use for loading (nil for external files)
	FileSystem fileutil.FileSystem
	// IsEmbedded indicates whether the SoundFont is embedded
	IsEmbedded bool
}

// findSoundFont searches for a SoundFont file in the following order:
// 1. The explicitly given path (--soundfont or DRUMSMF_SOUNDFONT)
// 2. Embedded soundfonts directory
// 3. The directory of the MIDI file
// 4. Current directory
//
// 見つかったディレクトリに複数ある場合は名前順で最初のものを使う
// Returns nil if no SoundFont is found.
func findSoundFont(embedFS fs.FS, explicit, midiDir string) *SoundFontLocation {
	// 1. 明示的な指定（存在確認は読み込み時に行う）
	if explicit != "" {
		return &SoundFontLocation{Path: explicit}
	}

	// 2. 埋め込みsoundfontsディレクトリ
	if embedFS != nil {
		efs := fileutil.NewEmbedFS(embedFS, embeddedSoundFontDir)
		if names, err := efs.List(".", soundFontExt); err == nil && len(names) > 0 {
			return &SoundFontLocation{
				Path:       names[0], // FileSystemのベースパスが"soundfonts"なので、ファイル名だけ
				FileSystem: efs,
				IsEmbedded: true,
			}
		}
	}

	// 3. MIDIファイルと同じディレクトリ
	// 4. カレントディレクトリ
	for _, dir := range []string{midiDir, "."} {
		if dir == "" {
			continue
		}
		names, err := fileutil.NewRealFS(dir).List(".", soundFontExt)
		if err != nil || len(names) == 0 {
			continue
		}
		return &SoundFontLocation{Path: filepath.Join(dir, names[0])}
	}

	return nil
}
