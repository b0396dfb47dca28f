// Package fileutil resolves input files regardless of the case of their names.
//
// MIDI files and SoundFonts often come from old archives where names were
// written in upper case ("BEAT01.MID"), so lookups here ignore case.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FindFileCaseInsensitive searches dir for filename ignoring case and returns
// the path of the first match.
//
// Example:
//
//	path, err := FindFileCaseInsensitive("/songs", "beat01.mid")
//	// finds "BEAT01.MID", "Beat01.mid", etc.
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	name, ok := matchEntry(entries, filename)
	if !ok {
		return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
	}
	return filepath.Join(dir, name), nil
}

// FindFileCaseInsensitiveFS is FindFileCaseInsensitive for an fs.FS such as
// an embed.FS. The returned path uses forward slashes.
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	name, ok := matchEntry(entries, filename)
	if !ok {
		return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
	}
	if dir == "." || dir == "" {
		return name, nil
	}
	return dir + "/" + name, nil
}

// ResolvePath returns path if it exists, otherwise a file in the same
// directory whose name differs only in case.
func ResolvePath(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return FindFileCaseInsensitive(filepath.Dir(path), filepath.Base(path))
}

// HasExtension reports whether name ends in one of exts, ignoring case.
// exts include the dot (".sf2").
func HasExtension(name string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// filterByExtension returns the names of regular entries with one of exts, sorted.
func filterByExtension(entries []fs.DirEntry, exts ...string) []string {
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !HasExtension(entry.Name(), exts...) {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names
}

func matchEntry(entries []fs.DirEntry, filename string) (string, bool) {
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return entry.Name(), true
		}
	}
	return "", false
}
