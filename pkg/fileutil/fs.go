package fileutil

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystem は実ファイルシステムと埋め込みファイルシステムを統一的に扱うインターフェース
// SoundFontの検索と読み込みに使う
type FileSystem interface {
	// Open はファイルを開く（大文字小文字を無視）
	Open(name string) (fs.File, error)
	// ReadFile はファイルの内容を読み込む（大文字小文字を無視）
	ReadFile(name string) ([]byte, error)
	// List は dir 内で拡張子が exts のいずれかに一致するファイル名を名前順で返す
	List(dir string, exts ...string) ([]string, error)
	// IsEmbedded は埋め込みファイルシステムかどうかを返す
	IsEmbedded() bool
}

// RealFS は実ファイルシステムへのアクセスを提供する
// basePathが空の場合は名前をそのまま使う（絶対パス可）
type RealFS struct {
	basePath string
}

// NewRealFS は実ファイルシステム用のFileSystemを作成する
func NewRealFS(basePath string) *RealFS {
	return &RealFS{basePath: basePath}
}

func (r *RealFS) Open(name string) (fs.File, error) {
	p, err := ResolvePath(r.resolve(name))
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (r *RealFS) ReadFile(name string) ([]byte, error) {
	p, err := ResolvePath(r.resolve(name))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (r *RealFS) List(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(r.resolve(dir))
	if err != nil {
		return nil, err
	}
	return filterByExtension(entries, exts...), nil
}

func (r *RealFS) IsEmbedded() bool {
	return false
}

// BasePath はベースパスを返す
func (r *RealFS) BasePath() string {
	return r.basePath
}

func (r *RealFS) resolve(name string) string {
	if r.basePath == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.basePath, name)
}

// EmbedFS は埋め込みファイルシステム（embed.FSなど）へのアクセスを提供する
type EmbedFS struct {
	fsys     fs.FS
	basePath string
}

// NewEmbedFS は埋め込みファイルシステム用のFileSystemを作成する
// basePath配下だけが見える
func NewEmbedFS(fsys fs.FS, basePath string) *EmbedFS {
	return &EmbedFS{fsys: fsys, basePath: basePath}
}

func (e *EmbedFS) Open(name string) (fs.File, error) {
	p, err := e.find(name)
	if err != nil {
		return nil, err
	}
	return e.fsys.Open(p)
}

func (e *EmbedFS) ReadFile(name string) ([]byte, error) {
	p, err := e.find(name)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(e.fsys, p)
}

func (e *EmbedFS) List(dir string, exts ...string) ([]string, error) {
	entries, err := fs.ReadDir(e.fsys, e.resolve(dir))
	if err != nil {
		return nil, err
	}
	return filterByExtension(entries, exts...), nil
}

func (e *EmbedFS) IsEmbedded() bool {
	return true
}

// resolve はbasePathを付けたfs.FS用のパスを返す
// fs.FSは "/" 区切りで先頭の "/" を許さない
func (e *EmbedFS) resolve(name string) string {
	clean := strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
	if clean == "" {
		clean = "."
	}
	return path.Join(e.basePath, clean)
}

func (e *EmbedFS) find(name string) (string, error) {
	p := e.resolve(name)
	// まず直接アクセスを試みる
	if _, err := fs.Stat(e.fsys, p); err == nil {
		return p, nil
	}
	return FindFileCaseInsensitiveFS(e.fsys, path.Dir(p), path.Base(p))
}
