package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zurustar/drumsmf/pkg/cli"
	"github.com/zurustar/drumsmf/pkg/fileutil"
	"github.com/zurustar/drumsmf/pkg/logger"
	"github.com/zurustar/drumsmf/pkg/render"
	"github.com/zurustar/drumsmf/pkg/smf"
)

var (
	// ErrProcessing はMIDIファイルを処理できなかったときのエラー
	// 利用者にはこの一行と原因だけを見せる
	ErrProcessing = errors.New("processing error")

	// ErrNoInput はMIDIファイルが指定されていないときのエラー
	ErrNoInput = errors.New("no MIDI file given")

	// ErrNoSoundFont はレンダリング用のSoundFontが見つからないときのエラー
	ErrNoSoundFont = errors.New("no SoundFont found")
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config  *cli.Config
	log     *slog.Logger
	embedFS fs.FS // 埋め込みSoundFont（nil可）
	stdout  io.Writer
}

// New Applicationを作成
func New(embedFS fs.FS) *Application {
	return &Application{
		embedFS: embedFS,
		stdout:  os.Stdout,
	}
}

// SetOutput レポートとヘルプの出力先を変更
func (app *Application) SetOutput(w io.Writer) {
	app.stdout = w
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}
	if app.config.MIDIPath == "" {
		cli.PrintHelp(app.stdout)
		return ErrNoInput
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 3. MIDIファイルの解析
	path, song, err := app.decode()
	if err != nil {
		app.log.Error("Failed to decode MIDI file", "path", app.config.MIDIPath, "error", err)
		return fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	app.log.Info("MIDI file decoded",
		"path", path,
		"notes", len(song.Notes),
		"instruments", len(song.Instruments),
		"bpm", song.BPM)

	// 4. レポートの出力
	if err := app.writeReport(path, song); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	// 5. プレビューのレンダリング（指定されている場合）
	if app.config.RenderPath != "" {
		if err := app.renderPreview(filepath.Dir(path), song); err != nil {
			return fmt.Errorf("failed to render preview: %w", err)
		}
	}

	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// decode MIDIファイルを探して解析する（ファイル名の大文字小文字は区別しない）
func (app *Application) decode() (string, *smf.Song, error) {
	path, err := fileutil.ResolvePath(app.config.MIDIPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", smf.ErrSourceUnavailable, err)
	}
	if path != app.config.MIDIPath {
		app.log.Debug("Resolved MIDI path", "requested", app.config.MIDIPath, "actual", path)
	}

	opts := []smf.Option{smf.WithLogger(app.log)}
	if app.config.Strict {
		opts = append(opts, smf.WithStrictHeader())
	}

	song, err := smf.ParseFile(path, opts...)
	if err != nil {
		return "", nil, err
	}
	return path, song, nil
}

// writeReport 指定された形式でレポートを出力
func (app *Application) writeReport(path string, song *smf.Song) error {
	report := NewReport(path, song)
	if app.config.Format == cli.FormatJSON {
		return report.WriteJSON(app.stdout)
	}
	return report.WriteText(app.stdout)
}

// renderPreview ドラムパートをWAVにレンダリングする
func (app *Application) renderPreview(midiDir string, song *smf.Song) error {
	loc := findSoundFont(app.embedFS, app.config.SoundFont, midiDir)
	if loc == nil {
		return ErrNoSoundFont
	}

	app.log.Info("Loading SoundFont", "path", loc.Path, "embedded", loc.IsEmbedded)
	sf, err := render.LoadSoundFont(loc.FileSystem, loc.Path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if app.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	opts := []render.Option{render.WithLogger(app.log)}
	if app.config.MaxLength > 0 {
		opts = append(opts, render.WithMaxLength(app.config.MaxLength))
	}
	renderer := render.NewRenderer(sf, opts...)
	buf, err := renderer.Render(ctx, song)
	if err != nil {
		return err
	}

	if err := render.WriteWAVFile(app.config.RenderPath, buf); err != nil {
		return err
	}

	app.log.Info("Preview written",
		"path", app.config.RenderPath,
		"seconds", float64(len(buf.Data)/buf.Format.NumChannels)/float64(buf.Format.SampleRate),
		"elapsed", time.Since(start))
	return nil
}
