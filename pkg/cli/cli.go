package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/drumsmf/pkg/logger"
)

// 出力形式
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	MIDIPath   string        // 解析するMIDIファイルのパス
	Format     string        // レポート形式（text, json）
	LogLevel   string        // ログレベル（debug, info, warn, error）
	Strict     bool          // MThdヘッダーを検証する
	RenderPath string        // プレビューWAVの出力先（空ならレンダリングしない）
	SoundFont  string        // SoundFontファイルのパス（空なら自動検索）
	Timeout    time.Duration // レンダリングのタイムアウト（0は無制限）
	MaxLength  time.Duration // プレビューの最大長（0ならレンダラーの既定値）
	ShowHelp   bool          // ヘルプ表示フラグ
}

// 値を取らないフラグ（reorderArgsで次の引数を値として扱わない）
var boolFlags = map[string]bool{
	"-h": true, "-help": true, "--help": true,
	"-strict": true, "--strict": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("drumsmf", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	var maxLengthSec int
	fs.IntVar(&maxLengthSec, "max-length", 0, "プレビューの最大長（秒）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.StringVar(&config.Format, "format", FormatText, "レポート形式（text, json）")
	fs.StringVar(&config.Format, "f", FormatText, "レポート形式（短縮形）")
	fs.StringVar(&config.RenderPath, "render", "", "プレビューWAVの出力先")
	fs.StringVar(&config.RenderPath, "o", "", "プレビューWAVの出力先（短縮形）")
	fs.StringVar(&config.SoundFont, "soundfont", "", "SoundFontファイルのパス")
	fs.StringVar(&config.SoundFont, "s", "", "SoundFontファイルのパス（短縮形）")
	fs.BoolVar(&config.Strict, "strict", false, "MThdヘッダーを検証する")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からタイムアウトを取得（コマンドラインフラグが優先）
	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	// 環境変数からログレベルを取得（コマンドラインフラグが優先）
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	// 環境変数からSoundFontを取得（コマンドラインフラグが優先）
	if config.SoundFont == "" {
		config.SoundFont = os.Getenv("DRUMSMF_SOUNDFONT")
	}

	// タイムアウトの検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	// 最大長の検証
	if maxLengthSec < 0 {
		return nil, fmt.Errorf("max-length must be non-negative, got %d", maxLengthSec)
	}
	config.MaxLength = time.Duration(maxLengthSec) * time.Second

	// ログレベルの検証
	if _, err := logger.ParseLevel(config.LogLevel); err != nil {
		return nil, fmt.Errorf("%w (must be debug, info, warn, or error)", err)
	}

	// 出力形式の検証
	config.Format = strings.ToLower(config.Format)
	if config.Format != FormatText && config.Format != FormatJSON {
		return nil, fmt.Errorf("invalid format: %s (must be text or json)", config.Format)
	}

	// 位置引数（MIDIファイルのパス）
	switch fs.NArg() {
	case 0:
	case 1:
		config.MIDIPath = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected one MIDI file, got %d arguments", fs.NArg())
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" 以降はすべて位置引数
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// -o=out.wav の形式は値を含んでいる
			if strings.Contains(arg, "=") || boolFlags[arg] {
				continue
			}
			// 次の引数が値である可能性をチェック（-t 5 のような場合）
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `drumsmf - Standard MIDI File percussion decoder

Usage:
  drumsmf [options] <midi-file>

Arguments:
  midi-file     解析するMIDIファイル（.mid）
                ファイル名の大文字小文字は区別しない

Options:
  -f, --format <format>       レポート形式: text, json（デフォルト: text）
  -o, --render <wav-file>     ドラムパートをWAVにレンダリング
  -s, --soundfont <sf2-file>  レンダリングに使うSoundFont（省略時は自動検索）
  -t, --timeout <seconds>     レンダリングを指定秒数で打ち切る（デフォルト: 無制限）
  --max-length <seconds>      これより長い曲はレンダリングしない（デフォルト: 1800）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --strict                    MThdヘッダーを検証する
  -h, --help                  このヘルプを表示

Environment Variables:
  DRUMSMF_SOUNDFONT=<path>    SoundFontファイルのパス
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル

Examples:
  drumsmf beat.mid                       ドラム譜のサマリーを表示
  drumsmf --format json beat.mid         JSONで出力
  drumsmf beat.mid -o beat.wav           WAVプレビューを作成
  drumsmf -s GeneralUser-GS.sf2 -o out.wav beat.mid
  LOG_LEVEL=debug drumsmf beat.mid       デバッグログを有効化
`)
}
