package app

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/zurustar/drumsmf/pkg/drumkit"
	"github.com/zurustar/drumsmf/pkg/smf"
)

// Report はレポート出力用に整理した解析結果
type Report struct {
	File          string             `json:"file"`
	Title         string             `json:"title,omitempty"`
	Format        uint16             `json:"format"`
	Tracks        uint16             `json:"tracks"`
	Division      string             `json:"division"`
	Tempo         uint32             `json:"tempo"`
	BPM           uint32             `json:"bpm"`
	TimeSignature string             `json:"timeSignature"`
	KeySignature  string             `json:"keySignature,omitempty"`
	TickLength    float64            `json:"tickLengthMicros"`
	Length        float64            `json:"lengthSeconds"`
	NoteCount     int                `json:"noteCount"`
	Instruments   []InstrumentReport `json:"instruments"`
	Notes         []NoteReport       `json:"notes"`
	Texts         []TextReport       `json:"texts,omitempty"`
	Anomalies     int                `json:"anomalies"`
}

// InstrumentReport は楽器（ドラムキー）ごとの集計
type InstrumentReport struct {
	Key      uint8  `json:"key"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// NoteReport は1打分の情報
type NoteReport struct {
	Key       uint8   `json:"key"`
	Velocity  uint8   `json:"velocity"`
	StartTick uint32  `json:"startTick"`
	Duration  uint32  `json:"duration"`
	Time      float64 `json:"timeSeconds"`
}

// TextReport はテキスト系メタイベント
type TextReport struct {
	Track int    `json:"track"`
	Type  string `json:"type"`
	Tick  uint32 `json:"tick"`
	Text  string `json:"text"`
}

// NewReport 解析結果からレポートを作成
func NewReport(file string, song *smf.Song) *Report {
	r := &Report{
		File:          file,
		Title:         song.Title,
		Format:        song.Format,
		Tracks:        song.TrackCount,
		Division:      formatDivision(song.Division),
		Tempo:         song.Tempo,
		BPM:           song.BPM,
		TimeSignature: fmt.Sprintf("%d/%d", song.TimeSignature.Numerator, song.TimeSignature.Denominator),
		KeySignature:  song.KeySignature.Name,
		TickLength:    song.TickLength,
		Length:        song.Length().Seconds(),
		NoteCount:     len(song.Notes),
		Instruments:   make([]InstrumentReport, 0, len(song.Instruments)),
		Notes:         make([]NoteReport, 0, len(song.Notes)),
		Anomalies:     song.Anomalies,
	}

	counts := song.CountByKey()
	for _, key := range song.InstrumentKeys() {
		name, _ := drumkit.Name(key)
		category, _ := drumkit.CategoryOf(key)
		r.Instruments = append(r.Instruments, InstrumentReport{
			Key:      key,
			Name:     name,
			Category: category.String(),
			Count:    counts[key],
		})
	}

	for _, n := range song.Notes {
		r.Notes = append(r.Notes, NoteReport{
			Key:       n.Key,
			Velocity:  n.Velocity,
			StartTick: n.StartTick,
			Duration:  n.Duration,
			Time:      song.NoteTime(n).Seconds(),
		})
	}

	for _, t := range song.Texts {
		r.Texts = append(r.Texts, TextReport{
			Track: t.Track,
			Type:  t.Type.String(),
			Tick:  t.Tick,
			Text:  t.Text,
		})
	}

	return r
}

func formatDivision(d smf.Division) string {
	if d.IsSMPTE() {
		return fmt.Sprintf("SMPTE %d fps, %d ticks/frame", d.FramesPerSecond(), d.TicksPerFrame())
	}
	return fmt.Sprintf("%d ticks/beat", d.TicksPerBeat())
}

// WriteJSON レポートをJSONで出力
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText レポートを人が読める形式で出力
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "File:\t%s\n", r.File)
	if r.Title != "" {
		fmt.Fprintf(tw, "Title:\t%s\n", r.Title)
	}
	fmt.Fprintf(tw, "Format:\t%d (%d tracks)\n", r.Format, r.Tracks)
	fmt.Fprintf(tw, "Division:\t%s\n", r.Division)
	fmt.Fprintf(tw, "Tempo:\t%d BPM (%d us/beat)\n", r.BPM, r.Tempo)
	fmt.Fprintf(tw, "Time signature:\t%s\n", r.TimeSignature)
	if r.KeySignature != "" {
		fmt.Fprintf(tw, "Key signature:\t%s\n", r.KeySignature)
	}
	fmt.Fprintf(tw, "Tick length:\t%.3f us\n", r.TickLength)
	fmt.Fprintf(tw, "Length:\t%.3f s\n", r.Length)
	fmt.Fprintf(tw, "Notes:\t%d\n", r.NoteCount)
	if r.Anomalies > 0 {
		fmt.Fprintf(tw, "Skipped events:\t%d\n", r.Anomalies)
	}

	if len(r.Instruments) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Key\tInstrument\tCategory\tHits")
		for _, inst := range r.Instruments {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", inst.Key, inst.Name, inst.Category, inst.Count)
		}
	}

	if len(r.Texts) > 0 {
		fmt.Fprintln(tw)
		for _, t := range r.Texts {
			fmt.Fprintf(tw, "[%s @%d]\t%s\n", t.Type, t.Tick, t.Text)
		}
	}

	return tw.Flush()
}
