package main

import (
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/zurustar/drumsmf/pkg/app"
)

// soundfonts/ に置いた.sf2はバイナリに埋め込まれ、--render時に使われる
//
//go:embed soundfonts
var embeddedSoundFonts embed.FS

func main() {
	application := app.New(embeddedSoundFonts)
	if err := application.Run(os.Args[1:]); err != nil {
		if errors.Is(err, app.ErrNoInput) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
