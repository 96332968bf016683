// Package render turns a model.TestRunModel into the single string
// headlamp prints after a run: a run header, one block per suite with
// status glyphs and badges, console output, failure detail (assertions,
// code frames, filtered stack traces), and a summary footer. The renderer
// never writes to stdout itself — callers do that with the returned
// string.
package render

import "github.com/headlamp-run/headlamp/internal/render/terminal"

// Ctx carries everything the renderer needs beyond the model itself.
type Ctx struct {
	Cwd       string
	Width     int
	IsTTY     bool
	ShowLogs  bool
	EditorCmd string
	NoColor   bool
	Unicode   bool
}

// NewCtx builds a Ctx from a detected terminal.Config plus the run-level
// options the CLI layer owns.
func NewCtx(cwd string, tc terminal.Config, showLogs bool, editorCmd string) Ctx {
	return Ctx{
		Cwd:       cwd,
		Width:     tc.Width,
		IsTTY:     tc.IsTTY,
		ShowLogs:  showLogs,
		EditorCmd: editorCmd,
		NoColor:   tc.NoColor,
		Unicode:   tc.Unicode,
	}
}

func (c Ctx) terminalConfig() terminal.Config {
	return terminal.Config{Width: c.Width, NoColor: c.NoColor, IsTTY: c.IsTTY, Unicode: c.Unicode}
}
