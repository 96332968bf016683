// Command headlamp runs the slice of a jest, vitest, pytest, or cargo test
// suite relevant to what changed, streaming results into a single
// normalized report with optional coverage roll-up and watch mode.
package main

import (
	"fmt"
	"os"

	"github.com/headlamp-run/headlamp/cmd/headlamp/commands"
	"github.com/headlamp-run/headlamp/internal/headlamperr"
)

func main() {
	root := commands.NewRootCommand()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "headlamp:", err)
		os.Exit(headlamperr.ExitCode(err))
	}
}
