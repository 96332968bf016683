package commands

import (
	"github.com/spf13/cobra"
)

// newWatchCommand registers `headlamp watch` as sugar for `headlamp
// --watch`: it shares o (and therefore every persistent flag already bound
// by registerFlags on the root command) and simply forces o.watch on
// before delegating to the same RunE.
func newWatchCommand(o *flagOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-run the selected tests whenever a tracked file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.watch = true

			return runMain(cmd, args, o)
		},
	}
}
