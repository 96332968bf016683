package commands

import (
	"github.com/spf13/cobra"

	"github.com/headlamp-run/headlamp/internal/config"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// NewRootCommand builds the headlamp cobra command tree: the root command
// doubles as `headlamp run` (tests execute whether or not a subcommand is
// named), with `watch` available as an explicit alternative entry point.
func NewRootCommand() *cobra.Command {
	var o flagOverrides

	root := &cobra.Command{
		Use:           "headlamp [paths...]",
		Short:         "Run the relevant slice of your test suite across jest, vitest, pytest, and cargo",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(cmd, args, &o)
		},
	}

	registerFlags(root, &o)

	root.AddCommand(newWatchCommand(&o))

	return root
}

// registerFlags binds every §6 CLI flag onto cmd, writing into o. Cobra's
// own Changed tracking (queried in markChanged, called from RunE before
// Apply) is what lets flagOverrides distinguish "flag passed" from
// "flag left at its zero value".
func registerFlags(cmd *cobra.Command, o *flagOverrides) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&o.runner, "runner", "", "test runner: jest, vitest, pytest, cargo-test, or cargo-nextest")
	flags.BoolVar(&o.coverage, "coverage", false, "collect and report code coverage")
	flags.StringVar(&o.coverageUI, "coverage-ui", "", "coverage report style")
	flags.BoolVar(&o.coverageAbort, "coverage-abort-on-failure", false, "skip the coverage pass when any test fails")
	flags.StringSliceVar(&o.coverageInclude, "coverage-include", nil, "glob patterns a file must match to appear in the coverage report")
	flags.StringSliceVar(&o.coverageExclude, "coverage-exclude", nil, "glob patterns excluding files from the coverage report")
	flags.StringVar(&o.coverageEditor, "coverage-editor", "", "editor URI scheme used for coverage hotspot links")
	flags.StringVar(&o.coverageRoot, "coverage-root", "", "repo-relative root coverage paths are resolved against")
	flags.StringVar(&o.coverageDetail, "coverage-detail", "", "coverage table row count: all, auto, or a number")
	flags.BoolVar(&o.coverageShowCode, "coverage-show-code", false, "inline hotspot source setting; stored in the merged config, not read by the coverage table")
	flags.StringVar(&o.coverageMode, "coverage-mode", "", "coverage table layout (auto, full, compact); stored in the merged config, not read by the coverage table")
	flags.BoolVar(&o.coverageCompact, "coverage-compact", false, "compact coverage layout setting; stored in the merged config, not read by the coverage table")
	flags.BoolVar(&o.coveragePageFit, "coverage-page-fit", false, "page-fit setting for the coverage table; stored in the merged config, not read by the coverage table")
	flags.IntVar(&o.coverageMaxFiles, "coverage-max-files", 0, "maximum rows in the coverage roll-up table (0 uses the configured default)")
	flags.IntVar(&o.coverageMaxHotspots, "coverage-max-hotspots", 0, "maximum hotspot ranges reported per file")
	flags.Float64Var(&o.coverageLinesThreshold, "coverage-threshold-lines", 0, "minimum acceptable line coverage percentage")
	flags.Float64Var(&o.coverageFuncsThreshold, "coverage-threshold-functions", 0, "minimum acceptable function coverage percentage")
	flags.Float64Var(&o.coverageBranchesThreshold, "coverage-threshold-branches", 0, "minimum acceptable branch coverage percentage")
	flags.Float64Var(&o.coverageStatementsThreshold, "coverage-threshold-statements", 0, "minimum acceptable statement coverage percentage")

	flags.BoolVar(&o.onlyFailures, "only-failures", false, "render only failed suites and cases")
	flags.BoolVar(&o.showLogs, "show-logs", false, "render full console output instead of just error/warn lines")
	flags.BoolVar(&o.sequential, "sequential", false, "disable the stride worker pool; run selected work one item at a time")
	flags.BoolVar(&o.ci, "ci", false, "disable the live-progress UI and watch mode, for non-interactive environments")
	flags.BoolVar(&o.verbose, "verbose", false, "verbosity setting; stored in the merged config, does not change output")
	flags.BoolVar(&o.quiet, "quiet", false, "quiet setting; stored in the merged config, does not change output")
	flags.BoolVar(&o.noCache, "no-cache", false, "bypass the on-disk selection/test-binary cache")
	flags.BoolVar(&o.keepArtifacts, "keep-artifacts", false, "preserve the per-invocation scratch directory instead of removing it on exit")

	flags.BoolVar(&o.watch, "watch", false, "re-run the selected tests whenever a tracked file changes")
	flags.BoolVar(&o.watchAll, "watch-all", false, "like --watch, but re-run the full suite rather than just the selection")

	flags.StringVar(&o.bootstrapCommand, "bootstrap-command", "", "shell command run once before the first test invocation")

	flags.StringVar(&o.changed, "changed", string(gitChangedModeNone), "select tests from files changed per this git mode (staged, unstaged, all, branch, lastCommit, lastRelease, none)")
	flags.IntVar(&o.changedDepth, "changed-depth", 0, "max transitive import depth considered when refining a --changed selection")

	flags.StringVar(&o.dependencyLanguage, "dependency-language", "", "language family used to resolve the dependency graph (tsjs, rust)")
}

// gitChangedModeNone is duplicated here (rather than importing
// internal/gitscan just for a string constant) to keep the flag default
// visible without pulling the git-backed package into every command file.
const gitChangedModeNone = "none"

// markChanged records, for each flag registerFlags bound, whether the user
// actually passed it on the command line. Cobra doesn't expose this on the
// bound variable itself, so RunE calls this before handing o to Apply.
func markChanged(cmd *cobra.Command, o *flagOverrides) {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }

	o.runnerSet = changed("runner")
	o.coverageSet = changed("coverage")
	o.coverageUISet = changed("coverage-ui")
	o.coverageAbortSet = changed("coverage-abort-on-failure")
	o.coverageEditorSet = changed("coverage-editor")
	o.coverageRootSet = changed("coverage-root")
	o.coverageDetailSet = changed("coverage-detail")
	o.coverageShowCodeSet = changed("coverage-show-code")
	o.coverageModeSet = changed("coverage-mode")
	o.coverageCompactSet = changed("coverage-compact")
	o.coveragePageFitSet = changed("coverage-page-fit")
	o.coverageMaxFilesSet = changed("coverage-max-files")
	o.coverageMaxHotspotsSet = changed("coverage-max-hotspots")
	o.coverageLinesThresholdSet = changed("coverage-threshold-lines")
	o.coverageFuncsThresholdSet = changed("coverage-threshold-functions")
	o.coverageBranchesThresholdSet = changed("coverage-threshold-branches")
	o.coverageStatementsThresholdSet = changed("coverage-threshold-statements")
	o.onlyFailuresSet = changed("only-failures")
	o.showLogsSet = changed("show-logs")
	o.sequentialSet = changed("sequential")
	o.ciSet = changed("ci")
	o.verboseSet = changed("verbose")
	o.quietSet = changed("quiet")
	o.noCacheSet = changed("no-cache")
	o.keepArtifactsSet = changed("keep-artifacts")
	o.bootstrapCommandSet = changed("bootstrap-command")
	o.changedSet = changed("changed")
	o.changedDepthSet = changed("changed-depth")
	o.dependencyLanguageSet = changed("dependency-language")
}

// resolveConfig loads the project config file (if any) and merges o on top
// of it, per §6's "CLI flags override config file values" precedence rule.
func resolveConfig(startDir string, o *flagOverrides) (config.Config, error) {
	cfg, _, err := config.Load(startDir)
	if err != nil {
		return config.Config{}, err
	}

	return o.Apply(cfg), nil
}
