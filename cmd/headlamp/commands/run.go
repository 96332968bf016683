package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/headlamp-run/headlamp/internal/cache"
	"github.com/headlamp-run/headlamp/internal/config"
	"github.com/headlamp-run/headlamp/internal/coverage"
	"github.com/headlamp-run/headlamp/internal/depgraph"
	"github.com/headlamp-run/headlamp/internal/gitscan"
	"github.com/headlamp-run/headlamp/internal/headlamperr"
	"github.com/headlamp-run/headlamp/internal/model"
	"github.com/headlamp-run/headlamp/internal/parsers"
	"github.com/headlamp-run/headlamp/internal/render"
	"github.com/headlamp-run/headlamp/internal/render/terminal"
	"github.com/headlamp-run/headlamp/internal/runner"
	"github.com/headlamp-run/headlamp/internal/selection"
	"github.com/headlamp-run/headlamp/internal/session"
	"github.com/headlamp-run/headlamp/internal/stride"
	"github.com/headlamp-run/headlamp/internal/watch"
	"github.com/headlamp-run/headlamp/pkg/gitlib"
)

// runnerTailCapacity bounds how much of a single child's output the ring
// buffer retains for post-mortem display if streaming parse fails outright.
const runnerTailCapacity = 256 * 1024

// runMain is the root command's RunE: it validates the flag combination,
// merges CLI flags over the discovered config file, and executes one test
// pass (or, under --watch/--watch-all, a watch.Loop around that pass).
func runMain(cmd *cobra.Command, args []string, o *flagOverrides) error {
	markChanged(cmd, o)

	paths, _ := splitPositionalArgs(args)
	o.selectionPaths = paths
	o.selectionSpecified = len(o.selectionPaths) > 0

	if (o.watch || o.watchAll) && o.ci {
		return fmt.Errorf("%w: --watch/--watch-all cannot be combined with --ci", headlamperr.ErrMisuse)
	}

	repoRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("%w: resolve working directory: %v", headlamperr.ErrIO, err)
	}

	cfg, err := resolveConfig(repoRoot, o)
	if err != nil {
		return err
	}

	sess, err := session.New(cfg.KeepArtifacts)
	if err != nil {
		return err
	}
	defer sess.Close() //nolint:errcheck // best-effort cleanup; nothing actionable if it fails

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	extraEnv, err := cargoTargetEnv(sess, cfg, dialectLanguage(cfg.Runner))
	if err != nil {
		return err
	}

	if cfg.BootstrapCommand != "" {
		if err := runBootstrapCommand(ctx, repoRoot, cfg.BootstrapCommand, extraEnv); err != nil {
			return err
		}
	}

	if cfg.Watch || cfg.WatchAll {
		return watch.Loop(ctx, repoRoot, func(loopCtx context.Context) error {
			selected := o.selectionPaths
			if cfg.WatchAll {
				selected = nil
			}

			_, runErr := runOnce(loopCtx, repoRoot, cfg, sess, selected, extraEnv)

			return runErr
		})
	}

	exitCode, runErr := runOnce(ctx, repoRoot, cfg, sess, o.selectionPaths, extraEnv)
	if runErr != nil {
		return runErr
	}

	return exitError(exitCode)
}

// dialectLanguage resolves a runner name to its language family without
// the rest of dialectFor's machinery, for the one pre-dialect decision
// (the cargo-target env override) runMain needs to make before the
// bootstrap command runs.
func dialectLanguage(runnerName string) selection.Language {
	switch selection.Runner(runnerName) {
	case selection.RunnerCargoTest, selection.RunnerCargoNextest:
		return selection.LanguageRust
	default:
		return ""
	}
}

// cargoTargetEnv returns a CARGO_TARGET_DIR override pointed at the
// session's own cargo-target subdirectory for Rust runs, so concurrent
// headlamp invocations against the same repo never share build output.
func cargoTargetEnv(sess *session.RunSession, cfg config.Config, lang selection.Language) ([]string, error) {
	if lang != selection.LanguageRust {
		return nil, nil
	}

	dir, err := sess.Subdir("cargo-target")
	if err != nil {
		return nil, err
	}

	return []string{"CARGO_TARGET_DIR=" + dir}, nil
}

// runBootstrapCommand runs cfg.BootstrapCommand synchronously to
// completion before any runner invocation, streaming its combined output
// straight to the parent's own stdout/stderr rather than through a
// live-progress UI. A nonzero exit aborts the whole invocation.
func runBootstrapCommand(ctx context.Context, repoRoot, command string, extraEnv []string) error {
	passthrough := runner.AdapterFunc(func(stream runner.Stream, line string) runner.StreamAction {
		if stream == runner.Stderr {
			fmt.Fprintln(os.Stderr, line)

			return runner.StreamAction{Kind: runner.ActionPrintStderr}
		}

		fmt.Fprintln(os.Stdout, line)

		return runner.StreamAction{Kind: runner.ActionPrintStdout}
	})

	exitCode, _, err := runner.Run(ctx, runner.Options{
		Command:           []string{"sh", "-c", command},
		Dir:               repoRoot,
		Env:               append(os.Environ(), extraEnv...),
		Adapter:           passthrough,
		Progress:          runner.NoProgress{},
		TailCapacityBytes: runnerTailCapacity,
	})
	if err != nil {
		return fmt.Errorf("%w: bootstrap command: %v", headlamperr.ErrSpawnFailed, err)
	}

	if exitCode != 0 {
		return fmt.Errorf("%w: bootstrap command exited %d", headlamperr.ErrCommandFailed, exitCode)
	}

	return nil
}

// exitError translates a runOnce exit code back into an error main.go can
// map through headlamperr.ExitCode, so os.Exit only ever happens in one
// place and every deferred cleanup along the way (session removal, signal
// teardown) still runs.
func exitError(exitCode int) error {
	switch exitCode {
	case headlamperr.ExitSuccess:
		return nil
	case headlamperr.ExitTimedOut:
		return headlamperr.ErrTimedOut
	default:
		return fmt.Errorf("%w: tests failed", headlamperr.ErrCommandFailed)
	}
}

// runOnce executes exactly one selection+run+render pass and returns the
// process exit code it implies. A non-nil error means the pass itself
// could not complete (spawn failure, selection error); a failing test run
// that completed normally is reported via the returned exit code instead.
func runOnce(ctx context.Context, repoRoot string, cfg config.Config, sess *session.RunSession, selectionPaths, extraEnv []string) (int, error) {
	dia, err := dialectFor(cfg.Runner)
	if err != nil {
		return headlamperr.ExitMisuse, err
	}

	allFiles, err := sourceFiles(repoRoot, dia.language)
	if err != nil {
		return headlamperr.ExitFailure, err
	}

	var changedFiles []string

	if len(selectionPaths) == 0 && cfg.Changed != "" && cfg.Changed != "none" {
		changedFiles, err = resolveChangedFiles(repoRoot, gitscan.Mode(cfg.Changed))
		if err != nil {
			changedFiles = nil
		}
	}

	in := selection.Input{
		RepoRoot:       repoRoot,
		SelectionPaths: selectionPaths,
		ChangedFiles:   changedFiles,
		ChangedDepth:   cfg.ChangedDepth,
		Language:       dia.language,
		Runner:         selection.Runner(cfg.Runner),
		AllFiles:       allFiles,
	}

	plan, err := selection.Select(in)
	if err != nil {
		return headlamperr.ExitFailure, err
	}

	if plan.SelectedCount != nil && *plan.SelectedCount == 0 {
		result := &model.TestRunModel{}
		result.ComputeAggregate()

		tc := terminal.DetectConfig(os.Stdout)
		ctxRender := render.NewCtx(repoRoot, tc, cfg.ShowLogs, cfg.Coverage.Editor)

		fmt.Println(render.Render(result, ctxRender, cfg.OnlyFailures))

		return headlamperr.ExitSuccess, nil
	}

	result, exitCode, runErr := execute(ctx, repoRoot, cfg, dia, plan, extraEnv)
	if runErr != nil {
		return headlamperr.ExitFailure, runErr
	}

	result.ComputeAggregate()

	tc := terminal.DetectConfig(os.Stdout)
	ctxRender := render.NewCtx(repoRoot, tc, cfg.ShowLogs, cfg.Coverage.Editor)

	fmt.Println(render.Render(result, ctxRender, cfg.OnlyFailures))

	thresholdsMissed := false

	if cfg.Coverage.Enabled && (!cfg.Coverage.AbortOnFailure || result.Aggregate.Success) {
		var covErr error

		thresholdsMissed, covErr = reportCoverage(sess, repoRoot, cfg, tc)
		if covErr != nil {
			fmt.Fprintln(os.Stderr, covErr)
		}
	}

	if exitCode == runner.ExitTimeout {
		return headlamperr.ExitTimedOut, nil
	}

	if !result.Aggregate.Success || exitCode != 0 || thresholdsMissed {
		return headlamperr.ExitFailure, nil
	}

	return headlamperr.ExitSuccess, nil
}

// execute runs plan's selected tests, preferring a stride-scheduled
// concurrent replay of previously-discovered Rust test binaries (§5's
// worker pool) when the cache holds one and the dialect is Rust; it falls
// back to a single subprocess invocation of the dialect's own executable
// in every other case, including --sequential.
func execute(ctx context.Context, repoRoot string, cfg config.Config, dia dialect, plan *selection.Plan, extraEnv []string) (*model.TestRunModel, int, error) {
	if dia.language == selection.LanguageRust && !cfg.Sequential {
		if binaries, ok := loadRustBinaryIndex(repoRoot, cfg); ok && len(binaries) > 1 {
			return runRustBinariesConcurrently(ctx, repoRoot, cfg, binaries, extraEnv)
		}
	}

	return runSubprocess(ctx, repoRoot, dia, plan, append(os.Environ(), extraEnv...))
}

// runSubprocess runs the dialect's executable once, streaming its output
// through the dialect's own parser.
func runSubprocess(ctx context.Context, repoRoot string, dia dialect, plan *selection.Plan, baseEnv []string) (*model.TestRunModel, int, error) {
	argv := append(append([]string(nil), dia.executable), dia.baseArgs...)
	argv = append(argv, plan.Argv...)

	env := append([]string(nil), baseEnv...)
	for k, v := range plan.Env {
		env = append(env, k+"="+v)
	}

	parser := dia.newParser()
	adapter := parserAdapter(parser)

	exitCode, _, runErr := runner.Run(ctx, runner.Options{
		Command:           argv,
		Dir:               repoRoot,
		Env:               env,
		Adapter:           adapter,
		Progress:          runner.NoProgress{},
		TailCapacityBytes: runnerTailCapacity,
	})
	if runErr != nil {
		return nil, 0, fmt.Errorf("%w: %v", headlamperr.ErrSpawnFailed, runErr)
	}

	result := parser.Finalize()
	if result == nil {
		result = &model.TestRunModel{}
	}

	return result, exitCode, nil
}

// runRustBinariesConcurrently runs every cached test binary directly
// (bypassing `cargo test`/`cargo nextest run`'s own build+dispatch step,
// since the binaries are already built) using the stride worker pool so
// §5's concurrency model governs Rust runs the same way it governs file
// selection, then merges each binary's suites into one combined model.
func runRustBinariesConcurrently(ctx context.Context, repoRoot string, cfg config.Config, binaries []cache.RustBinary, extraEnv []string) (*model.TestRunModel, int, error) {
	concurrency := len(binaries)
	if cfg.Sequential {
		concurrency = 1
	}

	env := append(os.Environ(), extraEnv...)

	type binaryResult struct {
		model    *model.TestRunModel
		exitCode int
	}

	results, err := stride.Run(ctx, binaries, concurrency, func(runCtx context.Context, b cache.RustBinary) (binaryResult, error) {
		parser := parsers.NewCargoTestParser()
		adapter := parserAdapter(parser)

		exitCode, _, runErr := runner.Run(runCtx, runner.Options{
			Command:           []string{b.Executable},
			Dir:               repoRoot,
			Env:               env,
			Adapter:           adapter,
			Progress:          runner.NoProgress{},
			TailCapacityBytes: runnerTailCapacity,
		})
		if runErr != nil {
			return binaryResult{}, fmt.Errorf("%w: %s: %v", headlamperr.ErrSpawnFailed, b.Executable, runErr)
		}

		return binaryResult{model: parser.Finalize(), exitCode: exitCode}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	combined := &model.TestRunModel{}
	worstExit := 0

	for _, r := range results {
		if r.model != nil {
			combined.Suites = append(combined.Suites, r.model.Suites...)
		}

		if r.exitCode > worstExit {
			worstExit = r.exitCode
		}
	}

	return combined, worstExit, nil
}

// loadRustBinaryIndex reads the per-repo cached Rust test-binary index, if
// caching is enabled and one has been populated by a prior build step.
func loadRustBinaryIndex(repoRoot string, cfg config.Config) ([]cache.RustBinary, bool) {
	if cfg.NoCache {
		return nil, false
	}

	root, err := cache.Root()
	if err != nil {
		return nil, false
	}

	repoDir := cache.RepoDir(root, cache.SanitizeComponent(repoRoot))

	idx, err := cache.LoadRustBinaryIndex(repoDir)
	if err != nil || idx.RepoRoot != repoRoot {
		return nil, false
	}

	return idx.Binaries, len(idx.Binaries) > 0
}

// parserAdapter feeds every streamed line into parser and surfaces the
// current suite name as the live-progress label.
func parserAdapter(parser parsers.Parser) runner.Adapter {
	return runner.AdapterFunc(func(_ runner.Stream, line string) runner.StreamAction {
		events := parser.PushLine(line)
		for _, ev := range events {
			if ev.Kind == parsers.EventSuiteStarted || ev.Kind == parsers.EventTestFinished {
				return runner.StreamAction{Kind: runner.ActionSetProgressLabel, Label: ev.Suite}
			}
		}

		return runner.StreamAction{}
	})
}

// sourceFiles walks repoRoot for every file depgraph recognizes as source
// for lang's family, reusing watch.Walk's ignore-aware traversal rather
// than duplicating it.
func sourceFiles(repoRoot string, lang selection.Language) ([]string, error) {
	stats, err := watch.Walk(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: walk repository: %v", headlamperr.ErrIO, err)
	}

	want := depgraphFamily(lang)

	files := make([]string, 0, len(stats))

	for _, s := range stats {
		if got := depgraph.LanguageForPath(s.RelPath); got != depgraph.LanguageUnsupported && (want == "" || got == want) {
			files = append(files, s.RelPath)
		}
	}

	return files, nil
}

// depgraphFamily maps a selection.Language to the single depgraph.Language
// its files are parsed with for the non-TS/JS families; tsjs spans four
// grammars (js/ts/tsx and friends) so LanguageForPath alone decides, and
// family comes back empty meaning "accept anything depgraph recognizes".
func depgraphFamily(lang selection.Language) depgraph.Language {
	switch lang {
	case selection.LanguagePython:
		return depgraph.LanguagePython
	case selection.LanguageRust:
		return depgraph.LanguageRust
	default:
		return ""
	}
}

// resolveChangedFiles opens the repository at repoRoot and resolves mode to
// a concrete file list, per gitscan's documented contract. Any error here
// is non-fatal to the caller: selection simply proceeds without a changed
// set, equivalent to changed_mode=none.
func resolveChangedFiles(repoRoot string, mode gitscan.Mode) ([]string, error) {
	repo, err := gitlib.OpenRepository(repoRoot)
	if err != nil {
		return nil, err
	}
	defer repo.Free()

	return gitscan.ChangedFiles(repo, mode)
}

// reportCoverage reads the lcov.info file the runner's coverage pass wrote
// into the session's coverage subdirectory, applies include/exclude globs
// and path resolution, checks configured thresholds, and prints the
// roll-up table. The returned bool reports whether any configured
// threshold was missed; the caller folds that into the process exit code
// independently of the test run's own pass/fail outcome.
func reportCoverage(sess *session.RunSession, repoRoot string, cfg config.Config, tc terminal.Config) (bool, error) {
	covDir, err := sess.Subdir("coverage")
	if err != nil {
		return false, err
	}

	lcovPath := filepath.Join(covDir, "lcov.info")

	f, err := os.Open(lcovPath) //nolint:gosec // path is the session's own coverage subdirectory
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("%w: open %s: %v", headlamperr.ErrIO, lcovPath, err)
	}
	defer f.Close()

	files, err := coverage.ParseLCOV(f)
	if err != nil {
		return false, err
	}

	root := repoRoot
	if cfg.Coverage.Root != "" {
		root = filepath.Join(repoRoot, cfg.Coverage.Root)
	}

	files = coverage.ResolvePaths(files, root)
	files = coverage.ApplyGlobs(files, root, cfg.Coverage.Include, cfg.Coverage.Exclude)

	list := make([]*coverage.FileCoverage, 0, len(files))
	for _, p := range coverage.SortedPaths(files) {
		list = append(list, files[p])
	}

	totals := coverage.ComputeTotals(list)

	thr := coverage.Thresholds{
		Lines:      thresholdPtr(cfg.Coverage.Thresholds.Lines),
		Functions:  thresholdPtr(cfg.Coverage.Thresholds.Functions),
		Branches:   thresholdPtr(cfg.Coverage.Thresholds.Branches),
		Statements: thresholdPtr(cfg.Coverage.Thresholds.Statements),
	}

	misses := coverage.CheckThresholds(thr, totals)
	if len(misses) > 0 {
		fmt.Println("Coverage thresholds not met")

		for _, line := range misses {
			fmt.Println(line)
		}
	}

	maxFiles := cfg.Coverage.MaxFiles
	if cfg.Coverage.Detail == "all" {
		maxFiles = 0
	}

	rows := coverage.BuildRows(files, root, maxFiles, cfg.Coverage.MaxHotspots, cfg.Coverage.Editor, tc.IsTTY)
	fmt.Println(coverage.RenderTable(rows, tc))

	if cfg.Coverage.UI == "both" {
		if err := writeCoverageSummary(covDir, totals, list); err != nil {
			return len(misses) > 0, err
		}
	}

	return len(misses) > 0, nil
}

// coverageSummaryFile is coverage-summary.json's JSON shape: an
// Istanbul-style passthrough for downstream tooling, separate from the
// text table rendered above. Only written when --coverage-ui=both; the
// default "jest" UI prints the roll-up table alone.
type coverageSummaryFile struct {
	Total   coverageSummaryEntry             `json:"total"`
	PerFile map[string]coverageSummaryEntry `json:"files"`
}

type coverageSummaryEntry struct {
	Lines      coverageSummaryAxis `json:"lines"`
	Statements coverageSummaryAxis `json:"statements"`
	Functions  coverageSummaryAxis `json:"functions"`
	Branches   coverageSummaryAxis `json:"branches"`
}

type coverageSummaryAxis struct {
	Total   int     `json:"total"`
	Covered int     `json:"covered"`
	Pct     float64 `json:"pct"`
}

func axisOf(total, covered int, pct float64) coverageSummaryAxis {
	return coverageSummaryAxis{Total: total, Covered: covered, Pct: pct}
}

func entryOf(t coverage.Totals) coverageSummaryEntry {
	return coverageSummaryEntry{
		Lines:      axisOf(t.LinesTotal, t.LinesCovered, t.LinesPct()),
		Statements: axisOf(t.StatementsTotal, t.StatementsCovered, t.StatementsPct()),
		Functions:  axisOf(t.FunctionsTotal, t.FunctionsCovered, t.FunctionsPct()),
		Branches:   axisOf(t.BranchesTotal, t.BranchesCovered, t.BranchesPct()),
	}
}

// writeCoverageSummary writes coverage-summary.json into the session's
// coverage subdirectory, the "both" half of --coverage-ui's duality: the
// textual roll-up is always printed, this adds a machine-readable
// passthrough alongside the lcov.info the runner's coverage pass produced.
func writeCoverageSummary(covDir string, totals coverage.Totals, files []*coverage.FileCoverage) error {
	summary := coverageSummaryFile{
		Total:   entryOf(totals),
		PerFile: make(map[string]coverageSummaryEntry, len(files)),
	}

	for _, f := range files {
		summary.PerFile[f.Path] = entryOf(coverage.ComputeTotals([]*coverage.FileCoverage{f}))
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal coverage-summary.json: %v", headlamperr.ErrIO, err)
	}

	path := filepath.Join(covDir, "coverage-summary.json")

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", headlamperr.ErrIO, path, err)
	}

	return nil
}

// thresholdPtr converts config's "0 means unset" convention into
// coverage.Thresholds' pointer convention.
func thresholdPtr(v float64) *float64 {
	if v == 0 {
		return nil
	}

	return &v
}
