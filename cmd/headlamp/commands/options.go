// Package commands implements headlamp's cobra command tree: flag
// definitions, config-file/CLI-flag merging, and the run/watch execution
// paths built on internal/selection, internal/runner, internal/parsers,
// internal/coverage, internal/render, and internal/watch.
package commands

import (
	"strings"

	"github.com/headlamp-run/headlamp/internal/config"
)

// selectionPathExts are the suffixes a bare positional token must end in
// to be captured as a selection path when it contains no path separator.
var selectionPathExts = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".py", ".rs"}

// looksLikePath reports whether tok should be captured into
// selection_paths per §6: it contains a path separator or ends in a
// recognized test-source extension.
func looksLikePath(tok string) bool {
	if strings.ContainsAny(tok, "/\\") {
		return true
	}

	for _, ext := range selectionPathExts {
		if strings.HasSuffix(tok, ext) {
			return true
		}
	}

	return false
}

// flagOverrides mirrors every CLI flag cobra parses; zero values mean "not
// set on the command line" for bools backed by a Changed check, so Apply
// only overwrites a config field when the corresponding flag was actually
// passed.
type flagOverrides struct {
	runner          string
	runnerSet       bool
	coverage        bool
	coverageSet     bool
	coverageUI      string
	coverageUISet   bool
	coverageAbort   bool
	coverageAbortSet bool
	coverageInclude []string
	coverageExclude []string
	coverageEditor  string
	coverageEditorSet bool
	coverageRoot    string
	coverageRootSet bool

	coverageDetail      string
	coverageDetailSet   bool
	coverageShowCode    bool
	coverageShowCodeSet bool
	coverageMode        string
	coverageModeSet     bool
	coverageCompact     bool
	coverageCompactSet  bool
	coveragePageFit     bool
	coveragePageFitSet  bool
	coverageMaxFiles    int
	coverageMaxFilesSet bool
	coverageMaxHotspots    int
	coverageMaxHotspotsSet bool

	coverageLinesThreshold         float64
	coverageLinesThresholdSet      bool
	coverageFuncsThreshold         float64
	coverageFuncsThresholdSet      bool
	coverageBranchesThreshold      float64
	coverageBranchesThresholdSet   bool
	coverageStatementsThreshold    float64
	coverageStatementsThresholdSet bool

	onlyFailures     bool
	onlyFailuresSet  bool
	showLogs         bool
	showLogsSet      bool
	sequential       bool
	sequentialSet    bool
	ci               bool
	ciSet            bool
	verbose          bool
	verboseSet       bool
	quiet            bool
	quietSet         bool
	noCache          bool
	noCacheSet       bool
	keepArtifacts    bool
	keepArtifactsSet bool

	watch    bool
	watchAll bool

	bootstrapCommand    string
	bootstrapCommandSet bool

	changed         string
	changedSet      bool
	changedDepth    int
	changedDepthSet bool

	dependencyLanguage    string
	dependencyLanguageSet bool

	selectionPaths     []string
	selectionSpecified bool
}

// Apply overlays every flag the user actually set onto base, returning the
// merged Config. base is the already-loaded config-file value (or
// config.Default() when none was found); CLI flags always win.
func (o flagOverrides) Apply(base config.Config) config.Config {
	cfg := base

	if o.runnerSet {
		cfg.Runner = o.runner
	}

	if o.coverageSet {
		cfg.Coverage.Enabled = o.coverage
	}

	if o.coverageUISet {
		cfg.Coverage.UI = o.coverageUI
	}

	if o.coverageAbortSet {
		cfg.Coverage.AbortOnFailure = o.coverageAbort
	}

	if len(o.coverageInclude) > 0 {
		cfg.Coverage.Include = o.coverageInclude
	}

	if len(o.coverageExclude) > 0 {
		cfg.Coverage.Exclude = o.coverageExclude
	}

	if o.coverageEditorSet {
		cfg.Coverage.Editor = o.coverageEditor
	}

	if o.coverageRootSet {
		cfg.Coverage.Root = o.coverageRoot
	}

	if o.coverageDetailSet {
		cfg.Coverage.Detail = o.coverageDetail
	}

	if o.coverageShowCodeSet {
		cfg.Coverage.ShowCode = o.coverageShowCode
	}

	if o.coverageModeSet {
		cfg.Coverage.Mode = o.coverageMode
	}

	if o.coverageCompactSet {
		cfg.Coverage.Compact = o.coverageCompact
	}

	if o.coveragePageFitSet {
		cfg.Coverage.PageFit = o.coveragePageFit
	}

	if o.coverageMaxFilesSet {
		cfg.Coverage.MaxFiles = o.coverageMaxFiles
	}

	if o.coverageMaxHotspotsSet {
		cfg.Coverage.MaxHotspots = o.coverageMaxHotspots
	}

	if o.coverageLinesThresholdSet {
		cfg.Coverage.Thresholds.Lines = o.coverageLinesThreshold
	}

	if o.coverageFuncsThresholdSet {
		cfg.Coverage.Thresholds.Functions = o.coverageFuncsThreshold
	}

	if o.coverageBranchesThresholdSet {
		cfg.Coverage.Thresholds.Branches = o.coverageBranchesThreshold
	}

	if o.coverageStatementsThresholdSet {
		cfg.Coverage.Thresholds.Statements = o.coverageStatementsThreshold
	}

	if o.onlyFailuresSet {
		cfg.OnlyFailures = o.onlyFailures
	}

	if o.showLogsSet {
		cfg.ShowLogs = o.showLogs
	}

	if o.sequentialSet {
		cfg.Sequential = o.sequential
	}

	if o.ciSet {
		cfg.CI = o.ci
	}

	if o.verboseSet {
		cfg.Verbose = o.verbose
	}

	if o.quietSet {
		cfg.Quiet = o.quiet
	}

	if o.noCacheSet {
		cfg.NoCache = o.noCache
	}

	if o.keepArtifactsSet {
		cfg.KeepArtifacts = o.keepArtifacts
	}

	cfg.Watch = o.watch
	cfg.WatchAll = o.watchAll

	if o.bootstrapCommandSet {
		cfg.BootstrapCommand = o.bootstrapCommand
	}

	if o.changedSet {
		cfg.Changed = o.changed
	}

	if o.changedDepthSet {
		cfg.ChangedDepth = o.changedDepth
	}

	if o.dependencyLanguageSet {
		cfg.DependencyLanguage = o.dependencyLanguage
	}

	return cfg
}

// splitPositionalArgs separates plain positional tokens into selection
// paths vs. everything else, per §6's "tokens that look like paths"
// heuristic. testPathPattern tokens are handled by the caller before this
// runs since they follow a named flag, not a bare positional.
func splitPositionalArgs(args []string) (paths []string, rest []string) {
	for _, a := range args {
		if looksLikePath(a) {
			paths = append(paths, a)
		} else {
			rest = append(rest, a)
		}
	}

	return paths, rest
}
