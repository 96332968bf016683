package selection

import (
	"path/filepath"
	"sort"
	"strings"
)

// buildArgv emits the runner-specific argument vector for the final ranked
// test list. The ranked order (already sorted by rank/depth/path) is
// preserved for TS/JS and Python; Rust argv is deduped and re-sorted by
// stem as required.
func buildArgv(lang Language, runner Runner, ranked []rankedTest) ([]string, map[string]string) {
	switch lang {
	case LanguageRust:
		return buildRustArgv(ranked)
	case LanguageTSJS:
		return buildTSJSArgv(ranked), nil
	case LanguagePython:
		return buildPythonArgv(ranked), nil
	default:
		return nil, nil
	}
}

func buildRustArgv(ranked []rankedTest) ([]string, map[string]string) {
	stems := make(map[string]struct{}, len(ranked))

	for _, t := range ranked {
		stem := strings.TrimSuffix(filepath.Base(t.path), filepath.Ext(t.path))
		stems[stem] = struct{}{}
	}

	sorted := make([]string, 0, len(stems))
	for s := range stems {
		sorted = append(sorted, s)
	}

	sort.Strings(sorted)

	argv := make([]string, 0, len(sorted)*2)
	for _, s := range sorted {
		argv = append(argv, "--test", s)
	}

	return argv, nil
}

func buildTSJSArgv(ranked []rankedTest) []string {
	argv := make([]string, 0, len(ranked))

	for _, t := range ranked {
		argv = append(argv, filepath.ToSlash(t.path))
	}

	return argv
}

func buildPythonArgv(ranked []rankedTest) []string {
	argv := make([]string, 0, len(ranked))

	for _, t := range ranked {
		argv = append(argv, filepath.ToSlash(t.path))
	}

	return argv
}
