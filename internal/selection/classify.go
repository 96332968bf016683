package selection

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// classifyAll classifies every seed as Test, Production, Mixed, or Unknown,
// preferring each project's manifest over a syntactic content scan.
func classifyAll(repoRoot string, lang Language, seeds []string) map[string]Kind {
	out := make(map[string]Kind, len(seeds))

	manifest := loadManifestHints(repoRoot, lang)

	for _, seed := range seeds {
		out[seed] = classifyOne(repoRoot, lang, seed, manifest)
	}

	return out
}

// manifestHints holds the per-language manifest-derived classification
// signals, loaded once per Select call.
type manifestHints struct {
	jestTestMatch         []string
	jestTestPathIgnore    []string
	cargoTestBinarySrcs   map[string]bool
}

func loadManifestHints(repoRoot string, lang Language) manifestHints {
	switch lang {
	case LanguageTSJS:
		return loadPackageJSONHints(repoRoot)
	case LanguageRust:
		return loadCargoTomlHints(repoRoot)
	case LanguagePython:
		return manifestHints{}
	default:
		return manifestHints{}
	}
}

func loadPackageJSONHints(repoRoot string) manifestHints {
	data, err := os.ReadFile(filepath.Join(repoRoot, "package.json"))
	if err != nil {
		return manifestHints{}
	}

	var doc struct {
		Jest struct {
			TestMatch           []string `json:"testMatch"`
			TestPathIgnorePatterns []string `json:"testPathIgnorePatterns"`
		} `json:"jest"`
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return manifestHints{}
	}

	return manifestHints{jestTestMatch: doc.Jest.TestMatch, jestTestPathIgnore: doc.Jest.TestPathIgnorePatterns}
}

// cargoTestEntryRe matches a [[test]] table's name = "..." key in Cargo.toml.
var cargoTestEntryRe = regexp.MustCompile(`(?m)^\s*name\s*=\s*"([^"]+)"`)

func loadCargoTomlHints(repoRoot string) manifestHints {
	data, err := os.ReadFile(filepath.Join(repoRoot, "Cargo.toml"))
	if err != nil {
		return manifestHints{}
	}

	srcs := make(map[string]bool)

	for i, section := range strings.Split(string(data), "[[test]]") {
		// Section 0 is everything before the first [[test]] table ([package] etc.).
		if i == 0 {
			continue
		}

		if m := cargoTestEntryRe.FindStringSubmatch(section); m != nil {
			srcs["tests/"+m[1]+".rs"] = true
		}
	}

	return manifestHints{cargoTestBinarySrcs: srcs}
}

var (
	jsTestSyntaxRe = regexp.MustCompile(`\b(describe|it|test)\s*\(`)
	rustTestAttrRe = regexp.MustCompile(`#\[\s*(test|cfg\s*\(\s*test\s*\))\s*\]`)
	pyTestRe       = regexp.MustCompile(`(?m)^\s*(def test_|class Test)`)
)

func classifyOne(repoRoot string, lang Language, seed string, hints manifestHints) Kind {
	switch lang {
	case LanguageTSJS:
		return classifyTSJS(repoRoot, seed, hints)
	case LanguageRust:
		return classifyRust(repoRoot, seed, hints)
	case LanguagePython:
		return classifyPython(repoRoot, seed)
	default:
		return KindUnknown
	}
}

func classifyTSJS(repoRoot, seed string, hints manifestHints) Kind {
	if matchesAnyGlob(seed, hints.jestTestMatch) && !matchesAnyGlob(seed, hints.jestTestPathIgnore) {
		return KindTest
	}

	return classifyByContent(repoRoot, seed, jsTestSyntaxRe)
}

func classifyRust(repoRoot, seed string, hints manifestHints) Kind {
	if hints.cargoTestBinarySrcs[filepath.ToSlash(seed)] {
		return KindTest
	}

	return classifyByContent(repoRoot, seed, rustTestAttrRe)
}

func classifyPython(repoRoot, seed string) Kind {
	base := filepath.Base(seed)
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(strings.TrimSuffix(base, ".py"), "_test") {
		return KindTest
	}

	return classifyByContent(repoRoot, seed, pyTestRe)
}

func classifyByContent(repoRoot, seed string, testPattern *regexp.Regexp) Kind {
	content, err := os.ReadFile(filepath.Join(repoRoot, filepath.FromSlash(seed)))
	if err != nil {
		return KindUnknown
	}

	if testPattern.Match(content) {
		return KindMixed
	}

	return KindProduction
}

func matchesAnyGlob(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, path); err == nil && ok {
			return true
		}

		if strings.Contains(path, strings.Trim(pattern, "*")) {
			return true
		}
	}

	return false
}
