// Package depgraph builds a file-level import graph for the languages a run
// targets, so the selection pipeline can walk from a changed file to every
// test file that transitively depends on it. Parsing uses the same
// tree-sitter grammars the rest of the toolchain carries for source
// analysis; parsed import lists are memoized per content hash so re-running
// selection against an unchanged tree never reparses a file twice.
package depgraph

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	forestjs "github.com/alexaandru/go-sitter-forest/javascript"
	forestpy "github.com/alexaandru/go-sitter-forest/python"
	forestrust "github.com/alexaandru/go-sitter-forest/rust"
	foresttsx "github.com/alexaandru/go-sitter-forest/tsx"
	forestts "github.com/alexaandru/go-sitter-forest/typescript"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/zeebo/blake3"

	"github.com/headlamp-run/headlamp/pkg/alg/lru"
)

// Language identifies the grammar used to parse a source file's imports.
type Language string

// Supported languages.
const (
	LanguageJS         Language = "javascript"
	LanguageTS         Language = "typescript"
	LanguageTSX        Language = "tsx"
	LanguagePython     Language = "python"
	LanguageRust       Language = "rust"
	LanguageUnsupported Language = ""
)

var extensionLanguages = map[string]Language{
	".js":  LanguageJS,
	".jsx": LanguageJS,
	".mjs": LanguageJS,
	".cjs": LanguageJS,
	".ts":  LanguageTS,
	".mts": LanguageTS,
	".tsx": LanguageTSX,
	".py":  LanguagePython,
	".rs":  LanguageRust,
}

// LanguageForPath returns the language to parse path's imports with, or
// LanguageUnsupported if the extension isn't one depgraph understands.
func LanguageForPath(path string) Language {
	lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return LanguageUnsupported
	}

	return lang
}

var languageFuncs = map[Language]func() *sitter.Language{
	LanguageJS:     func() *sitter.Language { return sitter.NewLanguage(forestjs.GetLanguage()) },
	LanguageTS:     func() *sitter.Language { return sitter.NewLanguage(forestts.GetLanguage()) },
	LanguageTSX:    func() *sitter.Language { return sitter.NewLanguage(foresttsx.GetLanguage()) },
	LanguagePython: func() *sitter.Language { return sitter.NewLanguage(forestpy.GetLanguage()) },
	LanguageRust:   func() *sitter.Language { return sitter.NewLanguage(forestrust.GetLanguage()) },
}

var languageCache = map[Language]*sitter.Language{}

func grammarFor(lang Language) (*sitter.Language, error) {
	if cached, ok := languageCache[lang]; ok {
		return cached, nil
	}

	fn, ok := languageFuncs[lang]
	if !ok {
		return nil, fmt.Errorf("depgraph: unsupported language %q", lang)
	}

	grammar := fn()
	languageCache[lang] = grammar

	return grammar, nil
}

// importNodeTypes lists the node types, per language, whose string-literal
// children name an import target. Each language's imports come from a
// small, fixed set of grammar productions, so a direct named-child walk is
// enough without a full tree-sitter query DSL.
var importNodeTypes = map[Language]map[string]bool{
	LanguageJS:     {"import_statement": true, "call_expression": true},
	LanguageTS:     {"import_statement": true, "call_expression": true},
	LanguageTSX:    {"import_statement": true, "call_expression": true},
	LanguagePython: {"import_statement": true, "import_from_statement": true},
	LanguageRust:   {"use_declaration": true, "mod_item": true},
}

// maxMemoizedParses bounds the number of distinct file contents whose
// extracted import lists are kept hot across a single selection run.
const maxMemoizedParses = 4096

// Extractor parses source files into their raw import specifiers, memoizing
// results by a content hash so unchanged files are never reparsed.
type Extractor struct {
	memo *lru.Cache[string, []string]
}

// NewExtractor creates an import Extractor.
func NewExtractor() *Extractor {
	return &Extractor{memo: lru.New(lru.WithMaxEntries[string, []string](maxMemoizedParses))}
}

// Imports returns the raw import specifiers found in source, as written in
// the file (relative paths, module names, or language-specific module
// paths) without any resolution against the filesystem.
func (e *Extractor) Imports(lang Language, source []byte) ([]string, error) {
	key := memoKey(lang, source)

	if cached, ok := e.memo.Get(key); ok {
		return cached, nil
	}

	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(grammar); err != nil {
		return nil, fmt.Errorf("depgraph: set language %q: %w", lang, err)
	}

	tree, err := parser.ParseString(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("depgraph: parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, nil
	}

	wanted := importNodeTypes[lang]

	var specs []string

	collectImportSpecs(lang, root, source, wanted, &specs)
	specs = dedupStrings(specs)

	e.memo.Put(key, specs)

	return specs, nil
}

func memoKey(lang Language, source []byte) string {
	h := blake3.New()
	_, _ = h.Write([]byte(lang))
	_, _ = h.Write(source)

	return string(h.Sum(nil))
}

func collectImportSpecs(lang Language, n sitter.Node, source []byte, wanted map[string]bool, out *[]string) {
	if wanted[n.Type()] {
		if spec, ok := extractSpec(lang, n, source); ok {
			*out = append(*out, spec)
		}
	}

	for i := range n.NamedChildCount() {
		collectImportSpecs(lang, n.NamedChild(i), source, wanted, out)
	}
}

// extractSpec pulls the string literal naming the imported module out of an
// import-shaped node. JS/TS require()/import() calls are only honored when
// the callee is literally "require" or "import", to avoid false positives
// on unrelated call expressions walked by the same traversal.
func extractSpec(lang Language, n sitter.Node, source []byte) (string, bool) {
	switch lang {
	case LanguageJS, LanguageTS, LanguageTSX:
		return extractJSSpec(n, source)
	case LanguagePython:
		return extractPythonSpec(n, source)
	case LanguageRust:
		return extractRustSpec(n, source)
	case LanguageUnsupported:
		return "", false
	default:
		return "", false
	}
}

func extractJSSpec(n sitter.Node, source []byte) (string, bool) {
	switch n.Type() {
	case "import_statement":
		return firstStringLiteral(n, source)
	case "call_expression":
		callee := n.ChildByFieldName("function")
		if callee.IsNull() {
			return "", false
		}

		name := nodeText(callee, source)
		if name != "require" && name != "import" {
			return "", false
		}

		args := n.ChildByFieldName("arguments")
		if args.IsNull() {
			return "", false
		}

		return firstStringLiteral(args, source)
	default:
		return "", false
	}
}

func extractPythonSpec(n sitter.Node, source []byte) (string, bool) {
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode.IsNull() {
		return firstDottedName(n, source)
	}

	return nodeText(moduleNode, source), true
}

func extractRustSpec(n sitter.Node, source []byte) (string, bool) {
	switch n.Type() {
	case "use_declaration":
		for i := range n.NamedChildCount() {
			child := n.NamedChild(i)
			if t := child.Type(); t == "scoped_identifier" || t == "use_as_clause" ||
				t == "scoped_use_list" || t == "identifier" {
				return nodeText(child, source), true
			}
		}

		return "", false
	case "mod_item":
		nameNode := n.ChildByFieldName("name")
		if nameNode.IsNull() {
			return "", false
		}

		return "mod::" + nodeText(nameNode, source), true
	default:
		return "", false
	}
}

func firstStringLiteral(n sitter.Node, source []byte) (string, bool) {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() == "string" || child.Type() == "string_literal" {
			return strings.Trim(nodeText(child, source), `"'`+"`"), true
		}
	}

	return "", false
}

func firstDottedName(n sitter.Node, source []byte) (string, bool) {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() == "dotted_name" || child.Type() == "identifier" {
			return nodeText(child, source), true
		}
	}

	return "", false
}

func nodeText(n sitter.Node, source []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(source) || int(start) > int(end) {
		return ""
	}

	return string(source[start:end])
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))

	for _, s := range in {
		if s == "" {
			continue
		}

		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}

		out = append(out, s)
	}

	sort.Strings(out)

	return out
}
