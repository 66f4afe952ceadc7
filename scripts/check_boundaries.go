package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "ballotbox"

// layerRule lists what a module layer may import besides the standard library.
// local entries are relative to contexts/<context>/<module>, shared entries to
// the repository root.
type layerRule struct {
	local     []string
	shared    []string
	libraries []string
}

var ethereumLibraries = []string{
	"github.com/ethereum/go-ethereum/common",
	"github.com/ethereum/go-ethereum/params",
}

// Layers without a rule (adapters, transport, module wiring) may import any
// library but still must not reach into runtime infrastructure.
var layerRules = map[string]layerRule{
	"domain": {
		local:     []string{"domain"},
		libraries: ethereumLibraries,
	},
	"ports": {
		local:  []string{"domain", "ports"},
		shared: []string{"contracts"},
	},
	"application": {
		local:     []string{"application", "domain", "ports"},
		shared:    []string{"contracts"},
		libraries: ethereumLibraries,
	},
}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func (v violation) String() string {
	if v.Import == "" {
		return fmt.Sprintf("%s:%d (%s)", v.File, v.Line, v.Rule)
	}
	return fmt.Sprintf("%s:%d imports %q (%s)", v.File, v.Line, v.Import, v.Rule)
}

func main() {
	violations, err := collectViolations(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "boundary check failed: %v\n", err)
		os.Exit(2)
	}
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}
	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Println("- " + v.String())
	}
	os.Exit(1)
}

// collectViolations checks every non-test Go file under root/contexts and
// returns the violations sorted by position.
func collectViolations(root string) ([]violation, error) {
	var violations []violation
	contextsDir := filepath.Join(root, "contexts")

	err := filepath.WalkDir(contextsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 4 {
			return nil
		}
		moduleRoot := strings.Join([]string{modulePath, parts[0], parts[1], parts[2]}, "/")
		violations = append(violations, checkFile(path, filepath.ToSlash(rel), parts[3], moduleRoot)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		if violations[i].Line != violations[j].Line {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].Import < violations[j].Import
	})
	return violations, nil
}

func checkFile(path string, display string, layer string, moduleRoot string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: display, Line: 1, Rule: "file must parse"}}
	}

	rule, ruled := layerRules[layer]
	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		report := func(reason string) {
			violations = append(violations, violation{
				File:   display,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   reason,
			})
		}

		switch {
		case isStdlib(importPath):
		case hasPrefix(importPath, modulePath+"/internal"):
			report("modules must not import runtime infrastructure")
		case hasPrefix(importPath, modulePath+"/contexts") && !hasPrefix(importPath, moduleRoot):
			report("cross-module imports are forbidden")
		case ruled && !rule.allows(importPath, moduleRoot):
			report(layer + " import is outside explicit allowlist")
		}
	}
	return violations
}

func (r layerRule) allows(importPath string, moduleRoot string) bool {
	for _, p := range r.local {
		if hasPrefix(importPath, moduleRoot+"/"+p) {
			return true
		}
	}
	for _, p := range r.shared {
		if hasPrefix(importPath, modulePath+"/"+p) {
			return true
		}
	}
	for _, p := range r.libraries {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
