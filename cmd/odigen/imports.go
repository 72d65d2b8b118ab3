package main

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// GoImport is one import line of a generated file.
type GoImport struct {
	Name string // optional alias, e.g. "di"
	Path string
}

// runtimeImport returns the import path of a runtime package of this module
// (pkgRel is "di" or "typeref").
//
// An import already used by the sources in pkgDir wins, which lets a project
// pin a fork. Otherwise the path is computed from the go.mod of the module
// containing odigen.
func runtimeImport(pkgDir, pkgRel string) (string, error) {
	scanned := scanPackageImports(pkgDir)
	if gi, ok := findImportByAliasOrSuffix(scanned, pkgRel, "/"+pkgRel); ok {
		return gi.Path, nil
	}

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("cannot infer runtime import: runtime.Caller failed")
	}
	modRoot, modPath, err := findModule(filepath.Dir(thisFile))
	if err != nil {
		return "", errors.Wrap(err, "cannot infer runtime import")
	}
	if !dirExists(filepath.Join(modRoot, filepath.FromSlash(pkgRel))) {
		return "", errors.Errorf("cannot infer runtime import: no package dir %s in %s", pkgRel, filepath.ToSlash(modRoot))
	}
	return modPath + "/" + pkgRel, nil
}

// -------------------------
// go.mod helpers
// -------------------------

func findModule(startDir string) (modRoot string, modPath string, err error) {
	dir := startDir
	for {
		gomod := filepath.Join(dir, "go.mod")
		if fileExists(gomod) {
			b, rerr := os.ReadFile(gomod)
			if rerr != nil {
				return "", "", rerr
			}
			for _, ln := range strings.Split(string(b), "\n") {
				ln = strings.TrimSpace(ln)
				if strings.HasPrefix(ln, "module ") {
					mod := strings.TrimSpace(strings.TrimPrefix(ln, "module "))
					if mod == "" {
						return "", "", errors.Errorf("go.mod has empty module path at %s", filepath.ToSlash(gomod))
					}
					return dir, mod, nil
				}
			}
			return "", "", errors.Errorf("go.mod missing module directive at %s", filepath.ToSlash(gomod))
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", errors.Errorf("could not find go.mod starting from %s", filepath.ToSlash(startDir))
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// -------------------------
// import scanning
// -------------------------

// scanPackageImports reads the imports of the hand-written .go files in
// pkgDir. Tests and generated files are skipped; aliases are kept.
func scanPackageImports(pkgDir string) []GoImport {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil
	}

	var out []GoImport
	fset := token.NewFileSet()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		if strings.HasSuffix(name, ".gen.go") || strings.HasSuffix(name, "_gen.go") {
			continue
		}

		full := filepath.Join(pkgDir, name)
		src, rerr := os.ReadFile(full)
		if rerr != nil {
			continue
		}
		f, perr := parser.ParseFile(fset, full, src, parser.ImportsOnly)
		if perr != nil {
			continue
		}
		out = append(out, importsOf(f.Imports)...)
	}
	return dedupeAndSortImports(out)
}

// findImportByAliasOrSuffix prefers an alias match, then a path suffix match.
func findImportByAliasOrSuffix(imports []GoImport, alias, suffix string) (GoImport, bool) {
	if alias != "" {
		for _, gi := range imports {
			if gi.Name == alias {
				return gi, true
			}
		}
	}
	if suffix != "" {
		for _, gi := range imports {
			if strings.HasSuffix(gi.Path, suffix) {
				return gi, true
			}
		}
	}
	return GoImport{}, false
}

// readImportsFromExistingOut returns the imports of a previously generated
// file so imports added by hand survive regeneration.
func readImportsFromExistingOut(outPath string) []GoImport {
	if strings.TrimSpace(outPath) == "" {
		return nil
	}
	src, err := os.ReadFile(outPath)
	if err != nil {
		return nil
	}
	f, err := parser.ParseFile(token.NewFileSet(), outPath, src, parser.ImportsOnly)
	if err != nil {
		return nil
	}
	return importsOf(f.Imports)
}

func importsOf(specs []*ast.ImportSpec) []GoImport {
	out := make([]GoImport, 0, len(specs))
	for _, imp := range specs {
		gi := GoImport{Path: strings.Trim(imp.Path.Value, `"`)}
		if imp.Name != nil {
			gi.Name = imp.Name.Name
		}
		out = append(out, gi)
	}
	return out
}

// mergeImports unions required and preserved, deduplicated and sorted.
// A preserved import sharing a path or an alias with a required one is
// dropped, so a moved runtime package does not leave a stale duplicate.
func mergeImports(required, preserved []GoImport) []GoImport {
	names, paths := map[string]bool{}, map[string]bool{}
	for _, gi := range required {
		names[gi.Name] = gi.Name != ""
		paths[gi.Path] = true
	}

	out := append([]GoImport(nil), required...)
	for _, gi := range preserved {
		if paths[gi.Path] || names[gi.Name] {
			continue
		}
		out = append(out, gi)
	}
	return dedupeAndSortImports(out)
}

func dedupeAndSortImports(imps []GoImport) []GoImport {
	seen := map[GoImport]bool{}
	out := make([]GoImport, 0, len(imps))
	for _, gi := range imps {
		if seen[gi] {
			continue
		}
		seen[gi] = true
		out = append(out, gi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}
