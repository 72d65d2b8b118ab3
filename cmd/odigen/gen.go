package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/sghaida/odirt/factfile"
)

// genOptions are the inputs of generate.
type genOptions struct {
	FactsPath string
	OutPath   string
	FuncName  string
}

// generate writes Go code registering the facts of a fact file on a
// di.Registry. Every call name of the document must be a Go identifier in
// the target package.
func generate(opts genOptions) error {
	raw, err := os.ReadFile(opts.FactsPath)
	if err != nil {
		return errors.Wrapf(err, "read %s", opts.FactsPath)
	}
	doc, err := factfile.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "parse %s", opts.FactsPath)
	}
	if err := checkIdentifiers(doc); err != nil {
		return err
	}

	funcName := opts.FuncName
	if funcName == "" {
		funcName = "Register"
	}
	if !token.IsIdentifier(funcName) {
		return errors.Errorf("-func %q is not a Go identifier", funcName)
	}

	pkgDir := filepath.Dir(opts.OutPath)
	pkg := doc.Package
	if pkg == "" {
		pkg = filepath.Base(pkgDir)
	}
	if !token.IsIdentifier(pkg) {
		return errors.Errorf("package name %q is not a Go identifier", pkg)
	}

	diImport, err := runtimeImport(pkgDir, "di")
	if err != nil {
		return err
	}
	required := []GoImport{{Name: "di", Path: diImport}}
	if len(doc.Types) > 0 {
		typesImport, err := runtimeImport(pkgDir, "typeref")
		if err != nil {
			return err
		}
		required = append(required, GoImport{Name: "typeref", Path: typesImport})
	}

	data := map[string]any{
		"Doc":       doc,
		"Package":   pkg,
		"Func":      funcName,
		"FactsPath": filepath.ToSlash(opts.FactsPath),
		"FactsHash": sha256Hex(raw),
		"Imports":   mergeImports(required, readImportsFromExistingOut(opts.OutPath)),
	}

	var buf bytes.Buffer
	if err := registerTpl.Execute(&buf, data); err != nil {
		return errors.Wrap(err, "execute template")
	}
	return writeFormatted(opts.OutPath, buf.Bytes())
}

// checkIdentifiers reports every call name that cannot be emitted as a Go
// identifier.
func checkIdentifiers(doc *factfile.Document) error {
	var bad []string
	check := func(name string) {
		if name != "" && !token.IsIdentifier(name) {
			bad = append(bad, strconv.Quote(name))
		}
	}
	for _, p := range doc.Providers {
		check(p.Call)
		for _, c := range p.Constructors {
			check(c.Call)
		}
		for _, f := range p.Fields {
			check(f.Set)
		}
		for _, i := range p.Initializers {
			check(i.Call)
		}
	}
	for _, e := range doc.Events {
		check(e.Call)
	}
	if len(bad) > 0 {
		return errors.Errorf("call names are not Go identifiers: %s", strings.Join(bad, ", "))
	}
	return nil
}

func writeFormatted(out string, src []byte) error {
	fmtSrc, err := format.Source(src)
	if err != nil {
		_ = os.WriteFile(out, src, 0o644)
		return errors.Wrap(err, "gofmt")
	}
	return errors.Wrapf(os.WriteFile(out, fmtSrc, 0o644), "write %s", out)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// strs renders a string slice literal.
func strs(ss []string) string {
	if len(ss) == 0 {
		return "nil"
	}
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = strconv.Quote(s)
	}
	return "[]string{" + strings.Join(q, ", ") + "}"
}

func policy(s string) string {
	if s == "per-instance" {
		return "di.PerInstance"
	}
	return "di.Once"
}

var registerTpl = template.Must(
	template.New("register").
		Funcs(template.FuncMap{
			"quote":  strconv.Quote,
			"strs":   strs,
			"policy": policy,
		}).
		Parse(`// Code generated by odigen; DO NOT EDIT.
// Facts: {{.FactsPath}}
// Facts-SHA256: {{.FactsHash}}

package {{.Package}}

import (
{{- range .Imports }}
	{{- if .Name }}
	{{ .Name }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)

// {{.Func}} registers the facts of {{.FactsPath}} on r.
func {{.Func}}(r *di.Registry) *di.Registry {
{{- if .Doc.Types }}
	r.Type(
{{- range .Doc.Types }}
		typeref.TypeFact{Name: {{ quote .Name }}, Params: {{ strs .Params }}, Super: {{ quote .Super }}, Interfaces: {{ strs .Interfaces }}, Opaque: {{ .Opaque }}},
{{- end }}
	)
{{- end }}
{{- range .Doc.Providers }}
{{- if .Component }}
	r.Component(di.ComponentFact{
		Type: {{ quote .Component }},
		Constructors: []di.Constructor{
{{- range .Constructors }}
			{Params: {{ strs .Params }}, Selected: {{ .Selected }}, Call: {{ .Call }}},
{{- end }}
		},
{{- else }}
	r.Factory(di.FactoryFact{
		Name:     {{ quote .Factory }},
		Owner:    {{ quote .Owner }},
		Produces: {{ quote .Produces }},
		Params:   {{ strs .Params }},
		Call:     {{ .Call }},
{{- end }}
		Policy:          {{ policy .Policy }},
		Order:           {{ .Order }},
		DefaultFallback: {{ .DefaultFallback }},
{{- if .Fields }}
		Fields: []di.FieldFact{
{{- range .Fields }}
			{Name: {{ quote .Name }}, Type: {{ quote .Type }}, Final: {{ .Final }}{{ if .Set }}, Set: {{ .Set }}{{ end }}},
{{- end }}
		},
{{- end }}
{{- if .Initializers }}
		Initializers: []di.InitializerFact{
{{- range .Initializers }}
			{Name: {{ quote .Name }}, Priority: {{ .Priority }}, Params: {{ strs .Params }}, Call: {{ .Call }}},
{{- end }}
		},
{{- end }}
	})
{{- end }}
{{- range .Doc.Events }}
	r.Event(di.EventFact{Name: {{ quote .Name }}, Owner: {{ quote .Owner }}, Params: {{ strs .Params }}, Call: {{ .Call }}})
{{- end }}
	return r
}
`),
)
