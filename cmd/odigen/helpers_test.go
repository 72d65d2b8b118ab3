package main

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

type pkgHarness struct {
	t   *testing.T
	dir string
}

func newPkg(t *testing.T) *pkgHarness {
	t.Helper()
	return &pkgHarness{t: t, dir: t.TempDir()}
}

func (p *pkgHarness) write(rel, content string) string {
	p.t.Helper()
	path := filepath.Join(p.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		p.t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		p.t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func (p *pkgHarness) path(rel string) string {
	return filepath.Join(p.dir, rel)
}

func (p *pkgHarness) read(rel string) string {
	p.t.Helper()
	b, err := os.ReadFile(filepath.Join(p.dir, rel))
	if err != nil {
		p.t.Fatalf("read %s: %v", rel, err)
	}
	return string(b)
}

// copyTestdata copies testdata/name into the harness and returns its path.
func (p *pkgHarness) copyTestdata(name string) string {
	p.t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		p.t.Fatalf("read testdata %s: %v", name, err)
	}
	return p.write(name, string(b))
}

var spaces = regexp.MustCompile(`\s+`)

// squash collapses whitespace so assertions ignore gofmt alignment.
func squash(s string) string {
	return spaces.ReplaceAllString(s, " ")
}

func assertContains(t *testing.T, s string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(s, p) {
			t.Fatalf("expected %q in:\n%s", p, s)
		}
	}
}

func assertContainsInOrder(t *testing.T, s string, parts ...string) {
	t.Helper()
	pos := 0
	for _, p := range parts {
		i := strings.Index(s[pos:], p)
		if i < 0 {
			t.Fatalf("expected to find %q after pos=%d in:\n%s", p, pos, s)
		}
		pos += i + len(p)
	}
}

func assertErrContains(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("err=%q want contains %q", err.Error(), want)
	}
}
