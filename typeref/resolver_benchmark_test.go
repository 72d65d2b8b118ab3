package typeref_test

import (
	"testing"

	"github.com/sghaida/odirt/typeref"
)

func BenchmarkParse(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = typeref.Parse("Pair<Box<? extends Animal>, List<Repo<Dog>>>")
	}
}

func BenchmarkResolve_Interned(b *testing.B) {
	r := zoo(b)
	r.MustResolve("Repo<Dog>")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Resolve("Repo<Dog>")
	}
}

func BenchmarkIsAssignableFrom_Hierarchy(b *testing.B) {
	r := zoo(b)
	req := r.MustResolve("Base<? super Puppy>")
	cand := r.MustResolve("Repo<Animal>")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = typeref.IsAssignableFrom(req, cand)
	}
}
