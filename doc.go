// Package odirt is a dependency-injection runtime that resolves a graph of
// declared providers.
//
// Providers are declared as facts: constructors and factory routines with the
// type signatures they produce and require, generic parameters included. The
// runtime plans the facts into a dependency graph, rejects cycles, orders the
// definitions in layers and then serves requests for instances, with
// tie-breaking for ambiguous matches, multi-binding through List<T> and T[]
// requests, per-request instances and deferred initializers.
//
// Packages:
//   - typeref: type signatures, the interning resolver and assignability
//   - di: facts, planning, the container, events and the Registry
//   - factfile: YAML/JSON fact files bound to Go functions by name
//   - cmd/odigen: check, generate and trial-run fact files
//   - examples/app: a small checkout application wired through a fact file
package odirt
