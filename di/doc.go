// Package di is a dependency-injection runtime driven by declarative facts.
//
// Facts describe types (see package typeref), providers and event handlers.
// Plan turns them into ComponentDefinitions, links every definition to the
// definitions that satisfy its parameters, owner and fields, rejects cycles
// and assigns each definition a layer. Build then constructs a Container:
//
//   - Once definitions are instantiated eagerly, lowest layer first, and their
//     instances are cached; every consumer sees the same instance.
//   - PerInstance definitions are instantiated on demand, fresh per request.
//   - Void (side-effect-only) Once definitions run after all typed ones.
//   - Initializers are queued while instantiating and run afterwards,
//     ascending by priority, so they never observe a half-wired object.
//
// Resolution
//
// Get returns exactly one instance. When several definitions match, the
// default-fallback ones are dropped first; if the request is still
// ambiguous, a definition alone on the lowest layer wins. Otherwise the call
// fails with ErrNoDependenciesPresent or ErrMultipleDependenciesPresent.
// GetAll and List/array requests return every match in discovery order.
//
// A parameter of type InjectionContext receives the produced type and, for
// PerInstance definitions resolved under another resolution, the requesting
// type.
//
// Errors
//
// Plan and Build fail with BuildError, Get, GetAll and Dispatch with
// ResolutionError. Both carry a Kind and match the corresponding sentinel
// (ErrCyclicDependency, ErrNoProvider, ...) through errors.Is.
//
// Registration
//
// Registry is a fluent registration table; package factfile loads the same
// facts from YAML and cmd/odigen generates registration code from it.
//
// Import
//
//	"github.com/sghaida/odirt/di"
package di
