package di

import (
	"github.com/sghaida/odirt/typeref"
)

// Registry is a declarative registration table. It replaces discovery of
// providers from program structure: whatever is registered here becomes the
// Facts handed to Plan or Build, in registration order.
//
// Expected usage:
//
//	c, err := di.NewRegistry().
//	  Type(typeref.TypeFact{Name: "Clock"}).
//	  Value("Clock", realClock{}).
//	  Build()
type Registry struct {
	facts Facts
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Type declares types and returns the registry for chaining.
func (r *Registry) Type(facts ...typeref.TypeFact) *Registry {
	r.facts.Types = append(r.facts.Types, facts...)
	return r
}

// Component registers a component fact.
func (r *Registry) Component(f ComponentFact) *Registry {
	r.facts.Providers = append(r.facts.Providers, f)
	return r
}

// Factory registers a factory fact.
func (r *Registry) Factory(f FactoryFact) *Registry {
	r.facts.Providers = append(r.facts.Providers, f)
	return r
}

// Value registers an already constructed instance as a static Once factory
// producing sig.
func (r *Registry) Value(sig string, v any) *Registry {
	return r.Factory(FactoryFact{
		Name:     sig,
		Produces: sig,
		Call:     func(any, []any) (any, error) { return v, nil },
	})
}

// Event registers an event handler fact.
func (r *Registry) Event(f EventFact) *Registry {
	r.facts.Events = append(r.facts.Events, f)
	return r
}

// Facts returns a copy of everything registered so far.
func (r *Registry) Facts() Facts {
	return Facts{
		Types:     append([]typeref.TypeFact(nil), r.facts.Types...),
		Providers: append([]ProviderFact(nil), r.facts.Providers...),
		Events:    append([]EventFact(nil), r.facts.Events...),
	}
}

// Merge appends the facts of other after the facts already registered.
func (r *Registry) Merge(other Facts) *Registry {
	r.facts.Types = append(r.facts.Types, other.Types...)
	r.facts.Providers = append(r.facts.Providers, other.Providers...)
	r.facts.Events = append(r.facts.Events, other.Events...)
	return r
}

// Plan plans the registered facts without instantiating anything.
func (r *Registry) Plan() (*Graph, error) { return Plan(r.Facts()) }

// Build builds a container from the registered facts.
func (r *Registry) Build(opts ...Option) (*Container, error) {
	return Build(r.Facts(), opts...)
}
