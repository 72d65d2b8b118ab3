package factfile

import (
	"github.com/sghaida/odirt/di"
	"github.com/sghaida/odirt/typeref"
)

// Stub is the instance produced by stub providers.
type Stub struct {
	// Symbol is the call name that produced the stub.
	Symbol string
	// Args holds the arguments the provider was invoked with.
	Args []any
}

// Stubs returns Symbols defining every call name in doc. Providers return a
// fresh *Stub, or an empty []any when the declared product is a List or an
// array. Setters, initializers and handlers do nothing.
//
// Stubs let a document be planned and built before real code exists.
func Stubs(doc *Document) Symbols {
	syms := Symbols{
		Providers:    map[string]di.ProviderFunc{},
		Setters:      map[string]di.SetterFunc{},
		Initializers: map[string]di.InitFunc{},
		Handlers:     map[string]di.HandlerFunc{},
	}

	for _, p := range doc.Providers {
		for _, c := range p.Constructors {
			syms.Providers[c.Call] = stubProvider(c.Call, false)
		}
		if p.Call != "" {
			syms.Providers[p.Call] = stubProvider(p.Call, producesMany(p.Produces))
		}
		for _, f := range p.Fields {
			if f.Set != "" {
				syms.Setters[f.Set] = func(any, any) error { return nil }
			}
		}
		for _, i := range p.Initializers {
			syms.Initializers[i.Call] = func(any, []any) error { return nil }
		}
	}
	for _, e := range doc.Events {
		syms.Handlers[e.Call] = func(any, any) error { return nil }
	}
	return syms
}

func stubProvider(symbol string, many bool) di.ProviderFunc {
	return func(_ any, args []any) (any, error) {
		if many {
			return []any{}, nil
		}
		return &Stub{Symbol: symbol, Args: args}, nil
	}
}

func producesMany(sig string) bool {
	if sig == "" {
		return false
	}
	s, err := typeref.Parse(sig)
	if err != nil {
		return false
	}
	return s.Dims > 0 || s.Name == typeref.ListName
}
