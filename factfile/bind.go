package factfile

import (
	"sort"
	"strings"

	"github.com/sghaida/odirt/di"
	"github.com/sghaida/odirt/typeref"
)

// Symbols maps the call names used in a document to Go functions.
type Symbols struct {
	Providers    map[string]di.ProviderFunc
	Setters      map[string]di.SetterFunc
	Initializers map[string]di.InitFunc
	Handlers     map[string]di.HandlerFunc
}

// MissingSymbolError lists every call name a document uses that Symbols does
// not define, as "kind:name" pairs sorted alphabetically.
type MissingSymbolError struct {
	Missing []string
}

// Error implements the error interface.
func (e MissingSymbolError) Error() string {
	return "factfile: missing symbols: " + strings.Join(e.Missing, ", ")
}

// Bind turns a document into di.Facts, looking every call name up in syms.
// Fields without a setter name are passed through with a nil setter, which
// di.Plan reports as a missing provider.
func Bind(doc *Document, syms Symbols) (di.Facts, error) {
	b := binder{syms: syms, missing: map[string]bool{}}

	var facts di.Facts
	for _, t := range doc.Types {
		facts.Types = append(facts.Types, typeref.TypeFact{
			Name:       t.Name,
			Params:     t.Params,
			Super:      t.Super,
			Interfaces: t.Interfaces,
			Opaque:     t.Opaque,
		})
	}

	for _, p := range doc.Providers {
		fact, err := b.provider(p)
		if err != nil {
			return di.Facts{}, err
		}
		facts.Providers = append(facts.Providers, fact)
	}

	for _, e := range doc.Events {
		facts.Events = append(facts.Events, di.EventFact{
			Name:   e.Name,
			Owner:  e.Owner,
			Params: e.Params,
			Call:   b.handler(e.Call),
		})
	}

	if len(b.missing) > 0 {
		out := MissingSymbolError{}
		for k := range b.missing {
			out.Missing = append(out.Missing, k)
		}
		sort.Strings(out.Missing)
		return di.Facts{}, out
	}
	return facts, nil
}

type binder struct {
	syms    Symbols
	missing map[string]bool
}

func (b *binder) provider(p ProviderSpec) (di.ProviderFact, error) {
	policy, err := di.ParsePolicy(p.Policy)
	if err != nil {
		return nil, err
	}
	fields := b.fields(p.Fields)
	inits := b.initializers(p.Initializers)

	if p.Component != "" {
		ctors := make([]di.Constructor, 0, len(p.Constructors))
		for _, c := range p.Constructors {
			ctors = append(ctors, di.Constructor{
				Params:   c.Params,
				Selected: c.Selected,
				Call:     b.providerFunc(c.Call),
			})
		}
		return di.ComponentFact{
			Type:            p.Component,
			Constructors:    ctors,
			Policy:          policy,
			Order:           p.Order,
			DefaultFallback: p.DefaultFallback,
			Fields:          fields,
			Initializers:    inits,
		}, nil
	}

	return di.FactoryFact{
		Name:            p.Factory,
		Owner:           p.Owner,
		Produces:        p.Produces,
		Params:          p.Params,
		Policy:          policy,
		Order:           p.Order,
		DefaultFallback: p.DefaultFallback,
		Fields:          fields,
		Initializers:    inits,
		Call:            b.providerFunc(p.Call),
	}, nil
}

func (b *binder) fields(specs []FieldSpec) []di.FieldFact {
	out := make([]di.FieldFact, 0, len(specs))
	for _, f := range specs {
		ff := di.FieldFact{Name: f.Name, Type: f.Type, Final: f.Final}
		if f.Set != "" {
			if fn, ok := b.syms.Setters[f.Set]; ok {
				ff.Set = fn
			} else {
				b.missing["setter:"+f.Set] = true
			}
		}
		out = append(out, ff)
	}
	return out
}

func (b *binder) initializers(specs []InitializerSpec) []di.InitializerFact {
	out := make([]di.InitializerFact, 0, len(specs))
	for _, i := range specs {
		fn, ok := b.syms.Initializers[i.Call]
		if !ok {
			b.missing["initializer:"+i.Call] = true
		}
		out = append(out, di.InitializerFact{Name: i.Name, Priority: i.Priority, Params: i.Params, Call: fn})
	}
	return out
}

func (b *binder) providerFunc(name string) di.ProviderFunc {
	fn, ok := b.syms.Providers[name]
	if !ok {
		b.missing["provider:"+name] = true
	}
	return fn
}

func (b *binder) handler(name string) di.HandlerFunc {
	fn, ok := b.syms.Handlers[name]
	if !ok {
		b.missing["handler:"+name] = true
	}
	return fn
}
