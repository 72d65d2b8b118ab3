package di

import (
	"sort"
	"strconv"

	"github.com/sghaida/odirt/typeref"
)

// ComponentDefinition is a registered recipe for producing instances of a
// type. Definitions are created by Plan and are read-only afterwards, except
// for the instance cache of Once definitions which Build fills exactly once.
type ComponentDefinition struct {
	name            string
	index           int
	produced        *typeref.Ref
	policy          Policy
	declaredOrder   int
	order           int
	owner           *typeref.Ref
	provider        ProviderFunc
	params          []*typeref.Ref
	fields          []fieldInjection
	initializers    []initializer
	defaultFallback bool
	deps            []*ComponentDefinition

	cached []any
	built  bool
	// set while a Once provider is running
	building bool
}

type fieldInjection struct {
	name string
	typ  *typeref.Ref
	set  SetterFunc
}

type initializer struct {
	name     string
	priority int
	params   []*typeref.Ref
	call     InitFunc
}

// Name is the diagnostic identity of the definition.
func (d *ComponentDefinition) Name() string { return d.name }

// Index is the position in discovery order.
func (d *ComponentDefinition) Index() int { return d.index }

// Produces returns the produced type, nil for void definitions.
func (d *ComponentDefinition) Produces() *typeref.Ref { return d.produced }

// Policy returns the instantiation policy.
func (d *ComponentDefinition) Policy() Policy { return d.policy }

// Order returns the layer assigned by the graph builder.
func (d *ComponentDefinition) Order() int { return d.order }

// Owner returns the owner type of a non-static factory, nil otherwise.
func (d *ComponentDefinition) Owner() *typeref.Ref { return d.owner }

// Params returns the parameter types.
func (d *ComponentDefinition) Params() []*typeref.Ref {
	return append([]*typeref.Ref(nil), d.params...)
}

// DefaultFallback reports whether the definition loses ambiguity ties.
func (d *ComponentDefinition) DefaultFallback() bool { return d.defaultFallback }

// Dependencies returns the definitions this one depends on, in discovery order.
func (d *ComponentDefinition) Dependencies() []*ComponentDefinition {
	return append([]*ComponentDefinition(nil), d.deps...)
}

// String implements fmt.Stringer.
func (d *ComponentDefinition) String() string { return d.name }

// EventHandlerDefinition binds a handler to the payload types it accepts.
type EventHandlerDefinition struct {
	name      string
	eventType *typeref.Ref
	owner     *typeref.Ref
	handler   HandlerFunc
}

// Name is the diagnostic identity of the handler.
func (h *EventHandlerDefinition) Name() string { return h.name }

// EventType returns the payload type the handler accepts.
func (h *EventHandlerDefinition) EventType() *typeref.Ref { return h.eventType }

// Owner returns the owner type, nil for static handlers.
func (h *EventHandlerDefinition) Owner() *typeref.Ref { return h.owner }

// definitionBuilder turns facts into definitions against one resolver.
type definitionBuilder struct {
	types *typeref.Resolver
}

func (b *definitionBuilder) resolve(subject, sig string) (*typeref.Ref, error) {
	ref, err := b.types.Resolve(sig)
	if err != nil {
		return nil, BuildError{Kind: typeKind(err), Subject: subject, Err: err}
	}
	return ref, nil
}

func (b *definitionBuilder) resolveAll(subject string, sigs []string) ([]*typeref.Ref, error) {
	out := make([]*typeref.Ref, 0, len(sigs))
	for _, s := range sigs {
		ref, err := b.resolve(subject, s)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

// definitions builds every provider fact and sorts the result stably by
// declared order. The resulting slice is the discovery order.
func (b *definitionBuilder) definitions(facts []ProviderFact) ([]*ComponentDefinition, error) {
	defs := make([]*ComponentDefinition, 0, len(facts))
	for i, f := range facts {
		var (
			d   *ComponentDefinition
			err error
		)
		switch f := f.(type) {
		case ComponentFact:
			d, err = b.component(f)
		case *ComponentFact:
			d, err = b.component(*f)
		case FactoryFact:
			d, err = b.factory(i, f)
		case *FactoryFact:
			d, err = b.factory(i, *f)
		default:
			err = BuildError{Kind: KindNoProvider, Subject: "provider #" + strconv.Itoa(i)}
		}
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}

	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].declaredOrder < defs[j].declaredOrder
	})
	for i, d := range defs {
		d.index = i
		d.order = -1
	}
	return defs, nil
}

func (b *definitionBuilder) component(f ComponentFact) (*ComponentDefinition, error) {
	produced, err := b.resolve(f.Type, f.Type)
	if err != nil {
		return nil, err
	}

	ctor, err := selectConstructor(f)
	if err != nil {
		return nil, err
	}
	if ctor.Call == nil {
		return nil, BuildError{Kind: KindNoProvider, Subject: f.Type}
	}

	params, err := b.resolveAll(f.Type, ctor.Params)
	if err != nil {
		return nil, err
	}

	d := &ComponentDefinition{
		name:            f.Type,
		produced:        produced,
		policy:          f.Policy,
		declaredOrder:   f.Order,
		provider:        ctor.Call,
		params:          params,
		defaultFallback: f.DefaultFallback,
	}
	if err := b.members(d, f.Fields, f.Initializers); err != nil {
		return nil, err
	}
	return d, nil
}

// selectConstructor picks the constructor of a component:
// a single Selected one, else the only one, else a zero-parameter one.
func selectConstructor(f ComponentFact) (Constructor, error) {
	var selected []Constructor
	for _, c := range f.Constructors {
		if c.Selected {
			selected = append(selected, c)
		}
	}
	switch {
	case len(selected) == 1:
		return selected[0], nil
	case len(selected) > 1:
		return Constructor{}, BuildError{Kind: KindMultipleProviders, Subject: f.Type}
	case len(f.Constructors) == 0:
		return Constructor{}, BuildError{Kind: KindNoProvider, Subject: f.Type}
	case len(f.Constructors) == 1:
		return f.Constructors[0], nil
	}

	for _, c := range f.Constructors {
		if len(c.Params) == 0 {
			return c, nil
		}
	}
	return Constructor{}, BuildError{Kind: KindMultipleProviders, Subject: f.Type}
}

func (b *definitionBuilder) factory(i int, f FactoryFact) (*ComponentDefinition, error) {
	name := f.Name
	if name == "" {
		name = f.Produces
	}
	if name == "" {
		name = "factory#" + strconv.Itoa(i)
	}
	if f.Call == nil {
		return nil, BuildError{Kind: KindNoProvider, Subject: name}
	}

	d := &ComponentDefinition{
		name:            name,
		policy:          f.Policy,
		declaredOrder:   f.Order,
		provider:        f.Call,
		defaultFallback: f.DefaultFallback,
	}

	var err error
	if f.Owner != "" {
		if d.owner, err = b.resolve(name, f.Owner); err != nil {
			return nil, err
		}
	}
	if f.Produces != "" {
		if d.produced, err = b.resolve(name, f.Produces); err != nil {
			return nil, err
		}
	}
	if d.params, err = b.resolveAll(name, f.Params); err != nil {
		return nil, err
	}
	if err := b.members(d, f.Fields, f.Initializers); err != nil {
		return nil, err
	}
	return d, nil
}

func (b *definitionBuilder) members(d *ComponentDefinition, fields []FieldFact, inits []InitializerFact) error {
	for _, f := range fields {
		subject := d.name + "." + f.Name
		if f.Final {
			return BuildError{Kind: KindFinalFieldDependency, Subject: subject}
		}
		if f.Set == nil {
			return BuildError{Kind: KindNoProvider, Subject: subject}
		}
		typ, err := b.resolve(subject, f.Type)
		if err != nil {
			return err
		}
		d.fields = append(d.fields, fieldInjection{name: f.Name, typ: typ, set: f.Set})
	}

	for _, in := range inits {
		subject := d.name + "." + in.Name
		if in.Call == nil {
			return BuildError{Kind: KindNoProvider, Subject: subject}
		}
		params, err := b.resolveAll(subject, in.Params)
		if err != nil {
			return err
		}
		d.initializers = append(d.initializers, initializer{
			name:     in.Name,
			priority: in.Priority,
			params:   params,
			call:     in.Call,
		})
	}
	return nil
}

func (b *definitionBuilder) events(facts []EventFact) ([]*EventHandlerDefinition, error) {
	out := make([]*EventHandlerDefinition, 0, len(facts))
	for i, f := range facts {
		name := f.Name
		if name == "" {
			name = "handler#" + strconv.Itoa(i)
		}
		if len(f.Params) != 1 {
			return nil, BuildError{Kind: KindEventParameterCount, Subject: name}
		}
		if f.Call == nil {
			return nil, BuildError{Kind: KindNoProvider, Subject: name}
		}

		h := &EventHandlerDefinition{name: name, handler: f.Call}
		var err error
		if h.eventType, err = b.resolve(name, f.Params[0]); err != nil {
			return nil, err
		}
		if f.Owner != "" {
			if h.owner, err = b.resolve(name, f.Owner); err != nil {
				return nil, err
			}
		}
		out = append(out, h)
	}
	return out, nil
}
