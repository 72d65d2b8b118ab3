package di

import (
	"sort"

	"github.com/sghaida/odirt/typeref"
)

// Graph is a validated, layered set of definitions. It is produced by Plan
// and consumed by Build; nothing in it has been instantiated.
type Graph struct {
	types  *typeref.Resolver
	ctx    *typeref.Ref
	defs   []*ComponentDefinition
	events []*EventHandlerDefinition
	layers int
}

// Plan resolves every signature in facts, builds the definitions, computes
// their dependencies, rejects cycles and assigns layers.
func Plan(facts Facts) (*Graph, error) {
	typeFacts := append([]typeref.TypeFact{{Name: ContextType, Opaque: true}}, facts.Types...)
	types, err := typeref.NewResolver(typeFacts...)
	if err != nil {
		return nil, BuildError{Kind: typeKind(err), Subject: "types", Err: err}
	}

	b := &definitionBuilder{types: types}
	defs, err := b.definitions(facts.Providers)
	if err != nil {
		return nil, err
	}
	events, err := b.events(facts.Events)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		types:  types,
		ctx:    types.MustResolve(ContextType),
		defs:   defs,
		events: events,
	}
	g.link()
	if err := g.checkCycles(); err != nil {
		return nil, err
	}
	g.layer()
	return g, nil
}

// Types returns the resolver holding every interned signature.
func (g *Graph) Types() *typeref.Resolver { return g.types }

// Definitions returns the definitions in discovery order.
func (g *Graph) Definitions() []*ComponentDefinition {
	return append([]*ComponentDefinition(nil), g.defs...)
}

// Handlers returns the event handlers in registration order.
func (g *Graph) Handlers() []*EventHandlerDefinition {
	return append([]*EventHandlerDefinition(nil), g.events...)
}

// Layers groups the definitions by layer; within a layer they keep
// discovery order.
func (g *Graph) Layers() [][]*ComponentDefinition {
	out := make([][]*ComponentDefinition, g.layers)
	for _, d := range g.defs {
		out[d.order] = append(out[d.order], d)
	}
	return out
}

// Matching returns the definitions able to satisfy a request for req, in
// discovery order. A list request matches on its element type.
func (g *Graph) Matching(req *typeref.Ref) []*ComponentDefinition {
	if req.IsList() {
		req = req.Elem()
	}
	var out []*ComponentDefinition
	for _, d := range g.defs {
		if satisfies(d, req) {
			out = append(out, d)
		}
	}
	return out
}

// satisfies reports whether d produces something assignable to req. A
// definition producing a list also satisfies requests for its element type.
func satisfies(d *ComponentDefinition, req *typeref.Ref) bool {
	if d.produced == nil {
		return false
	}
	if typeref.IsAssignableFrom(req, d.produced) {
		return true
	}
	return d.produced.IsList() && typeref.IsAssignableFrom(req, d.produced.Elem())
}

// link computes the dependency edges of every definition: the definitions
// satisfying one of its parameters, its owner or a field type.
func (g *Graph) link() {
	for _, d := range g.defs {
		wants := make([]*typeref.Ref, 0, len(d.params)+len(d.fields)+1)
		wants = append(wants, d.params...)
		if d.owner != nil {
			wants = append(wants, d.owner)
		}
		for _, f := range d.fields {
			wants = append(wants, f.typ)
		}

		seen := make(map[*ComponentDefinition]bool)
		for _, w := range wants {
			if w.Equal(g.ctx) {
				continue
			}
			for _, dep := range g.Matching(w) {
				if !seen[dep] {
					seen[dep] = true
					d.deps = append(d.deps, dep)
				}
			}
		}
		sortByIndex(d.deps)
	}
}

func sortByIndex(defs []*ComponentDefinition) {
	sort.Slice(defs, func(i, j int) bool { return defs[i].index < defs[j].index })
}

const (
	unvisited = iota
	onPath
	finished
)

// checkCycles runs a depth-first search from every definition keeping the
// active path on an explicit stack. Reaching a definition already on the
// path is a cycle.
func (g *Graph) checkCycles() error {
	state := make(map[*ComponentDefinition]int, len(g.defs))
	var path []*ComponentDefinition

	var visit func(d *ComponentDefinition) error
	visit = func(d *ComponentDefinition) error {
		switch state[d] {
		case finished:
			return nil
		case onPath:
			start := 0
			for i, p := range path {
				if p == d {
					start = i
					break
				}
			}
			names := make([]string, 0, len(path)-start+1)
			for _, p := range path[start:] {
				names = append(names, p.name)
			}
			names = append(names, d.name)
			return BuildError{Kind: KindCyclicDependency, Subject: d.name, Path: names}
		}

		state[d] = onPath
		path = append(path, d)
		for _, dep := range d.deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[d] = finished
		return nil
	}

	for _, d := range g.defs {
		if err := visit(d); err != nil {
			return err
		}
	}
	return nil
}

// layer repeatedly scans the unordered definitions and gives the current
// layer to every one whose dependencies were all ordered before the scan.
// Runs after checkCycles, so every scan orders at least one definition.
func (g *Graph) layer() {
	remaining := g.defs
	n := 0
	for len(remaining) > 0 {
		var ready, rest []*ComponentDefinition
		for _, d := range remaining {
			if allOrdered(d.deps) {
				ready = append(ready, d)
			} else {
				rest = append(rest, d)
			}
		}
		if len(ready) == 0 {
			panic("di: layering stalled on an acyclic graph")
		}
		for _, d := range ready {
			d.order = n
		}
		n++
		remaining = rest
	}
	g.layers = n
}

func allOrdered(defs []*ComponentDefinition) bool {
	for _, d := range defs {
		if d.order < 0 {
			return false
		}
	}
	return true
}
