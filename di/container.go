package di

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sghaida/odirt/typeref"
)

// Container holds a built graph and resolves requests against it.
//
// After Build returns, Get, GetAll and Dispatch may be called concurrently:
// Once instances are cached and never written again, and every call keeps
// its requesting stack and initializer queue to itself. Providers must be
// reentrant if they are resolved concurrently.
type Container struct {
	graph *Graph
	log   *zap.Logger
	obs   Observer
}

// call is the state local to one top-level operation.
type call struct {
	// requested types, outermost first
	stack []*typeref.Ref

	// initializers queued while instantiating, run by drain
	pending []pendingInit
}

type pendingInit struct {
	def    *ComponentDefinition
	target any
	init   initializer
}

// Build plans facts and constructs the container: every Once definition with
// a produced type is instantiated in ascending layer order, then every Once
// void definition runs in the same order, then queued initializers run.
// Any failure aborts the build and no container is returned.
func Build(facts Facts, opts ...Option) (*Container, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	g, err := Plan(facts)
	if err != nil {
		o.log.Debug("plan failed", zap.Error(err))
		return nil, err
	}

	c := &Container{graph: g, log: o.log, obs: o.obs}
	layers := g.Layers()
	for i, layer := range layers {
		c.log.Debug("layer planned", zap.Int("layer", i), zap.Strings("definitions", names(layer)))
	}

	st := &call{}
	for _, void := range []bool{false, true} {
		for _, layer := range layers {
			for _, d := range layer {
				if d.policy != Once || (d.produced == nil) != void {
					continue
				}
				st.stack = st.stack[:0]
				if d.produced != nil {
					st.stack = append(st.stack, d.produced)
				}
				if _, err := c.instantiate(d, st); err != nil {
					return nil, asBuildError(d.name, err)
				}
			}
		}
	}
	st.stack = st.stack[:0]
	if err := c.drain(st); err != nil {
		return nil, asBuildError("initializers", err)
	}

	c.log.Info("container built",
		zap.Int("definitions", len(g.defs)),
		zap.Int("layers", len(layers)),
		zap.Int("handlers", len(g.events)),
		zap.Duration("took", time.Since(start)),
	)
	return c, nil
}

func asBuildError(subject string, err error) error {
	var re ResolutionError
	if errors.As(err, &re) {
		return BuildError{Kind: re.Kind, Subject: subject, Err: err}
	}
	return BuildError{Kind: KindProviderFailed, Subject: subject, Err: err}
}

// Graph returns the planned graph.
func (c *Container) Graph() *Graph { return c.graph }

// Types returns the resolver used for request signatures.
func (c *Container) Types() *typeref.Resolver { return c.graph.types }

// Get resolves a single instance of sig. A List or array signature returns
// every matching instance as a []any.
func (c *Container) Get(sig string) (any, error) { return c.GetFor(sig, "") }

// GetFor is Get on behalf of the requesting type requester (may be empty).
func (c *Container) GetFor(sig, requester string) (any, error) {
	start := time.Now()
	req, st, err := c.begin(sig, requester)
	if err != nil {
		c.obs.Resolved(sig, time.Since(start), err)
		return nil, err
	}

	v, err := c.lookup(req, st)
	if err == nil {
		err = c.drain(st)
	}
	c.obs.Resolved(req.Key(), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetAll returns every instance matching sig (or its element type for a
// List or array signature) in discovery order. No ambiguity rule applies.
func (c *Container) GetAll(sig string) ([]any, error) { return c.GetAllFor(sig, "") }

// GetAllFor is GetAll on behalf of the requesting type requester (may be empty).
func (c *Container) GetAllFor(sig, requester string) ([]any, error) {
	start := time.Now()
	req, st, err := c.begin(sig, requester)
	if err != nil {
		c.obs.Resolved(sig, time.Since(start), err)
		return nil, err
	}

	st.stack = append(st.stack, req)
	out, err := c.collect(req, st)
	if err == nil {
		err = c.drain(st)
	}
	c.obs.Resolved(req.Key(), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// begin resolves the request signatures and seeds the call state.
func (c *Container) begin(sig, requester string) (*typeref.Ref, *call, error) {
	req, err := c.graph.types.Resolve(sig)
	if err != nil {
		return nil, nil, ResolutionError{Kind: typeKind(err), Type: sig, Requester: requester, Err: err}
	}

	st := &call{}
	if requester != "" {
		by, err := c.graph.types.Resolve(requester)
		if err != nil {
			return nil, nil, ResolutionError{Kind: typeKind(err), Type: sig, Requester: requester, Err: err}
		}
		st.stack = append(st.stack, by)
	}
	return req, st, nil
}

// lookup resolves req with req pushed on the requesting stack.
func (c *Container) lookup(req *typeref.Ref, st *call) (any, error) {
	st.stack = append(st.stack, req)
	defer func() { st.stack = st.stack[:len(st.stack)-1] }()

	if req.IsList() {
		return c.collect(req, st)
	}
	return c.single(req, st)
}

// dependency resolves one parameter, owner or field of d.
func (c *Container) dependency(d *ComponentDefinition, p *typeref.Ref, st *call) (any, error) {
	if p.Equal(c.graph.ctx) {
		ic := InjectionContext{Target: d.produced}
		if d.policy == PerInstance && len(st.stack) >= 2 {
			ic.Requester = st.stack[len(st.stack)-2]
		}
		return ic, nil
	}
	return c.lookup(p, st)
}

func (c *Container) requester(st *call) string {
	if len(st.stack) >= 2 {
		return st.stack[len(st.stack)-2].Key()
	}
	return ""
}

// single applies the ambiguity rules to the definitions matching req:
// when the instance count is not one, default-fallback definitions are
// dropped (unless that leaves nothing); when it is still not one, a unique
// definition on the lowest layer wins.
func (c *Container) single(req *typeref.Ref, st *call) (any, error) {
	cands := c.graph.Matching(req)

	n, err := c.count(cands, st)
	if err != nil {
		return nil, err
	}
	if n != 1 {
		if nd := nonDefault(cands); len(nd) > 0 && len(nd) < len(cands) {
			cands = nd
			if n, err = c.count(cands, st); err != nil {
				return nil, err
			}
		}
	}
	if n != 1 && len(cands) > 1 {
		if d := uniqueMinLayer(cands); d != nil {
			cands = []*ComponentDefinition{d}
			if n, err = c.count(cands, st); err != nil {
				return nil, err
			}
		}
	}

	switch {
	case n == 0:
		return nil, ResolutionError{Kind: KindNoDependenciesPresent, Type: req.Key(), Requester: c.requester(st)}
	case n > 1:
		return nil, ResolutionError{
			Kind:       KindMultipleDependenciesPresent,
			Type:       req.Key(),
			Requester:  c.requester(st),
			Candidates: names(cands),
		}
	}

	instances, err := c.instancesOf(cands, st)
	if err != nil {
		return nil, err
	}
	switch len(instances) {
	case 0:
		return nil, ResolutionError{Kind: KindNoDependenciesPresent, Type: req.Key(), Requester: c.requester(st)}
	case 1:
		return instances[0], nil
	}
	return nil, ResolutionError{
		Kind:       KindMultipleDependenciesPresent,
		Type:       req.Key(),
		Requester:  c.requester(st),
		Candidates: names(cands),
	}
}

// count is the number of instances cands would yield: a Once definition
// contributes its cached instances, a PerInstance one counts as one.
func (c *Container) count(cands []*ComponentDefinition, st *call) (int, error) {
	n := 0
	for _, d := range cands {
		if d.policy == PerInstance {
			n++
			continue
		}
		inst, err := c.instantiate(d, st)
		if err != nil {
			return 0, err
		}
		n += len(inst)
	}
	return n, nil
}

func nonDefault(defs []*ComponentDefinition) []*ComponentDefinition {
	var out []*ComponentDefinition
	for _, d := range defs {
		if !d.defaultFallback {
			out = append(out, d)
		}
	}
	return out
}

// uniqueMinLayer returns the only definition on the lowest layer, or nil
// when the lowest layer is shared.
func uniqueMinLayer(defs []*ComponentDefinition) *ComponentDefinition {
	var best *ComponentDefinition
	tied := false
	for _, d := range defs {
		switch {
		case best == nil || d.order < best.order:
			best, tied = d, false
		case d.order == best.order:
			tied = true
		}
	}
	if tied {
		return nil
	}
	return best
}

func names(defs []*ComponentDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.name
	}
	return out
}

// collect flattens the instances of every definition matching req.
func (c *Container) collect(req *typeref.Ref, st *call) ([]any, error) {
	return c.instancesOf(c.graph.Matching(req), st)
}

// instancesOf flattens the instances of defs in order. A list-producing
// definition contributes its elements.
func (c *Container) instancesOf(defs []*ComponentDefinition, st *call) ([]any, error) {
	out := []any{}
	for _, d := range defs {
		inst, err := c.instantiate(d, st)
		if err != nil {
			return nil, err
		}
		out = append(out, inst...)
	}
	return out, nil
}

// instantiate returns the instances of d, building them unless d is a Once
// definition that was already built.
func (c *Container) instantiate(d *ComponentDefinition, st *call) ([]any, error) {
	if d.policy == Once {
		if d.built {
			return d.cached, nil
		}
		if d.building {
			return nil, ResolutionError{Kind: KindCyclicDependency, Type: d.name}
		}
		d.building = true
		defer func() { d.building = false }()
	}

	start := time.Now()
	instances, err := c.construct(d, st)
	c.obs.Instantiated(d.name, d.policy, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if d.policy == Once {
		d.cached = instances
		d.built = true
	}
	c.log.Debug("instantiated",
		zap.String("definition", d.name),
		zap.Stringer("policy", d.policy),
		zap.Int("instances", len(instances)),
	)
	return instances, nil
}

// construct resolves the owner and parameters of d, invokes its provider,
// injects its fields and queues its initializers.
func (c *Container) construct(d *ComponentDefinition, st *call) ([]any, error) {
	var owner any
	if d.owner != nil {
		o, err := c.dependency(d, d.owner, st)
		if err != nil {
			return nil, err
		}
		owner = o
	}

	args := make([]any, len(d.params))
	for i, p := range d.params {
		v, err := c.dependency(d, p, st)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	var inst any
	err := protect(func() error {
		var err error
		inst, err = d.provider(owner, args)
		return err
	})
	if err != nil {
		return nil, ResolutionError{Kind: KindProviderFailed, Type: d.name, Requester: c.requester(st), Err: err}
	}

	for _, f := range d.fields {
		v, err := c.dependency(d, f.typ, st)
		if err != nil {
			return nil, err
		}
		if err := protect(func() error { return f.set(inst, v) }); err != nil {
			return nil, ResolutionError{Kind: KindProviderFailed, Type: d.name + "." + f.name, Err: err}
		}
	}

	for _, in := range d.initializers {
		st.pending = append(st.pending, pendingInit{def: d, target: inst, init: in})
	}

	switch {
	case d.produced == nil:
		return nil, nil
	case d.produced.IsList():
		return c.elements(d, inst)
	}
	return []any{inst}, nil
}

// elements spreads the slice returned by a list-producing provider.
func (c *Container) elements(d *ComponentDefinition, inst any) ([]any, error) {
	if inst == nil {
		return []any{}, nil
	}
	if xs, ok := inst.([]any); ok {
		return append([]any(nil), xs...), nil
	}

	v := reflect.ValueOf(inst)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, ResolutionError{
			Kind: KindProviderFailed,
			Type: d.name,
			Err:  WrongTypeError{Type: d.produced.Key(), GotType: v.Type().String()},
		}
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}

// drain runs the queued initializers, ascending by priority and stable for
// equal priorities, until the queue stays empty.
func (c *Container) drain(st *call) error {
	for len(st.pending) > 0 {
		batch := st.pending
		st.pending = nil
		sort.SliceStable(batch, func(i, j int) bool {
			return batch[i].init.priority < batch[j].init.priority
		})

		for _, p := range batch {
			args := make([]any, len(p.init.params))
			for i, ref := range p.init.params {
				v, err := c.dependency(p.def, ref, st)
				if err != nil {
					return err
				}
				args[i] = v
			}

			if err := protect(func() error { return p.init.call(p.target, args) }); err != nil {
				return ResolutionError{Kind: KindProviderFailed, Type: p.def.name + "." + p.init.name, Err: err}
			}
			c.log.Debug("initializer ran",
				zap.String("definition", p.def.name),
				zap.String("initializer", p.init.name),
				zap.Int("priority", p.init.priority),
			)
		}
	}
	return nil
}

// protect converts a panic in fn into an error wrapping ErrProviderPanic.
func protect(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrProviderPanic, rec)
		}
	}()
	return fn()
}
