package di_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sghaida/odirt/di"
	"github.com/sghaida/odirt/typeref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// -----------------------------------------------------------------------------
// Construction
// -----------------------------------------------------------------------------

// TestBuild_OnceEagerPerInstanceLazy: A (Once), B (Once, needs A), C
// (PerInstance, needs A and B). Only A and B are built eagerly, in that order;
// every Get(C) yields a fresh C holding the shared A and B.
func TestBuild_OnceEagerPerInstanceLazy(t *testing.T) {
	t.Parallel()

	j := &journal{}
	c, err := di.NewRegistry().
		Type(types("A", "B", "C")...).
		Component(perInstance(j, "C", "A", "B")).
		Component(component(j, "B", "A")).
		Component(component(j, "A")).
		Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, j.list())

	c1, err := c.Get("C")
	require.NoError(t, err)
	c2, err := c.Get("C")
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)

	a, err := c.Get("A")
	require.NoError(t, err)
	b, err := c.Get("B")
	require.NoError(t, err)

	for _, x := range []any{c1, c2} {
		n := x.(*node)
		require.Len(t, n.args, 2)
		assert.Same(t, a, n.args[0])
		assert.Same(t, b, n.args[1])
	}
	assert.Same(t, a, b.(*node).args[0])
	assert.Equal(t, []string{"A", "B", "C", "C"}, j.list())
}

// TestBuild_OnceProviderRunsOnce verifies a shared Once dependency is built a
// single time no matter how many dependents reference it.
func TestBuild_OnceProviderRunsOnce(t *testing.T) {
	t.Parallel()

	j := &journal{}
	c, err := di.NewRegistry().
		Type(types("A", "B", "C", "D")...).
		Component(component(j, "A")).
		Component(component(j, "B", "A")).
		Component(component(j, "C", "A")).
		Component(perInstance(j, "D", "A", "B")).
		Build()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Get("D")
		require.NoError(t, err)
	}
	_, err = c.GetAll("A")
	require.NoError(t, err)

	assert.Equal(t, 1, j.count("A"))
	assert.Equal(t, 3, j.count("D"))

	b := di.MustResolve[*node](c, "B")
	cc := di.MustResolve[*node](c, "C")
	assert.Same(t, b.args[0], cc.args[0])
}

// TestBuild_FieldCycle: A and B inject each other through fields, the build
// fails before any provider runs.
func TestBuild_FieldCycle(t *testing.T) {
	t.Parallel()

	j := &journal{}
	a := component(j, "A")
	a.Fields = []di.FieldFact{{Name: "b", Type: "B", Set: set("b")}}
	b := component(j, "B")
	b.Fields = []di.FieldFact{{Name: "a", Type: "A", Set: set("a")}}

	c, err := di.NewRegistry().Type(types("A", "B")...).Component(a).Component(b).Build()
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, di.ErrCyclicDependency))
	assert.Empty(t, j.list())

	var be di.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, di.KindCyclicDependency, be.Kind)
	assert.Equal(t, []string{"A", "B", "A"}, be.Path)
	assert.Contains(t, be.Error(), `"A" -> "B" -> "A"`)
}

func TestBuild_VoidDefinitionsRunAfterTypedOnes(t *testing.T) {
	t.Parallel()

	j := &journal{}
	_, err := di.NewRegistry().
		Type(types("A", "B")...).
		Factory(di.FactoryFact{Name: "migrate", Params: []string{"A"}, Call: j.provide("migrate")}).
		Factory(di.FactoryFact{Name: "never", Policy: di.PerInstance, Call: j.provide("never")}).
		Component(component(j, "A")).
		Component(component(j, "B", "A")).
		Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "migrate"}, j.list())
}

func TestBuild_OwnerFactory(t *testing.T) {
	t.Parallel()

	c, err := di.NewRegistry().
		Type(types("Repo", "Factory")...).
		Factory(di.FactoryFact{Name: "Factory.Repo", Owner: "Factory", Produces: "Repo", Call: (*journal)(nil).provide("Repo")}).
		Component(component(nil, "Factory")).
		Build()
	require.NoError(t, err)

	repo := di.MustResolve[*node](c, "Repo")
	assert.Same(t, di.MustResolve[*node](c, "Factory"), repo.owner)

	d := c.Graph().Definitions()
	require.Len(t, d, 2)
	assert.Equal(t, "Factory", d[0].Owner().Key())
}

func TestBuild_ProviderFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	t.Run("error", func(t *testing.T) {
		t.Parallel()

		_, err := di.NewRegistry().
			Type(types("A")...).
			Factory(di.FactoryFact{Produces: "A", Call: func(any, []any) (any, error) { return nil, boom }}).
			Build()
		require.Error(t, err)
		assert.True(t, errors.Is(err, di.ErrProviderFailed))
		assert.True(t, errors.Is(err, boom))

		var be di.BuildError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, "A", be.Subject)
	})

	t.Run("panic", func(t *testing.T) {
		t.Parallel()

		_, err := di.NewRegistry().
			Type(types("A")...).
			Factory(di.FactoryFact{Produces: "A", Call: func(any, []any) (any, error) { panic("kaput") }}).
			Build()
		require.Error(t, err)
		assert.True(t, errors.Is(err, di.ErrProviderFailed))
		assert.True(t, errors.Is(err, di.ErrProviderPanic))
		assert.Contains(t, err.Error(), "kaput")
	})

	t.Run("missing dependency", func(t *testing.T) {
		t.Parallel()

		_, err := di.NewRegistry().
			Type(types("A", "B")...).
			Component(component(nil, "A", "B")).
			Build()
		require.Error(t, err)
		assert.True(t, errors.Is(err, di.ErrNoDependenciesPresent))

		var be di.BuildError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, "A", be.Subject)
	})

	t.Run("setter", func(t *testing.T) {
		t.Parallel()

		a := component(nil, "A")
		a.Fields = []di.FieldFact{{Name: "b", Type: "B", Set: func(any, any) error { return boom }}}
		_, err := di.NewRegistry().Type(types("A", "B")...).Component(a).Component(component(nil, "B")).Build()
		require.Error(t, err)
		assert.True(t, errors.Is(err, boom))
	})
}

//
// -----------------------------------------------------------------------------
// Resolution
// -----------------------------------------------------------------------------

func impls(iface string, names ...string) []typeref.TypeFact {
	out := []typeref.TypeFact{{Name: iface}}
	for _, n := range names {
		out = append(out, typeref.TypeFact{Name: n, Interfaces: []string{iface}})
	}
	return out
}

// TestGet_DefaultFallbackLosesTie: X and Y implement I on the same layer, Y is
// a default fallback. Get(I) is X and GetAll(I) is [X, Y].
func TestGet_DefaultFallbackLosesTie(t *testing.T) {
	t.Parallel()

	y := component(nil, "Y")
	y.DefaultFallback = true

	c, err := di.NewRegistry().
		Type(impls("I", "X", "Y")...).
		Component(component(nil, "X")).
		Component(y).
		Build()
	require.NoError(t, err)

	got, err := c.Get("I")
	require.NoError(t, err)
	assert.Equal(t, "X", got.(*node).kind)

	all, err := c.GetAll("I")
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, kinds(all))

	list, err := c.Get("List<I>")
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, kinds(list.([]any)))
}

func TestGet_Ambiguity(t *testing.T) {
	t.Parallel()

	t.Run("same layer", func(t *testing.T) {
		t.Parallel()

		c, err := di.NewRegistry().
			Type(impls("I", "X", "Z")...).
			Component(component(nil, "X")).
			Component(component(nil, "Z")).
			Build()
		require.NoError(t, err)

		_, err = c.Get("I")
		require.Error(t, err)
		assert.True(t, errors.Is(err, di.ErrMultipleDependenciesPresent))

		var re di.ResolutionError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "I", re.Type)
		assert.Equal(t, []string{"X", "Z"}, re.Candidates)

		// the container stays usable
		x, err := c.Get("X")
		require.NoError(t, err)
		assert.Equal(t, "X", x.(*node).kind)
	})

	t.Run("all default fallback", func(t *testing.T) {
		t.Parallel()

		x := component(nil, "X")
		x.DefaultFallback = true
		z := component(nil, "Z")
		z.DefaultFallback = true

		c, err := di.NewRegistry().Type(impls("I", "X", "Z")...).Component(x).Component(z).Build()
		require.NoError(t, err)

		_, err = c.Get("I")
		assert.True(t, errors.Is(err, di.ErrMultipleDependenciesPresent))
	})

	t.Run("unique lowest layer wins", func(t *testing.T) {
		t.Parallel()

		c, err := di.NewRegistry().
			Type(impls("I", "X", "Z")...).
			Component(component(nil, "Z", "X")).
			Component(component(nil, "X")).
			Build()
		require.NoError(t, err)

		got, err := c.Get("I")
		require.NoError(t, err)
		assert.Equal(t, "X", got.(*node).kind)
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		c, err := di.NewRegistry().Type(impls("I")...).Build()
		require.NoError(t, err)

		_, err = c.Get("I")
		assert.True(t, errors.Is(err, di.ErrNoDependenciesPresent))

		all, err := c.GetAll("I")
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestGet_BadSignature(t *testing.T) {
	t.Parallel()

	c, err := di.NewRegistry().Type(types("A")...).Component(component(nil, "A")).Build()
	require.NoError(t, err)

	_, err = c.Get("Nope")
	assert.True(t, errors.Is(err, di.ErrUnresolvedType))

	_, err = c.GetAll("A[][]")
	assert.True(t, errors.Is(err, di.ErrInvalidArrayType))

	_, err = c.GetFor("A", "Nope")
	assert.True(t, errors.Is(err, di.ErrUnresolvedType))
}

func TestGet_ListParametersAndDiscoveryOrder(t *testing.T) {
	t.Parallel()

	p1 := component(nil, "P1")
	p1.Order = 1

	c, err := di.NewRegistry().
		Type(impls("Plugin", "P1", "P2")...).
		Type(types("Host")...).
		Component(p1).
		Component(component(nil, "P2")).
		Component(component(nil, "Host", "List<Plugin>")).
		Build()
	require.NoError(t, err)

	all, err := c.GetAll("Plugin")
	require.NoError(t, err)
	assert.Equal(t, []string{"P2", "P1"}, kinds(all))

	host := di.MustResolve[*node](c, "Host")
	require.Len(t, host.args, 1)
	assert.Equal(t, []string{"P2", "P1"}, kinds(host.args[0].([]any)))
}

func TestGet_ListProducingDefinition(t *testing.T) {
	t.Parallel()

	bundle := func(any, []any) (any, error) {
		return []*node{{kind: "X1"}, {kind: "X2"}}, nil
	}

	c, err := di.NewRegistry().
		Type(types("Plugin")...).
		Factory(di.FactoryFact{Name: "bundle", Produces: "Plugin[]", Call: bundle}).
		Build()
	require.NoError(t, err)

	all, err := c.GetAll("Plugin")
	require.NoError(t, err)
	assert.Equal(t, []string{"X1", "X2"}, kinds(all))

	arr, err := c.Get("Plugin[]")
	require.NoError(t, err)
	assert.Equal(t, []string{"X1", "X2"}, kinds(arr.([]any)))

	// two instances for a singular request
	_, err = c.Get("Plugin")
	assert.True(t, errors.Is(err, di.ErrMultipleDependenciesPresent))

	t.Run("provider must return a slice", func(t *testing.T) {
		t.Parallel()

		_, err := di.NewRegistry().
			Type(types("Plugin")...).
			Factory(di.FactoryFact{Name: "bad", Produces: "List<Plugin>", Call: (*journal)(nil).provide("bad")}).
			Build()
		require.Error(t, err)
		assert.True(t, errors.Is(err, di.ErrProviderFailed))

		var wt di.WrongTypeError
		require.True(t, errors.As(err, &wt))
		assert.Equal(t, "*di_test.node", wt.GotType)
	})
}

func TestGet_PerInstanceFailureIsScoped(t *testing.T) {
	t.Parallel()

	var calls int32
	flaky := func(any, []any) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("first call fails")
		}
		return &node{kind: "F"}, nil
	}

	c, err := di.NewRegistry().
		Type(types("F")...).
		Factory(di.FactoryFact{Produces: "F", Policy: di.PerInstance, Call: flaky}).
		Build()
	require.NoError(t, err)

	_, err = c.Get("F")
	require.Error(t, err)
	var re di.ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, di.KindProviderFailed, re.Kind)

	f, err := c.Get("F")
	require.NoError(t, err)
	assert.Equal(t, "F", f.(*node).kind)
}

func TestGet_Concurrent(t *testing.T) {
	t.Parallel()

	c, err := di.NewRegistry().
		Type(types("A", "C")...).
		Component(component(nil, "A")).
		Component(perInstance(nil, "C", "A")).
		Build()
	require.NoError(t, err)

	const n = 16
	out := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get("C")
			if err == nil {
				out[i] = v
			}
		}(i)
	}
	wg.Wait()

	a := di.MustResolve[*node](c, "A")
	seen := map[any]bool{}
	for _, v := range out {
		require.NotNil(t, v)
		assert.False(t, seen[v])
		seen[v] = true
		assert.Same(t, a, v.(*node).args[0])
	}
}

//
// -----------------------------------------------------------------------------
// Injection context
// -----------------------------------------------------------------------------

func TestInjectionContext(t *testing.T) {
	t.Parallel()

	c, err := di.NewRegistry().
		Type(types("Logger", "Service", "Clock")...).
		Component(perInstance(nil, "Logger", di.ContextType)).
		Component(component(nil, "Service", "Logger")).
		Component(component(nil, "Clock", di.ContextType)).
		Build()
	require.NoError(t, err)

	ctxOf := func(v any) di.InjectionContext {
		return v.(*node).args[0].(di.InjectionContext)
	}

	svc := di.MustResolve[*node](c, "Service")
	ic := ctxOf(svc.args[0])
	assert.Equal(t, "Logger", ic.Target.Key())
	require.NotNil(t, ic.Requester)
	assert.Equal(t, "Service", ic.Requester.Key())

	top, err := c.Get("Logger")
	require.NoError(t, err)
	assert.Nil(t, ctxOf(top).Requester)

	on, err := c.GetFor("Logger", "Clock")
	require.NoError(t, err)
	require.NotNil(t, ctxOf(on).Requester)
	assert.Equal(t, "Clock", ctxOf(on).Requester.Key())

	// Once definitions never see a requester
	clock := ctxOf(di.MustResolve[*node](c, "Clock"))
	assert.Equal(t, "Clock", clock.Target.Key())
	assert.Nil(t, clock.Requester)
}

//
// -----------------------------------------------------------------------------
// Initializers
// -----------------------------------------------------------------------------

func TestInitializers_RunAfterWiring(t *testing.T) {
	t.Parallel()

	j := &journal{}
	a := component(j, "A")
	a.Fields = []di.FieldFact{{Name: "b", Type: "B", Set: set("b")}}
	a.Initializers = []di.InitializerFact{{
		Name:   "start",
		Params: []string{"B"},
		Call: func(target any, args []any) error {
			n := target.(*node)
			if n.field("b") == nil {
				return errors.New("field b not injected yet")
			}
			if args[0] != n.field("b") {
				return errors.New("initializer saw another B")
			}
			j.add("A.start")
			return nil
		},
	}}

	c, err := di.NewRegistry().Type(types("A", "B")...).Component(a).Component(component(j, "B")).Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "A.start"}, j.list())

	n := di.MustResolve[*node](c, "A")
	assert.Same(t, di.MustResolve[*node](c, "B"), n.field("b"))
}

func TestInitializers_PriorityOrderIsStable(t *testing.T) {
	t.Parallel()

	j := &journal{}
	withInit := func(typ string, prio int) di.ComponentFact {
		f := component(j, typ)
		f.Initializers = []di.InitializerFact{{
			Name:     "init",
			Priority: prio,
			Call:     func(any, []any) error { j.add(typ + ".init"); return nil },
		}}
		return f
	}

	_, err := di.NewRegistry().
		Type(types("P1", "P2", "P3")...).
		Component(withInit("P1", 5)).
		Component(withInit("P2", 1)).
		Component(withInit("P3", 1)).
		Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2", "P3", "P2.init", "P3.init", "P1.init"}, j.list())
}

func TestInitializers_DrainedPerCall(t *testing.T) {
	t.Parallel()

	j := &journal{}
	q := perInstance(j, "Q")
	q.Initializers = []di.InitializerFact{{
		Name: "q",
		Call: func(any, []any) error { j.add("Q.init"); return nil },
	}}
	p := perInstance(j, "P")
	p.Initializers = []di.InitializerFact{{
		Name:   "p",
		Params: []string{"Q"},
		Call: func(target any, args []any) error {
			n := target.(*node)
			n.inits = append(n.inits, "ready")
			j.add("P.init")
			return nil
		},
	}}

	c, err := di.NewRegistry().Type(types("P", "Q")...).Component(p).Component(q).Build()
	require.NoError(t, err)
	assert.Empty(t, j.list())

	got := di.MustResolve[*node](c, "P")
	assert.Equal(t, []string{"ready"}, got.inits)
	// the Q resolved for P's initializer queued its own initializer, which ran
	// in the next round of the same call
	assert.Equal(t, []string{"P", "Q", "P.init", "Q.init"}, j.list())
}

func TestInitializers_FailureFailsTheCall(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	p := perInstance(nil, "P")
	p.Initializers = []di.InitializerFact{{Name: "p", Call: func(any, []any) error { return boom }}}

	c, err := di.NewRegistry().Type(types("P")...).Component(p).Build()
	require.NoError(t, err)

	_, err = c.Get("P")
	assert.True(t, errors.Is(err, di.ErrProviderFailed))
	assert.True(t, errors.Is(err, boom))

	o := component(nil, "O")
	o.Initializers = p.Initializers
	_, err = di.NewRegistry().Type(types("O")...).Component(o).Build()
	var be di.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "initializers", be.Subject)
}
