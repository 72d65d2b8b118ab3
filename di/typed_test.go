package di_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/sghaida/odirt/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type english struct{ name string }

func (e english) Greet() string { return "hello " + e.name }

func typedContainer(t *testing.T) *di.Container {
	t.Helper()

	c, err := di.NewRegistry().
		Type(types("Name", "Greeter", "Other")...).
		Value("Name", "gopher").
		Factory(di.FactoryFact{
			Produces: "Greeter",
			Params:   []string{"Name"},
			Call: func(_ any, args []any) (any, error) {
				return english{name: di.Arg[string](args, 0)}, nil
			},
		}).
		Factory(di.FactoryFact{
			Name:     "broken",
			Produces: "Other",
			Policy:   di.PerInstance,
			Params:   []string{"Name"},
			Call: func(_ any, args []any) (any, error) {
				return di.Arg[int](args, 0), nil
			},
		}).
		Build()
	require.NoError(t, err)
	return c
}

func TestResolve_Typed(t *testing.T) {
	t.Parallel()

	c := typedContainer(t)

	g, err := di.Resolve[greeter](c, "Greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello gopher", g.Greet())

	name, ok := di.TryResolve[string](c, "Name")
	assert.True(t, ok)
	assert.Equal(t, "gopher", name)

	all, err := di.ResolveAll[string](c, "Name")
	require.NoError(t, err)
	assert.Equal(t, []string{"gopher"}, all)
}

func TestResolve_WrongType(t *testing.T) {
	t.Parallel()

	c := typedContainer(t)

	_, err := di.Resolve[int](c, "Name")
	require.Error(t, err)

	var wt di.WrongTypeError
	require.True(t, errors.As(err, &wt))
	assert.Equal(t, "Name", wt.Type)
	assert.Equal(t, "string", wt.GotType)
	assert.Equal(t, `di: instance for "Name" has wrong type (string)`, wt.Error())

	_, err = di.ResolveAll[int](c, "Name")
	assert.True(t, errors.As(err, &wt))

	_, ok := di.TryResolve[int](c, "Name")
	assert.False(t, ok)
}

func TestResolve_Missing(t *testing.T) {
	t.Parallel()

	c := typedContainer(t)

	_, err := di.Resolve[string](c, "Nope")
	assert.True(t, errors.Is(err, di.ErrUnresolvedType))

	assert.Panics(t, func() { di.MustResolve[string](c, "Nope") })
}

func TestArg_PanicsInsideProviderBecomeErrors(t *testing.T) {
	t.Parallel()

	c := typedContainer(t)

	_, err := c.Get("Other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, di.ErrProviderFailed))
	assert.True(t, errors.Is(err, di.ErrProviderPanic))
	assert.Contains(t, err.Error(), "has wrong type (string)")

	assert.Panics(t, func() { di.Arg[string](nil, 0) })
}

func TestProvide_AdaptsTypedConstructors(t *testing.T) {
	t.Parallel()

	c, err := di.NewRegistry().
		Type(types("Name", "Port", "Debug", "Addr", "Banner", "Full", "Zero")...).
		Value("Name", "api").
		Value("Port", 8080).
		Value("Debug", true).
		Factory(di.FactoryFact{Produces: "Zero", Call: di.Provide0(func() (int, error) { return 0, nil })}).
		Factory(di.FactoryFact{
			Produces: "Banner",
			Params:   []string{"Name"},
			Call:     di.Provide1(func(n string) (string, error) { return "[" + n + "]", nil }),
		}).
		Factory(di.FactoryFact{
			Produces: "Addr",
			Params:   []string{"Name", "Port"},
			Call: di.Provide2(func(n string, p int) (string, error) {
				return n + ":" + strconv.Itoa(p), nil
			}),
		}).
		Factory(di.FactoryFact{
			Produces: "Full",
			Params:   []string{"Name", "Port", "Debug"},
			Call: di.Provide3(func(n string, p int, d bool) (string, error) {
				return n + ":" + strconv.Itoa(p) + ":" + strconv.FormatBool(d), nil
			}),
		}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 0, di.MustResolve[int](c, "Zero"))
	assert.Equal(t, "[api]", di.MustResolve[string](c, "Banner"))
	assert.Equal(t, "api:8080", di.MustResolve[string](c, "Addr"))
	assert.Equal(t, "api:8080:true", di.MustResolve[string](c, "Full"))
}

func TestProvide_MismatchedParamsFailBuild(t *testing.T) {
	t.Parallel()

	_, err := di.NewRegistry().
		Type(types("Name", "Banner")...).
		Value("Name", "api").
		Factory(di.FactoryFact{
			Produces: "Banner",
			Params:   []string{"Name"},
			Call:     di.Provide1(func(p int) (int, error) { return p, nil }),
		}).
		Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, di.ErrProviderPanic))
}
