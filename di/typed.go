package di

import "reflect"

// Resolve returns the single instance for sig typed as T.
//
// It returns the container's ResolutionError unchanged, or a WrongTypeError
// if the instance is not a T.
func Resolve[T any](c *Container, sig string) (T, error) {
	var zero T
	raw, err := c.Get(sig)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, WrongTypeError{Type: sig, GotType: typeName(raw)}
	}
	return v, nil
}

// ResolveAll returns every instance matching sig typed as T. It fails with a
// WrongTypeError on the first instance that is not a T.
func ResolveAll[T any](c *Container, sig string) ([]T, error) {
	raw, err := c.GetAll(sig)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		v, ok := r.(T)
		if !ok {
			return nil, WrongTypeError{Type: sig, GotType: typeName(r)}
		}
		out = append(out, v)
	}
	return out, nil
}

// TryResolve is Resolve without the error detail.
func TryResolve[T any](c *Container, sig string) (T, bool) {
	v, err := Resolve[T](c, sig)
	return v, err == nil
}

// MustResolve returns the instance for sig or panics.
// Useful in composition roots where a missing dependency should fail fast.
func MustResolve[T any](c *Container, sig string) T {
	v, err := Resolve[T](c, sig)
	if err != nil {
		panic(err)
	}
	return v
}

// Arg returns args[i] as T. It panics when the argument is missing or of
// another type; inside a provider the panic surfaces as a
// KindProviderFailed error wrapping ErrProviderPanic.
func Arg[T any](args []any, i int) T {
	if i < 0 || i >= len(args) {
		panic("di: provider argument index out of range")
	}
	v, ok := args[i].(T)
	if !ok {
		want := reflect.TypeOf((*T)(nil)).Elem().String()
		panic(WrongTypeError{Type: want, GotType: typeName(args[i])})
	}
	return v
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}

// Provide0 adapts a parameterless constructor to a ProviderFunc.
func Provide0[T any](fn func() (T, error)) ProviderFunc {
	return func(any, []any) (any, error) { return fn() }
}

// Provide1 adapts a one-parameter constructor to a ProviderFunc.
func Provide1[A, T any](fn func(A) (T, error)) ProviderFunc {
	return func(_ any, args []any) (any, error) {
		return fn(Arg[A](args, 0))
	}
}

// Provide2 adapts a two-parameter constructor to a ProviderFunc.
func Provide2[A, B, T any](fn func(A, B) (T, error)) ProviderFunc {
	return func(_ any, args []any) (any, error) {
		return fn(Arg[A](args, 0), Arg[B](args, 1))
	}
}

// Provide3 adapts a three-parameter constructor to a ProviderFunc.
func Provide3[A, B, C, T any](fn func(A, B, C) (T, error)) ProviderFunc {
	return func(_ any, args []any) (any, error) {
		return fn(Arg[A](args, 0), Arg[B](args, 1), Arg[C](args, 2))
	}
}
