package typeref

import (
	"errors"
	"strconv"
)

var (
	// ErrUnresolvedType is returned for malformed signatures, unknown type
	// names, wrong generic arity and invalid type declarations.
	ErrUnresolvedType = errors.New("typeref: unresolved type")

	// ErrInvalidArrayType is returned for array signatures the resolver cannot
	// model (multi-dimensional arrays, arrays of wildcards or of List).
	ErrInvalidArrayType = errors.New("typeref: invalid array type")
)

// ResolveError carries the offending signature and the reason.
// It unwraps to ErrUnresolvedType or ErrInvalidArrayType.
type ResolveError struct {
	Signature string
	Reason    string
	Err       error
}

func newResolveError(sig, reason string, kind error) *ResolveError {
	return &ResolveError{Signature: sig, Reason: reason, Err: kind}
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	// Example: typeref: unknown type "Foo" in "List<Foo>"
	return "typeref: " + e.Reason + " in " + strconv.Quote(e.Signature)
}

// Unwrap exposes the sentinel kind.
func (e *ResolveError) Unwrap() error { return e.Err }
