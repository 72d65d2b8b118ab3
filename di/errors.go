package di

import (
	"errors"
	"strconv"
	"strings"

	"github.com/sghaida/odirt/typeref"
)

// Kind classifies build and resolution failures.
type Kind int

const (
	// KindNoProvider: a component has no eligible constructor, or a fact is
	// missing its callable.
	KindNoProvider Kind = iota + 1
	// KindMultipleProviders: a component has several eligible constructors and
	// no unambiguous selection.
	KindMultipleProviders
	// KindCyclicDependency: the dependency graph has a cycle.
	KindCyclicDependency
	// KindUnresolvedType: a signature could not be resolved.
	KindUnresolvedType
	// KindInvalidArrayType: an array signature the resolver cannot model.
	KindInvalidArrayType
	// KindFinalFieldDependency: a field injection targets an immutable field.
	KindFinalFieldDependency
	// KindEventParameterCount: an event handler does not take exactly one parameter.
	KindEventParameterCount
	// KindNoDependenciesPresent: a singular request matched nothing.
	KindNoDependenciesPresent
	// KindMultipleDependenciesPresent: a singular request stayed ambiguous.
	KindMultipleDependenciesPresent
	// KindProviderFailed: a provider, setter, initializer or handler returned
	// an error or panicked.
	KindProviderFailed
)

// Sentinels matched by BuildError and ResolutionError through errors.Is.
var (
	ErrNoProvider                  = errors.New("di: no provider")
	ErrMultipleProviders           = errors.New("di: multiple providers")
	ErrCyclicDependency            = errors.New("di: cyclic dependency")
	ErrUnresolvedType              = errors.New("di: unresolved type")
	ErrInvalidArrayType            = errors.New("di: invalid array type")
	ErrFinalFieldDependency        = errors.New("di: final field dependency")
	ErrEventParameterCount         = errors.New("di: event parameter count")
	ErrNoDependenciesPresent       = errors.New("di: no dependencies present")
	ErrMultipleDependenciesPresent = errors.New("di: multiple dependencies present")
	ErrProviderFailed              = errors.New("di: provider failed")

	// ErrProviderPanic is wrapped when a provider callable panics.
	ErrProviderPanic = errors.New("di: panic in provider")
)

var kindSentinels = map[Kind]error{
	KindNoProvider:                  ErrNoProvider,
	KindMultipleProviders:           ErrMultipleProviders,
	KindCyclicDependency:            ErrCyclicDependency,
	KindUnresolvedType:              ErrUnresolvedType,
	KindInvalidArrayType:            ErrInvalidArrayType,
	KindFinalFieldDependency:        ErrFinalFieldDependency,
	KindEventParameterCount:         ErrEventParameterCount,
	KindNoDependenciesPresent:       ErrNoDependenciesPresent,
	KindMultipleDependenciesPresent: ErrMultipleDependenciesPresent,
	KindProviderFailed:              ErrProviderFailed,
}

// String returns the sentinel text without the package prefix.
func (k Kind) String() string {
	if s, ok := kindSentinels[k]; ok {
		return strings.TrimPrefix(s.Error(), "di: ")
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// Sentinel returns the package-level error value for the kind.
func (k Kind) Sentinel() error { return kindSentinels[k] }

// BuildError aborts Plan or Build. No container exists after a BuildError.
//
// It matches its kind's sentinel with errors.Is and unwraps to the cause, if any.
type BuildError struct {
	Kind Kind

	// Subject names the definition, field, handler or signature at fault.
	Subject string

	// Path is the dependency cycle for KindCyclicDependency, first element repeated last.
	Path []string

	// Err is the underlying cause (a typeref or provider error), may be nil.
	Err error
}

// Error implements the error interface.
func (e BuildError) Error() string {
	// Example: di: cyclic dependency: "A" -> "B" -> "A"
	var sb strings.Builder
	sb.WriteString(e.Kind.Sentinel().Error())
	if len(e.Path) > 0 {
		sb.WriteString(": ")
		for i, p := range e.Path {
			if i > 0 {
				sb.WriteString(" -> ")
			}
			sb.WriteString(strconv.Quote(p))
		}
	} else if e.Subject != "" {
		sb.WriteString(" for ")
		sb.WriteString(strconv.Quote(e.Subject))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Is reports whether target is the sentinel for e.Kind.
func (e BuildError) Is(target error) bool { return target == e.Kind.Sentinel() }

// Unwrap exposes the cause.
func (e BuildError) Unwrap() error { return e.Err }

// ResolutionError is scoped to a single Get, GetAll or Dispatch call. The
// container stays usable.
type ResolutionError struct {
	Kind Kind

	// Type is the canonical signature that was requested.
	Type string

	// Requester is the requesting type, empty at top level.
	Requester string

	// Candidates names the definitions left after the ambiguity rules.
	Candidates []string

	Err error
}

// Error implements the error interface.
func (e ResolutionError) Error() string {
	// Example: di: multiple dependencies present for "Store" (candidates "Mem", "Disk")
	var sb strings.Builder
	sb.WriteString(e.Kind.Sentinel().Error())
	sb.WriteString(" for ")
	sb.WriteString(strconv.Quote(e.Type))
	if e.Requester != "" {
		sb.WriteString(" requested by ")
		sb.WriteString(strconv.Quote(e.Requester))
	}
	if len(e.Candidates) > 0 {
		sb.WriteString(" (candidates ")
		for i, c := range e.Candidates {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(c))
		}
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Is reports whether target is the sentinel for e.Kind.
func (e ResolutionError) Is(target error) bool { return target == e.Kind.Sentinel() }

// Unwrap exposes the cause.
func (e ResolutionError) Unwrap() error { return e.Err }

// WrongTypeError is returned by the typed getters when the resolved instance
// is not of the requested Go type.
type WrongTypeError struct {
	// Type is the requested signature.
	Type string

	// GotType is reflect.TypeOf(instance).String().
	GotType string
}

// Error implements the error interface.
func (e WrongTypeError) Error() string {
	// Example: di: instance for "Store" has wrong type (*app.Cache)
	return "di: instance for " + strconv.Quote(e.Type) + " has wrong type (" + e.GotType + ")"
}

// typeKind maps a typeref failure onto the matching kind.
func typeKind(err error) Kind {
	if errors.Is(err, typeref.ErrInvalidArrayType) {
		return KindInvalidArrayType
	}
	return KindUnresolvedType
}
