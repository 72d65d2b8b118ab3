package di

import (
	"strconv"

	"github.com/sghaida/odirt/typeref"
)

// Policy decides how often a definition's provider runs.
type Policy int

const (
	// Once definitions are built eagerly during Build and cached; every
	// consumer observes the same instance.
	Once Policy = iota
	// PerInstance definitions are built lazily, fresh for every request.
	PerInstance
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p {
	case Once:
		return "once"
	case PerInstance:
		return "per-instance"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParsePolicy accepts "once" and "per-instance". An empty string means Once.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "once":
		return Once, nil
	case "per-instance":
		return PerInstance, nil
	}
	return 0, UnknownPolicyError{Value: s}
}

// UnknownPolicyError is returned by ParsePolicy.
type UnknownPolicyError struct{ Value string }

// Error implements the error interface.
func (e UnknownPolicyError) Error() string {
	return "di: unknown policy " + strconv.Quote(e.Value)
}

// ProviderFunc produces an instance. owner is the resolved owner instance for
// non-static factories and nil otherwise. args follow the declared parameter
// signatures; a List or array parameter receives a []any.
type ProviderFunc func(owner any, args []any) (any, error)

// SetterFunc stores an injected value into a field of target.
type SetterFunc func(target, value any) error

// InitFunc is a post-construction initializer invoked on target.
type InitFunc func(target any, args []any) error

// HandlerFunc handles one event payload. owner is nil for static handlers.
type HandlerFunc func(owner, payload any) error

// ContextType is the signature of the contextual parameter. A parameter of
// this type receives an InjectionContext instead of a resolved dependency.
const ContextType = "InjectionContext"

// InjectionContext describes the request a definition is instantiated for.
type InjectionContext struct {
	// Target is the type the definition produces.
	Target *typeref.Ref

	// Requester is the type whose resolution asked for Target. It is only
	// set for PerInstance definitions resolved under another resolution.
	Requester *typeref.Ref
}

// Facts is the complete declarative input of Plan and Build.
type Facts struct {
	Types []typeref.TypeFact

	// Providers are ComponentFact and FactoryFact values in registration order.
	Providers []ProviderFact

	Events []EventFact
}

// ProviderFact is implemented by ComponentFact and FactoryFact.
type ProviderFact interface {
	providerFact()
}

// Constructor is one way of constructing a component.
type Constructor struct {
	Params []string

	// Selected marks the constructor to use when several exist.
	Selected bool

	Call ProviderFunc
}

// ComponentFact declares a type constructed through one of its constructors.
type ComponentFact struct {
	Type            string
	Constructors    []Constructor
	Policy          Policy
	Order           int
	DefaultFallback bool
	Fields          []FieldFact
	Initializers    []InitializerFact
}

// FactoryFact declares a factory routine. An empty Owner makes it static,
// an empty Produces makes it a side-effect-only (void) definition.
type FactoryFact struct {
	Name            string
	Owner           string
	Produces        string
	Params          []string
	Policy          Policy
	Order           int
	DefaultFallback bool
	Fields          []FieldFact
	Initializers    []InitializerFact
	Call            ProviderFunc
}

func (ComponentFact) providerFact() {}
func (FactoryFact) providerFact()   {}

// FieldFact declares a field injection.
type FieldFact struct {
	Name  string
	Type  string
	Final bool
	Set   SetterFunc
}

// InitializerFact declares a post-construction initializer.
type InitializerFact struct {
	Name     string
	Priority int
	Params   []string
	Call     InitFunc
}

// EventFact declares an event handler. Params must hold exactly one
// signature, the payload type.
type EventFact struct {
	Name   string
	Owner  string
	Params []string
	Call   HandlerFunc
}
