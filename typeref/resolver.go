package typeref

import (
	"sync"
)

// TypeFact is the structural description of one declared type.
//
// Params names the type variables of a generic type. Super and Interfaces are
// signatures that may refer to those variables ("Base<T>"). A non-opaque type
// without Super descends from the top type. Opaque types have no recorded
// hierarchy at all.
type TypeFact struct {
	Name       string
	Params     []string
	Super      string
	Interfaces []string
	Opaque     bool
}

type typeDecl struct {
	fact       TypeFact
	super      *Signature
	interfaces []Signature
}

// Resolver builds and interns Refs from signatures using the declared type
// facts. It is safe for concurrent use.
type Resolver struct {
	mu       sync.Mutex
	decls    map[string]*typeDecl
	interned map[string]*Ref

	// signatures currently being built and the placeholders handed out for them
	inProgress   map[string]bool
	placeholders map[string][]*Ref

	// keys interned by the current top-level call, dropped if it fails
	journal []string
}

// NewResolver validates the facts and returns a resolver for them.
func NewResolver(facts ...TypeFact) (*Resolver, error) {
	r := &Resolver{
		decls:        make(map[string]*typeDecl, len(facts)),
		interned:     make(map[string]*Ref),
		inProgress:   make(map[string]bool),
		placeholders: make(map[string][]*Ref),
	}

	for _, f := range facts {
		if f.Name == "" {
			return nil, newResolveError(f.Name, "type declared without a name", ErrUnresolvedType)
		}
		if f.Name == TopName || f.Name == ListName {
			return nil, newResolveError(f.Name, "built-in type redeclared", ErrUnresolvedType)
		}
		if _, dup := r.decls[f.Name]; dup {
			return nil, newResolveError(f.Name, "type declared more than once", ErrUnresolvedType)
		}

		d := &typeDecl{fact: f}
		if f.Super != "" {
			s, err := Parse(f.Super)
			if err != nil {
				return nil, err
			}
			d.super = &s
		}
		for _, i := range f.Interfaces {
			s, err := Parse(i)
			if err != nil {
				return nil, err
			}
			d.interfaces = append(d.interfaces, s)
		}
		r.decls[f.Name] = d
	}

	return r, nil
}

// Known reports whether name is a declared or built-in type.
func (r *Resolver) Known(name string) bool {
	if name == TopName || name == ListName {
		return true
	}
	_, ok := r.decls[name]
	return ok
}

// Len returns the number of interned references.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.interned)
}

// Top returns the universal top type.
func (r *Resolver) Top() *Ref {
	ref, err := r.ResolveSignature(Signature{Name: TopName})
	if err != nil {
		// the top type has no dependencies and cannot fail
		panic(err)
	}
	return ref
}

// Resolve parses and resolves a textual signature.
func (r *Resolver) Resolve(sig string) (*Ref, error) {
	s, err := Parse(sig)
	if err != nil {
		return nil, err
	}
	return r.ResolveSignature(s)
}

// MustResolve is like Resolve but panics on error.
func (r *Resolver) MustResolve(sig string) *Ref {
	ref, err := r.Resolve(sig)
	if err != nil {
		panic(err)
	}
	return ref
}

// ResolveSignature resolves an already parsed signature.
func (r *Resolver) ResolveSignature(sig Signature) (*Ref, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.journal = r.journal[:0]
	ref, err := r.resolve(sig)
	if err != nil {
		for _, k := range r.journal {
			delete(r.interned, k)
		}
		r.inProgress = make(map[string]bool)
		r.placeholders = make(map[string][]*Ref)
		return nil, err
	}
	return ref.deref(), nil
}

// normalize folds the wildcard forms that carry no variance information:
// "?" is the top type and "? extends T" is T.
func normalize(sig Signature) Signature {
	if sig.Wildcard != NoWildcard && sig.Dims > 0 {
		// rejected by build
		return sig
	}
	switch sig.Wildcard {
	case Unbounded:
		return Signature{Name: TopName}
	case Extends:
		return normalize(*sig.Bound)
	}
	if len(sig.Args) > 0 {
		args := make([]Signature, len(sig.Args))
		for i, a := range sig.Args {
			args[i] = normalize(a)
		}
		sig.Args = args
	}
	if sig.Bound != nil {
		b := normalize(*sig.Bound)
		sig.Bound = &b
	}
	return sig
}

func (r *Resolver) resolve(sig Signature) (*Ref, error) {
	sig = normalize(sig)
	key := sig.String()

	if ref, ok := r.interned[key]; ok {
		return ref, nil
	}
	if r.inProgress[key] {
		ph := &Ref{key: key, placeholder: true}
		r.placeholders[key] = append(r.placeholders[key], ph)
		return ph, nil
	}

	r.inProgress[key] = true
	ref, err := r.build(key, sig)
	delete(r.inProgress, key)
	if err != nil {
		return nil, err
	}

	r.interned[key] = ref
	r.journal = append(r.journal, key)
	for _, ph := range r.placeholders[key] {
		ph.patch(ref)
	}
	delete(r.placeholders, key)
	return ref, nil
}

func (r *Resolver) build(key string, sig Signature) (*Ref, error) {
	if sig.Wildcard != NoWildcard && sig.Dims > 0 {
		return nil, newResolveError(key, "arrays of wildcards are not supported", ErrInvalidArrayType)
	}
	if sig.Wildcard == Super {
		bound, err := r.resolve(*sig.Bound)
		if err != nil {
			return nil, err
		}
		return &Ref{key: key, raw: bound.deref().raw, lowerBound: true, bound: bound}, nil
	}

	if sig.Dims > 0 {
		return r.buildArray(key, sig)
	}

	switch sig.Name {
	case TopName:
		if len(sig.Args) > 0 {
			return nil, newResolveError(key, "type "+TopName+" takes no type arguments", ErrUnresolvedType)
		}
		return &Ref{key: key, raw: TopName}, nil
	case ListName:
		if len(sig.Args) != 1 {
			return nil, newResolveError(key, "type "+ListName+" expects exactly one type argument", ErrUnresolvedType)
		}
		elem, err := r.resolve(sig.Args[0])
		if err != nil {
			return nil, err
		}
		return &Ref{key: key, raw: ListName, list: true, elem: elem, params: []*Ref{elem}}, nil
	}

	decl, ok := r.decls[sig.Name]
	if !ok {
		return nil, newResolveError(key, "unknown type "+sig.Name, ErrUnresolvedType)
	}
	if len(sig.Args) != 0 && len(sig.Args) != len(decl.fact.Params) {
		return nil, newResolveError(key, "wrong number of type arguments for "+sig.Name, ErrUnresolvedType)
	}

	ref := &Ref{key: key, raw: sig.Name, opaque: decl.fact.Opaque}

	env := make(map[string]Signature, len(decl.fact.Params))
	for i, p := range decl.fact.Params {
		if len(sig.Args) == 0 {
			env[p] = Signature{Name: TopName}
			continue
		}
		env[p] = sig.Args[i]
	}
	for _, a := range sig.Args {
		pr, err := r.resolve(a)
		if err != nil {
			return nil, err
		}
		ref.params = append(ref.params, pr)
	}

	if decl.fact.Opaque {
		return ref, nil
	}

	superSig := Signature{Name: TopName}
	if decl.super != nil {
		superSig = decl.super.substitute(env)
	}
	super, err := r.resolve(superSig)
	if err != nil {
		return nil, err
	}
	ref.super = super

	for _, i := range decl.interfaces {
		ir, err := r.resolve(i.substitute(env))
		if err != nil {
			return nil, err
		}
		ref.interfaces = append(ref.interfaces, ir)
	}
	return ref, nil
}

func (r *Resolver) buildArray(key string, sig Signature) (*Ref, error) {
	if sig.Dims > 1 {
		return nil, newResolveError(key, "multi-dimensional arrays are not supported", ErrInvalidArrayType)
	}
	if sig.Name == ListName {
		return nil, newResolveError(key, "arrays of "+ListName+" are not supported", ErrInvalidArrayType)
	}

	elemSig := sig
	elemSig.Dims = 0
	elem, err := r.resolve(elemSig)
	if err != nil {
		return nil, err
	}
	return &Ref{key: key, raw: key, list: true, array: true, elem: elem}, nil
}
