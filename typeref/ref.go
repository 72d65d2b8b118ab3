package typeref

const (
	// TopName is the universal top type every declared type descends from.
	TopName = "any"

	// ListName is the built-in single-argument collection type used for
	// multi-binding requests.
	ListName = "List"
)

// Ref is an interned type reference. Refs are created by a Resolver and are
// immutable once the resolver hands them out. Two structurally identical
// signatures resolve to the same *Ref.
//
// A Ref may be a placeholder created while its own signature was still being
// built (self-referential generic bounds); placeholders delegate to the real
// node after it is finished. All accessors follow the delegation.
type Ref struct {
	key        string
	raw        string
	lowerBound bool
	bound      *Ref
	params     []*Ref
	super      *Ref
	interfaces []*Ref
	list       bool
	array      bool
	elem       *Ref
	opaque     bool

	placeholder bool
	target      *Ref
}

func (r *Ref) deref() *Ref {
	for r != nil && r.placeholder {
		if r.target == nil {
			return r
		}
		r = r.target
	}
	return r
}

// patch points a placeholder at its finished node. A placeholder is patched once.
func (r *Ref) patch(to *Ref) {
	if !r.placeholder {
		panic("typeref: patching a non-placeholder reference " + r.key)
	}
	if r.target != nil {
		panic("typeref: placeholder patched twice for " + r.key)
	}
	r.target = to
}

// Key returns the canonical signature of the reference.
func (r *Ref) Key() string { return r.deref().key }

// String implements fmt.Stringer.
func (r *Ref) String() string {
	if r == nil {
		return "<nil>"
	}
	return r.Key()
}

// Raw returns the raw type identity (the name without generic arguments).
func (r *Ref) Raw() string { return r.deref().raw }

// LowerBound reports whether the reference is a "? super T" wildcard.
func (r *Ref) LowerBound() bool { return r.deref().lowerBound }

// Bound returns T for a "? super T" reference, nil otherwise.
func (r *Ref) Bound() *Ref { return r.deref().bound.deref() }

// Params returns the generic parameter references.
func (r *Ref) Params() []*Ref {
	d := r.deref()
	out := make([]*Ref, len(d.params))
	for i, p := range d.params {
		out[i] = p.deref()
	}
	return out
}

// Super returns the superclass link or nil.
func (r *Ref) Super() *Ref { return r.deref().super.deref() }

// Interfaces returns the interface links.
func (r *Ref) Interfaces() []*Ref {
	d := r.deref()
	out := make([]*Ref, len(d.interfaces))
	for i, p := range d.interfaces {
		out[i] = p.deref()
	}
	return out
}

// IsList reports whether the reference is a multi-binding collection
// (List<T> or T[]).
func (r *Ref) IsList() bool { return r.deref().list }

// IsArray reports whether the reference is an array type.
func (r *Ref) IsArray() bool { return r.deref().array }

// Elem returns the element reference of a list or array, nil otherwise.
func (r *Ref) Elem() *Ref { return r.deref().elem.deref() }

// IsTop reports whether the reference is the universal top type.
func (r *Ref) IsTop() bool {
	d := r.deref()
	return d.raw == TopName && !d.lowerBound && !d.list
}

// Opaque reports whether the type was declared without hierarchy metadata.
func (r *Ref) Opaque() bool { return r.deref().opaque }

// Equal reports structural equality.
func (r *Ref) Equal(o *Ref) bool {
	a, b := r.deref(), o.deref()
	if a == nil || b == nil {
		return a == b
	}
	return a == b || a.key == b.key
}

// links returns the superclass followed by the interfaces.
func (r *Ref) links() []*Ref {
	d := r.deref()
	out := make([]*Ref, 0, len(d.interfaces)+1)
	if d.super != nil {
		out = append(out, d.super.deref())
	}
	for _, i := range d.interfaces {
		out = append(out, i.deref())
	}
	return out
}

// hierarchyUnknown is true for refs without recorded supertype links whose
// hierarchy cannot be walked: opaque declarations and the top type itself.
func (r *Ref) hierarchyUnknown() bool {
	d := r.deref()
	return d.super == nil && len(d.interfaces) == 0 && (d.opaque || d.raw == TopName)
}
