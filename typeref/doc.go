// Package typeref models generics-aware type references and the assignability
// predicate used to match providers against requests.
//
// Types are described declaratively with TypeFact values (name, type
// parameters, superclass and interface signatures). A Resolver turns textual
// signatures such as
//
//	Repository<User>
//	List<? extends Plugin>
//	? super Event
//	Handler[]
//
// into interned *Ref nodes: two structurally identical signatures always
// resolve to the same node. Self-referential generic bounds
// (Money implements Comparable<Money>) are built through placeholder nodes
// that are patched once the real node exists.
//
// IsAssignableFrom answers whether a candidate type can be supplied where a
// requested type is expected. It is a pure function of the two references.
//
// Built-in names: "any" is the universal top type and "List" is the
// single-argument collection used for multi-binding requests.
package typeref
