package di_test

import (
	"sync"

	"github.com/sghaida/odirt/di"
	"github.com/sghaida/odirt/typeref"
)

// node is the instance every test provider produces.
type node struct {
	kind   string
	owner  any
	args   []any
	mu     sync.Mutex
	fields map[string]any
	inits  []string
}

func (n *node) field(name string) any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fields[name]
}

// journal records provider and initializer activity in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) count(s string) int {
	n := 0
	for _, e := range j.list() {
		if e == s {
			n++
		}
	}
	return n
}

// provide returns a provider producing a *node of kind and logging it.
func (j *journal) provide(kind string) di.ProviderFunc {
	return func(owner any, args []any) (any, error) {
		if j != nil {
			j.add(kind)
		}
		return &node{kind: kind, owner: owner, args: args, fields: map[string]any{}}, nil
	}
}

func set(name string) di.SetterFunc {
	return func(target, value any) error {
		n := target.(*node)
		n.mu.Lock()
		defer n.mu.Unlock()
		n.fields[name] = value
		return nil
	}
}

func types(names ...string) []typeref.TypeFact {
	out := make([]typeref.TypeFact, len(names))
	for i, n := range names {
		out[i] = typeref.TypeFact{Name: n}
	}
	return out
}

func component(j *journal, typ string, params ...string) di.ComponentFact {
	return di.ComponentFact{
		Type:         typ,
		Constructors: []di.Constructor{{Params: params, Call: j.provide(typ)}},
	}
}

func perInstance(j *journal, typ string, params ...string) di.ComponentFact {
	f := component(j, typ, params...)
	f.Policy = di.PerInstance
	return f
}

func kinds(xs []any) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = x.(*node).kind
	}
	return out
}
