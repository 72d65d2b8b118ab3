package typeref

import (
	"strings"
	"unicode"

	"github.com/alecthomas/participle"
)

// Wildcard classifies a signature as a plain type or one of the wildcard forms.
type Wildcard int

const (
	// NoWildcard is a plain (possibly parameterized) type.
	NoWildcard Wildcard = iota
	// Unbounded is the bare "?" wildcard.
	Unbounded
	// Extends is "? extends T".
	Extends
	// Super is "? super T"; it resolves to a lower-bounded reference.
	Super
)

// Signature is the parsed, structural form of a type signature such as
// "Repository<User>", "List<? extends Plugin>" or "Handler[]".
type Signature struct {
	Name     string
	Args     []Signature
	Dims     int
	Wildcard Wildcard
	Bound    *Signature
}

// grammar nodes for participle

type argNode struct {
	Wildcard *wildcardNode `parser:"  @@"`
	Type     *typeNode     `parser:"| @@"`
}

type wildcardNode struct {
	Mark  string    `parser:"@\"?\""`
	Kind  string    `parser:"[ @( \"extends\" | \"super\" )"`
	Bound *typeNode `parser:"  @@ ]"`
}

type typeNode struct {
	Name []string   `parser:"@Ident { \".\" @Ident }"`
	Args []*argNode `parser:"[ \"<\" @@ { \",\" @@ } \">\" ]"`
	Dims []string   `parser:"{ @\"[\" \"]\" }"`
}

var sigParser = participle.MustBuild(&argNode{})

// Parse parses a textual type signature.
func Parse(s string) (Signature, error) {
	if strings.TrimSpace(s) == "" {
		return Signature{}, newResolveError(s, "empty signature", ErrUnresolvedType)
	}

	node := &argNode{}
	if err := sigParser.ParseString(s, node); err != nil {
		return Signature{}, newResolveError(s, "malformed signature: "+err.Error(), ErrUnresolvedType)
	}

	sig := node.signature()
	if sig.compact() != stripSpaces(s) {
		return Signature{}, newResolveError(s, "unexpected trailing input", ErrUnresolvedType)
	}
	return sig, nil
}

// MustParse is like Parse but panics on malformed input.
// Intended for package-level vars and tests.
func MustParse(s string) Signature {
	sig, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sig
}

func (n *argNode) signature() Signature {
	if n.Wildcard != nil {
		w := n.Wildcard
		switch w.Kind {
		case "extends":
			b := w.Bound.signature()
			return Signature{Wildcard: Extends, Bound: &b}
		case "super":
			b := w.Bound.signature()
			return Signature{Wildcard: Super, Bound: &b}
		default:
			return Signature{Wildcard: Unbounded}
		}
	}
	return n.Type.signature()
}

func (n *typeNode) signature() Signature {
	sig := Signature{Name: strings.Join(n.Name, "."), Dims: len(n.Dims)}
	for _, a := range n.Args {
		sig.Args = append(sig.Args, a.signature())
	}
	return sig
}

// String renders the canonical form used as the interning key.
func (s Signature) String() string {
	var sb strings.Builder
	s.write(&sb, false)
	return sb.String()
}

// compact renders the signature with no whitespace at all; used to detect
// input the grammar silently left unconsumed.
func (s Signature) compact() string {
	var sb strings.Builder
	s.write(&sb, true)
	return sb.String()
}

func (s Signature) write(sb *strings.Builder, compact bool) {
	sep := " "
	if compact {
		sep = ""
	}
	switch s.Wildcard {
	case Unbounded:
		sb.WriteString("?")
	case Extends, Super:
		sb.WriteString("?")
		sb.WriteString(sep)
		if s.Wildcard == Extends {
			sb.WriteString("extends")
		} else {
			sb.WriteString("super")
		}
		sb.WriteString(sep)
		s.Bound.write(sb, compact)
	default:
		sb.WriteString(s.Name)
		if len(s.Args) > 0 {
			sb.WriteString("<")
			for i, a := range s.Args {
				if i > 0 {
					sb.WriteString(",")
				}
				a.write(sb, compact)
			}
			sb.WriteString(">")
		}
	}
	for i := 0; i < s.Dims; i++ {
		sb.WriteString("[]")
	}
}

// substitute replaces type variables named in env.
func (s Signature) substitute(env map[string]Signature) Signature {
	if len(env) == 0 {
		return s
	}
	if s.Bound != nil {
		b := s.Bound.substitute(env)
		s.Bound = &b
		return s
	}
	if s.Wildcard != NoWildcard {
		return s
	}
	if len(s.Args) == 0 {
		if v, ok := env[s.Name]; ok {
			v.Dims += s.Dims
			return v
		}
		return s
	}
	args := make([]Signature, len(s.Args))
	for i, a := range s.Args {
		args[i] = a.substitute(env)
	}
	s.Args = args
	return s
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
