// Package triple defines the canonical triple model for the logicgraph
// core: node identities, the value sum type, immutable triples, and
// their content-addressed identifiers.
//
// A triple is the atomic fact <subject, predicate, object>. Triples are
// never mutated after creation; an update is modeled as delete-then-insert.
// Two value-identical triples always share the same ID (see id.go), which
// is the storage key and the unit of deduplication.
package triple

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// NodeID identifies a graph entity. A node is either named (stable
// external identifier) or blank (system-generated, no external meaning).
// Equality is structural.
type NodeID struct {
	Name  string
	Blank bool
}

// NewNodeID creates a named node.
func NewNodeID(name string) NodeID {
	return NodeID{Name: name}
}

// NewBlankNode mints a blank node with a unique system identifier.
func NewBlankNode() NodeID {
	return NodeID{Name: uuid.NewString(), Blank: true}
}

// String returns the node in Turtle-ish notation ("_:" prefix for blanks).
func (n NodeID) String() string {
	if n.Blank {
		return "_:" + n.Name
	}
	return n.Name
}

// IsZero reports whether the node is the empty NodeID.
func (n NodeID) IsZero() bool {
	return n.Name == "" && !n.Blank
}

// Predicate is a named relationship label, compared by string equality.
type Predicate string

// String returns the predicate label.
func (p Predicate) String() string {
	return string(p)
}

// ValueKind discriminates the Value sum type.
type ValueKind uint8

const (
	KindNode ValueKind = iota + 1
	KindString
	KindInt
	KindFloat
	KindBool
)

// String returns a short name for the kind.
func (k ValueKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is the object of a triple: a reference to another node, a string
// literal, a 64-bit integer, a double, or a boolean. The zero Value is
// invalid. Value is comparable, so it can key index maps directly.
type Value struct {
	kind ValueKind
	node NodeID
	str  string
	i    int64
	f    float64
	b    bool
}

// NodeValue wraps a node reference as an object value.
func NodeValue(n NodeID) Value { return Value{kind: KindNode, node: n} }

// StringValue wraps a string literal.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntValue wraps a 64-bit integer.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps a double-precision float.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the value's discriminant. Zero for the invalid zero Value.
func (v Value) Kind() ValueKind { return v.kind }

// Node returns the node reference and whether the value holds one.
func (v Value) Node() (NodeID, bool) { return v.node, v.kind == KindNode }

// Str returns the string literal and whether the value holds one.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Int returns the integer and whether the value holds one.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float and whether the value holds one.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Bool returns the boolean and whether the value holds one.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Native returns the underlying Go value (NodeID, string, int64,
// float64 or bool). Returns nil for the zero Value.
func (v Value) Native() any {
	switch v.kind {
	case KindNode:
		return v.node
	case KindString:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports structural equality.
func (v Value) Equal(other Value) bool { return v == other }

// String returns a human-readable representation of the value.
func (v Value) String() string {
	switch v.kind {
	case KindNode:
		return v.node.String()
	case KindString:
		return strconv.Quote(v.str)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// Triple is an immutable subject-predicate-object fact.
type Triple struct {
	Subject   NodeID
	Predicate Predicate
	Object    Value
}

// New creates a triple from its three components.
func New(subject NodeID, predicate Predicate, object Value) Triple {
	return Triple{Subject: subject, Predicate: predicate, Object: object}
}

// String returns a human-readable representation of the triple.
func (t Triple) String() string {
	return fmt.Sprintf("<%s, %s, %s>", t.Subject, t.Predicate, t.Object)
}

// Validate checks that all required fields are present.
func (t Triple) Validate() error {
	if t.Subject.IsZero() {
		return fmt.Errorf("%w: subject cannot be empty", ErrInvalidTriple)
	}
	if t.Predicate == "" {
		return fmt.Errorf("%w: predicate cannot be empty", ErrInvalidTriple)
	}
	if t.Object.Kind() == 0 {
		return fmt.Errorf("%w: object cannot be the zero value", ErrInvalidTriple)
	}
	return nil
}

// Equal reports structural equality of two triples.
func (t Triple) Equal(other Triple) bool {
	return t == other
}
