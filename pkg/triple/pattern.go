package triple

import "strings"

// Pattern is a triple template with optional wildcard fields. A nil
// field matches anything. Patterns drive both store queries and rule
// conditions.
type Pattern struct {
	Subject   *NodeID
	Predicate *Predicate
	Object    *Value
}

// Any returns the all-wildcard pattern.
func Any() Pattern {
	return Pattern{}
}

// WithSubject returns a copy of the pattern with the subject bound.
func (p Pattern) WithSubject(n NodeID) Pattern {
	p.Subject = &n
	return p
}

// WithPredicate returns a copy of the pattern with the predicate bound.
func (p Pattern) WithPredicate(pred Predicate) Pattern {
	p.Predicate = &pred
	return p
}

// WithObject returns a copy of the pattern with the object bound.
func (p Pattern) WithObject(v Value) Pattern {
	p.Object = &v
	return p
}

// IsWildcard reports whether no field is bound.
func (p Pattern) IsWildcard() bool {
	return p.Subject == nil && p.Predicate == nil && p.Object == nil
}

// Matches reports whether the triple satisfies every bound field.
func (p Pattern) Matches(t Triple) bool {
	if p.Subject != nil && *p.Subject != t.Subject {
		return false
	}
	if p.Predicate != nil && *p.Predicate != t.Predicate {
		return false
	}
	if p.Object != nil && !p.Object.Equal(t.Object) {
		return false
	}
	return true
}

// String returns the pattern with "?" for wildcard fields.
func (p Pattern) String() string {
	var b strings.Builder
	b.WriteByte('<')
	if p.Subject != nil {
		b.WriteString(p.Subject.String())
	} else {
		b.WriteByte('?')
	}
	b.WriteString(", ")
	if p.Predicate != nil {
		b.WriteString(p.Predicate.String())
	} else {
		b.WriteByte('?')
	}
	b.WriteString(", ")
	if p.Object != nil {
		b.WriteString(p.Object.String())
	} else {
		b.WriteByte('?')
	}
	b.WriteByte('>')
	return b.String()
}
