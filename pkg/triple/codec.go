package triple

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Canonical binary encoding of a triple.
//
// Field order is fixed (subject, predicate, object), every field carries
// an explicit type tag, and every variable-length field is length-prefixed
// with a big-endian uint32. The length prefixes keep concatenations
// unambiguous: "alice"+"knows" and "alic"+"eknows" encode differently.
//
// The same byte form is both the hash input for ID computation (id.go)
// and the storage value shared by every backend.
const (
	tagNamedNode byte = 0x01
	tagBlankNode byte = 0x02
	tagPredicate byte = 0x03

	tagObjNode   byte = 0x10
	tagObjString byte = 0x11
	tagObjInt    byte = 0x12
	tagObjFloat  byte = 0x13
	tagObjBool   byte = 0x14
)

// Encode serializes a triple into its canonical byte form.
func Encode(t Triple) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 16+len(t.Subject.Name)+len(t.Predicate))
	buf = appendNode(buf, t.Subject)
	buf = appendString(buf, tagPredicate, string(t.Predicate))

	switch t.Object.Kind() {
	case KindNode:
		n, _ := t.Object.Node()
		buf = append(buf, tagObjNode)
		buf = appendNode(buf, n)
	case KindString:
		s, _ := t.Object.Str()
		buf = appendString(buf, tagObjString, s)
	case KindInt:
		i, _ := t.Object.Int()
		buf = append(buf, tagObjInt)
		buf = binary.BigEndian.AppendUint64(buf, uint64(i))
	case KindFloat:
		f, _ := t.Object.Float()
		buf = append(buf, tagObjFloat)
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(f))
	case KindBool:
		b, _ := t.Object.Bool()
		buf = append(buf, tagObjBool)
		if b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	return buf, nil
}

// Decode parses a canonical byte form back into a triple.
func Decode(data []byte) (Triple, error) {
	var t Triple

	subject, rest, err := readNode(data)
	if err != nil {
		return t, fmt.Errorf("%w: subject: %v", ErrSerialization, err)
	}
	t.Subject = subject

	pred, rest, err := readString(rest, tagPredicate)
	if err != nil {
		return t, fmt.Errorf("%w: predicate: %v", ErrSerialization, err)
	}
	t.Predicate = Predicate(pred)

	if len(rest) == 0 {
		return t, fmt.Errorf("%w: missing object", ErrSerialization)
	}

	switch rest[0] {
	case tagObjNode:
		n, tail, err := readNode(rest[1:])
		if err != nil {
			return t, fmt.Errorf("%w: object node: %v", ErrSerialization, err)
		}
		rest = tail
		t.Object = NodeValue(n)
	case tagObjString:
		s, tail, err := readString(rest, tagObjString)
		if err != nil {
			return t, fmt.Errorf("%w: object string: %v", ErrSerialization, err)
		}
		rest = tail
		t.Object = StringValue(s)
	case tagObjInt:
		if len(rest) < 9 {
			return t, fmt.Errorf("%w: truncated int object", ErrSerialization)
		}
		t.Object = IntValue(int64(binary.BigEndian.Uint64(rest[1:9])))
		rest = rest[9:]
	case tagObjFloat:
		if len(rest) < 9 {
			return t, fmt.Errorf("%w: truncated float object", ErrSerialization)
		}
		t.Object = FloatValue(math.Float64frombits(binary.BigEndian.Uint64(rest[1:9])))
		rest = rest[9:]
	case tagObjBool:
		if len(rest) < 2 {
			return t, fmt.Errorf("%w: truncated bool object", ErrSerialization)
		}
		t.Object = BoolValue(rest[1] == 1)
		rest = rest[2:]
	default:
		return t, fmt.Errorf("%w: unknown object tag 0x%02x", ErrSerialization, rest[0])
	}

	if len(rest) != 0 {
		return t, fmt.Errorf("%w: %d trailing bytes", ErrSerialization, len(rest))
	}
	return t, nil
}

func appendNode(buf []byte, n NodeID) []byte {
	tag := tagNamedNode
	if n.Blank {
		tag = tagBlankNode
	}
	return appendString(buf, tag, n.Name)
}

func appendString(buf []byte, tag byte, s string) []byte {
	buf = append(buf, tag)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func readNode(data []byte) (NodeID, []byte, error) {
	if len(data) == 0 {
		return NodeID{}, nil, fmt.Errorf("truncated node")
	}
	switch data[0] {
	case tagNamedNode:
		name, rest, err := readString(data, tagNamedNode)
		return NodeID{Name: name}, rest, err
	case tagBlankNode:
		name, rest, err := readString(data, tagBlankNode)
		return NodeID{Name: name, Blank: true}, rest, err
	default:
		return NodeID{}, nil, fmt.Errorf("unknown node tag 0x%02x", data[0])
	}
}

func readString(data []byte, tag byte) (string, []byte, error) {
	if len(data) < 5 {
		return "", nil, fmt.Errorf("truncated field")
	}
	if data[0] != tag {
		return "", nil, fmt.Errorf("expected tag 0x%02x, got 0x%02x", tag, data[0])
	}
	n := binary.BigEndian.Uint32(data[1:5])
	if uint32(len(data)-5) < n {
		return "", nil, fmt.Errorf("declared length %d exceeds remaining %d bytes", n, len(data)-5)
	}
	return string(data[5 : 5+n]), data[5+n:], nil
}
