package triple

import (
	"encoding/json"
	"fmt"
)

// MarshalText renders the ID as lowercase hex, so IDs embed naturally
// in JSON documents and map keys.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

// UnmarshalText parses a hex-encoded ID.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// valueJSON is the wire shape of a Value: the kind discriminant plus
// exactly one payload field.
type valueJSON struct {
	Kind   string   `json:"kind"`
	Node   *NodeID  `json:"node,omitempty"`
	String *string  `json:"string,omitempty"`
	Int    *int64   `json:"int,omitempty"`
	Float  *float64 `json:"float,omitempty"`
	Bool   *bool    `json:"bool,omitempty"`
}

// MarshalJSON encodes the value with an explicit kind tag.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Kind: v.kind.String()}
	switch v.kind {
	case KindNode:
		out.Node = &v.node
	case KindString:
		out.String = &v.str
	case KindInt:
		out.Int = &v.i
	case KindFloat:
		out.Float = &v.f
	case KindBool:
		out.Bool = &v.b
	default:
		return nil, fmt.Errorf("%w: cannot marshal zero Value", ErrSerialization)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a kind-tagged value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	switch in.Kind {
	case "node":
		if in.Node == nil {
			return fmt.Errorf("%w: node value missing payload", ErrSerialization)
		}
		*v = NodeValue(*in.Node)
	case "string":
		if in.String == nil {
			return fmt.Errorf("%w: string value missing payload", ErrSerialization)
		}
		*v = StringValue(*in.String)
	case "int":
		if in.Int == nil {
			return fmt.Errorf("%w: int value missing payload", ErrSerialization)
		}
		*v = IntValue(*in.Int)
	case "float":
		if in.Float == nil {
			return fmt.Errorf("%w: float value missing payload", ErrSerialization)
		}
		*v = FloatValue(*in.Float)
	case "bool":
		if in.Bool == nil {
			return fmt.Errorf("%w: bool value missing payload", ErrSerialization)
		}
		*v = BoolValue(*in.Bool)
	default:
		return fmt.Errorf("%w: unknown value kind %q", ErrSerialization, in.Kind)
	}
	return nil
}
