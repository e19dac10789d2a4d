package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a sealed interface for argument default values.
// Only NullValue, StringValue, CharValue, IntValue, BoolValue and ExprValue
// implement it. Floating point defaults are carried as ExprValue text so the
// IR never holds a float.
type Value interface {
	value()
	// Native renders the value as a native expression.
	Native() string
}

// NullValue is a null pointer default.
type NullValue struct{}

func (NullValue) value() {}

func (NullValue) Native() string { return "0" }

// StringValue is a string literal default.
type StringValue string

func (StringValue) value() {}

func (v StringValue) Native() string { return strconv.Quote(string(v)) }

// CharValue is a single character literal default.
type CharValue rune

func (CharValue) value() {}

func (v CharValue) Native() string { return strconv.QuoteRune(rune(v)) }

// IntValue is an integer default.
type IntValue int64

func (IntValue) value() {}

func (v IntValue) Native() string { return strconv.FormatInt(int64(v), 10) }

// BoolValue is a boolean default.
type BoolValue bool

func (BoolValue) value() {}

func (v BoolValue) Native() string {
	if v {
		return "true"
	}
	return "false"
}

// ExprValue is any other native expression (a scoped constant, a constructor
// call, a floating point literal).
type ExprValue string

func (ExprValue) value() {}

func (v ExprValue) Native() string { return string(v) }

type taggedValue struct {
	Kind  string `json:"kind"`
	Value any    `json:"value,omitempty"`
}

// MarshalValue encodes a value with an explicit kind tag.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case NullValue:
		return json.Marshal(taggedValue{Kind: "null"})
	case StringValue:
		return json.Marshal(taggedValue{Kind: "string", Value: string(val)})
	case CharValue:
		return json.Marshal(taggedValue{Kind: "char", Value: string(rune(val))})
	case IntValue:
		return json.Marshal(taggedValue{Kind: "int", Value: int64(val)})
	case BoolValue:
		return json.Marshal(taggedValue{Kind: "bool", Value: bool(val)})
	case ExprValue:
		return json.Marshal(taggedValue{Kind: "expr", Value: string(val)})
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

func (v NullValue) MarshalJSON() ([]byte, error)   { return MarshalValue(v) }
func (v StringValue) MarshalJSON() ([]byte, error) { return MarshalValue(v) }
func (v CharValue) MarshalJSON() ([]byte, error)   { return MarshalValue(v) }
func (v IntValue) MarshalJSON() ([]byte, error)    { return MarshalValue(v) }
func (v BoolValue) MarshalJSON() ([]byte, error)   { return MarshalValue(v) }
func (v ExprValue) MarshalJSON() ([]byte, error)   { return MarshalValue(v) }

// ParseValue builds a Value from its kind tag and payload, as found in IR
// documents.
func ParseValue(kind string, payload any) (Value, error) {
	switch kind {
	case "null":
		return NullValue{}, nil
	case "bool":
		b, ok := payload.(bool)
		if !ok {
			return nil, fmt.Errorf("bool default: got %T", payload)
		}
		return BoolValue(b), nil
	case "int":
		switch n := payload.(type) {
		case int64:
			return IntValue(n), nil
		case int:
			return IntValue(n), nil
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("int default: %w", err)
			}
			return IntValue(i), nil
		}
		return nil, fmt.Errorf("int default: got %T", payload)
	case "string", "char", "expr":
		s, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("%s default: got %T", kind, payload)
		}
		switch kind {
		case "string":
			return StringValue(s), nil
		case "char":
			r := []rune(s)
			if len(r) != 1 {
				return nil, fmt.Errorf("char default must be one character, got %q", s)
			}
			return CharValue(r[0]), nil
		}
		return ExprValue(s), nil
	default:
		return nil, fmt.Errorf("unknown default kind %q", kind)
	}
}
