package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/cuemby/docql/pkg/value"
)

// wireValue is the on-disk JSON shape for a value.Value. Using an
// explicit tagged envelope (rather than letting a string map straight
// to JSON) keeps int vs float and string vs binary distinguishable
// across a round trip, which plain encoding/json cannot do on its own.
type wireValue struct {
	K string       `json:"k"`
	B bool         `json:"b,omitempty"`
	I int64        `json:"i,omitempty"`
	F float64      `json:"f,omitempty"`
	S string       `json:"s,omitempty"`
	Bin string     `json:"bin,omitempty"` // base64
	A   []wireValue          `json:"a,omitempty"`
	O   map[string]wireValue `json:"o,omitempty"`
}

// MarshalDocument serializes a document Value to JSON bytes for
// storage in a data bucket.
func MarshalDocument(v value.Value) ([]byte, error) {
	return json.Marshal(toWire(v))
}

// UnmarshalDocument is the inverse of MarshalDocument.
func UnmarshalDocument(b []byte) (value.Value, error) {
	var w wireValue
	if err := json.Unmarshal(b, &w); err != nil {
		return value.Null(), fmt.Errorf("storage: malformed document: %w", err)
	}
	return fromWire(w)
}

func toWire(v value.Value) wireValue {
	switch v.Kind() {
	case value.KindNull:
		return wireValue{K: "null"}
	case value.KindBool:
		b, _ := v.AsBool()
		return wireValue{K: "bool", B: b}
	case value.KindInt:
		i, _ := v.AsInt()
		return wireValue{K: "int", I: i}
	case value.KindFloat:
		f, _ := v.AsFloat()
		return wireValue{K: "float", F: f}
	case value.KindString:
		s, _ := v.AsString()
		return wireValue{K: "string", S: s}
	case value.KindBinary:
		bin, _ := v.AsBinary()
		return wireValue{K: "binary", Bin: base64.StdEncoding.EncodeToString(bin)}
	case value.KindArray:
		arr, _ := v.AsArray()
		out := make([]wireValue, len(arr))
		for i, e := range arr {
			out[i] = toWire(e)
		}
		return wireValue{K: "array", A: out}
	case value.KindObject:
		obj, _ := v.AsObject()
		out := make(map[string]wireValue, len(obj))
		for k, e := range obj {
			out[k] = toWire(e)
		}
		return wireValue{K: "object", O: out}
	default:
		return wireValue{K: "null"}
	}
}

func fromWire(w wireValue) (value.Value, error) {
	switch w.K {
	case "null", "":
		return value.Null(), nil
	case "bool":
		return value.Bool(w.B), nil
	case "int":
		return value.Int(w.I), nil
	case "float":
		return value.Float(w.F), nil
	case "string":
		return value.String(w.S), nil
	case "binary":
		bin, err := base64.StdEncoding.DecodeString(w.Bin)
		if err != nil {
			return value.Null(), fmt.Errorf("storage: malformed binary value: %w", err)
		}
		return value.Binary(bin), nil
	case "array":
		out := make([]value.Value, len(w.A))
		for i, e := range w.A {
			ev, err := fromWire(e)
			if err != nil {
				return value.Null(), err
			}
			out[i] = ev
		}
		return value.Array(out), nil
	case "object":
		out := make(map[string]value.Value, len(w.O))
		for k, e := range w.O {
			ev, err := fromWire(e)
			if err != nil {
				return value.Null(), err
			}
			out[k] = ev
		}
		return value.Object(out), nil
	default:
		return value.Null(), fmt.Errorf("storage: unknown wire kind %q", w.K)
	}
}
