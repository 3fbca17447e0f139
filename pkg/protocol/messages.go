package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cuemby/docql/pkg/cursor"
	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/value"
)

// WireValue is the JSON envelope for a value.Value traveling in a
// Query/Response/Error payload.
type WireValue struct {
	K   string               `json:"k"`
	B   bool                 `json:"b,omitempty"`
	I   int64                `json:"i,omitempty"`
	F   float64              `json:"f,omitempty"`
	S   string               `json:"s,omitempty"`
	Bin string               `json:"bin,omitempty"`
	A   []WireValue          `json:"a,omitempty"`
	O   map[string]WireValue `json:"o,omitempty"`
}

// EncodeValue converts a value.Value to its wire form.
func EncodeValue(v value.Value) WireValue {
	switch v.Kind() {
	case value.KindNull:
		return WireValue{K: "null"}
	case value.KindBool:
		b, _ := v.AsBool()
		return WireValue{K: "bool", B: b}
	case value.KindInt:
		i, _ := v.AsInt()
		return WireValue{K: "int", I: i}
	case value.KindFloat:
		f, _ := v.AsFloat()
		return WireValue{K: "float", F: f}
	case value.KindString:
		s, _ := v.AsString()
		return WireValue{K: "string", S: s}
	case value.KindBinary:
		b, _ := v.AsBinary()
		return WireValue{K: "binary", Bin: base64.StdEncoding.EncodeToString(b)}
	case value.KindArray:
		arr, _ := v.AsArray()
		out := make([]WireValue, len(arr))
		for i, e := range arr {
			out[i] = EncodeValue(e)
		}
		return WireValue{K: "array", A: out}
	case value.KindObject:
		obj, _ := v.AsObject()
		out := make(map[string]WireValue, len(obj))
		for k, e := range obj {
			out[k] = EncodeValue(e)
		}
		return WireValue{K: "object", O: out}
	default:
		return WireValue{K: "null"}
	}
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(w WireValue) (value.Value, error) {
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
		b, err := base64.StdEncoding.DecodeString(w.Bin)
		if err != nil {
			return value.Null(), fmt.Errorf("protocol: malformed binary value: %w", err)
		}
		return value.Binary(b), nil
	case "array":
		out := make([]value.Value, len(w.A))
		for i, e := range w.A {
			ev, err := DecodeValue(e)
			if err != nil {
				return value.Null(), err
			}
			out[i] = ev
		}
		return value.Array(out), nil
	case "object":
		out := make(map[string]value.Value, len(w.O))
		for k, e := range w.O {
			ev, err := DecodeValue(e)
			if err != nil {
				return value.Null(), err
			}
			out[k] = ev
		}
		return value.Object(out), nil
	default:
		return value.Null(), fmt.Errorf("protocol: unknown wire value kind %q", w.K)
	}
}

// WireSortField mirrors ir.SortField for transport.
type WireSortField struct {
	Path       []string `json:"path"`
	Separator  string   `json:"separator"`
	Descending bool     `json:"descending"`
}

// WireCursor mirrors cursor.Cursor for transport. LimitRemaining and
// SkipRemaining are not part of spec.md §6's named cursor contract
// (start_key/batch_size/sort); they are opaque evaluator-continuation
// state that must still round-trip through the client exactly like
// OrderBy's start_key offset does, so they travel here as additional
// fields a conforming client need not interpret, only echo back.
type WireCursor struct {
	StartKey       *WireValue      `json:"start_key,omitempty"`
	BatchSize      int             `json:"batch_size,omitempty"`
	Sort           []WireSortField `json:"sort,omitempty"`
	LimitRemaining *int64          `json:"limit_remaining,omitempty"`
	SkipRemaining  *int64          `json:"skip_remaining,omitempty"`
}

// EncodeCursor converts a cursor.Cursor to its wire form.
func EncodeCursor(c cursor.Cursor) WireCursor {
	out := WireCursor{
		BatchSize:      c.BatchSize,
		LimitRemaining: c.LimitRemaining,
		SkipRemaining:  c.SkipRemaining,
	}
	if c.HasStartKey {
		wv := EncodeValue(c.StartKey)
		out.StartKey = &wv
	}
	for _, f := range c.Sort {
		out.Sort = append(out.Sort, WireSortField{Path: f.Path.Segments, Separator: f.Path.Separator, Descending: f.Descending})
	}
	return out
}

// DecodeCursor is the inverse of EncodeCursor.
func DecodeCursor(w WireCursor) (cursor.Cursor, error) {
	out := cursor.Cursor{
		BatchSize:      w.BatchSize,
		LimitRemaining: w.LimitRemaining,
		SkipRemaining:  w.SkipRemaining,
	}
	if w.StartKey != nil {
		v, err := DecodeValue(*w.StartKey)
		if err != nil {
			return cursor.Cursor{}, err
		}
		out.StartKey, out.HasStartKey = v, true
	}
	for _, f := range w.Sort {
		out.Sort = append(out.Sort, ir.SortField{
			Path:       ir.FieldPath{Segments: f.Path, Separator: f.Separator},
			Descending: f.Descending,
		})
	}
	return out, nil
}

// QueryOptions carries the per-request options named in spec.md §6.
type QueryOptions struct {
	TimeoutMs int  `json:"timeout_ms,omitempty"`
	Explain   bool `json:"explain,omitempty"`
}

// Query is the TypeQuery payload: a tagged-array wire term (parsed by
// pkg/parser), a pagination cursor, and request options.
type Query struct {
	Term    WireValue    `json:"term"`
	Cursor  WireCursor   `json:"cursor,omitempty"`
	Options QueryOptions `json:"options,omitempty"`
}

// Response is the TypeResponse payload. IsStream distinguishes a
// document batch (Documents/NextCursor/HasNext meaningful) from a
// scalar result (a lookup, a count, a write summary, a DDL
// acknowledgement, or an Explain string run through Scalar as a
// string Value).
type Response struct {
	IsStream   bool        `json:"is_stream"`
	Documents  []WireValue `json:"documents,omitempty"`
	Scalar     *WireValue  `json:"scalar,omitempty"`
	NextCursor *WireCursor `json:"next_cursor,omitempty"`
	HasNext    bool        `json:"has_next,omitempty"`
}

// Error is the TypeError payload.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewQueryID generates an opaque correlation id for a client that
// omitted one (spec.md §6: query_id is "opaque").
func NewQueryID() string {
	return uuid.NewString()
}

// MarshalQuery/MarshalResponse/MarshalError/Unmarshal* are thin
// encoding/json wrappers kept here so callers never import
// encoding/json directly for these three payload shapes.

func MarshalQuery(q Query) ([]byte, error)       { return json.Marshal(q) }
func UnmarshalQuery(b []byte) (Query, error)     { var q Query; err := json.Unmarshal(b, &q); return q, err }
func MarshalResponse(r Response) ([]byte, error) { return json.Marshal(r) }
func UnmarshalResponse(b []byte) (Response, error) {
	var r Response
	err := json.Unmarshal(b, &r)
	return r, err
}
func MarshalError(e Error) ([]byte, error)   { return json.Marshal(e) }
func UnmarshalError(b []byte) (Error, error) { var e Error; err := json.Unmarshal(b, &e); return e, err }
