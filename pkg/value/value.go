// Package value implements the dynamic, self-describing document value
// model: a tagged union over null, bool, int64, float64, string, binary,
// array, and object, with a total cross-type ordering, structural
// equality, and truthiness rules.
package value

import (
	"bytes"
	"fmt"
	"sort"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBinary
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// orderClass groups kinds that participate in the same tier of the
// total ordering defined in spec.md §3: null < bool < number < string
// < binary < array < object. Int and Float share a tier so that
// numeric comparison, not tag comparison, decides their relative order.
func (k Kind) orderClass() int {
	switch k {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindString:
		return 3
	case KindBinary:
		return 4
	case KindArray:
		return 5
	case KindObject:
		return 6
	default:
		return 7
	}
}

// Value is a tagged union over the document value kinds. It is a plain
// struct, not an interface{}, so operators dispatch on Kind() rather
// than reflection.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	bin  []byte
	arr  []Value
	obj  map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a 64-bit integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a 64-bit float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Binary wraps an opaque byte slice. The slice is copied.
func Binary(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBinary, bin: cp}
}

// Array wraps an ordered list of values. The slice is copied.
func Array(vs []Value) Value {
	cp := make([]Value, len(vs))
	copy(cp, vs)
	return Value{kind: KindArray, arr: cp}
}

// Object wraps a string-keyed map of values. The map is copied.
func Object(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindObject, obj: cp}
}

// EmptyObject returns a fresh, empty object value.
func EmptyObject() Value { return Object(nil) }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload and whether the kind matched.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt returns the int64 payload and whether the kind matched.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns the float64 payload and whether the kind matched.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsNumber returns the payload of either KindInt or KindFloat widened
// to float64, and whether the kind was numeric.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// AsString returns the string payload and whether the kind matched.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBinary returns a copy of the binary payload and whether the kind matched.
func (v Value) AsBinary() ([]byte, bool) {
	if v.kind != KindBinary {
		return nil, false
	}
	cp := make([]byte, len(v.bin))
	copy(cp, v.bin)
	return cp, true
}

// AsArray returns the element slice and whether the kind matched. The
// returned slice aliases internal storage and must not be mutated.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsObject returns the field map and whether the kind matched. The
// returned map aliases internal storage and must not be mutated.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// IsScalarPrimitive reports whether v is a string, int, or bool — the
// kinds allowed for a document's primary key (spec.md §3).
func (v Value) IsScalarPrimitive() bool {
	switch v.kind {
	case KindString, KindInt, KindBool:
		return true
	default:
		return false
	}
}

// SortedKeys returns an object's keys in ascending order. Returns nil
// for non-objects.
func (v Value) SortedKeys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field returns the value of an object field, or (Null(), false) if
// absent or v is not an object.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	f, ok := v.obj[name]
	return f, ok
}

// WithField returns a copy of the object with field set to val.
// Returns v unchanged if v is not an object.
func (v Value) WithField(name string, val Value) Value {
	if v.kind != KindObject {
		return v
	}
	out := make(map[string]Value, len(v.obj)+1)
	for k, fv := range v.obj {
		out[k] = fv
	}
	out[name] = val
	return Value{kind: KindObject, obj: out}
}

// WithoutField returns a copy of the object with field removed.
// Returns v unchanged if v is not an object.
func (v Value) WithoutField(name string) Value {
	if v.kind != KindObject {
		return v
	}
	out := make(map[string]Value, len(v.obj))
	for k, fv := range v.obj {
		if k != name {
			out[k] = fv
		}
	}
	return Value{kind: KindObject, obj: out}
}

// Len returns the number of elements for string/binary/array/object
// kinds; used by Truthy for emptiness checks.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len(v.s)
	case KindBinary:
		return len(v.bin)
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Truthy implements spec.md §4.2's truthiness rule: false, null, 0,
// 0.0, and empty string/array/object are falsy; everything else,
// including empty binary, is truthy (binary is not named among the
// falsy emptiness cases in the spec).
func Truthy(v Value) bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return len(v.s) != 0
	case KindArray:
		return len(v.arr) != 0
	case KindObject:
		return len(v.obj) != 0
	default:
		return true
	}
}

// Not inverts truthiness, returning a bool Value.
func Not(v Value) Value { return Bool(!Truthy(v)) }

// Equal implements structural equality: int64 and float64 compare
// equal when numerically equal and the integer is exactly
// representable as a float64. All other cross-kind pairs are unequal.
func Equal(a, b Value) bool {
	if a.kind == b.kind {
		switch a.kind {
		case KindNull:
			return true
		case KindBool:
			return a.b == b.b
		case KindInt:
			return a.i == b.i
		case KindFloat:
			return a.f == b.f
		case KindString:
			return a.s == b.s
		case KindBinary:
			return bytes.Equal(a.bin, b.bin)
		case KindArray:
			if len(a.arr) != len(b.arr) {
				return false
			}
			for i := range a.arr {
				if !Equal(a.arr[i], b.arr[i]) {
					return false
				}
			}
			return true
		case KindObject:
			if len(a.obj) != len(b.obj) {
				return false
			}
			for k, av := range a.obj {
				bv, ok := b.obj[k]
				if !ok || !Equal(av, bv) {
					return false
				}
			}
			return true
		}
	}
	// Cross-kind: only int/float numeric equivalence is allowed.
	if (a.kind == KindInt && b.kind == KindFloat) || (a.kind == KindFloat && b.kind == KindInt) {
		return numEqual(a, b)
	}
	return false
}

func numEqual(a, b Value) bool {
	var i int64
	var f float64
	if a.kind == KindInt {
		i, f = a.i, b.f
	} else {
		i, f = b.i, a.f
	}
	if float64(i) != f {
		return false
	}
	// Exact representability: converting back must recover i.
	return int64(f) == i
}

// Compare implements the total ordering over all value kinds defined
// in spec.md §3. It returns -1, 0, or 1.
func Compare(a, b Value) int {
	ca, cb := a.kind.orderClass(), b.kind.orderClass()
	if ca != cb {
		if ca < cb {
			return -1
		}
		return 1
	}
	switch ca {
	case 0: // null
		return 0
	case 1: // bool
		return cmpBool(a.b, b.b)
	case 2: // number
		return cmpNumber(a, b)
	case 3: // string
		return cmpString(a.s, b.s)
	case 4: // binary
		return bytes.Compare(a.bin, b.bin)
	case 5: // array
		return cmpArray(a.arr, b.arr)
	case 6: // object
		return cmpObject(a, b)
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func cmpNumber(a, b Value) int {
	if a.kind == KindInt && b.kind == KindInt {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		default:
			return 0
		}
	}
	af, _ := a.AsNumber()
	bf, _ := b.AsNumber()
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpArray(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// cmpObject compares two objects lexicographically by key/value pairs
// in key-sorted order, per spec.md §3.
func cmpObject(a, b Value) int {
	ak, bk := a.SortedKeys(), b.SortedKeys()
	n := len(ak)
	if len(bk) < n {
		n = len(bk)
	}
	for i := 0; i < n; i++ {
		if c := cmpString(ak[i], bk[i]); c != 0 {
			return c
		}
		if c := Compare(a.obj[ak[i]], b.obj[bk[i]]); c != 0 {
			return c
		}
	}
	switch {
	case len(ak) < len(bk):
		return -1
	case len(ak) > len(bk):
		return 1
	default:
		return 0
	}
}

// String renders a Value for diagnostics (Explain output, error
// messages). It is not a stable serialization format.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBinary:
		return fmt.Sprintf("binary(%d bytes)", len(v.bin))
	case KindArray:
		return fmt.Sprintf("array(%d)", len(v.arr))
	case KindObject:
		return fmt.Sprintf("object(%d)", len(v.obj))
	default:
		return "?"
	}
}
