package parser

import (
	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/value"
)

func asArray(v value.Value, what string) ([]value.Value, error) {
	if v.Kind() != value.KindArray {
		return nil, newErr(KindTypeMismatch, "%s must be an array, got %s", what, v.Kind())
	}
	arr, _ := v.AsArray()
	return arr, nil
}

func asObject(v value.Value, what string) (map[string]value.Value, error) {
	if v.Kind() != value.KindObject {
		return nil, newErr(KindTypeMismatch, "%s must be an object, got %s", what, v.Kind())
	}
	obj, _ := v.AsObject()
	return obj, nil
}

func asString(v value.Value, what string) (string, error) {
	if v.Kind() != value.KindString {
		return "", newErr(KindTypeMismatch, "%s must be a string, got %s", what, v.Kind())
	}
	s, _ := v.AsString()
	return s, nil
}

func asInt(v value.Value, what string) (int64, error) {
	if v.Kind() != value.KindInt {
		return 0, newErr(KindTypeMismatch, "%s must be an int, got %s", what, v.Kind())
	}
	i, _ := v.AsInt()
	return i, nil
}

func asBool(v value.Value, what string) (bool, error) {
	if v.Kind() != value.KindBool {
		return false, newErr(KindTypeMismatch, "%s must be a bool, got %s", what, v.Kind())
	}
	b, _ := v.AsBool()
	return b, nil
}

const defaultSeparator = "."

// parseFieldPath accepts either a dotted string (split on the
// "separator" option, default ".") or a pre-split array of string
// segments, and normalizes to (path_segments, separator), preserving
// the separator used so later stages can serialize it back
// (spec.md §4.3).
func parseFieldPath(v value.Value, opts map[string]value.Value) (ir.FieldPath, error) {
	sep := defaultSeparator
	if opts != nil {
		if sv, ok := opts["separator"]; ok {
			s, err := asString(sv, "separator option")
			if err != nil {
				return ir.FieldPath{}, err
			}
			if s != "" {
				sep = s
			}
		}
	}

	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return ir.FieldPath{Segments: value.SplitPath(s, sep), Separator: sep}, nil
	case value.KindArray:
		arr, _ := v.AsArray()
		segs := make([]string, len(arr))
		for i, e := range arr {
			s, err := asString(e, "field path segment")
			if err != nil {
				return ir.FieldPath{}, err
			}
			segs[i] = s
		}
		return ir.FieldPath{Segments: segs, Separator: sep}, nil
	default:
		return ir.FieldPath{}, newErr(KindTypeMismatch, "field path must be a string or array, got %s", v.Kind())
	}
}

// parseFieldPathList parses an array of field-path wire values
// (Pluck/Without field lists), each in the same string-or-segments
// shape as parseFieldPath.
func parseFieldPathList(v value.Value) ([]ir.FieldPath, error) {
	arr, err := asArray(v, "field list")
	if err != nil {
		return nil, err
	}
	out := make([]ir.FieldPath, len(arr))
	for i, e := range arr {
		fp, err := parseFieldPath(e, nil)
		if err != nil {
			return nil, err
		}
		out[i] = fp
	}
	return out, nil
}

// parseSortField parses one OrderBy element: an array
// [field_ref, descending:bool].
func parseSortField(v value.Value) (ir.SortField, error) {
	arr, err := asArray(v, "sort field")
	if err != nil {
		return ir.SortField{}, err
	}
	if len(arr) != 2 {
		return ir.SortField{}, newErr(KindMalformedTerm, "sort field must be [field_ref, descending], got %d elements", len(arr))
	}
	path, err := parseFieldPath(arr[0], nil)
	if err != nil {
		return ir.SortField{}, err
	}
	desc, err := asBool(arr[1], "sort field descending flag")
	if err != nil {
		return ir.SortField{}, err
	}
	return ir.SortField{Path: path, Descending: desc}, nil
}

// parseTableOptions parses the Table term's recognized options:
// start_key, batch_size, timeout_ms, and the supplemented
// use_outdated/read_mode legacy option, which is accepted and
// ignored (single-node, no replicas to read from). Unrecognized
// option keys are accepted silently, per spec.md §4.3's
// forward-compatibility policy.
func parseTableOptions(opts map[string]value.Value) (ir.TableOptions, error) {
	var out ir.TableOptions
	if opts == nil {
		return out, nil
	}
	if sk, ok := opts["start_key"]; ok {
		out.StartKey = sk
		out.HasStartKey = true
	}
	if bs, ok := opts["batch_size"]; ok {
		n, err := asInt(bs, "batch_size option")
		if err != nil {
			return out, err
		}
		out.BatchSize = int(n)
		out.HasBatchSize = true
	}
	if tm, ok := opts["timeout_ms"]; ok {
		n, err := asInt(tm, "timeout_ms option")
		if err != nil {
			return out, err
		}
		out.TimeoutMs = int(n)
	}
	if uo, ok := opts["use_outdated"]; ok {
		b, err := asBool(uo, "use_outdated option")
		if err != nil {
			return out, err
		}
		out.UseOutdated = b
	} else if rm, ok := opts["read_mode"]; ok {
		_, err := asString(rm, "read_mode option")
		if err != nil {
			return out, err
		}
		// Accepted and ignored, same as use_outdated.
	}
	return out, nil
}
