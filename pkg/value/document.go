package value

import "strings"

// IDField is the name of a document's primary-key field.
const IDField = "id"

// SplitPath splits a dotted field path on sep into its segments.
// An empty path yields a single empty segment.
func SplitPath(path string, sep string) []string {
	if sep == "" {
		sep = "."
	}
	return strings.Split(path, sep)
}

// GetPath walks v through the given field-path segments, returning
// Null and false at the first missing or non-object segment.
func GetPath(v Value, segments []string) (Value, bool) {
	cur := v
	for _, seg := range segments {
		obj, ok := cur.AsObject()
		if !ok {
			return Null(), false
		}
		next, ok := obj[seg]
		if !ok {
			return Null(), false
		}
		cur = next
	}
	return cur, true
}

// Pluck projects doc to an object containing only the named field
// paths, reconstructing nested objects along the way. Paths whose
// segments do not resolve are omitted entirely (spec.md §4.5).
func Pluck(doc Value, paths [][]string) Value {
	out := EmptyObject()
	for _, segs := range paths {
		val, ok := GetPath(doc, segs)
		if !ok {
			continue
		}
		out = setPath(out, segs, val)
	}
	return out
}

func setPath(v Value, segments []string, val Value) Value {
	if len(segments) == 0 {
		return val
	}
	head, rest := segments[0], segments[1:]
	if len(rest) == 0 {
		return v.WithField(head, val)
	}
	child, ok := v.Field(head)
	if !ok || child.Kind() != KindObject {
		child = EmptyObject()
	}
	return v.WithField(head, setPath(child, rest, val))
}

// Without returns doc minus the named field paths. Removing a leaf
// leaves its containing object intact (possibly empty), per spec.md
// §4.5 — intermediate objects are never deleted, only emptied.
func Without(doc Value, paths [][]string) Value {
	out := doc
	for _, segs := range paths {
		out = removePath(out, segs)
	}
	return out
}

func removePath(v Value, segments []string) Value {
	if len(segments) == 0 {
		return v
	}
	obj, ok := v.AsObject()
	if !ok {
		return v
	}
	head, rest := segments[0], segments[1:]
	child, ok := obj[head]
	if !ok {
		return v
	}
	if len(rest) == 0 {
		return v.WithoutField(head)
	}
	if child.Kind() != KindObject {
		return v
	}
	return v.WithField(head, removePath(child, rest))
}

// MergePatch deep-merges patch into base: objects merge recursively,
// scalars and arrays overwrite, and a null in the patch deletes the
// corresponding field (spec.md §4.5 Update semantics).
func MergePatch(base, patch Value) Value {
	patchObj, ok := patch.AsObject()
	if !ok {
		return patch
	}
	baseObj, ok := base.AsObject()
	if !ok {
		baseObj = nil
	}
	out := make(map[string]Value, len(baseObj)+len(patchObj))
	for k, v := range baseObj {
		out[k] = v
	}
	for k, pv := range patchObj {
		if pv.IsNull() {
			delete(out, k)
			continue
		}
		bv, exists := out[k]
		if exists && bv.Kind() == KindObject && pv.Kind() == KindObject {
			out[k] = MergePatch(bv, pv)
		} else {
			out[k] = pv
		}
	}
	return Object(out)
}

// DocumentID returns the id field of a document, and whether it is
// present and a scalar primitive kind valid as a primary key.
func DocumentID(doc Value) (Value, bool) {
	id, ok := doc.Field(IDField)
	if !ok || !id.IsScalarPrimitive() {
		return Null(), false
	}
	return id, true
}
