// Package cursor implements the pagination handle threaded through
// requests and responses (spec.md §3 Cursor, §9 "Pagination across
// OrderBy").
package cursor

import (
	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/value"
)

// DefaultBatchSize mirrors plan.DefaultBatchSize; duplicated as a
// literal constant here (rather than imported) since pkg/cursor must
// not depend on pkg/plan to stay usable from pkg/protocol.
const DefaultBatchSize = 50

// Cursor is the pagination handle: a start key, a batch size, and an
// optional sort spec (only meaningful when paginating across an
// OrderBy, where StartKey is the opaque offset described below).
//
// LimitRemaining and SkipRemaining are opaque evaluator state, not
// part of the wire cursor: Limit and Skip are paginated operators
// whose plan-time hint pushdown into ScanTable is a read-sizing
// optimization only, not the authoritative cap (pkg/eval/operators.go
// compileLimit/compileSkip), so each carries its own remaining count
// across segments the same way StartKey carries the scan position.
type Cursor struct {
	StartKey    value.Value
	HasStartKey bool
	BatchSize   int
	Sort        []ir.SortField

	LimitRemaining *int64
	SkipRemaining  *int64
}

// New returns a Cursor seeded with the default batch size and no
// start key, i.e. "begin at the lowest ordered key" (spec.md §6
// Cursor contract).
func New() Cursor {
	return Cursor{BatchSize: DefaultBatchSize}
}

// SortKey builds the deterministic total sort key for one row within
// an OrderBy, per spec.md §9: the declared sort fields followed by an
// implicit final `id ascending` key. Representing the key as
// value.Array(values...) lets value.Compare's existing lexicographic
// array comparison serve as the tie-break comparator directly — no
// separate byte-level encoding is needed since OrderBy's buffered
// rows never touch the storage layer's key-encodable-kinds
// restriction (pkg/storage/keys.go).
func SortKey(fields []ir.SortField, row value.Value, id value.Value) value.Value {
	vals := make([]value.Value, 0, len(fields)+1)
	for _, f := range fields {
		v, ok := value.GetPath(row, f.Path.Segments)
		if !ok {
			v = value.Null()
		}
		if f.Descending {
			v = descendingKey(v)
		}
		vals = append(vals, v)
	}
	vals = append(vals, id)
	return value.Array(vals)
}

// descendingKey negates a sort key's ordering contribution for a
// descending field. Since value.Compare has no generic "reverse"
// concept, a descending field is represented by wrapping it in a
// single-element array: a row is compared element-by-element, and
// SortCompare (not value.Compare) recognizes this wrapper, negating
// the embedded comparison instead of relying on value.Compare's own
// tier order. See SortCompare.
func descendingKey(v value.Value) value.Value {
	// Stored as a 1-element array sentinel; SortCompare recognizes and
	// unwraps it. This keeps SortKey's output representable as a plain
	// value.Value (so it can travel as an opaque cursor token) while
	// still letting SortCompare apply directional comparison per field.
	return value.Array([]value.Value{v})
}

// SortCompare compares two SortKey outputs field-by-field, honoring
// each field's declared direction, with the final implicit id field
// always ascending.
func SortCompare(fields []ir.SortField, a, b value.Value) int {
	aArr, _ := a.AsArray()
	bArr, _ := b.AsArray()
	n := len(fields) + 1
	for i := 0; i < n && i < len(aArr) && i < len(bArr); i++ {
		desc := i < len(fields) && fields[i].Descending
		av, bv := aArr[i], bArr[i]
		if desc {
			av = unwrapDesc(av)
			bv = unwrapDesc(bv)
			if c := value.Compare(av, bv); c != 0 {
				return -c
			}
			continue
		}
		if c := value.Compare(av, bv); c != 0 {
			return c
		}
	}
	return 0
}

func unwrapDesc(v value.Value) value.Value {
	if v.Kind() == value.KindArray {
		if arr, ok := v.AsArray(); ok && len(arr) == 1 {
			return arr[0]
		}
	}
	return v
}
