// Package plan lowers pkg/ir term trees into a physical operator
// tree (spec.md §4.4) and runs fixed-point rewrite passes over it.
package plan

import (
	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/value"
)

// DefaultBatchSize is the cursor batch size used when a Table term
// does not specify one (spec.md §3 Cursor).
const DefaultBatchSize = 50

// Node is implemented by every physical plan node.
type Node interface {
	isNode()
}

// ScanTable is the leaf physical operator over the storage contract.
// It is distinct from ir.Table: pushdown rules attach LimitHint,
// SkipHint, and SortHint here as they're discovered (spec.md §3
// PlanNode variants).
type ScanTable struct {
	DB          string
	Table       string
	StartKey    value.Value
	HasStartKey bool
	BatchSize   int

	LimitHint *int64
	SkipHint  *int64
	// SortHint is set when an id-ascending OrderBy collapses into this
	// scan (it already reads in that order) and is explain-only:
	// nothing in pkg/eval re-checks it against the scan's actual
	// order, so it must never be set for a sort the storage layer
	// doesn't already produce.
	SortHint []ir.SortField
}

func (*ScanTable) isNode() {}

// Filter keeps rows for which Predicate is truthy. Predicate remains
// an ir.Term (an expression, not a stream) simplified in place by the
// optimizer's expression-simplification pass.
type Filter struct {
	Source    Node
	Predicate ir.Term
}

func (*Filter) isNode() {}

// OrderBy is the blocking sort operator; absent once sort pushdown
// has proven the source already emits in the required order.
type OrderBy struct {
	Source Node
	Fields []ir.SortField
}

func (*OrderBy) isNode() {}

// Limit caps the logical stream at N documents.
type Limit struct {
	Source Node
	N      int64
}

func (*Limit) isNode() {}

// Skip drops the first N documents of the logical stream.
type Skip struct {
	Source Node
	N      int64
}

func (*Skip) isNode() {}

// Pluck projects to the listed field paths.
type Pluck struct {
	Source Node
	Fields []ir.FieldPath
}

func (*Pluck) isNode() {}

// Without removes the listed field paths.
type Without struct {
	Source Node
	Fields []ir.FieldPath
}

func (*Without) isNode() {}

// Count is the supplemented terminal aggregate operator.
type Count struct {
	Source Node
}

func (*Count) isNode() {}

// Get is a single-shot by-key lookup; no cursor involved.
type Get struct {
	DB    string
	Table string
	Key   ir.Term
}

func (*Get) isNode() {}

// Insert writes Docs to (DB, Table), one put per document.
type Insert struct {
	DB       string
	Table    string
	Docs     []ir.Term
	Conflict ir.ConflictMode
}

func (*Insert) isNode() {}

// InsertNoOp replaces an Insert whose Docs list is empty (plan
// rewrite: Insert{_, []} ↦ no-op returning an empty result).
type InsertNoOp struct{}

func (*InsertNoOp) isNode() {}

// Update deep-merges Patch into every document Source produces.
type Update struct {
	Source Node
	Patch  ir.Term
}

func (*Update) isNode() {}

// Delete removes every document Source produces.
type Delete struct {
	Source Node
}

func (*Delete) isNode() {}

// Expr evaluates Inner with no row context and returns a scalar
// Value (spec.md §4.5 "Expr{expr}").
type Expr struct {
	Inner ir.Term
}

func (*Expr) isNode() {}

// EmptyStream yields zero documents and a cleared next cursor; the
// target of several plan rewrites (Filter{_,false}, Limit{_,0}).
type EmptyStream struct{}

func (*EmptyStream) isNode() {}

// DatabaseCreate, DatabaseDrop, DatabaseList, TableCreate, TableDrop,
// and TableList are leaf metadata operators forwarded to storage.
type DatabaseCreate struct{ Name string }
type DatabaseDrop struct{ Name string }
type DatabaseList struct{}
type TableCreate struct {
	DB   string
	Name string
}
type TableDrop struct {
	DB   string
	Name string
}
type TableList struct{ DB string }

func (*DatabaseCreate) isNode() {}
func (*DatabaseDrop) isNode()   {}
func (*DatabaseList) isNode()   {}
func (*TableCreate) isNode()    {}
func (*TableDrop) isNode()      {}
func (*TableList) isNode()      {}
