// Package ir defines the typed term tree the parser produces and the
// planner consumes (spec.md §3, §4.3). Every term is a concrete struct
// implementing the Term marker interface rather than an interface{}
// tree, so the planner and evaluator dispatch by type switch instead
// of by reflection (spec.md §9 design note).
package ir

import "github.com/cuemby/docql/pkg/value"

// Term is implemented by every IR node.
type Term interface {
	isTerm()
}

// BinaryOpKind enumerates the binary operators reachable from the
// term tree (spec.md §3).
type BinaryOpKind int

const (
	Eq BinaryOpKind = iota
	Ne
	Lt
	Le
	Gt
	Ge
	And
	Or
)

func (k BinaryOpKind) String() string {
	switch k {
	case Eq:
		return "Eq"
	case Ne:
		return "Ne"
	case Lt:
		return "Lt"
	case Le:
		return "Le"
	case Gt:
		return "Gt"
	case Ge:
		return "Ge"
	case And:
		return "And"
	case Or:
		return "Or"
	default:
		return "Unknown"
	}
}

// UnaryOpKind enumerates the unary operators. Not is the only member
// today; it exists as an enum rather than a bare bool so a future
// operator does not need a new Term type.
type UnaryOpKind int

const (
	Not UnaryOpKind = iota
)

func (k UnaryOpKind) String() string { return "Not" }

// ConflictMode controls Insert behavior on a primary-key collision.
// This is a supplemented generalization of the base Insert term that
// always rejected collisions (ConflictError is that default).
type ConflictMode int

const (
	ConflictError ConflictMode = iota
	ConflictReplace
	ConflictUpdate
)

func (m ConflictMode) String() string {
	switch m {
	case ConflictReplace:
		return "replace"
	case ConflictUpdate:
		return "update"
	default:
		return "error"
	}
}

// FieldPath is a path through a document's object tree, preserved
// alongside the separator it was expressed with so later stages can
// serialize it back in the form the client used (spec.md §4.3).
type FieldPath struct {
	Segments  []string
	Separator string
}

// SortField is one element of an OrderBy field list.
type SortField struct {
	Path       FieldPath
	Descending bool
}

// --- leaf expression terms ---

// Constant wraps an inlined Value payload.
type Constant struct {
	Value value.Value
}

// Field resolves to the value at Path within the row bound by the
// enclosing operator's environment (spec.md §4.5 Filter).
type Field struct {
	Path FieldPath
}

// BinaryOp is one of the comparison/logical binary operators.
type BinaryOp struct {
	Op    BinaryOpKind
	Left  Term
	Right Term
}

// UnaryOp is logical negation.
type UnaryOp struct {
	Op   UnaryOpKind
	Expr Term
}

// Match evaluates a regular expression against Value; non-string
// values evaluate to false (spec.md §4.2).
type Match struct {
	Value   Term
	Pattern string
	Flags   string
}

func (Constant) isTerm() {}
func (Field) isTerm()    {}
func (BinaryOp) isTerm() {}
func (UnaryOp) isTerm()  {}
func (Match) isTerm()    {}

// --- namespace terms ---

// Database references a database by name.
type Database struct {
	Name string
}

// TableOptions carries the recognized options attached to a Table
// term (spec.md §6). UseOutdated/ReadMode is supplemented from the
// RethinkDB lineage in original_source and is accepted but ignored:
// this engine has no replicas to read from.
type TableOptions struct {
	StartKey     value.Value
	HasStartKey  bool
	BatchSize    int
	HasBatchSize bool
	TimeoutMs    int
	UseOutdated  bool
}

// Table references a table within a database, carrying any cursor
// seed and timeout options the client attached to the scan.
type Table struct {
	DB      Term
	Name    string
	Options TableOptions
}

func (Database) isTerm() {}
func (Table) isTerm()    {}

// --- DDL terms ---

type DatabaseCreate struct{ Name string }
type DatabaseDrop struct{ Name string }
type DatabaseList struct{}

type TableCreate struct {
	DB   Term
	Name string
}
type TableDrop struct {
	DB   Term
	Name string
}
type TableList struct {
	DB Term
}

func (DatabaseCreate) isTerm() {}
func (DatabaseDrop) isTerm()   {}
func (DatabaseList) isTerm()   {}
func (TableCreate) isTerm()    {}
func (TableDrop) isTerm()      {}
func (TableList) isTerm()      {}

// --- document operators ---

// Get looks up a single document by primary key; no cursor involved.
type Get struct {
	Table Term
	Key   Term
}

// Insert writes each of Docs, one put per document. Conflict
// controls what happens when a document's id already exists
// (supplemented generalization of the base always-error behavior).
type Insert struct {
	Table    Term
	Docs     []Term
	Conflict ConflictMode
}

// Update deep-merges Patch into every document produced by Source.
type Update struct {
	Source Term
	Patch  Term
}

// Delete removes every document produced by Source.
type Delete struct {
	Source Term
}

// Filter keeps only documents for which Predicate is truthy.
type Filter struct {
	Source    Term
	Predicate Term
}

// OrderBy sorts Source by Fields, stable, direction per field.
type OrderBy struct {
	Source Term
	Fields []SortField
}

// Limit caps the logical stream at N documents.
type Limit struct {
	Source Term
	N      int64
}

// Skip drops the first N documents of the logical stream.
type Skip struct {
	Source Term
	N      int64
}

// Pluck projects each document down to the listed field paths.
type Pluck struct {
	Source Term
	Fields []FieldPath
}

// Without removes the listed field paths from each document.
type Without struct {
	Source Term
	Fields []FieldPath
}

// Count is a supplemented terminal aggregate: the number of documents
// produced by Source, present in the RethinkDB term set this spec
// distills but dropped from spec.md; safe to add since it introduces
// no joins, transactions, indexes, replication, or schema.
type Count struct {
	Source Term
}

// Expr wraps a bare expression submitted as a top-level query (no row
// context, no stream semantics) — spec.md §4.5 "Expr{expr}".
type Expr struct {
	Inner Term
}

func (Expr) isTerm()    {}
func (Get) isTerm()     {}
func (Insert) isTerm()  {}
func (Update) isTerm()  {}
func (Delete) isTerm()  {}
func (Filter) isTerm()  {}
func (OrderBy) isTerm() {}
func (Limit) isTerm()   {}
func (Skip) isTerm()    {}
func (Pluck) isTerm()   {}
func (Without) isTerm() {}
func (Count) isTerm()   {}
