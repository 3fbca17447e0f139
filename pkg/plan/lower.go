package plan

import (
	"github.com/cuemby/docql/pkg/ir"
)

// Lower converts an ir.Term produced by the parser into a physical
// Node tree (spec.md §4.4). Expression terms (Constant, Field,
// BinaryOp, UnaryOp, Match) are not lowered on their own — they stay
// embedded as ir.Term inside the operator that consumes them
// (Filter.Predicate, Update.Patch, ...) and are simplified in place
// by Optimize.
func Lower(t ir.Term) (Node, error) {
	switch n := t.(type) {
	case ir.Table:
		return lowerTable(n)
	case ir.Filter:
		src, err := Lower(n.Source)
		if err != nil {
			return nil, err
		}
		return &Filter{Source: src, Predicate: n.Predicate}, nil
	case ir.OrderBy:
		src, err := Lower(n.Source)
		if err != nil {
			return nil, err
		}
		return &OrderBy{Source: src, Fields: n.Fields}, nil
	case ir.Limit:
		src, err := Lower(n.Source)
		if err != nil {
			return nil, err
		}
		return &Limit{Source: src, N: n.N}, nil
	case ir.Skip:
		src, err := Lower(n.Source)
		if err != nil {
			return nil, err
		}
		return &Skip{Source: src, N: n.N}, nil
	case ir.Pluck:
		src, err := Lower(n.Source)
		if err != nil {
			return nil, err
		}
		return &Pluck{Source: src, Fields: n.Fields}, nil
	case ir.Without:
		src, err := Lower(n.Source)
		if err != nil {
			return nil, err
		}
		return &Without{Source: src, Fields: n.Fields}, nil
	case ir.Count:
		src, err := Lower(n.Source)
		if err != nil {
			return nil, err
		}
		return &Count{Source: src}, nil
	case ir.Get:
		db, table, err := tableRef(n.Table)
		if err != nil {
			return nil, err
		}
		return &Get{DB: db, Table: table, Key: n.Key}, nil
	case ir.Insert:
		db, table, err := tableRef(n.Table)
		if err != nil {
			return nil, err
		}
		if len(n.Docs) == 0 {
			return &InsertNoOp{}, nil
		}
		return &Insert{DB: db, Table: table, Docs: n.Docs, Conflict: n.Conflict}, nil
	case ir.Update:
		src, err := Lower(n.Source)
		if err != nil {
			return nil, err
		}
		return &Update{Source: src, Patch: n.Patch}, nil
	case ir.Delete:
		src, err := Lower(n.Source)
		if err != nil {
			return nil, err
		}
		return &Delete{Source: src}, nil
	case ir.Expr:
		return &Expr{Inner: n.Inner}, nil
	case ir.DatabaseCreate:
		return &DatabaseCreate{Name: n.Name}, nil
	case ir.DatabaseDrop:
		return &DatabaseDrop{Name: n.Name}, nil
	case ir.DatabaseList:
		return &DatabaseList{}, nil
	case ir.TableCreate:
		db, err := databaseRef(n.DB)
		if err != nil {
			return nil, err
		}
		return &TableCreate{DB: db, Name: n.Name}, nil
	case ir.TableDrop:
		db, err := databaseRef(n.DB)
		if err != nil {
			return nil, err
		}
		return &TableDrop{DB: db, Name: n.Name}, nil
	case ir.TableList:
		db, err := databaseRef(n.DB)
		if err != nil {
			return nil, err
		}
		return &TableList{DB: db}, nil
	default:
		return nil, newErr(KindUnsupportedOperation, "term %T cannot be used as a query root", t)
	}
}

func lowerTable(t ir.Table) (Node, error) {
	db, err := databaseRef(t.DB)
	if err != nil {
		return nil, err
	}
	batchSize := DefaultBatchSize
	if t.Options.HasBatchSize && t.Options.BatchSize > 0 {
		batchSize = t.Options.BatchSize
	}
	return &ScanTable{
		DB:          db,
		Table:       t.Name,
		StartKey:    t.Options.StartKey,
		HasStartKey: t.Options.HasStartKey,
		BatchSize:   batchSize,
	}, nil
}

// databaseRef resolves a term expected to be ir.Database to its name.
func databaseRef(t ir.Term) (string, error) {
	db, ok := t.(ir.Database)
	if !ok {
		return "", newErr(KindMissingTableReference, "expected a database reference, got %T", t)
	}
	if db.Name == "" {
		return "", newErr(KindMissingTableReference, "database name must not be empty")
	}
	return db.Name, nil
}

// tableRef resolves a term expected to be ir.Table to its (db, name)
// pair without lowering it to a ScanTable, for operators (Get,
// Insert) that address a table directly rather than scanning it.
func tableRef(t ir.Term) (db, table string, err error) {
	tbl, ok := t.(ir.Table)
	if !ok {
		return "", "", newErr(KindMissingTableReference, "expected a table reference, got %T", t)
	}
	db, err = databaseRef(tbl.DB)
	if err != nil {
		return "", "", err
	}
	return db, tbl.Name, nil
}
