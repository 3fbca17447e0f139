package parser

import (
	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/value"
)

// Parse converts a wire-level term (the tagged-array shape of
// spec.md §6: [type_code, args, options]) into an ir.Term, validating
// arity per type_code and recursively parsing any argument that is
// itself a term.
func Parse(w value.Value) (ir.Term, error) {
	parts, err := asArray(w, "term")
	if err != nil {
		return nil, err
	}
	if len(parts) < 2 || len(parts) > 3 {
		return nil, newErr(KindMalformedTerm, "term array must have 2 or 3 elements, got %d", len(parts))
	}

	codeInt, err := asInt(parts[0], "type_code")
	if err != nil {
		return nil, err
	}
	code := TypeCode(codeInt)

	args, err := asArray(parts[1], "args")
	if err != nil {
		return nil, err
	}

	var opts map[string]value.Value
	if len(parts) == 3 {
		o, err := asObject(parts[2], "options")
		if err != nil {
			return nil, err
		}
		opts = o
	}

	switch code {
	case CodeDatum:
		return parseDatum(args)
	case CodeField:
		return parseField(args, opts)
	case CodeEq, CodeNe, CodeLt, CodeLe, CodeGt, CodeGe, CodeAnd, CodeOr:
		return parseBinaryOp(code, args)
	case CodeNot:
		return parseUnaryOp(args)
	case CodeMatch:
		return parseMatch(args)
	case CodeDatabase:
		return parseDatabase(args)
	case CodeTable:
		return parseTable(args, opts)
	case CodeGet:
		return parseGet(args)
	case CodeInsert:
		return parseInsert(args, opts)
	case CodeUpdate:
		return parseUpdate(args)
	case CodeDelete:
		return parseDelete(args)
	case CodeFilter:
		return parseFilter(args)
	case CodeOrderBy:
		return parseOrderBy(args)
	case CodeLimit:
		return parseLimit(args)
	case CodeSkip:
		return parseSkip(args)
	case CodePluck:
		return parsePluck(args)
	case CodeWithout:
		return parseWithout(args)
	case CodeCount:
		return parseCount(args)
	case CodeExpr:
		return parseExpr(args)
	case CodeDatabaseCreate:
		return parseDatabaseCreate(args)
	case CodeDatabaseDrop:
		return parseDatabaseDrop(args)
	case CodeDatabaseList:
		return ir.DatabaseList{}, nil
	case CodeTableCreate:
		return parseTableCreate(args)
	case CodeTableDrop:
		return parseTableDrop(args)
	case CodeTableList:
		return parseTableList(args)
	default:
		return nil, newErr(KindUnknownTerm, "unrecognized type_code %d", codeInt)
	}
}

func arity(args []value.Value, n int, name string) error {
	if len(args) != n {
		return newErr(KindArityMismatch, "%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func parseDatum(args []value.Value) (ir.Term, error) {
	if err := arity(args, 1, "Datum"); err != nil {
		return nil, err
	}
	return ir.Constant{Value: args[0]}, nil
}

func parseField(args []value.Value, opts map[string]value.Value) (ir.Term, error) {
	if err := arity(args, 1, "Field"); err != nil {
		return nil, err
	}
	path, err := parseFieldPath(args[0], opts)
	if err != nil {
		return nil, err
	}
	return ir.Field{Path: path}, nil
}

func parseBinaryOp(code TypeCode, args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, code.String()); err != nil {
		return nil, err
	}
	left, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	right, err := Parse(args[1])
	if err != nil {
		return nil, err
	}
	var op ir.BinaryOpKind
	switch code {
	case CodeEq:
		op = ir.Eq
	case CodeNe:
		op = ir.Ne
	case CodeLt:
		op = ir.Lt
	case CodeLe:
		op = ir.Le
	case CodeGt:
		op = ir.Gt
	case CodeGe:
		op = ir.Ge
	case CodeAnd:
		op = ir.And
	case CodeOr:
		op = ir.Or
	}
	return ir.BinaryOp{Op: op, Left: left, Right: right}, nil
}

func parseUnaryOp(args []value.Value) (ir.Term, error) {
	if err := arity(args, 1, "Not"); err != nil {
		return nil, err
	}
	inner, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	return ir.UnaryOp{Op: ir.Not, Expr: inner}, nil
}

func parseMatch(args []value.Value) (ir.Term, error) {
	if err := arity(args, 3, "Match"); err != nil {
		return nil, err
	}
	v, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := asString(args[1], "Match pattern")
	if err != nil {
		return nil, err
	}
	flags, err := asString(args[2], "Match flags")
	if err != nil {
		return nil, err
	}
	return ir.Match{Value: v, Pattern: pattern, Flags: flags}, nil
}

func parseDatabase(args []value.Value) (ir.Term, error) {
	if err := arity(args, 1, "Database"); err != nil {
		return nil, err
	}
	name, err := asString(args[0], "Database name")
	if err != nil {
		return nil, err
	}
	return ir.Database{Name: name}, nil
}

func parseTable(args []value.Value, opts map[string]value.Value) (ir.Term, error) {
	if err := arity(args, 2, "Table"); err != nil {
		return nil, err
	}
	db, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	name, err := asString(args[1], "Table name")
	if err != nil {
		return nil, err
	}
	tableOpts, err := parseTableOptions(opts)
	if err != nil {
		return nil, err
	}
	return ir.Table{DB: db, Name: name, Options: tableOpts}, nil
}

func parseGet(args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, "Get"); err != nil {
		return nil, err
	}
	table, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	key, err := Parse(args[1])
	if err != nil {
		return nil, err
	}
	return ir.Get{Table: table, Key: key}, nil
}

func parseInsert(args []value.Value, opts map[string]value.Value) (ir.Term, error) {
	if err := arity(args, 2, "Insert"); err != nil {
		return nil, err
	}
	table, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	docArr, err := asArray(args[1], "Insert docs")
	if err != nil {
		return nil, err
	}
	docs := make([]ir.Term, len(docArr))
	for i, d := range docArr {
		t, err := Parse(d)
		if err != nil {
			return nil, err
		}
		docs[i] = t
	}
	conflict := ir.ConflictError
	if opts != nil {
		if cv, ok := opts["conflict"]; ok {
			s, err := asString(cv, "Insert conflict option")
			if err != nil {
				return nil, err
			}
			switch s {
			case "error", "":
				conflict = ir.ConflictError
			case "replace":
				conflict = ir.ConflictReplace
			case "update":
				conflict = ir.ConflictUpdate
			default:
				return nil, newErr(KindTypeMismatch, "unrecognized Insert conflict option %q", s)
			}
		}
	}
	return ir.Insert{Table: table, Docs: docs, Conflict: conflict}, nil
}

func parseUpdate(args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, "Update"); err != nil {
		return nil, err
	}
	source, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	patch, err := Parse(args[1])
	if err != nil {
		return nil, err
	}
	return ir.Update{Source: source, Patch: patch}, nil
}

func parseDelete(args []value.Value) (ir.Term, error) {
	if err := arity(args, 1, "Delete"); err != nil {
		return nil, err
	}
	source, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	return ir.Delete{Source: source}, nil
}

func parseFilter(args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, "Filter"); err != nil {
		return nil, err
	}
	source, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	pred, err := Parse(args[1])
	if err != nil {
		return nil, err
	}
	return ir.Filter{Source: source, Predicate: pred}, nil
}

func parseOrderBy(args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, "OrderBy"); err != nil {
		return nil, err
	}
	source, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	specArr, err := asArray(args[1], "OrderBy fields")
	if err != nil {
		return nil, err
	}
	fields := make([]ir.SortField, len(specArr))
	for i, s := range specArr {
		f, err := parseSortField(s)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return ir.OrderBy{Source: source, Fields: fields}, nil
}

func parseLimit(args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, "Limit"); err != nil {
		return nil, err
	}
	source, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	n, err := asInt(args[1], "Limit n")
	if err != nil {
		return nil, err
	}
	return ir.Limit{Source: source, N: n}, nil
}

func parseSkip(args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, "Skip"); err != nil {
		return nil, err
	}
	source, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	n, err := asInt(args[1], "Skip n")
	if err != nil {
		return nil, err
	}
	return ir.Skip{Source: source, N: n}, nil
}

func parsePluck(args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, "Pluck"); err != nil {
		return nil, err
	}
	source, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	fields, err := parseFieldPathList(args[1])
	if err != nil {
		return nil, err
	}
	return ir.Pluck{Source: source, Fields: fields}, nil
}

func parseWithout(args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, "Without"); err != nil {
		return nil, err
	}
	source, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	fields, err := parseFieldPathList(args[1])
	if err != nil {
		return nil, err
	}
	return ir.Without{Source: source, Fields: fields}, nil
}

func parseCount(args []value.Value) (ir.Term, error) {
	if err := arity(args, 1, "Count"); err != nil {
		return nil, err
	}
	source, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	return ir.Count{Source: source}, nil
}

func parseExpr(args []value.Value) (ir.Term, error) {
	if err := arity(args, 1, "Expr"); err != nil {
		return nil, err
	}
	inner, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	return ir.Expr{Inner: inner}, nil
}

func parseDatabaseCreate(args []value.Value) (ir.Term, error) {
	if err := arity(args, 1, "DatabaseCreate"); err != nil {
		return nil, err
	}
	name, err := asString(args[0], "DatabaseCreate name")
	if err != nil {
		return nil, err
	}
	return ir.DatabaseCreate{Name: name}, nil
}

func parseDatabaseDrop(args []value.Value) (ir.Term, error) {
	if err := arity(args, 1, "DatabaseDrop"); err != nil {
		return nil, err
	}
	name, err := asString(args[0], "DatabaseDrop name")
	if err != nil {
		return nil, err
	}
	return ir.DatabaseDrop{Name: name}, nil
}

func parseTableCreate(args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, "TableCreate"); err != nil {
		return nil, err
	}
	db, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	name, err := asString(args[1], "TableCreate name")
	if err != nil {
		return nil, err
	}
	return ir.TableCreate{DB: db, Name: name}, nil
}

func parseTableDrop(args []value.Value) (ir.Term, error) {
	if err := arity(args, 2, "TableDrop"); err != nil {
		return nil, err
	}
	db, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	name, err := asString(args[1], "TableDrop name")
	if err != nil {
		return nil, err
	}
	return ir.TableDrop{DB: db, Name: name}, nil
}

func parseTableList(args []value.Value) (ir.Term, error) {
	if err := arity(args, 1, "TableList"); err != nil {
		return nil, err
	}
	db, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	return ir.TableList{DB: db}, nil
}
