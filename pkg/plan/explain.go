package plan

import (
	"fmt"
	"strings"
)

// Explain renders a plan tree with indentation, listing each node's
// kind and salient attributes, for diagnostics. Format is
// deliberately unstable (spec.md §4.4) — callers must not parse it.
func Explain(n Node) string {
	var sb strings.Builder
	explainNode(&sb, n, 0)
	return sb.String()
}

func explainNode(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case *ScanTable:
		fmt.Fprintf(sb, "%sScanTable(%s.%s batch_size=%d", indent, v.DB, v.Table, v.BatchSize)
		if v.LimitHint != nil {
			fmt.Fprintf(sb, " limit_hint=%d", *v.LimitHint)
		}
		if v.SkipHint != nil {
			fmt.Fprintf(sb, " skip_hint=%d", *v.SkipHint)
		}
		if v.SortHint != nil {
			fmt.Fprintf(sb, " sort_hint=natural")
		}
		sb.WriteString(")\n")
	case *Filter:
		fmt.Fprintf(sb, "%sFilter\n", indent)
		explainNode(sb, v.Source, depth+1)
	case *OrderBy:
		fmt.Fprintf(sb, "%sOrderBy(fields=%d)\n", indent, len(v.Fields))
		explainNode(sb, v.Source, depth+1)
	case *Limit:
		fmt.Fprintf(sb, "%sLimit(n=%d)\n", indent, v.N)
		explainNode(sb, v.Source, depth+1)
	case *Skip:
		fmt.Fprintf(sb, "%sSkip(n=%d)\n", indent, v.N)
		explainNode(sb, v.Source, depth+1)
	case *Pluck:
		fmt.Fprintf(sb, "%sPluck(fields=%d)\n", indent, len(v.Fields))
		explainNode(sb, v.Source, depth+1)
	case *Without:
		fmt.Fprintf(sb, "%sWithout(fields=%d)\n", indent, len(v.Fields))
		explainNode(sb, v.Source, depth+1)
	case *Count:
		fmt.Fprintf(sb, "%sCount\n", indent)
		explainNode(sb, v.Source, depth+1)
	case *Get:
		fmt.Fprintf(sb, "%sGet(%s.%s)\n", indent, v.DB, v.Table)
	case *Insert:
		fmt.Fprintf(sb, "%sInsert(%s.%s docs=%d conflict=%s)\n", indent, v.DB, v.Table, len(v.Docs), v.Conflict)
	case *InsertNoOp:
		fmt.Fprintf(sb, "%sInsertNoOp\n", indent)
	case *Update:
		fmt.Fprintf(sb, "%sUpdate\n", indent)
		explainNode(sb, v.Source, depth+1)
	case *Delete:
		fmt.Fprintf(sb, "%sDelete\n", indent)
		explainNode(sb, v.Source, depth+1)
	case *Expr:
		fmt.Fprintf(sb, "%sExpr\n", indent)
	case *EmptyStream:
		fmt.Fprintf(sb, "%sEmptyStream\n", indent)
	case *DatabaseCreate:
		fmt.Fprintf(sb, "%sDatabaseCreate(%s)\n", indent, v.Name)
	case *DatabaseDrop:
		fmt.Fprintf(sb, "%sDatabaseDrop(%s)\n", indent, v.Name)
	case *DatabaseList:
		fmt.Fprintf(sb, "%sDatabaseList\n", indent)
	case *TableCreate:
		fmt.Fprintf(sb, "%sTableCreate(%s.%s)\n", indent, v.DB, v.Name)
	case *TableDrop:
		fmt.Fprintf(sb, "%sTableDrop(%s.%s)\n", indent, v.DB, v.Name)
	case *TableList:
		fmt.Fprintf(sb, "%sTableList(%s)\n", indent, v.DB)
	default:
		fmt.Fprintf(sb, "%s<unknown node>\n", indent)
	}
}
