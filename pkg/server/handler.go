package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/docql/pkg/eval"
	"github.com/cuemby/docql/pkg/metrics"
	"github.com/cuemby/docql/pkg/parser"
	"github.com/cuemby/docql/pkg/plan"
	"github.com/cuemby/docql/pkg/protocol"
	"github.com/cuemby/docql/pkg/storage"
	"github.com/cuemby/docql/pkg/value"
)

// defaultBatchSize applies when a client omits cursor.batch_size,
// mirroring plan.DefaultBatchSize, the batch size of a Table term
// without a batch_size option.
const defaultBatchSize = plan.DefaultBatchSize

// handleQuery runs one query end to end: parse, lower, optimize,
// evaluate one segment, encode. It never panics on malformed input;
// every failure mode becomes a protocol.Error with a Kind the client
// can branch on.
func (s *Server) handleQuery(ctx context.Context, q protocol.Query) (protocol.Response, *protocol.Error) {
	termKind := "unknown"
	status := "ok"
	timer := metrics.NewTimer()
	defer func() {
		metrics.QueriesTotal.WithLabelValues(termKind, status).Inc()
		timer.ObserveDurationVec(metrics.QueryDuration, termKind)
	}()

	termValue, err := protocol.DecodeValue(q.Term)
	if err != nil {
		status = "MalformedTerm"
		return protocol.Response{}, errorFrame(status, err)
	}

	term, err := parser.Parse(termValue)
	if err != nil {
		status = string(kindOfParser(err))
		return protocol.Response{}, errorFrame(status, err)
	}

	node, err := plan.Lower(term)
	if err != nil {
		status = string(kindOfPlan(err))
		return protocol.Response{}, errorFrame(status, err)
	}
	node = plan.Optimize(node)
	termKind = nodeKind(node)

	if q.Options.Explain {
		wv := protocol.EncodeValue(value.String(plan.Explain(node)))
		return protocol.Response{IsStream: false, Scalar: &wv}, nil
	}

	cur, err := protocol.DecodeCursor(q.Cursor)
	if err != nil {
		status = "MalformedTerm"
		return protocol.Response{}, errorFrame(status, err)
	}
	if cur.BatchSize == 0 {
		cur.BatchSize = defaultBatchSize
	}

	if q.Options.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(q.Options.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	result, err := s.Engine.Execute(ctx, node, cur)
	if err != nil {
		status = string(kindOfEval(err))
		return protocol.Response{}, errorFrame(status, err)
	}

	resp := protocol.Response{
		IsStream: result.IsStream,
		HasNext:  result.HasNext,
	}
	if result.IsStream {
		resp.Documents = make([]protocol.WireValue, len(result.Documents))
		for i, d := range result.Documents {
			resp.Documents[i] = protocol.EncodeValue(d)
		}
		if result.HasNext {
			wc := protocol.EncodeCursor(result.Cursor)
			resp.NextCursor = &wc
		}
	} else {
		wv := protocol.EncodeValue(result.Scalar)
		resp.Scalar = &wv
	}
	return resp, nil
}

func errorFrame(kind string, err error) *protocol.Error {
	return &protocol.Error{Kind: kind, Message: err.Error()}
}

func kindOfParser(err error) parser.Kind {
	var pe *parser.Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return parser.KindMalformedTerm
}

func kindOfPlan(err error) plan.Kind {
	var pe *plan.Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return plan.KindUnsupportedOperation
}

// kindOfEval resolves an evaluator-stage error down to its Kind name,
// looking through the two error shapes Execute can return: eval's own
// Error, and a storage.Error surfaced unwrapped (e.g. from a retry
// budget exhausted on KindStorageUnavailable).
func kindOfEval(err error) eval.Kind {
	var ee *eval.Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	var se *storage.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case storage.KindNoSuchDatabase:
			return eval.KindNoSuchDatabase
		case storage.KindNoSuchTable:
			return eval.KindNoSuchTable
		default:
			return eval.Kind(se.Kind)
		}
	}
	return eval.KindInternal
}

// nodeKind labels a query by its root plan node type, e.g. "ScanTable"
// or "Insert", for the docql_queries_total/docql_query_duration_seconds
// term_kind label.
func nodeKind(n plan.Node) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", n), "*plan.")
}
