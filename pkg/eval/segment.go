package eval

import (
	"context"

	"github.com/cuemby/docql/pkg/cursor"
	"github.com/cuemby/docql/pkg/value"
)

// SegmentRequest is the cursor + cap passed to an operator for one
// unit of work (spec.md §9 "segment request (cursor + cap)").
type SegmentRequest struct {
	Cursor cursor.Cursor
}

// SegmentResult is what one operator invocation produces: either a
// batch of documents (IsStream) or a single scalar value (a lookup
// result, a count, a bulk-write summary, a DDL acknowledgement).
// Cursor/HasNext carry continuation state in both cases — a summary
// result from Update/Delete still needs a next cursor when its source
// has more documents to process (spec.md §9 "segment result
// (documents + next cursor + summary)").
type SegmentResult struct {
	IsStream  bool
	Documents []value.Value
	Scalar    value.Value

	Cursor  cursor.Cursor
	HasNext bool
}

// OperatorFunc is the compiled form of one plan.Node: a function of
// the incoming segment request to the segment it produces, closed
// over its source operator's own OperatorFunc.
type OperatorFunc func(ctx context.Context, req SegmentRequest) (SegmentResult, error)
