package eval

import "github.com/cuemby/docql/pkg/value"

// summaryValue builds the scalar object returned by Insert/Update/
// Delete, mirroring RethinkDB's write-result shape: a count field
// named for the operation, an error count, and the first error
// message if any occurred (spec.md §4.5 supplemented write summary).
func summaryValue(countField string, count, errs int, firstErr string) value.Value {
	fields := map[string]value.Value{
		countField: value.Int(int64(count)),
		"errors":   value.Int(int64(errs)),
	}
	if firstErr != "" {
		fields["first_error"] = value.String(firstErr)
	}
	return value.Object(fields)
}
