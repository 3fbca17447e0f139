/*
Package plan lowers pkg/ir term trees into a physical operator tree
and runs fixed-point rewrite passes over it (spec.md §4.4).

Lower converts IR into Node; Optimize then runs, bounded at three
passes, both an expression-simplification pass (constant folding,
AND/OR/NOT identities, conditional negation pushdown, comparison
canonicalization) over every embedded predicate/patch/key expression,
and a structural plan rewrite pass (Filter/Limit elision, Limit and
Skip pushdown into ScanTable, sort pushdown dropping a redundant
OrderBy). Explain renders a tree for diagnostics only; its format is
not a stability contract.
*/
package plan
