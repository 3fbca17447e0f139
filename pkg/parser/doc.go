/*
Package parser converts the wire-level tagged-array term shape
(spec.md §6: `[type_code, args, options]`) into the typed pkg/ir tree,
validating arity and option types as it goes.

Unknown option keys are accepted silently (forward-compatibility);
an unknown type_code fails with KindUnknownTerm. Field paths may
arrive as a dotted string (split on the "separator" option, default
".") or as a pre-split array of segments; both normalize to the same
ir.FieldPath.
*/
package parser
