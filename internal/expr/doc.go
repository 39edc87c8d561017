// Package expr implements the evaluation engine for computed resolver logic:
// a typed, serializable tree representation plus a recursive tree-walking
// evaluator over dynamically typed native values.
//
// Gateway directives compile down to Expr trees (see internal/blueprint); at
// request time the plan layer asks Evaluate to walk a tree against a fresh
// binding environment and feeds the resulting native value into field
// resolution.
//
// Three supporting pieces keep the walker itself simple:
//
//   - Literals carry an opaque wire value and a type descriptor; decoding to
//     a native value happens only at the internal/dynamic boundary.
//   - Arithmetic and equality nodes carry a Tag, the per-type operation
//     bundle resolved once at tree construction, so the evaluator never
//     inspects value types itself.
//   - Function application mutates a single Env in place, bracketing each
//     call with bind/restore so shadowed parameter ids survive nested and
//     re-entrant calls.
//
// Every failure is one of the typed errors in errors.go (or a
// dynamic.TypeCoercionError); all of them abort the walk and propagate to
// the caller, which decides how the surrounding GraphQL response should
// degrade. The engine performs no I/O: upstream calls live in the plan layer
// around evaluation, never inside it.
package expr
