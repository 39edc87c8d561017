package expr

import "fmt"

// The evaluator reports every failure as one of the typed errors below (or a
// dynamic.TypeCoercionError from literal decoding). All of them abort the
// current tree walk; nothing is retried or recovered inside the engine.

// FieldNotFoundError reports a missing field during a field-path lookup.
// The evaluator itself never raises it; the surrounding plan layer does.
type FieldNotFoundError struct {
	Name string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field not found: %s", e.Name)
}

// UnsupportedOperationError reports an operation applied to a value that
// cannot handle it, such as arithmetic on a string tag or integer division
// by zero.
type UnsupportedOperationError struct {
	Operation string
	Value     any
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %s on %v", e.Operation, e.Value)
}

// BindingNotFoundError reports a Binding node referencing an identifier with
// no active scope entry.
type BindingNotFoundError struct {
	ID BindingID
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("binding not found: %d", e.ID)
}

// DiedError is the explicit user-triggered failure produced by a Die node.
type DiedError struct {
	Message string
}

func (e *DiedError) Error() string {
	return fmt.Sprintf("died: %s", e.Message)
}
