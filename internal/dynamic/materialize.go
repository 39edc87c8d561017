package dynamic

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

// Either is a two-way sum value. Exactly one side is populated; IsRight
// reports which.
type Either struct {
	Left    any
	Right   any
	IsRight bool
}

// TypeCoercionError reports a dynamic value whose shape does not match its
// declared descriptor. It is the only failure Materialize produces.
type TypeCoercionError struct {
	Value      any
	Descriptor *TypeRef
	Cause      string
}

func (e *TypeCoercionError) Error() string {
	if e.Descriptor == nil {
		return fmt.Sprintf("cannot coerce %v: %s", e.Value, e.Cause)
	}
	return fmt.Sprintf("cannot coerce %v into %s: %s", e.Value, e.Descriptor, e.Cause)
}

func coercionErr(v any, t *TypeRef, format string, args ...any) error {
	return &TypeCoercionError{Value: v, Descriptor: t, Cause: fmt.Sprintf(format, args...)}
}

// Materialize decodes an opaque wire value into the engine's native
// representation according to the declared descriptor. It is the single
// boundary where shape mismatches can occur; everything downstream works
// with already-native values.
//
// Native shapes: nil, bool, int64, float64, string, []any, map[string]any
// and Either. Nullable descriptors (anything not wrapped in NON_NULL)
// materialize an absent value as untyped nil.
func Materialize(v *structpb.Value, t *TypeRef) (any, error) {
	if t == nil {
		return nil, coercionErr(v, nil, "missing type descriptor")
	}
	if t.Kind == TypeRefKindNonNull {
		if v == nil || v.GetKind() == nil || isNullValue(v) {
			return nil, coercionErr(nil, t, "value is null")
		}
		return Materialize(v, t.OfType)
	}
	if v == nil || v.GetKind() == nil || isNullValue(v) {
		return nil, nil
	}

	switch t.Kind {
	case TypeRefKindList:
		lv, ok := v.GetKind().(*structpb.Value_ListValue)
		if !ok {
			return nil, coercionErr(v.AsInterface(), t, "expected a list")
		}
		items := lv.ListValue.GetValues()
		out := make([]any, len(items))
		for i, item := range items {
			native, err := Materialize(item, t.OfType)
			if err != nil {
				return nil, err
			}
			out[i] = native
		}
		return out, nil

	case TypeRefKindEither:
		return materializeEither(v, t)

	case TypeRefKindNamed:
		return materializeNamed(v, t)

	default:
		return nil, coercionErr(v.AsInterface(), t, "unknown descriptor kind %q", t.Kind)
	}
}

func materializeNamed(v *structpb.Value, t *TypeRef) (any, error) {
	switch t.Named {
	case ScalarInt:
		nv, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, coercionErr(v.AsInterface(), t, "expected a number")
		}
		n := nv.NumberValue
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return nil, coercionErr(n, t, "not an integer")
		}
		return int64(n), nil
	case ScalarFloat:
		nv, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, coercionErr(v.AsInterface(), t, "expected a number")
		}
		return nv.NumberValue, nil
	case ScalarString:
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, coercionErr(v.AsInterface(), t, "expected a string")
		}
		return sv.StringValue, nil
	case ScalarBoolean:
		bv, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, coercionErr(v.AsInterface(), t, "expected a boolean")
		}
		return bv.BoolValue, nil
	case ScalarJSON:
		// Opaque passthrough; no shape requirement.
		return v.AsInterface(), nil
	default:
		// Object-typed literal: accept a struct and keep fields as JSON-safe values.
		sv, ok := v.GetKind().(*structpb.Value_StructValue)
		if !ok {
			return nil, coercionErr(v.AsInterface(), t, "expected an object")
		}
		return sv.StructValue.AsMap(), nil
	}
}

// materializeEither expects a single-key struct {"left": ...} or {"right": ...}
// and materializes the populated side against its declared descriptor.
func materializeEither(v *structpb.Value, t *TypeRef) (any, error) {
	sv, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, coercionErr(v.AsInterface(), t, "expected a left/right object")
	}
	fields := sv.StructValue.GetFields()
	if len(fields) != 1 {
		return nil, coercionErr(v.AsInterface(), t, "expected exactly one of left, right")
	}
	if inner, ok := fields["left"]; ok {
		native, err := Materialize(inner, t.Left)
		if err != nil {
			return nil, err
		}
		return Either{Left: native}, nil
	}
	if inner, ok := fields["right"]; ok {
		native, err := Materialize(inner, t.Right)
		if err != nil {
			return nil, err
		}
		return Either{Right: native, IsRight: true}, nil
	}
	return nil, coercionErr(v.AsInterface(), t, "expected exactly one of left, right")
}

func isNullValue(v *structpb.Value) bool {
	_, ok := v.GetKind().(*structpb.Value_NullValue)
	return ok
}
