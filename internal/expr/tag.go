package expr

import (
	"fmt"
	"math"

	"github.com/hanpama/lambdaql/internal/dynamic"
)

// Tag bundles the arithmetic and equality implementations for one concrete
// native type. A tag is resolved once, when the tree node is constructed
// from the literal's declared type; the evaluator never inspects value types
// itself, it defers to the tag.
type Tag struct {
	Name     string
	Add      func(a, b any) (any, error)
	Multiply func(a, b any) (any, error)
	Divide   func(a, b any) (any, error)
	Modulo   func(a, b any) (any, error)
	Negate   func(v any) (any, error)
	Equal    func(a, b any) (bool, error)
}

// TagFor resolves the operation bundle for a declared literal type. Only the
// innermost named type matters; list and non-null wrappers are ignored.
func TagFor(t *dynamic.TypeRef) (*Tag, error) {
	switch t.NamedTypeOf() {
	case dynamic.ScalarInt:
		return intTag, nil
	case dynamic.ScalarFloat:
		return floatTag, nil
	case dynamic.ScalarString:
		return stringTag, nil
	case dynamic.ScalarBoolean:
		return boolTag, nil
	default:
		return nil, fmt.Errorf("no operation tag for type %s", t)
	}
}

// intTag implements native int64 semantics: truncating division and Go's
// remainder operator. Division or modulo by zero is an error, matching the
// native integer contract.
var intTag = &Tag{
	Name: dynamic.ScalarInt,
	Add: func(a, b any) (any, error) {
		x, y, err := intPair(a, b)
		if err != nil {
			return nil, err
		}
		return x + y, nil
	},
	Multiply: func(a, b any) (any, error) {
		x, y, err := intPair(a, b)
		if err != nil {
			return nil, err
		}
		return x * y, nil
	},
	Divide: func(a, b any) (any, error) {
		x, y, err := intPair(a, b)
		if err != nil {
			return nil, err
		}
		if y == 0 {
			return nil, &UnsupportedOperationError{Operation: "divide by zero", Value: x}
		}
		return x / y, nil
	},
	Modulo: func(a, b any) (any, error) {
		x, y, err := intPair(a, b)
		if err != nil {
			return nil, err
		}
		if y == 0 {
			return nil, &UnsupportedOperationError{Operation: "modulo by zero", Value: x}
		}
		return x % y, nil
	},
	Negate: func(v any) (any, error) {
		x, err := asInt(v)
		if err != nil {
			return nil, err
		}
		return -x, nil
	},
	Equal: func(a, b any) (bool, error) {
		x, y, err := intPair(a, b)
		if err != nil {
			return false, err
		}
		return x == y, nil
	},
}

// floatTag implements native float64 semantics. Division by zero follows
// IEEE 754 (infinities, NaN); no extra guarding.
var floatTag = &Tag{
	Name: dynamic.ScalarFloat,
	Add: func(a, b any) (any, error) {
		x, y, err := floatPair(a, b)
		if err != nil {
			return nil, err
		}
		return x + y, nil
	},
	Multiply: func(a, b any) (any, error) {
		x, y, err := floatPair(a, b)
		if err != nil {
			return nil, err
		}
		return x * y, nil
	},
	Divide: func(a, b any) (any, error) {
		x, y, err := floatPair(a, b)
		if err != nil {
			return nil, err
		}
		return x / y, nil
	},
	Modulo: func(a, b any) (any, error) {
		x, y, err := floatPair(a, b)
		if err != nil {
			return nil, err
		}
		return math.Mod(x, y), nil
	},
	Negate: func(v any) (any, error) {
		x, err := asFloat(v)
		if err != nil {
			return nil, err
		}
		return -x, nil
	},
	Equal: func(a, b any) (bool, error) {
		x, y, err := floatPair(a, b)
		if err != nil {
			return false, err
		}
		return x == y, nil
	},
}

// stringTag and boolTag support equality only; their arithmetic entries
// reject the operation.
var stringTag = &Tag{
	Name:     dynamic.ScalarString,
	Add:      rejectArith("add"),
	Multiply: rejectArith("multiply"),
	Divide:   rejectArith("divide"),
	Modulo:   rejectArith("modulo"),
	Negate: func(v any) (any, error) {
		return nil, &UnsupportedOperationError{Operation: "negate", Value: v}
	},
	Equal: func(a, b any) (bool, error) {
		x, err := asString(a)
		if err != nil {
			return false, err
		}
		y, err := asString(b)
		if err != nil {
			return false, err
		}
		return x == y, nil
	},
}

var boolTag = &Tag{
	Name:     dynamic.ScalarBoolean,
	Add:      rejectArith("add"),
	Multiply: rejectArith("multiply"),
	Divide:   rejectArith("divide"),
	Modulo:   rejectArith("modulo"),
	Negate: func(v any) (any, error) {
		return nil, &UnsupportedOperationError{Operation: "negate", Value: v}
	},
	Equal: func(a, b any) (bool, error) {
		x, err := asBool(a)
		if err != nil {
			return false, err
		}
		y, err := asBool(b)
		if err != nil {
			return false, err
		}
		return x == y, nil
	},
}

func rejectArith(op string) func(a, b any) (any, error) {
	return func(a, b any) (any, error) {
		return nil, &UnsupportedOperationError{Operation: op, Value: a}
	}
}

func intPair(a, b any) (int64, int64, error) {
	x, err := asInt(a)
	if err != nil {
		return 0, 0, err
	}
	y, err := asInt(b)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func floatPair(a, b any) (float64, float64, error) {
	x, err := asFloat(a)
	if err != nil {
		return 0, 0, err
	}
	y, err := asFloat(b)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
