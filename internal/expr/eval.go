package expr

import (
	"fmt"
	"reflect"

	"github.com/hanpama/lambdaql/internal/dynamic"
)

// Evaluate walks the tree rooted at e and produces a native value. It is a
// synchronous, single-pass recursion with no suspension points: one walk
// runs to completion (or to the first failure) before returning. The caller
// owns env and must hand each top-level evaluation its own instance.
func Evaluate(e Expr, env *Env) (any, error) {
	switch n := e.(type) {
	case *Literal:
		return dynamic.Materialize(n.Value, n.Type)

	case *EqualTo:
		left, err := Evaluate(n.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(n.Right, env)
		if err != nil {
			return nil, err
		}
		return n.Tag.Equal(left, right)

	case *Math:
		return evalMath(n, env)

	case *Logical:
		return evalLogical(n, env)

	case *Diverge:
		guard, err := evalBool(n.Guard, env)
		if err != nil {
			return nil, err
		}
		if guard {
			return Evaluate(n.IfTrue, env)
		}
		return Evaluate(n.IfFalse, env)

	case *Concat:
		left, err := evalString(n.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := evalString(n.Right, env)
		if err != nil {
			return nil, err
		}
		return left + right, nil

	case *SeqConcat:
		left, err := evalSeq(n.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := evalSeq(n.Right, env)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(left)+len(right))
		out = append(out, left...)
		return append(out, right...), nil

	case *SeqIndexOf:
		seq, err := evalSeq(n.Seq, env)
		if err != nil {
			return nil, err
		}
		elem, err := Evaluate(n.Element, env)
		if err != nil {
			return nil, err
		}
		for i, item := range seq {
			if nativeEqual(item, elem) {
				return int64(i), nil
			}
		}
		return int64(-1), nil

	case *SeqReverse:
		seq, err := evalSeq(n.Seq, env)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(seq))
		for i, item := range seq {
			out[len(seq)-1-i] = item
		}
		return out, nil

	case *SeqFilter:
		seq, err := evalSeq(n.Seq, env)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(seq))
		for _, item := range seq {
			keep, err := callFunc(n.Predicate, item, env)
			if err != nil {
				return nil, err
			}
			ok, err := asBool(keep)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, item)
			}
		}
		return out, nil

	case *SeqFlatMap:
		seq, err := evalSeq(n.Seq, env)
		if err != nil {
			return nil, err
		}
		var out []any
		for _, item := range seq {
			mapped, err := callFunc(n.Fn, item, env)
			if err != nil {
				return nil, err
			}
			inner, err := asSeq(mapped)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		}
		if out == nil {
			out = []any{}
		}
		return out, nil

	case *SeqLength:
		seq, err := evalSeq(n.Seq, env)
		if err != nil {
			return nil, err
		}
		return int64(len(seq)), nil

	case *SeqOf:
		out := make([]any, len(n.Items))
		for i, item := range n.Items {
			v, err := Evaluate(item, env)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case *OptionCons:
		// Absent optionals are untyped nil, so re-wrapping passes the
		// evaluated value through unchanged.
		return Evaluate(n.Value, env)

	case *OptionFold:
		v, err := Evaluate(n.Value, env)
		if err != nil {
			return nil, err
		}
		if isNullish(v) {
			return Evaluate(n.None, env)
		}
		return callFunc(n.Some, v, env)

	case *EitherCons:
		v, err := Evaluate(n.Value, env)
		if err != nil {
			return nil, err
		}
		either, err := asEither(v)
		if err != nil {
			return nil, err
		}
		if either.IsRight {
			return dynamic.Either{Right: either.Right, IsRight: true}, nil
		}
		return dynamic.Either{Left: either.Left}, nil

	case *EitherFold:
		v, err := Evaluate(n.Value, env)
		if err != nil {
			return nil, err
		}
		either, err := asEither(v)
		if err != nil {
			return nil, err
		}
		if either.IsRight {
			return callFunc(n.Right, either.Right, env)
		}
		return callFunc(n.Left, either.Left, env)

	case *Call:
		arg, err := Evaluate(n.Arg, env)
		if err != nil {
			return nil, err
		}
		return callFunc(n.Fn, arg, env)

	case *Binding:
		return env.Lookup(n.ID)

	case *Function:
		// Direct evaluation does not bind; the body sees the ambient
		// binding for the parameter id, if any.
		return Evaluate(n.Body, env)

	case *Context:
		return nil, &UnsupportedOperationError{Operation: "context", Value: nil}

	case *Die:
		msg, err := evalString(n.Message, env)
		if err != nil {
			return nil, err
		}
		return nil, &DiedError{Message: msg}

	default:
		return nil, &UnsupportedOperationError{Operation: fmt.Sprintf("%T", e), Value: nil}
	}
}

func evalMath(n *Math, env *Env) (any, error) {
	left, err := Evaluate(n.Left, env)
	if err != nil {
		return nil, err
	}
	if n.Op == MathNegate {
		return n.Tag.Negate(left)
	}
	right, err := Evaluate(n.Right, env)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case MathAdd:
		return n.Tag.Add(left, right)
	case MathMultiply:
		return n.Tag.Multiply(left, right)
	case MathDivide:
		return n.Tag.Divide(left, right)
	case MathModulo:
		return n.Tag.Modulo(left, right)
	default:
		return nil, &UnsupportedOperationError{Operation: string(n.Op), Value: left}
	}
}

func evalLogical(n *Logical, env *Env) (any, error) {
	left, err := evalBool(n.Left, env)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case LogicalNot:
		return !left, nil
	case LogicalAnd:
		if !left {
			return false, nil
		}
		return evalBool(n.Right, env)
	case LogicalOr:
		if left {
			return true, nil
		}
		return evalBool(n.Right, env)
	default:
		return nil, &UnsupportedOperationError{Operation: string(n.Op), Value: left}
	}
}

// callFunc is function application: it binds the parameter id to arg in the
// shared environment, evaluates the body, and restores whatever binding
// existed before, on success and failure paths alike. Re-entrant calls that
// reuse a parameter id therefore never corrupt an outer invocation's binding.
func callFunc(fn *Function, arg any, env *Env) (any, error) {
	restore := env.swap(fn.Input, arg)
	defer restore()
	return Evaluate(fn.Body, env)
}

// Call applies fn to an already-native argument value. Exposed for embedding
// layers that invoke compiled closures outside a tree walk.
func (fn *Function) Call(arg any, env *Env) (any, error) {
	return callFunc(fn, arg, env)
}

func evalBool(e Expr, env *Env) (bool, error) {
	v, err := Evaluate(e, env)
	if err != nil {
		return false, err
	}
	return asBool(v)
}

func evalString(e Expr, env *Env) (string, error) {
	v, err := Evaluate(e, env)
	if err != nil {
		return "", err
	}
	return asString(v)
}

func evalSeq(e Expr, env *Env) ([]any, error) {
	v, err := Evaluate(e, env)
	if err != nil {
		return nil, err
	}
	return asSeq(v)
}

// The as* helpers reinterpret an already-native value as a specific native
// shape. A mismatch is a coercion failure, never a panic or a silent default.

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, &dynamic.TypeCoercionError{Value: v, Cause: "expected a boolean"}
	}
	return b, nil
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &dynamic.TypeCoercionError{Value: v, Cause: "expected a string"}
	}
	return s, nil
}

func asInt(v any) (int64, error) {
	i, ok := v.(int64)
	if !ok {
		return 0, &dynamic.TypeCoercionError{Value: v, Cause: "expected an integer"}
	}
	return i, nil
}

func asFloat(v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, &dynamic.TypeCoercionError{Value: v, Cause: "expected a float"}
	}
	return f, nil
}

func asSeq(v any) ([]any, error) {
	s, ok := v.([]any)
	if !ok {
		return nil, &dynamic.TypeCoercionError{Value: v, Cause: "expected a sequence"}
	}
	return s, nil
}

func asEither(v any) (dynamic.Either, error) {
	e, ok := v.(dynamic.Either)
	if !ok {
		return dynamic.Either{}, &dynamic.TypeCoercionError{Value: v, Cause: "expected an either value"}
	}
	return e, nil
}

func nativeEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr).
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
