package blueprint

import (
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hanpama/lambdaql/internal/dynamic"
	"github.com/hanpama/lambdaql/internal/expr"
)

type compiler struct {
	violations []*Violation
}

func (c *compiler) report(v *Violation) {
	c.violations = append(c.violations, v)
}

// compileExpr compiles one operator form into an evaluation tree. A form is
// an object value with exactly one operator key, optionally accompanied by a
// "type" key that overrides the ambient tag type for this subtree. def is
// the ambient declared type, seeded from the field's return type.
//
// Any violation is reported and nil returned; compilation continues so the
// whole document's violations surface together.
func (c *compiler) compileExpr(v *ast.Value, def *dynamic.TypeRef) expr.Expr {
	if v == nil || v.Kind != ast.ObjectValue {
		c.report(violationAt(valuePos(v), "expected an operator form"))
		return nil
	}

	var opName string
	var opValue *ast.Value
	for _, child := range v.Children {
		if child.Name == "type" {
			parsed, err := parseTypeRef(child.Value.Raw)
			if err != nil {
				c.report(violationAt(child.Value.Position, "bad type notation: %v", err))
				return nil
			}
			def = parsed
			continue
		}
		if opName != "" {
			c.report(violationAt(child.Value.Position, "operator form has more than one operator key (%s, %s)", opName, child.Name))
			return nil
		}
		opName = child.Name
		opValue = child.Value
	}
	if opName == "" {
		c.report(violationAt(v.Position, "operator form has no operator key"))
		return nil
	}

	switch opName {
	case "const":
		return c.compileConst(opValue, def)

	case "add", "multiply", "divide", "modulo":
		left, right, ok := c.pair(opValue)
		if !ok {
			return nil
		}
		tag := c.tagFor(def, opValue.Position)
		if tag == nil {
			return nil
		}
		return &expr.Math{Op: expr.MathOp(opName), Left: c.compileExpr(left, def), Right: c.compileExpr(right, def), Tag: tag}

	case "negate":
		tag := c.tagFor(def, opValue.Position)
		if tag == nil {
			return nil
		}
		return &expr.Math{Op: expr.MathNegate, Left: c.compileExpr(opValue, def), Tag: tag}

	case "eq":
		left, right, ok := c.pair(opValue)
		if !ok {
			return nil
		}
		tag := c.tagFor(def, opValue.Position)
		if tag == nil {
			return nil
		}
		return &expr.EqualTo{Left: c.compileExpr(left, def), Right: c.compileExpr(right, def), Tag: tag}

	case "and", "or":
		left, right, ok := c.pair(opValue)
		if !ok {
			return nil
		}
		return &expr.Logical{Op: expr.LogicalOp(opName), Left: c.compileExpr(left, def), Right: c.compileExpr(right, def)}

	case "not":
		return &expr.Logical{Op: expr.LogicalNot, Left: c.compileExpr(opValue, def)}

	case "if":
		guard := c.objField(opValue, "cond")
		then := c.objField(opValue, "then")
		els := c.objField(opValue, "else")
		if guard == nil || then == nil || els == nil {
			return nil
		}
		return &expr.Diverge{Guard: c.compileExpr(guard, def), IfTrue: c.compileExpr(then, def), IfFalse: c.compileExpr(els, def)}

	case "concat":
		left, right, ok := c.pair(opValue)
		if !ok {
			return nil
		}
		return &expr.Concat{Left: c.compileExpr(left, def), Right: c.compileExpr(right, def)}

	case "seq":
		if opValue.Kind != ast.ListValue {
			c.report(violationAt(opValue.Position, "seq expects a list of operator forms"))
			return nil
		}
		items := make([]expr.Expr, len(opValue.Children))
		for i, child := range opValue.Children {
			items[i] = c.compileExpr(child.Value, def)
		}
		return &expr.SeqOf{Items: items}

	case "seqConcat":
		left, right, ok := c.pair(opValue)
		if !ok {
			return nil
		}
		return &expr.SeqConcat{Left: c.compileExpr(left, def), Right: c.compileExpr(right, def)}

	case "indexOf":
		seq := c.objField(opValue, "seq")
		elem := c.objField(opValue, "element")
		if seq == nil || elem == nil {
			return nil
		}
		return &expr.SeqIndexOf{Seq: c.compileExpr(seq, def), Element: c.compileExpr(elem, def)}

	case "reverse":
		return &expr.SeqReverse{Seq: c.compileExpr(opValue, def)}

	case "filter":
		seq := c.objField(opValue, "seq")
		pred := c.objField(opValue, "predicate")
		if seq == nil || pred == nil {
			return nil
		}
		return &expr.SeqFilter{Seq: c.compileExpr(seq, def), Predicate: c.compileFunction(pred, def)}

	case "flatMap":
		seq := c.objField(opValue, "seq")
		fn := c.objField(opValue, "fn")
		if seq == nil || fn == nil {
			return nil
		}
		return &expr.SeqFlatMap{Seq: c.compileExpr(seq, def), Fn: c.compileFunction(fn, def)}

	case "length":
		return &expr.SeqLength{Seq: c.compileExpr(opValue, def)}

	case "optionCons":
		return &expr.OptionCons{Value: c.compileExpr(opValue, def)}

	case "optionFold":
		value := c.objField(opValue, "value")
		none := c.objField(opValue, "none")
		some := c.objField(opValue, "some")
		if value == nil || none == nil || some == nil {
			return nil
		}
		return &expr.OptionFold{Value: c.compileExpr(value, def), None: c.compileExpr(none, def), Some: c.compileFunction(some, def)}

	case "eitherCons":
		return &expr.EitherCons{Value: c.compileExpr(opValue, def)}

	case "eitherFold":
		value := c.objField(opValue, "value")
		left := c.objField(opValue, "left")
		right := c.objField(opValue, "right")
		if value == nil || left == nil || right == nil {
			return nil
		}
		return &expr.EitherFold{Value: c.compileExpr(value, def), Left: c.compileFunction(left, def), Right: c.compileFunction(right, def)}

	case "fn":
		return c.compileFunction(v, def)

	case "call":
		fn := c.objField(opValue, "fn")
		arg := c.objField(opValue, "arg")
		if fn == nil || arg == nil {
			return nil
		}
		return &expr.Call{Fn: c.compileFunction(fn, def), Arg: c.compileExpr(arg, def)}

	case "bind":
		id, ok := c.bindingID(opValue)
		if !ok {
			return nil
		}
		return &expr.Binding{ID: id}

	case "context":
		return &expr.Context{}

	case "die":
		return &expr.Die{Message: c.compileExpr(opValue, def)}

	default:
		c.report(violationAt(opValue.Position, "unknown operator %q", opName))
		return nil
	}
}

// compileFunction compiles a {fn: {input: N, body: ...}} form into a
// single-parameter closure.
func (c *compiler) compileFunction(v *ast.Value, def *dynamic.TypeRef) *expr.Function {
	if v == nil || v.Kind != ast.ObjectValue {
		c.report(violationAt(valuePos(v), "expected a fn form"))
		return nil
	}
	inner := v
	if fn := findChild(v, "fn"); fn != nil {
		inner = fn
	}
	input := c.objField(inner, "input")
	body := c.objField(inner, "body")
	if input == nil || body == nil {
		return nil
	}
	id, ok := c.bindingID(input)
	if !ok {
		return nil
	}
	return &expr.Function{Input: id, Body: c.compileExpr(body, def)}
}

// compileConst converts a directive literal into a Literal node carrying the
// wire value and the descriptor resolved at compile time.
func (c *compiler) compileConst(v *ast.Value, def *dynamic.TypeRef) expr.Expr {
	if def == nil {
		c.report(violationAt(valuePos(v), "const needs a declared type"))
		return nil
	}
	wire, err := structpb.NewValue(astValueToGo(v))
	if err != nil {
		c.report(violationAt(valuePos(v), "const value is not representable: %v", err))
		return nil
	}
	// Decode once now so shape mismatches surface at compile time rather
	// than on the first request.
	if _, err := dynamic.Materialize(wire, def); err != nil {
		c.report(violationAt(valuePos(v), "const value does not match %s: %v", def, err))
		return nil
	}
	return &expr.Literal{Value: wire, Type: def}
}

func (c *compiler) tagFor(def *dynamic.TypeRef, pos *ast.Position) *expr.Tag {
	if def == nil {
		c.report(violationAt(pos, "operator needs a declared type to resolve its tag"))
		return nil
	}
	tag, err := expr.TagFor(def)
	if err != nil {
		c.report(violationAt(pos, "%v", err))
		return nil
	}
	return tag
}

// pair expects a two-element list value.
func (c *compiler) pair(v *ast.Value) (left, right *ast.Value, ok bool) {
	if v == nil || v.Kind != ast.ListValue || len(v.Children) != 2 {
		c.report(violationAt(valuePos(v), "expected a two-element operand list"))
		return nil, nil, false
	}
	return v.Children[0].Value, v.Children[1].Value, true
}

// objField fetches a required key from an object form.
func (c *compiler) objField(v *ast.Value, name string) *ast.Value {
	if v == nil || v.Kind != ast.ObjectValue {
		c.report(violationAt(valuePos(v), "expected an object form"))
		return nil
	}
	if child := findChild(v, name); child != nil {
		return child
	}
	c.report(violationAt(v.Position, "missing %q key", name))
	return nil
}

func (c *compiler) bindingID(v *ast.Value) (expr.BindingID, bool) {
	if v == nil || v.Kind != ast.IntValue {
		c.report(violationAt(valuePos(v), "expected an integer binding id"))
		return 0, false
	}
	id, err := strconv.Atoi(v.Raw)
	if err != nil {
		c.report(violationAt(v.Position, "bad binding id %q", v.Raw))
		return 0, false
	}
	return expr.BindingID(id), true
}

func findChild(v *ast.Value, name string) *ast.Value {
	for _, child := range v.Children {
		if child.Name == name {
			return child.Value
		}
	}
	return nil
}

func valuePos(v *ast.Value) *ast.Position {
	if v == nil {
		return nil
	}
	return v.Position
}

// astValueToGo converts a directive AST value to a JSON-safe Go value.
func astValueToGo(value *ast.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case ast.IntValue:
		iv, _ := strconv.ParseInt(value.Raw, 10, 64)
		return iv
	case ast.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case ast.StringValue, ast.BlockValue:
		return value.Raw
	case ast.BooleanValue:
		return value.Raw == "true"
	case ast.NullValue:
		return nil
	case ast.EnumValue:
		return value.Raw
	case ast.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = astValueToGo(c.Value)
		}
		return out
	case ast.ObjectValue:
		m := make(map[string]any)
		for _, f := range value.Children {
			m[f.Name] = astValueToGo(f.Value)
		}
		return m
	default:
		return nil
	}
}
