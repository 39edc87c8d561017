package expr

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hanpama/lambdaql/internal/dynamic"
)

// Expr is one node of an evaluation tree: the serializable intermediate
// representation that computed-field directives compile down to. Nodes are
// pure data, immutable once built, and safe to share between concurrent
// evaluations.
type Expr interface {
	isExpr()
}

// Literal holds an opaque wire value together with the descriptor needed to
// recover its native representation on demand.
type Literal struct {
	Value *structpb.Value
	Type  *dynamic.TypeRef
}

// EqualTo compares two operands using the equality of their resolved
// concrete type, not structural wire-value equality.
type EqualTo struct {
	Left  Expr
	Right Expr
	Tag   *Tag
}

type MathOp string

const (
	MathAdd      MathOp = "add"
	MathMultiply MathOp = "multiply"
	MathDivide   MathOp = "divide"
	MathModulo   MathOp = "modulo"
	MathNegate   MathOp = "negate"
)

// Math applies an arithmetic operation through the tag resolved at
// construction time. Right is nil for the unary Negate.
type Math struct {
	Op    MathOp
	Left  Expr
	Right Expr
	Tag   *Tag
}

type LogicalOp string

const (
	LogicalAnd LogicalOp = "and"
	LogicalOr  LogicalOp = "or"
	LogicalNot LogicalOp = "not"
)

// Logical is boolean logic. And and Or short-circuit: the right operand is
// only evaluated when the left one does not already decide the result.
// Right is nil for Not.
type Logical struct {
	Op    LogicalOp
	Left  Expr
	Right Expr
}

// Diverge is the two-way conditional: evaluate Guard, then exactly one of
// the branches.
type Diverge struct {
	Guard   Expr
	IfTrue  Expr
	IfFalse Expr
}

// Concat is native string concatenation, left then right.
type Concat struct {
	Left  Expr
	Right Expr
}

// SeqConcat appends the right sequence after the left one.
type SeqConcat struct {
	Left  Expr
	Right Expr
}

// SeqIndexOf returns the index of the first element equal to Element, or -1.
type SeqIndexOf struct {
	Seq     Expr
	Element Expr
}

// SeqReverse reverses element order.
type SeqReverse struct {
	Seq Expr
}

// SeqFilter keeps the elements for which Predicate returns true, preserving
// order. The predicate is applied with full function-application semantics.
type SeqFilter struct {
	Seq       Expr
	Predicate *Function
}

// SeqFlatMap applies Fn (which must return a sequence) to each element in
// order and flattens the results in element order.
type SeqFlatMap struct {
	Seq Expr
	Fn  *Function
}

// SeqLength yields the element count.
type SeqLength struct {
	Seq Expr
}

// SeqOf evaluates each element tree left-to-right and collects the results.
type SeqOf struct {
	Items []Expr
}

// OptionCons wraps an already-optional tree's evaluated inner value.
type OptionCons struct {
	Value Expr
}

// OptionFold evaluates Value; if it is absent only None runs, otherwise only
// Some is applied, with the inner value as its argument.
type OptionFold struct {
	Value Expr
	None  Expr
	Some  *Function
}

// EitherCons mirrors which side of an either value is populated.
type EitherCons struct {
	Value Expr
}

// EitherFold applies the function matching the populated side to that side's
// inner value; the other function is never evaluated.
type EitherFold struct {
	Value Expr
	Left  *Function
	Right *Function
}

// Call evaluates Arg, then applies Fn to the result.
type Call struct {
	Fn  *Function
	Arg Expr
}

// Binding looks up an identifier in the current environment.
type Binding struct {
	ID BindingID
}

// Function is a single-parameter closure: Input names the parameter, Body is
// evaluated with it bound. Evaluating a Function directly (not through Call)
// runs the body against whatever binding the ambient environment already
// holds for Input; only function application binds.
type Function struct {
	Input BindingID
	Body  Expr
}

// Context is the reserved extension point for request-context operations.
// Evaluating it is an unconditional failure until the extension lands.
type Context struct{}

// Die evaluates Message to a string, then fails fatally with it.
type Die struct {
	Message Expr
}

func (*Literal) isExpr()    {}
func (*EqualTo) isExpr()    {}
func (*Math) isExpr()       {}
func (*Logical) isExpr()    {}
func (*Diverge) isExpr()    {}
func (*Concat) isExpr()     {}
func (*SeqConcat) isExpr()  {}
func (*SeqIndexOf) isExpr() {}
func (*SeqReverse) isExpr() {}
func (*SeqFilter) isExpr()  {}
func (*SeqFlatMap) isExpr() {}
func (*SeqLength) isExpr()  {}
func (*SeqOf) isExpr()      {}
func (*OptionCons) isExpr() {}
func (*OptionFold) isExpr() {}
func (*EitherCons) isExpr() {}
func (*EitherFold) isExpr() {}
func (*Call) isExpr()       {}
func (*Binding) isExpr()    {}
func (*Function) isExpr()   {}
func (*Context) isExpr()    {}
func (*Die) isExpr()        {}
