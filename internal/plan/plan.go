package plan

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hanpama/lambdaql/internal/dynamic"
	"github.com/hanpama/lambdaql/internal/expr"
	"github.com/hanpama/lambdaql/internal/upstream"
)

// Node is one operator of a field's resolution plan: the layer that
// surrounds pure expression evaluation with field selection, upstream calls,
// access protection and caching. Plans are immutable after compilation and
// shared across requests.
type Node interface {
	isNode()
}

// Compute evaluates an expression tree against a fresh binding environment.
type Compute struct {
	Expr expr.Expr
}

// Dynamic holds a constant wire value decoded against its descriptor on
// every evaluation.
type Dynamic struct {
	Value *structpb.Value
	Type  *dynamic.TypeRef
}

// IOKind names the upstream protocol a request template targets.
type IOKind string

const (
	IOKindHTTP    IOKind = "http"
	IOKindGraphQL IOKind = "graphql"
	IOKindGRPC    IOKind = "grpc"
)

// IO calls an upstream through the host-provided Upstream hook. The engine
// renders the template from the evaluation context but owns no networking.
// Dedupe reuses the first result for an identical rendered request within
// one top-level evaluation.
type IO struct {
	Kind     IOKind
	Template upstream.Template
	Dedupe   bool
}

// Cache wraps an IO node with a TTL memo keyed by the rendered request.
type Cache struct {
	MaxAge time.Duration
	IO     *IO
}

// Path drills into the input node's result by field names.
type Path struct {
	Input Node
	Path  []string
}

// ContextPath drills into the evaluation context (value, args, vars).
type ContextPath struct {
	Path []string
}

// Protect gates the inner node behind the host's authorizer.
type Protect struct {
	Node Node
}

// Map translates the input node's string result through a fixed table.
type Map struct {
	Input Node
	KV    map[string]string
}

// Pipe feeds the first node's result to the second node as its context value.
type Pipe struct {
	First  Node
	Second Node
}

// Merge evaluates every node and merges their object results left to right.
type Merge struct {
	Nodes []Node
}

func (*Compute) isNode()     {}
func (*Dynamic) isNode()     {}
func (*IO) isNode()          {}
func (*Cache) isNode()       {}
func (*Path) isNode()        {}
func (*ContextPath) isNode() {}
func (*Protect) isNode()     {}
func (*Map) isNode()         {}
func (*Pipe) isNode()        {}
func (*Merge) isNode()       {}

// PipeNodes chains nodes so each one's result becomes the next one's context
// value. A single node is returned unwrapped.
func PipeNodes(nodes ...Node) Node {
	if len(nodes) == 0 {
		return nil
	}
	out := nodes[0]
	for _, n := range nodes[1:] {
		out = &Pipe{First: out, Second: n}
	}
	return out
}

// Modify rebuilds the plan tree, replacing any node for which f returns a
// replacement. When f declines, the walk recurses into children.
func Modify(n Node, f func(Node) (Node, bool)) Node {
	if replaced, ok := f(n); ok {
		return replaced
	}
	switch v := n.(type) {
	case *Path:
		return &Path{Input: Modify(v.Input, f), Path: v.Path}
	case *Protect:
		return &Protect{Node: Modify(v.Node, f)}
	case *Map:
		return &Map{Input: Modify(v.Input, f), KV: v.KV}
	case *Pipe:
		return &Pipe{First: Modify(v.First, f), Second: Modify(v.Second, f)}
	case *Merge:
		nodes := make([]Node, len(v.Nodes))
		for i, child := range v.Nodes {
			nodes[i] = Modify(child, f)
		}
		return &Merge{Nodes: nodes}
	case *Cache:
		inner := Modify(v.IO, f)
		if io, ok := inner.(*IO); ok {
			return &Cache{MaxAge: v.MaxAge, IO: io}
		}
		return inner
	default:
		return n
	}
}

// ModifyIO applies f to every IO node in the plan tree, in place.
func ModifyIO(n Node, f func(*IO)) {
	switch v := n.(type) {
	case *IO:
		f(v)
	case *Cache:
		f(v.IO)
	case *Path:
		ModifyIO(v.Input, f)
	case *Protect:
		ModifyIO(v.Node, f)
	case *Map:
		ModifyIO(v.Input, f)
	case *Pipe:
		ModifyIO(v.First, f)
		ModifyIO(v.Second, f)
	case *Merge:
		for _, child := range v.Nodes {
			ModifyIO(child, f)
		}
	}
}

// WrapCache wraps every IO node in the plan with the cache primitive.
func WrapCache(maxAge time.Duration, n Node) Node {
	return Modify(n, func(child Node) (Node, bool) {
		if io, ok := child.(*IO); ok {
			return &Cache{MaxAge: maxAge, IO: io}, true
		}
		return nil, false
	})
}
