package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/hanpama/lambdaql/internal/dynamic"
	"github.com/hanpama/lambdaql/internal/eventbus"
	"github.com/hanpama/lambdaql/internal/events"
	"github.com/hanpama/lambdaql/internal/expr"
	"github.com/hanpama/lambdaql/internal/upstream"
)

// Upstream is the host-provided hook for remote calls. The plan layer
// renders request templates and hands them over; it performs no networking
// of its own.
type Upstream interface {
	Call(ctx context.Context, req upstream.Request) (any, error)
}

// Authorizer gates Protect nodes.
type Authorizer interface {
	Authorize(ctx context.Context) error
}

// EvalContext carries the per-request data a plan can reach: the piped
// context value, the field arguments, and host-defined variables. One
// EvalContext belongs to one top-level evaluation; it is not safe for
// concurrent use.
type EvalContext struct {
	Value any
	Args  map[string]any
	Vars  map[string]any

	// results of deduplicated IO calls within this evaluation
	ioResults map[string]any
}

func NewEvalContext(value any, args, vars map[string]any) *EvalContext {
	return &EvalContext{Value: value, Args: args, Vars: vars, ioResults: make(map[string]any)}
}

// withValue derives a context whose piped value is v. The dedupe scope is
// shared: both belong to the same top-level evaluation.
func (c *EvalContext) withValue(v any) *EvalContext {
	return &EvalContext{Value: v, Args: c.Args, Vars: c.Vars, ioResults: c.ioResults}
}

// root exposes the context as the template and path lookup namespace.
func (c *EvalContext) root() map[string]any {
	return map[string]any{
		"value": c.Value,
		"args":  anyMap(c.Args),
		"vars":  anyMap(c.Vars),
	}
}

func anyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Evaluator walks resolution plans. It is safe for concurrent use: all
// per-request state lives in the EvalContext, and the response cache is
// internally synchronized.
type Evaluator struct {
	upstream Upstream
	auth     Authorizer
	cache    *ttlCache
}

func NewEvaluator(up Upstream, auth Authorizer) *Evaluator {
	return &Evaluator{upstream: up, auth: auth, cache: newTTLCache()}
}

// EvaluateField evaluates one field's plan, emitting evaluation events for
// the host's observability subscribers.
func (e *Evaluator) EvaluateField(ctx context.Context, object, field string, n Node, ectx *EvalContext) (any, error) {
	eventbus.Publish(ctx, events.EvalStart{Object: object, Field: field})
	started := time.Now()
	value, err := e.Evaluate(ctx, n, ectx)
	eventbus.Publish(ctx, events.EvalFinish{Object: object, Field: field, Err: err, Duration: time.Since(started)})
	return value, err
}

// Evaluate walks the plan rooted at n and produces a native value or the
// first failure. Expression trees are evaluated against a fresh binding
// environment per Compute node; two concurrent requests never share one.
func (e *Evaluator) Evaluate(ctx context.Context, n Node, ectx *EvalContext) (any, error) {
	switch v := n.(type) {
	case *Compute:
		return expr.Evaluate(v.Expr, expr.NewEnv())

	case *Dynamic:
		return dynamic.Materialize(v.Value, v.Type)

	case *IO:
		req, err := v.Template.Render(ectx.root())
		if err != nil {
			return nil, err
		}
		if v.Dedupe {
			if cached, ok := ectx.ioResults[req.Key()]; ok {
				return cached, nil
			}
		}
		value, err := e.callUpstream(ctx, req)
		if err != nil {
			return nil, err
		}
		if v.Dedupe {
			ectx.ioResults[req.Key()] = value
		}
		return value, nil

	case *Cache:
		req, err := v.IO.Template.Render(ectx.root())
		if err != nil {
			return nil, err
		}
		key := req.Key()
		if cached, ok := e.cache.get(key); ok {
			return cached, nil
		}
		value, err := e.callUpstream(ctx, req)
		if err != nil {
			return nil, err
		}
		e.cache.put(key, value, v.MaxAge)
		return value, nil

	case *Path:
		value, err := e.Evaluate(ctx, v.Input, ectx)
		if err != nil {
			return nil, err
		}
		return fieldAt(value, v.Path)

	case *ContextPath:
		return fieldAt(ectx.root(), v.Path)

	case *Protect:
		if e.auth == nil {
			return nil, fmt.Errorf("field is protected but no authorizer is configured")
		}
		if err := e.auth.Authorize(ctx); err != nil {
			return nil, err
		}
		return e.Evaluate(ctx, v.Node, ectx)

	case *Map:
		value, err := e.Evaluate(ctx, v.Input, ectx)
		if err != nil {
			return nil, err
		}
		key, ok := value.(string)
		if !ok {
			return nil, &expr.UnsupportedOperationError{Operation: "map", Value: value}
		}
		mapped, ok := v.KV[key]
		if !ok {
			return nil, &expr.FieldNotFoundError{Name: key}
		}
		return mapped, nil

	case *Pipe:
		first, err := e.Evaluate(ctx, v.First, ectx)
		if err != nil {
			return nil, err
		}
		return e.Evaluate(ctx, v.Second, ectx.withValue(first))

	case *Merge:
		merged := make(map[string]any)
		for _, child := range v.Nodes {
			value, err := e.Evaluate(ctx, child, ectx)
			if err != nil {
				return nil, err
			}
			obj, ok := value.(map[string]any)
			if !ok {
				return nil, &expr.UnsupportedOperationError{Operation: "merge", Value: value}
			}
			for k, fv := range obj {
				merged[k] = fv
			}
		}
		return merged, nil

	default:
		return nil, &expr.UnsupportedOperationError{Operation: fmt.Sprintf("%T", n), Value: nil}
	}
}

func (e *Evaluator) callUpstream(ctx context.Context, req upstream.Request) (any, error) {
	if e.upstream == nil {
		return nil, fmt.Errorf("plan requires an upstream but none is configured")
	}
	return e.upstream.Call(ctx, req)
}

// fieldAt drills into nested objects by field name. A missing field or a
// non-object step is a field-lookup failure.
func fieldAt(value any, path []string) (any, error) {
	for _, name := range path {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, &expr.FieldNotFoundError{Name: name}
		}
		value, ok = obj[name]
		if !ok {
			return nil, &expr.FieldNotFoundError{Name: name}
		}
	}
	return value, nil
}
