package plan_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hanpama/lambdaql/internal/dynamic"
	"github.com/hanpama/lambdaql/internal/expr"
	"github.com/hanpama/lambdaql/internal/plan"
	"github.com/hanpama/lambdaql/internal/upstream"
)

func intConst(n int64) plan.Node {
	return &plan.Compute{Expr: &expr.Literal{
		Value: structpb.NewNumberValue(float64(n)),
		Type:  dynamic.NonNullType(dynamic.NamedType(dynamic.ScalarInt)),
	}}
}

func emptyCtx() *plan.EvalContext {
	return plan.NewEvalContext(nil, nil, nil)
}

func TestEvaluateCompute(t *testing.T) {
	e := plan.NewEvaluator(nil, nil)
	got, err := e.Evaluate(context.Background(), intConst(42), emptyCtx())
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

func TestEvaluateDynamic(t *testing.T) {
	e := plan.NewEvaluator(nil, nil)
	wire, err := structpb.NewValue(map[string]any{"id": "u1", "score": 2.5})
	require.NoError(t, err)

	node := &plan.Dynamic{Value: wire, Type: dynamic.NamedType("User")}
	got, err := e.Evaluate(context.Background(), node, emptyCtx())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "u1", "score": 2.5}, got)

	node = &plan.Dynamic{Value: structpb.NewNullValue(), Type: dynamic.NonNullType(dynamic.NamedType(dynamic.ScalarInt))}
	_, err = e.Evaluate(context.Background(), node, emptyCtx())
	var cerr *dynamic.TypeCoercionError
	require.ErrorAs(t, err, &cerr)
}

func TestEvaluateContextPath(t *testing.T) {
	e := plan.NewEvaluator(nil, nil)
	ectx := plan.NewEvalContext(
		map[string]any{"author": map[string]any{"id": "u1"}},
		map[string]any{"limit": int64(10)},
		nil,
	)

	got, err := e.Evaluate(context.Background(), &plan.ContextPath{Path: []string{"value", "author", "id"}}, ectx)
	require.NoError(t, err)
	assert.Equal(t, "u1", got)

	got, err = e.Evaluate(context.Background(), &plan.ContextPath{Path: []string{"args", "limit"}}, ectx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got)

	_, err = e.Evaluate(context.Background(), &plan.ContextPath{Path: []string{"args", "missing"}}, ectx)
	var ferr *expr.FieldNotFoundError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "missing", ferr.Name)
}

func TestEvaluatePipeAndPath(t *testing.T) {
	up := plan.NewMockUpstream().Respond("GET https://api.test/users/u1", map[string]any{
		"user": map[string]any{"name": "ada"},
	})
	e := plan.NewEvaluator(up, nil)

	io := &plan.IO{Kind: plan.IOKindHTTP, Template: upstream.Template{URL: "https://api.test/users/{{args.id}}"}}
	node := &plan.Path{
		Input: plan.PipeNodes(io, &plan.ContextPath{Path: []string{"value", "user"}}),
		Path:  []string{"name"},
	}

	got, err := e.Evaluate(context.Background(), node, plan.NewEvalContext(nil, map[string]any{"id": "u1"}, nil))
	require.NoError(t, err)
	assert.Equal(t, "ada", got)
}

func TestEvaluatePathMissingField(t *testing.T) {
	e := plan.NewEvaluator(nil, nil)
	node := &plan.Path{Input: intConst(1), Path: []string{"name"}}
	_, err := e.Evaluate(context.Background(), node, emptyCtx())
	var ferr *expr.FieldNotFoundError
	require.ErrorAs(t, err, &ferr)
}

func TestEvaluateMap(t *testing.T) {
	e := plan.NewEvaluator(nil, nil)
	node := &plan.Map{
		Input: &plan.ContextPath{Path: []string{"value"}},
		KV:    map[string]string{"ACTIVE": "Active", "DISABLED": "Disabled"},
	}

	got, err := e.Evaluate(context.Background(), node, plan.NewEvalContext("ACTIVE", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "Active", got)

	_, err = e.Evaluate(context.Background(), node, plan.NewEvalContext("UNKNOWN", nil, nil))
	var ferr *expr.FieldNotFoundError
	require.ErrorAs(t, err, &ferr)
}

func TestEvaluateMerge(t *testing.T) {
	up := plan.NewMockUpstream().
		Respond("GET https://a.test/x", map[string]any{"a": int64(1)}).
		Respond("GET https://b.test/y", map[string]any{"b": int64(2)})
	e := plan.NewEvaluator(up, nil)

	node := &plan.Merge{Nodes: []plan.Node{
		&plan.IO{Template: upstream.Template{URL: "https://a.test/x"}},
		&plan.IO{Template: upstream.Template{URL: "https://b.test/y"}},
	}}
	got, err := e.Evaluate(context.Background(), node, emptyCtx())
	require.NoError(t, err)

	want := map[string]any{"a": int64(1), "b": int64(2)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge result mismatch (-want +got):\n%s", diff)
	}
}

type allowAuth struct{}

func (allowAuth) Authorize(context.Context) error { return nil }

type denyAuth struct{}

func (denyAuth) Authorize(context.Context) error { return fmt.Errorf("not authorized") }

func TestEvaluateProtect(t *testing.T) {
	node := &plan.Protect{Node: intConst(1)}

	t.Run("no authorizer configured", func(t *testing.T) {
		e := plan.NewEvaluator(nil, nil)
		_, err := e.Evaluate(context.Background(), node, emptyCtx())
		require.Error(t, err)
	})

	t.Run("denied", func(t *testing.T) {
		e := plan.NewEvaluator(nil, denyAuth{})
		_, err := e.Evaluate(context.Background(), node, emptyCtx())
		require.EqualError(t, err, "not authorized")
	})

	t.Run("allowed", func(t *testing.T) {
		e := plan.NewEvaluator(nil, allowAuth{})
		got, err := e.Evaluate(context.Background(), node, emptyCtx())
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	})
}

func TestIODedupeWithinOneEvaluation(t *testing.T) {
	up := plan.NewMockUpstream().Respond("GET https://a.test/x", map[string]any{"a": int64(1)})
	e := plan.NewEvaluator(up, nil)

	io := &plan.IO{Template: upstream.Template{URL: "https://a.test/x"}, Dedupe: true}
	node := &plan.Merge{Nodes: []plan.Node{io, io}}

	_, err := e.Evaluate(context.Background(), node, emptyCtx())
	require.NoError(t, err)
	assert.Len(t, up.Calls(), 1)

	// A new top-level evaluation gets a fresh dedupe scope.
	_, err = e.Evaluate(context.Background(), node, emptyCtx())
	require.NoError(t, err)
	assert.Len(t, up.Calls(), 2)
}

func TestCacheReusesAcrossEvaluations(t *testing.T) {
	up := plan.NewMockUpstream().Respond("GET https://a.test/x", map[string]any{"a": int64(1)})
	e := plan.NewEvaluator(up, nil)

	node := &plan.Cache{
		MaxAge: time.Minute,
		IO:     &plan.IO{Template: upstream.Template{URL: "https://a.test/x"}},
	}

	for i := 0; i < 3; i++ {
		got, err := e.Evaluate(context.Background(), node, emptyCtx())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": int64(1)}, got)
	}
	assert.Len(t, up.Calls(), 1)
}

func TestWrapCacheWrapsEveryIO(t *testing.T) {
	node := plan.PipeNodes(
		&plan.IO{Template: upstream.Template{URL: "https://a.test/x"}},
		&plan.Path{
			Input: &plan.IO{Template: upstream.Template{URL: "https://b.test/y"}},
			Path:  []string{"a"},
		},
	)
	wrapped := plan.WrapCache(time.Minute, node)

	var caches, ios int
	plan.Modify(wrapped, func(n plan.Node) (plan.Node, bool) {
		switch n.(type) {
		case *plan.Cache:
			caches++
		case *plan.IO:
			ios++
		}
		return nil, false
	})
	assert.Equal(t, 2, caches)
	// The walker descends into cache-wrapped IO nodes too.
	assert.Equal(t, 2, ios)
}

func TestModifyIOVisitsAllIONodes(t *testing.T) {
	node := &plan.Merge{Nodes: []plan.Node{
		&plan.IO{Template: upstream.Template{URL: "https://a.test/x"}},
		&plan.Cache{MaxAge: time.Minute, IO: &plan.IO{Template: upstream.Template{URL: "https://b.test/y"}}},
		&plan.Protect{Node: &plan.IO{Template: upstream.Template{URL: "https://c.test/z"}}},
	}}

	var urls []string
	plan.ModifyIO(node, func(io *plan.IO) {
		urls = append(urls, io.Template.URL)
	})
	assert.Equal(t, []string{"https://a.test/x", "https://b.test/y", "https://c.test/z"}, urls)
}

func TestEvaluateFieldFreshEnvironmentPerInvocation(t *testing.T) {
	// A plan holding a Function node evaluated directly must not observe
	// bindings leaked from a previous invocation.
	fn := &expr.Function{Input: 1, Body: &expr.Binding{ID: 1}}
	node := &plan.Compute{Expr: fn}
	e := plan.NewEvaluator(nil, nil)

	for i := 0; i < 2; i++ {
		_, err := e.Evaluate(context.Background(), node, emptyCtx())
		var berr *expr.BindingNotFoundError
		require.ErrorAs(t, err, &berr)
	}
}
