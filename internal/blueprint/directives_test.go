package blueprint_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/lambdaql/internal/blueprint"
	"github.com/hanpama/lambdaql/internal/plan"
)

type allowAll struct{}

func (allowAll) Authorize(context.Context) error { return nil }

func evalPlan(t *testing.T, bp *blueprint.Blueprint, key string, up plan.Upstream, ectx *plan.EvalContext) (any, error) {
	t.Helper()
	cf := bp.Fields[key]
	require.NotNil(t, cf, "no computed field %s", key)
	ev := plan.NewEvaluator(up, allowAll{})
	return ev.Evaluate(context.Background(), cf.Plan, ectx)
}

func TestCompileHTTPDirective(t *testing.T) {
	bp := compileOne(t, `
type Query {
  user: JSON @http(method: "GET", url: "https://api.example.com/users/{{args.id}}", headers: {Accept: "application/json"}, dedupe: true)
}`)
	cf := bp.Fields["Query.user"]
	require.NotNil(t, cf)
	io, ok := cf.Plan.(*plan.IO)
	require.True(t, ok, "expected an IO plan, got %T", cf.Plan)
	assert.Equal(t, plan.IOKindHTTP, io.Kind)
	assert.True(t, io.Dedupe)
	assert.Equal(t, "https://api.example.com/users/{{args.id}}", io.Template.URL)
	assert.Equal(t, map[string]string{"Accept": "application/json"}, io.Template.Headers)

	up := plan.NewMockUpstream().
		Respond("GET https://api.example.com/users/7\nAccept:application/json", map[string]any{"name": "ada"})
	got, err := evalPlan(t, bp, "Query.user", up, plan.NewEvalContext(nil, map[string]any{"id": int64(7)}, nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ada"}, got)
}

func TestCompileSourceAndSelect(t *testing.T) {
	bp := compileOne(t, `
type User {
  name: String @source(path: ["value", "profile"]) @select(path: ["name"])
}`)
	cf := bp.Fields["User.name"]
	require.NotNil(t, cf)
	path, ok := cf.Plan.(*plan.Path)
	require.True(t, ok, "expected a Path plan, got %T", cf.Plan)
	assert.Equal(t, []string{"name"}, path.Path)
	_, ok = path.Input.(*plan.ContextPath)
	assert.True(t, ok)

	value := map[string]any{"profile": map[string]any{"name": "ada"}}
	got, err := evalPlan(t, bp, "User.name", nil, plan.NewEvalContext(value, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "ada", got)
}

func TestCompileProtectedWrapsChain(t *testing.T) {
	bp := compileOne(t, `
type Query {
  secret: String! @compute(expr: {const: "hush"}) @protected
}`)
	cf := bp.Fields["Query.secret"]
	require.NotNil(t, cf)
	protect, ok := cf.Plan.(*plan.Protect)
	require.True(t, ok, "expected a Protect plan, got %T", cf.Plan)
	_, ok = protect.Node.(*plan.Compute)
	assert.True(t, ok)

	got, err := evalPlan(t, bp, "Query.secret", nil, plan.NewEvalContext(nil, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "hush", got)
}

func TestCompileCacheWrapsIO(t *testing.T) {
	bp := compileOne(t, `
type Query {
  feed: JSON @http(url: "https://api.example.com/feed") @cache(maxAge: 60000)
}`)
	cf := bp.Fields["Query.feed"]
	require.NotNil(t, cf)
	cache, ok := cf.Plan.(*plan.Cache)
	require.True(t, ok, "expected a Cache plan, got %T", cf.Plan)
	assert.Equal(t, time.Minute, cache.MaxAge)
	assert.Equal(t, "https://api.example.com/feed", cache.IO.Template.URL)
}

func TestCompileDirectiveChainPipesInOrder(t *testing.T) {
	bp := compileOne(t, `
type Query {
  posts: JSON @source(path: ["vars", "feedURL"]) @http(url: "https://api.example.com/posts?after={{value}}")
}`)
	cf := bp.Fields["Query.posts"]
	require.NotNil(t, cf)
	pipe, ok := cf.Plan.(*plan.Pipe)
	require.True(t, ok, "expected a Pipe plan, got %T", cf.Plan)
	_, ok = pipe.First.(*plan.ContextPath)
	assert.True(t, ok)
	_, ok = pipe.Second.(*plan.IO)
	assert.True(t, ok)
}

func TestCompileHTTPMissingURL(t *testing.T) {
	_, err := blueprint.Compile("schema.graphql", `
type Query {
  broken: JSON @http(method: "GET")
}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestCompileCacheRejectsBadMaxAge(t *testing.T) {
	_, err := blueprint.Compile("schema.graphql", `
type Query {
  feed: JSON @http(url: "https://api.example.com/feed") @cache(maxAge: -5)
}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxAge")
}

func TestCompileSourceRejectsNonStringSegments(t *testing.T) {
	_, err := blueprint.Compile("schema.graphql", `
type Query {
  broken: JSON @source(path: [1, 2])
}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segments")
}
