package blueprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/lambdaql/internal/blueprint"
	"github.com/hanpama/lambdaql/internal/dynamic"
	"github.com/hanpama/lambdaql/internal/expr"
)

func compileOne(t *testing.T, sdl string) *blueprint.Blueprint {
	t.Helper()
	bp, err := blueprint.Compile("schema.graphql", sdl)
	require.NoError(t, err)
	return bp
}

func evalField(t *testing.T, bp *blueprint.Blueprint, key string) any {
	t.Helper()
	cf := bp.Fields[key]
	require.NotNil(t, cf, "no computed field %s", key)
	v, err := expr.Evaluate(cf.Expr, expr.NewEnv())
	require.NoError(t, err)
	return v
}

func TestCompileArithmetic(t *testing.T) {
	bp := compileOne(t, `
type Query {
  total: Int! @compute(expr: {add: [{const: 40}, {const: 2}]})
  price: Float! @compute(expr: {multiply: [{const: 2.5}, {const: 4.0}]})
  negated: Int! @compute(expr: {negate: {const: 7}})
}`)
	assert.Equal(t, int64(42), evalField(t, bp, "Query.total"))
	assert.Equal(t, float64(10), evalField(t, bp, "Query.price"))
	assert.Equal(t, int64(-7), evalField(t, bp, "Query.negated"))
}

func TestCompileTagResolvedFromFieldType(t *testing.T) {
	bp := compileOne(t, `
type Query {
  half: Int! @compute(expr: {divide: [{const: 7}, {const: 2}]})
}`)
	cf := bp.Fields["Query.half"]
	require.NotNil(t, cf)
	math, ok := cf.Expr.(*expr.Math)
	require.True(t, ok)
	assert.Equal(t, dynamic.ScalarInt, math.Tag.Name)
	assert.Equal(t, int64(3), evalField(t, bp, "Query.half"))
}

func TestCompileLogicAndBranching(t *testing.T) {
	bp := compileOne(t, `
type Query {
  guarded: Boolean! @compute(expr: {and: [{const: false}, {die: {const: "never", type: "String"}}]})
  picked: String! @compute(expr: {if: {cond: {const: true, type: "Boolean"}, then: {const: "yes"}, else: {die: {const: "no"}}}})
}`)
	assert.Equal(t, false, evalField(t, bp, "Query.guarded"))
	assert.Equal(t, "yes", evalField(t, bp, "Query.picked"))
}

func TestCompileStringsAndSequences(t *testing.T) {
	bp := compileOne(t, `
type Query {
  greeting: String! @compute(expr: {concat: [{const: "Hello, "}, {const: "world"}]})
  count: Int! @compute(expr: {length: {seq: [{const: 1}, {const: 2}, {const: 3}]}})
  backwards: [Int!]! @compute(expr: {type: "Int!", reverse: {seq: [{const: 1}, {const: 2}]}})
}`)
	assert.Equal(t, "Hello, world", evalField(t, bp, "Query.greeting"))
	assert.Equal(t, int64(3), evalField(t, bp, "Query.count"))
	assert.Equal(t, []any{int64(2), int64(1)}, evalField(t, bp, "Query.backwards"))
}

func TestCompileClosures(t *testing.T) {
	bp := compileOne(t, `
type Query {
  odds: [Int!]! @compute(expr: {type: "Int!", filter: {
    seq: {seq: [{const: 1}, {const: 2}, {const: 3}, {const: 4}, {const: 5}]},
    predicate: {input: 1, body: {type: "Int", eq: [{modulo: [{bind: 1}, {const: 2}]}, {const: 1}]}}
  }})
  doubled: Int! @compute(expr: {call: {
    fn: {input: 2, body: {add: [{bind: 2}, {bind: 2}]}},
    arg: {const: 21}
  }})
}`)
	assert.Equal(t, []any{int64(1), int64(3), int64(5)}, evalField(t, bp, "Query.odds"))
	assert.Equal(t, int64(42), evalField(t, bp, "Query.doubled"))
}

func TestCompileEitherFold(t *testing.T) {
	bp := compileOne(t, `
type Query {
  outcome: String! @compute(expr: {eitherFold: {
    value: {const: {right: "done"}, type: "Int | String"},
    left: {input: 1, body: {const: "failed"}},
    right: {input: 2, body: {bind: 2}}
  }})
}`)
	assert.Equal(t, "done", evalField(t, bp, "Query.outcome"))
}

func TestCompileViolations(t *testing.T) {
	t.Run("unknown operator", func(t *testing.T) {
		_, err := blueprint.Compile("schema.graphql", `
type Query {
  broken: Int! @compute(expr: {frobnicate: [{const: 1}, {const: 2}]})
}`)
		var verr blueprint.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr, 1)
		assert.Contains(t, verr[0].Message, "frobnicate")
		assert.Equal(t, "schema.graphql", verr[0].File)
	})

	t.Run("const shape mismatch surfaces at compile time", func(t *testing.T) {
		_, err := blueprint.Compile("schema.graphql", `
type Query {
  broken: Int! @compute(expr: {const: "not a number"})
}`)
		var verr blueprint.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("violations are collected across fields", func(t *testing.T) {
		_, err := blueprint.Compile("schema.graphql", `
type Query {
  a: Int! @compute(expr: {nope: {const: 1}})
  b: Int! @compute(expr: {alsoNope: {const: 1}})
}`)
		var verr blueprint.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr, 2)
	})

	t.Run("missing expr argument", func(t *testing.T) {
		_, err := blueprint.Compile("schema.graphql", `
type Query {
  a: Int! @compute
}`)
		var verr blueprint.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestCompileIgnoresPlainFields(t *testing.T) {
	bp := compileOne(t, `
type Query {
  plain: String
  computed: Int! @compute(expr: {const: 1})
}`)
	assert.Len(t, bp.Fields, 1)
	assert.Contains(t, bp.Fields, "Query.computed")
}
