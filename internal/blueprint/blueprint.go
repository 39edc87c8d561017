package blueprint

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/hanpama/lambdaql/internal/dynamic"
	"github.com/hanpama/lambdaql/internal/expr"
	"github.com/hanpama/lambdaql/internal/plan"
)

// Resolver directives compiled by this package. The chain directives
// (source, http, compute) pipe into each other in declaration order; the
// wrapper directives (select, protected, cache) apply around the chain.
const (
	DirectiveCompute   = "compute"
	DirectiveHTTP      = "http"
	DirectiveSource    = "source"
	DirectiveSelect    = "select"
	DirectiveProtected = "protected"
	DirectiveCache     = "cache"
)

// Blueprint is the compiled form of a gateway schema: for every field that
// carries resolver directives, the resolution plan plus the descriptor of
// the field's declared type.
type Blueprint struct {
	Schema *ast.SchemaDocument
	Fields map[string]*ComputedField // keyed "Object.field"
}

// ComputedField pairs one field with its compiled resolution plan. Plans,
// trees and tags are immutable after compilation and safe to share across
// requests; each evaluation still needs its own environment and context.
type ComputedField struct {
	Object string
	Field  string
	Type   *dynamic.TypeRef

	// Plan is the full resolution plan for the field.
	Plan plan.Node
	// Expr is the field's evaluation tree when an @compute directive is
	// present; it is also reachable through Plan.
	Expr expr.Expr
}

// Key returns the "Object.field" lookup key.
func (f *ComputedField) Key() string { return f.Object + "." + f.Field }

// Compile parses SDL and compiles every @compute directive it finds into an
// evaluation tree. Violations are collected across the whole document and
// returned together as a ValidationError.
func Compile(name, sdl string) (*Blueprint, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, err
	}
	return CompileDocument(doc)
}

// CompileDocument compiles an already-parsed schema document.
func CompileDocument(doc *ast.SchemaDocument) (*Blueprint, error) {
	c := &compiler{}
	bp := &Blueprint{Schema: doc, Fields: make(map[string]*ComputedField)}

	for _, def := range doc.Definitions {
		if def.Kind != ast.Object {
			continue
		}
		for _, field := range def.Fields {
			cf := c.compileField(def.Name, field)
			if cf != nil {
				bp.Fields[cf.Key()] = cf
			}
		}
	}

	if len(c.violations) > 0 {
		return nil, ValidationError(c.violations)
	}
	return bp, nil
}


// typeRefFromAST converts a gqlparser type expression into the engine's
// descriptor shape.
func typeRefFromAST(t *ast.Type) *dynamic.TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return dynamic.NonNullType(typeRefFromAST(&ast.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return dynamic.NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return dynamic.ListType(typeRefFromAST(t.Elem))
	}
	return nil
}

// parseTypeRef parses the directive-level type notation: GraphQL type syntax
// ("Int!", "[String]") plus a top-level "Left | Right" form for two-way sum
// shapes.
func parseTypeRef(s string) (*dynamic.TypeRef, error) {
	if left, right, ok := splitEither(s); ok {
		lt, err := parseTypeRef(left)
		if err != nil {
			return nil, err
		}
		rt, err := parseTypeRef(right)
		if err != nil {
			return nil, err
		}
		return dynamic.EitherType(lt, rt), nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty type notation")
	}
	if s[len(s)-1] == '!' {
		inner, err := parseTypeRef(s[:len(s)-1])
		if err != nil {
			return nil, err
		}
		return dynamic.NonNullType(inner), nil
	}
	if s[0] == '[' {
		if s[len(s)-1] != ']' {
			return nil, fmt.Errorf("unterminated list type %q", s)
		}
		inner, err := parseTypeRef(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		return dynamic.ListType(inner), nil
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !(ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9') {
			return nil, fmt.Errorf("invalid type notation %q", s)
		}
	}
	return dynamic.NamedType(s), nil
}

// splitEither splits "A | B" at the top level only; brackets protect the
// separator inside list element types.
func splitEither(s string) (left, right string, ok bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '|':
			if depth == 0 {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
			}
		}
	}
	return "", "", false
}
