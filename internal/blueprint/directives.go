package blueprint

import (
	"strconv"
	"time"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hanpama/lambdaql/internal/plan"
	"github.com/hanpama/lambdaql/internal/upstream"
)

// compileField assembles one field's resolution plan from its directives.
// Chain directives pipe in declaration order; wrapper directives apply
// around the assembled chain.
func (c *compiler) compileField(object string, field *ast.FieldDefinition) *ComputedField {
	fieldType := typeRefFromAST(field.Type)
	cf := &ComputedField{Object: object, Field: field.Name, Type: fieldType}

	var nodes []plan.Node
	for _, directive := range field.Directives {
		switch directive.Name {
		case DirectiveSource:
			if n := c.compileSource(directive); n != nil {
				nodes = append(nodes, n)
			}
		case DirectiveHTTP:
			if n := c.compileHTTP(directive); n != nil {
				nodes = append(nodes, n)
			}
		case DirectiveCompute:
			arg := directive.Arguments.ForName("expr")
			if arg == nil {
				c.report(violationAt(directive.Position, "@%s on %s.%s is missing the expr argument", DirectiveCompute, object, field.Name))
				continue
			}
			tree := c.compileExpr(arg.Value, fieldType)
			if tree == nil {
				continue
			}
			cf.Expr = tree
			nodes = append(nodes, &plan.Compute{Expr: tree})
		}
	}
	if len(nodes) == 0 {
		return nil
	}
	node := plan.PipeNodes(nodes...)

	if sel := field.Directives.ForName(DirectiveSelect); sel != nil {
		if path := c.pathArg(sel); path != nil {
			node = &plan.Path{Input: node, Path: path}
		}
	}
	if field.Directives.ForName(DirectiveProtected) != nil {
		node = &plan.Protect{Node: node}
	}
	if cache := field.Directives.ForName(DirectiveCache); cache != nil {
		if maxAge, ok := c.maxAgeArg(cache); ok {
			node = plan.WrapCache(maxAge, node)
		}
	}

	cf.Plan = node
	return cf
}

// compileSource compiles @source(path: ["args", "id"]) into a context path.
func (c *compiler) compileSource(directive *ast.Directive) plan.Node {
	path := c.pathArg(directive)
	if path == nil {
		return nil
	}
	return &plan.ContextPath{Path: path}
}

// compileHTTP compiles @http(method:, url:, headers:, body:, dedupe:) into
// an IO node with a request template.
func (c *compiler) compileHTTP(directive *ast.Directive) plan.Node {
	urlArg := directive.Arguments.ForName("url")
	if urlArg == nil || urlArg.Value.Kind != ast.StringValue {
		c.report(violationAt(directive.Position, "@%s needs a url string", DirectiveHTTP))
		return nil
	}
	template := upstream.Template{URL: urlArg.Value.Raw}

	if method := directive.Arguments.ForName("method"); method != nil {
		template.Method = method.Value.Raw
	}
	if body := directive.Arguments.ForName("body"); body != nil {
		template.Body = body.Value.Raw
	}
	if headers := directive.Arguments.ForName("headers"); headers != nil {
		if headers.Value.Kind != ast.ObjectValue {
			c.report(violationAt(headers.Value.Position, "@%s headers must be an object of strings", DirectiveHTTP))
			return nil
		}
		template.Headers = make(map[string]string, len(headers.Value.Children))
		for _, h := range headers.Value.Children {
			template.Headers[h.Name] = h.Value.Raw
		}
	}

	io := &plan.IO{Kind: plan.IOKindHTTP, Template: template}
	if dedupe := directive.Arguments.ForName("dedupe"); dedupe != nil {
		io.Dedupe = dedupe.Value.Raw == "true"
	}
	return io
}

// pathArg reads a required path: ["a", "b"] argument of string segments.
func (c *compiler) pathArg(directive *ast.Directive) []string {
	arg := directive.Arguments.ForName("path")
	if arg == nil || arg.Value.Kind != ast.ListValue {
		c.report(violationAt(directive.Position, "@%s needs a path list of field names", directive.Name))
		return nil
	}
	path := make([]string, len(arg.Value.Children))
	for i, child := range arg.Value.Children {
		if child.Value.Kind != ast.StringValue {
			c.report(violationAt(child.Value.Position, "@%s path segments must be strings", directive.Name))
			return nil
		}
		path[i] = child.Value.Raw
	}
	return path
}

// maxAgeArg reads @cache(maxAge: <milliseconds>).
func (c *compiler) maxAgeArg(directive *ast.Directive) (time.Duration, bool) {
	arg := directive.Arguments.ForName("maxAge")
	if arg == nil || arg.Value.Kind != ast.IntValue {
		c.report(violationAt(directive.Position, "@%s needs an integer maxAge in milliseconds", DirectiveCache))
		return 0, false
	}
	ms, err := strconv.ParseInt(arg.Value.Raw, 10, 64)
	if err != nil || ms <= 0 {
		c.report(violationAt(arg.Value.Position, "@%s maxAge must be a positive integer", DirectiveCache))
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
