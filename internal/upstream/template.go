package upstream

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hanpama/lambdaql/internal/expr"
)

// Template is an upstream request with {{path}} placeholders that are
// substituted from the evaluation context at request time. Paths are dotted
// field chains rooted at the context (e.g. {{args.id}}, {{value.author}}).
type Template struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Request is a fully rendered upstream request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Render substitutes every placeholder in the template from data.
// An unresolvable path is a field-lookup failure, not an empty substitution.
func (t Template) Render(data map[string]any) (Request, error) {
	url, err := renderString(t.URL, data)
	if err != nil {
		return Request{}, err
	}
	body, err := renderString(t.Body, data)
	if err != nil {
		return Request{}, err
	}
	headers := make(map[string]string, len(t.Headers))
	for k, v := range t.Headers {
		rendered, err := renderString(v, data)
		if err != nil {
			return Request{}, err
		}
		headers[k] = rendered
	}
	method := t.Method
	if method == "" {
		method = "GET"
	}
	return Request{Method: method, URL: url, Headers: headers, Body: body}, nil
}

// Key returns a stable identity for the rendered request, used for dedupe
// and cache lookups.
func (r Request) Key() string {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteByte(' ')
	b.WriteString(r.URL)
	if len(r.Headers) > 0 {
		names := make([]string, 0, len(r.Headers))
		for name := range r.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteByte('\n')
			b.WriteString(name)
			b.WriteByte(':')
			b.WriteString(r.Headers[name])
		}
	}
	if r.Body != "" {
		b.WriteString("\n\n")
		b.WriteString(r.Body)
	}
	return b.String()
}

func renderString(s string, data map[string]any) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:start])
		path := strings.TrimSpace(rest[start+2 : start+end])
		v, err := lookupPath(data, path)
		if err != nil {
			return "", err
		}
		b.WriteString(stringify(v))
		rest = rest[start+end+2:]
	}
}

func lookupPath(data map[string]any, path string) (any, error) {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, &expr.FieldNotFoundError{Name: path}
		}
		current, ok = m[part]
		if !ok {
			return nil, &expr.FieldNotFoundError{Name: path}
		}
	}
	return current, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
