package plan

import (
	"context"
	"fmt"
	"sync"

	"github.com/hanpama/lambdaql/internal/upstream"
)

// MockUpstream is a test double for the Upstream hook. It returns canned
// responses keyed by the rendered request key and records every call.
type MockUpstream struct {
	mu        sync.Mutex
	Responses map[string]any
	Errors    map[string]error
	calls     []upstream.Request
}

func NewMockUpstream() *MockUpstream {
	return &MockUpstream{Responses: make(map[string]any), Errors: make(map[string]error)}
}

// Respond registers a canned response for requests rendering to key.
func (m *MockUpstream) Respond(key string, value any) *MockUpstream {
	m.Responses[key] = value
	return m
}

// Fail registers an error for requests rendering to key.
func (m *MockUpstream) Fail(key string, err error) *MockUpstream {
	m.Errors[key] = err
	return m
}

func (m *MockUpstream) Call(_ context.Context, req upstream.Request) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	key := req.Key()
	if err, ok := m.Errors[key]; ok {
		return nil, err
	}
	if value, ok := m.Responses[key]; ok {
		return value, nil
	}
	return nil, fmt.Errorf("mock upstream has no response for %q", key)
}

// Calls returns a copy of the recorded requests in call order.
func (m *MockUpstream) Calls() []upstream.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]upstream.Request(nil), m.calls...)
}
