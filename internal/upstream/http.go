package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hanpama/lambdaql/internal/eventbus"
	"github.com/hanpama/lambdaql/internal/events"
)

// HTTP performs rendered requests against JSON upstreams. It is the default
// host implementation of the plan layer's Upstream hook; the evaluation
// engine itself never touches it.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates an HTTP upstream with the given per-request timeout.
func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{client: &http.Client{Timeout: timeout}}
}

// Call performs the request and decodes the JSON response body.
func (u *HTTP) Call(ctx context.Context, req Request) (any, error) {
	eventbus.Publish(ctx, events.UpstreamStart{Method: req.Method, URL: req.URL})
	started := time.Now()

	value, status, err := u.do(ctx, req)

	eventbus.Publish(ctx, events.UpstreamFinish{
		Method:   req.Method,
		URL:      req.URL,
		Status:   status,
		Err:      err,
		Duration: time.Since(started),
	})
	return value, err
}

func (u *HTTP) do(ctx context.Context, req Request) (any, int, error) {
	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, 0, err
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if req.Body != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	res, err := u.client.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, res.StatusCode, fmt.Errorf("upstream %s %s returned status %d", req.Method, req.URL, res.StatusCode)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.StatusCode, err
	}
	if len(data) == 0 {
		return nil, res.StatusCode, nil
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, res.StatusCode, fmt.Errorf("upstream %s %s returned invalid JSON: %v", req.Method, req.URL, err)
	}
	return value, res.StatusCode, nil
}
