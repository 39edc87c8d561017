package events

import "time"

// UpstreamStart is emitted before an upstream request is performed.
type UpstreamStart struct {
	Method string
	URL    string
}

// UpstreamFinish is emitted after an upstream request completes.
type UpstreamFinish struct {
	Method   string
	URL      string
	Status   int
	Err      error
	Duration time.Duration
}
