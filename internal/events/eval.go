package events

import "time"

// EvalStart is emitted before a field's resolution plan is evaluated.
type EvalStart struct {
	Object string
	Field  string
}

// EvalFinish is emitted after plan evaluation completes.
type EvalFinish struct {
	Object   string
	Field    string
	Err      error
	Duration time.Duration
}
