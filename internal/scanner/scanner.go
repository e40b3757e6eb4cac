package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
)

// Summary is the scanner-defined result document. The coordinator treats it
// as opaque apart from the findings count it extracts per scanner.
type Summary map[string]any

// TaskTarget identifies what a task points at.
type TaskTarget struct {
	URL string `json:"url"`
}

// Task is the request handed to an adapter. It is built once per invocation
// and must not be modified by the adapter.
type Task struct {
	TaskID  string         `json:"task_id"`
	Target  TaskTarget     `json:"target"`
	Options map[string]any `json:"options,omitempty"`
}

// Option returns the raw value of an option key. Unrecognized keys are the
// adapter's business; reading a missing key is not an error.
func (t Task) Option(key string) (any, bool) {
	v, ok := t.Options[key]
	return v, ok
}

// WithOptions returns a copy of t whose options are a private copy of opts.
func (t Task) WithOptions(opts map[string]any) Task {
	t.Options = maps.Clone(opts)
	return t
}

// Adapter is the boundary contract every scanner implements. Invoke is
// synchronous: it either returns a complete summary or an error, and writes
// all of its artifacts beneath outputDir.
type Adapter interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, task Task, outputDir string) (Summary, error)
}

// Clone returns a deep copy of s made through its JSON form, so the caller
// can hold on to it without sharing maps with the adapter.
func (s Summary) Clone() (Summary, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	out := Summary{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
