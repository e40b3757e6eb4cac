package run

import (
	"bytes"
	"encoding/json"

	"github.com/buemura/scanrun/internal/scanner"
)

// Status is the overall outcome of a run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// ScannerResult is one scanner's contribution to a report.
type ScannerResult struct {
	Name       string
	SummaryKey string
	Found      bool
	Summary    scanner.Summary
	// Err is empty when the scanner completed.
	Err      string
	TimedOut bool
}

// Report is the aggregated record of a run and the only document the run
// emits besides the scanners' own artifacts.
type Report struct {
	Status     Status
	Target     string
	RunID      string
	OutputRoot string
	// Results are in plan order.
	Results []ScannerResult
}

// Found is the overall verdict: true when any scanner found something.
func (r *Report) Found() bool {
	for _, res := range r.Results {
		if res.Found {
			return true
		}
	}
	return false
}

// PerScannerFound maps each scanner name to its verdict.
func (r *Report) PerScannerFound() map[string]bool {
	out := make(map[string]bool, len(r.Results))
	for _, res := range r.Results {
		out[res.Name] = res.Found
	}
	return out
}

// Errors maps each failed scanner to its error message.
func (r *Report) Errors() map[string]string {
	out := map[string]string{}
	for _, res := range r.Results {
		if res.Err != "" {
			out[res.Name] = res.Err
		}
	}
	return out
}

// MarshalJSON writes the flat report layout: the fixed header fields, one
// boolean per scanner, one embedded summary per scanner, the overall verdict
// and, only when something failed, the per-scanner errors. Keys keep this
// order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, v any) error {
		data, err := marshalValue(v)
		if err != nil {
			return err
		}
		k, _ := marshalValue(key)
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(data)
		return nil
	}

	type kv struct {
		key string
		val any
	}
	fields := []kv{
		{"status", r.Status},
		{"target", r.Target},
		{"run_id", r.RunID},
		{"output_root", r.OutputRoot},
	}
	for _, res := range r.Results {
		fields = append(fields, kv{res.Name, res.Found})
	}
	for _, res := range r.Results {
		fields = append(fields, kv{res.SummaryKey, res.Summary})
	}
	fields = append(fields, kv{"overall_found", r.Found()})
	if errs := r.Errors(); len(errs) > 0 {
		fields = append(fields, kv{"errors", errs})
	}

	for _, f := range fields {
		if err := field(f.key, f.val); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalValue encodes v without HTML escaping; the caller's encoder decides
// whether to escape when it compacts the result.
func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// degradedSummary stands in for the summary of a scanner that failed.
func degradedSummary(errMsg string, timedOut bool) scanner.Summary {
	return scanner.Summary{
		"status":    string(StatusError),
		"error":     errMsg,
		"timed_out": timedOut,
	}
}

func statusOf(results []ScannerResult) Status {
	failed := 0
	for _, res := range results {
		if res.Err != "" {
			failed++
		}
	}
	switch {
	case failed == 0:
		return StatusOK
	case failed == len(results):
		return StatusError
	default:
		return StatusPartial
	}
}
