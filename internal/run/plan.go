package run

import (
	"fmt"
	"maps"
	"slices"

	"github.com/buemura/scanrun/internal/scanner"
)

// FoundFunc decides from a scanner's summary whether it found anything. It is
// the only place scanner-specific summary layout is known to this package.
type FoundFunc func(scanner.Summary) bool

// Plan is the coordinator's policy for one scanner.
type Plan struct {
	// Name is the registry name, the output subdirectory and the report's
	// boolean key.
	Name string
	// TaskPrefix starts the scanner's task id.
	TaskPrefix string
	// SummaryKey is the report key the summary is embedded under.
	SummaryKey string
	// Options are the defaults put in the scanner's task.
	Options map[string]any
	Found   FoundFunc
}

// DefaultPlans returns the plans for the bundled scanners in execution
// order. The SQLi defaults (non-destructive probing, at most 200 links) are
// a safety and cost policy chosen here rather than by the scanner.
func DefaultPlans() []Plan {
	return []Plan{
		{
			Name:       "xss_reflected",
			TaskPrefix: "reflected-xss",
			SummaryKey: "xss_summary",
			Found:      CountAt("stats", "xss_reflected"),
		},
		{
			Name:       "sqli",
			TaskPrefix: "sqli",
			SummaryKey: "sqli_summary",
			Options: map[string]any{
				"non_destructive": true,
				"max_links":       200,
			},
			Found: CountAt("findings_count"),
		},
	}
}

// WithOption returns a copy of p with key set in its options.
func (p Plan) WithOption(key string, value any) Plan {
	opts := maps.Clone(p.Options)
	if opts == nil {
		opts = map[string]any{}
	}
	opts[key] = value
	p.Options = opts
	return p
}

// CountAt returns a FoundFunc reporting whether the number found by walking
// path through nested summary maps is greater than zero. A missing key, a
// null, a non-number or a non-positive number all count as not found.
func CountAt(path ...string) FoundFunc {
	return func(s scanner.Summary) bool {
		var cur any = map[string]any(s)
		for _, key := range path {
			m, ok := asMap(cur)
			if !ok {
				return false
			}
			cur = m[key]
		}
		n, ok := scanner.Number(cur)
		return ok && n > 0
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case scanner.Summary:
		return m, true
	default:
		return nil, false
	}
}

// reportKeys are the top-level keys Report.MarshalJSON writes itself. A plan
// may not use them for its boolean or its summary.
var reportKeys = []string{"status", "target", "run_id", "output_root", "overall_found", "errors"}

// normalizePlans fills in default summary keys and checks that every plan
// names a registered scanner and that no two report keys collide.
func normalizePlans(plans []Plan, registered []string) ([]Plan, error) {
	out := make([]Plan, len(plans))
	used := make(map[string]string, 2*len(plans))
	claim := func(key, owner string) error {
		if key == "" {
			return fmt.Errorf("plan %q: empty report key", owner)
		}
		if slices.Contains(reportKeys, key) {
			return fmt.Errorf("plan %q: report key %q is reserved", owner, key)
		}
		if prev, ok := used[key]; ok {
			return fmt.Errorf("plan %q: report key %q already used by plan %q", owner, key, prev)
		}
		used[key] = owner
		return nil
	}

	for i, p := range plans {
		if !slices.Contains(registered, p.Name) {
			return nil, fmt.Errorf("plan %q: scanner not registered", p.Name)
		}
		if p.SummaryKey == "" {
			p.SummaryKey = p.Name + "_summary"
		}
		if err := claim(p.Name, p.Name); err != nil {
			return nil, err
		}
		if err := claim(p.SummaryKey, p.Name); err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
