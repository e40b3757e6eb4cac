package run

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buemura/scanrun/internal/scanner"
)

func sampleReport(xssFound, sqliFound bool) *Report {
	return &Report{
		Status:     StatusOK,
		Target:     "http://example.test/",
		RunID:      "run_0123abcd_1700000000",
		OutputRoot: "/tmp/out/run_0123abcd_1700000000",
		Results: []ScannerResult{
			{Name: "xss_reflected", SummaryKey: "xss_summary", Found: xssFound, Summary: scanner.Summary{"stats": map[string]any{"xss_reflected": 0}}},
			{Name: "sqli", SummaryKey: "sqli_summary", Found: sqliFound, Summary: scanner.Summary{"findings_count": 0}},
		},
	}
}

func TestReport_FoundTruthTable(t *testing.T) {
	for _, xss := range []bool{false, true} {
		for _, sqli := range []bool{false, true} {
			t.Run(fmt.Sprintf("xss=%v,sqli=%v", xss, sqli), func(t *testing.T) {
				r := sampleReport(xss, sqli)
				assert.Equal(t, xss || sqli, r.Found())
				assert.Equal(t, map[string]bool{"xss_reflected": xss, "sqli": sqli}, r.PerScannerFound())
			})
		}
	}
}

func TestReport_MarshalJSONShape(t *testing.T) {
	data, err := json.Marshal(sampleReport(false, true))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, "http://example.test/", got["target"])
	assert.Equal(t, "run_0123abcd_1700000000", got["run_id"])
	assert.Equal(t, "/tmp/out/run_0123abcd_1700000000", got["output_root"])
	assert.Equal(t, false, got["xss_reflected"])
	assert.Equal(t, true, got["sqli"])
	assert.Equal(t, true, got["overall_found"])
	assert.Equal(t, map[string]any{"findings_count": float64(0)}, got["sqli_summary"])
	assert.Contains(t, got, "xss_summary")
	assert.NotContains(t, got, "errors")
}

func TestReport_MarshalJSONKeyOrder(t *testing.T) {
	data, err := json.Marshal(sampleReport(false, false))
	require.NoError(t, err)
	s := string(data)

	keys := []string{`"status"`, `"target"`, `"run_id"`, `"output_root"`, `"xss_reflected"`, `"sqli"`, `"xss_summary"`, `"sqli_summary"`, `"overall_found"`}
	last := -1
	for _, k := range keys {
		idx := strings.Index(s, k+":")
		require.NotEqual(t, -1, idx, k)
		assert.Greater(t, idx, last, k)
		last = idx
	}
}

func TestReport_MarshalJSONIncludesErrors(t *testing.T) {
	r := sampleReport(false, false)
	r.Status = StatusPartial
	r.Results[0].Err = "connection refused"
	r.Results[0].Summary = degradedSummary("connection refused", false)

	data, err := json.MarshalIndent(r, "", "  ")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "partial", got["status"])
	assert.Equal(t, map[string]any{"xss_reflected": "connection refused"}, got["errors"])
	assert.Equal(t, "error", got["xss_summary"].(map[string]any)["status"])
}

func TestStatusOf(t *testing.T) {
	ok := ScannerResult{Name: "a"}
	bad := ScannerResult{Name: "b", Err: "x"}

	assert.Equal(t, StatusOK, statusOf([]ScannerResult{ok, ok}))
	assert.Equal(t, StatusPartial, statusOf([]ScannerResult{ok, bad}))
	assert.Equal(t, StatusError, statusOf([]ScannerResult{bad, bad}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitInput, ExitCode(&InputError{Msg: "x"}))
	assert.Equal(t, ExitFilesystem, ExitCode(fmt.Errorf("wrapped: %w", &FSError{Path: "/x"})))
	assert.Equal(t, ExitScanner, ExitCode(&ScannerError{Failed: []string{"sqli"}}))
	assert.Equal(t, ExitInput, ExitCode(fmt.Errorf("required flag(s) \"url\" not set")))
}
