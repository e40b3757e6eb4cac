package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buemura/scanrun/internal/config"
	"github.com/buemura/scanrun/internal/run"
	"github.com/buemura/scanrun/internal/scanner"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"SCANRUN_URL", "SCANRUN_OUTDIR", "SCANRUN_OUTPUT_FORMAT", "SCANRUN_VERBOSE", "SCANRUN_PARALLEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func executeCmd(args ...string) (stdout, stderr string, err error) {
	var out, errBuf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errBuf.String(), err
}

// splitOutput separates the JSON report from the trailing verdict line.
func splitOutput(t *testing.T, stdout string) (map[string]any, string) {
	t.Helper()
	trimmed := strings.TrimRight(stdout, "\n")
	idx := strings.LastIndex(trimmed, "\n")
	require.NotEqual(t, -1, idx, "output: %q", stdout)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(trimmed[:idx]), &report))
	return report, trimmed[idx+1:]
}

func safeServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><a href="/item?id=1">item</a></html>`)
	}))
}

func TestVersionCommand(t *testing.T) {
	isolateEnv(t)
	out, _, err := executeCmd("version")
	require.NoError(t, err)
	assert.Contains(t, out, "scanrun version")
	assert.Contains(t, out, "xss_reflected")
	assert.Contains(t, out, "sqli")
}

func TestRun_NoFindings(t *testing.T) {
	isolateEnv(t)
	srv := safeServer()
	defer srv.Close()
	outDir := t.TempDir()

	stdout, _, err := executeCmd("--url", srv.URL+"/", "--outdir", outDir)
	require.NoError(t, err)

	report, verdict := splitOutput(t, stdout)
	assert.Equal(t, "false", verdict)
	assert.Equal(t, "ok", report["status"])
	assert.Equal(t, srv.URL+"/", report["target"])
	assert.Equal(t, false, report["xss_reflected"])
	assert.Equal(t, false, report["sqli"])

	runID := report["run_id"].(string)
	assert.Regexp(t, `^run_[0-9a-f]{8}_\d+$`, runID)
	root := filepath.Join(outDir, runID)
	assert.Equal(t, root, report["output_root"])
	assert.DirExists(t, filepath.Join(root, "xss_reflected"))
	assert.DirExists(t, filepath.Join(root, "sqli"))
	assert.FileExists(t, filepath.Join(root, run.ReportFileName))

	sqliSummary := report["sqli_summary"].(map[string]any)
	assert.Equal(t, float64(0), sqliSummary["findings_count"])
	assert.Equal(t, true, sqliSummary["non_destructive"])
	assert.Equal(t, float64(200), sqliSummary["max_links"])

	// Task ids carry the same timestamp as the run id.
	stamp := runID[strings.LastIndex(runID, "_")+1:]
	assert.Equal(t, "sqli-"+stamp, sqliSummary["task_id"])
	assert.Equal(t, "reflected-xss-"+stamp, report["xss_summary"].(map[string]any)["task_id"])
}

func TestRun_SQLiFinding(t *testing.T) {
	isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if strings.Contains(r.URL.Query().Get("id"), "'") {
			fmt.Fprint(w, "You have an error in your SQL syntax")
			return
		}
		fmt.Fprint(w, `<html><a href="/item?id=1">item</a></html>`)
	}))
	defer srv.Close()

	stdout, _, err := executeCmd("--url", srv.URL+"/", "--outdir", t.TempDir())
	require.NoError(t, err)

	report, verdict := splitOutput(t, stdout)
	assert.Equal(t, "true", verdict)
	assert.Equal(t, true, report["sqli"])
	assert.Equal(t, false, report["xss_reflected"])
	assert.Equal(t, true, report["overall_found"])
	assert.Equal(t, float64(1), report["sqli_summary"].(map[string]any)["findings_count"])
}

func TestRun_XSSFinding(t *testing.T) {
	isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><a href="/search?q=x">s</a>%s</html>`, r.URL.Query().Get("q"))
	}))
	defer srv.Close()

	stdout, _, err := executeCmd("--url", srv.URL+"/", "--outdir", t.TempDir())
	require.NoError(t, err)

	report, verdict := splitOutput(t, stdout)
	assert.Equal(t, "true", verdict)
	assert.Equal(t, true, report["xss_reflected"])
	stats := report["xss_summary"].(map[string]any)["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["xss_reflected"])
}

func TestRun_EmptyURLCreatesNothing(t *testing.T) {
	isolateEnv(t)
	outDir := t.TempDir()

	stdout, _, err := executeCmd("--url", "  ", "--outdir", outDir)
	require.Error(t, err)
	assert.Equal(t, run.ExitInput, run.ExitCode(err))
	assert.Empty(t, stdout)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_MissingFlags(t *testing.T) {
	isolateEnv(t)

	_, _, err := executeCmd("--outdir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url")
	assert.Equal(t, run.ExitInput, run.ExitCode(err))

	_, _, err = executeCmd("--url", "http://example.test/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--outdir")
}

func TestRun_UnwritableOutDir(t *testing.T) {
	isolateEnv(t)
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, _, err := executeCmd("--url", "http://example.test/", "--outdir", file)
	require.Error(t, err)
	assert.Equal(t, run.ExitFilesystem, run.ExitCode(err))
}

func TestRun_TableFormatFromEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SCANRUN_OUTPUT_FORMAT", "table")
	srv := safeServer()
	defer srv.Close()

	stdout, _, err := executeCmd("--url", srv.URL+"/", "--outdir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "xss_reflected")
	assert.True(t, strings.HasSuffix(stdout, "false\n"))
}

func TestRun_RejectsPositionalArgs(t *testing.T) {
	isolateEnv(t)
	_, _, err := executeCmd("http://example.test/")
	assert.Error(t, err)
}

func TestPlansFor(t *testing.T) {
	cfg := config.Defaults()
	cfg.RateLimit = 3
	cfg.SQLiMaxLinks = 20

	plans := plansFor(&cfg)
	require.Len(t, plans, 2)
	assert.Equal(t, 50, plans[0].Options["max_links"])
	assert.Equal(t, 3.0, plans[0].Options["rate_limit"])
	assert.Equal(t, 5.0, plans[0].Options["timeout_seconds"])
	assert.Equal(t, 20, plans[1].Options["max_links"])
	assert.Equal(t, true, plans[1].Options["non_destructive"])

	// The defaults themselves are untouched.
	assert.Equal(t, 200, run.DefaultPlans()[1].Options["max_links"])
}

func TestPlansFor_SubSecondRequestTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond} {
		cfg := config.Defaults()
		cfg.RequestTimeout = timeout

		for _, p := range plansFor(&cfg) {
			task := run.NewTask(p.TaskPrefix, "http://example.test/", 1, p.Options)
			assert.Equal(t, timeout, scanner.SecondsOption(task, "timeout_seconds"), "plan %s", p.Name)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRun_StdoutWriteFailureIsFilesystemError(t *testing.T) {
	isolateEnv(t)
	srv := safeServer()
	defer srv.Close()

	cmd := NewRootCmd()
	cmd.SetOut(failingWriter{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--url", srv.URL + "/", "--outdir", t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Equal(t, run.ExitFilesystem, run.ExitCode(err))
}
