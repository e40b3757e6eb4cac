// Package sqli is the bundled error-based SQL injection scanner.
package sqli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/buemura/scanrun/internal/scanner"
	"github.com/buemura/scanrun/internal/scanner/crawl"
	"github.com/buemura/scanrun/internal/scanner/probe"
	"github.com/buemura/scanrun/pkg/types"
)

// Name is the scanner's registry name and output subdirectory.
const Name = "sqli"

// Recognized task options.
const (
	OptNonDestructive = "non_destructive"
	OptMaxLinks       = "max_links"
	OptRateLimit      = "rate_limit"
	OptTimeoutSeconds = "timeout_seconds"
)

const defaultMaxLinks = 200

// Scanner crawls the target and probes every discovered parameter for
// database error leakage.
type Scanner struct {
	logger *slog.Logger
}

// New creates a new SQL injection scanner.
func New(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger.With("scanner", Name)}
}

func (s *Scanner) Name() string        { return Name }
func (s *Scanner) Description() string { return "Error-based SQL injection detection" }

// Invoke runs the scan and writes findings.json and summary.json into
// outputDir. The findings count is the top-level findings_count key.
func (s *Scanner) Invoke(ctx context.Context, task scanner.Task, outputDir string) (scanner.Summary, error) {
	if task.Target.URL == "" {
		return nil, fmt.Errorf("task %s has no target URL", task.TaskID)
	}

	started := time.Now()
	nonDestructive := scanner.BoolOption(task, OptNonDestructive, true)
	maxLinks := scanner.IntOption(task, OptMaxLinks, defaultMaxLinks)
	timeout := scanner.SecondsOption(task, OptTimeoutSeconds)
	client := probe.New(timeout, scanner.FloatOption(task, OptRateLimit, 0))

	crawled := crawl.Discover(ctx, client, task.Target.URL, maxLinks)
	if crawled.SeedErr != nil {
		s.logger.Warn("target not reachable", "url", task.Target.URL, "error", crawled.SeedErr)
	}

	var findings []types.Finding
	paramsTested := 0
	for _, candidate := range crawled.Candidates {
		if ctx.Err() != nil {
			break
		}
		found, tested := CheckSQLi(ctx, client, candidate, nonDestructive)
		paramsTested += tested
		findings = append(findings, found...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if findings == nil {
		findings = []types.Finding{}
	}

	if _, err := scanner.WriteArtifact(outputDir, "findings.json", findings); err != nil {
		return nil, err
	}

	summary := scanner.Summary{
		"task_id":          task.TaskID,
		"target":           task.Target.URL,
		"status":           "ok",
		"summary_path":     filepath.Join(outputDir, "summary.json"),
		"non_destructive":  nonDestructive,
		"max_links":        maxLinks,
		"links_crawled":    crawled.Visited,
		"urls_tested":      len(crawled.Candidates),
		"params_tested":    paramsTested,
		"requests":         client.Requests(),
		"findings_count":   len(findings),
		"findings":         findings,
		"duration_seconds": time.Since(started).Seconds(),
	}
	if crawled.SeedErr != nil {
		summary["crawl_error"] = crawled.SeedErr.Error()
	}

	if _, err := scanner.WriteArtifact(outputDir, "summary.json", summary); err != nil {
		return nil, err
	}

	s.logger.Info("scan complete", "urls_tested", len(crawled.Candidates), "findings", len(findings))
	return summary, nil
}
