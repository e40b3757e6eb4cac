package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buemura/scanrun/internal/scanner"
	"github.com/buemura/scanrun/pkg/types"
)

// ReportFileName is written into the run root once the report is assembled.
const ReportFileName = "report.json"

// State is a step of a run.
type State int

const (
	StateInit State = iota
	StateIdentityAssigned
	StateNamespaceReady
	StateInvoked
	StateAggregated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateIdentityAssigned:
		return "identity_assigned"
	case StateNamespaceReady:
		return "namespace_ready"
	case StateInvoked:
		return "invoked"
	case StateAggregated:
		return "aggregated"
	default:
		return "unknown"
	}
}

// Config holds what a Coordinator needs besides the registry.
type Config struct {
	// OutDir is the root under which run directories are created.
	OutDir string
	// Plans are the scanners to run, in order. Defaults to DefaultPlans.
	Plans []Plan
	// Runner controls parallelism and the per-scanner timeout.
	Runner scanner.Options
	// Now is the clock read once per run. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
	// SkipReportFile disables writing report.json into the run root.
	SkipReportFile bool
}

// Coordinator runs every planned scanner against one target and aggregates
// the results.
type Coordinator struct {
	cfg    Config
	runner *scanner.Runner
	logger *slog.Logger
}

// NewCoordinator creates a coordinator dispatching to the adapters in
// registry. It fails when a plan names a scanner the registry does not hold
// or when two plans would write the same report key.
func NewCoordinator(registry *scanner.Registry, cfg Config) (*Coordinator, error) {
	if cfg.Plans == nil {
		cfg.Plans = DefaultPlans()
	}
	plans, err := normalizePlans(cfg.Plans, registry.Names())
	if err != nil {
		return nil, fmt.Errorf("invalid scanner plans: %w", err)
	}
	cfg.Plans = plans
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		cfg:    cfg,
		runner: scanner.NewRunner(registry, cfg.Logger),
		logger: cfg.Logger,
	}, nil
}

// Run executes one run against target.
//
// Input problems are returned as *InputError before anything touches the
// disk, and directory or report-file failures as *FSError; in both cases the
// report is nil. Scanner failures do not abort the run: every scanner is
// given its chance, the failures are recorded in the report, and Run returns
// the report together with a *ScannerError.
func (c *Coordinator) Run(ctx context.Context, target string) (*Report, error) {
	state := StateInit
	log := c.logger

	parsed, err := types.ParseTarget(target)
	if err != nil {
		return nil, &InputError{Msg: "target", Err: err}
	}
	outDir := strings.TrimSpace(c.cfg.OutDir)
	if outDir == "" {
		return nil, &InputError{Msg: "output directory cannot be empty"}
	}

	// One timestamp for the run id and every task id.
	stamp := c.cfg.Now().Unix()
	identity, err := NewIdentity(parsed.Raw, stamp)
	if err != nil {
		return nil, err
	}
	state = StateIdentityAssigned
	log = log.With("run_id", identity.RunID)
	log.Debug("run state", "state", state, "target", identity.Target)

	names := make([]string, len(c.cfg.Plans))
	for i, p := range c.cfg.Plans {
		names[i] = p.Name
	}
	ns, err := CreateNamespace(outDir, identity.RunID, names)
	if err != nil {
		log.Error("creating output namespace", "state", state, "error", err)
		return nil, err
	}
	state = StateNamespaceReady
	log.Debug("run state", "state", state, "output_root", ns.Root)

	jobs := make([]scanner.Job, len(c.cfg.Plans))
	for i, p := range c.cfg.Plans {
		dir, _ := ns.Dir(p.Name)
		jobs[i] = scanner.Job{
			Name:      p.Name,
			Task:      NewTask(p.TaskPrefix, parsed.URL, stamp, p.Options),
			OutputDir: dir,
		}
	}
	outcomes := c.runner.InvokeAll(ctx, jobs, c.cfg.Runner)
	state = StateInvoked
	log.Debug("run state", "state", state)

	report := &Report{
		Target:     identity.Target,
		RunID:      identity.RunID,
		OutputRoot: ns.Root,
		Results:    make([]ScannerResult, len(outcomes)),
	}
	var failed []string
	for i, out := range outcomes {
		p := c.cfg.Plans[i]
		res := ScannerResult{Name: p.Name, SummaryKey: p.SummaryKey, TimedOut: out.TimedOut}
		if out.Err != nil {
			res.Err = out.Err.Error()
			res.Summary = degradedSummary(res.Err, out.TimedOut)
			failed = append(failed, p.Name)
		} else {
			res.Summary = out.Summary
			res.Found = p.Found != nil && p.Found(out.Summary)
		}
		report.Results[i] = res
	}
	report.Status = statusOf(report.Results)
	state = StateAggregated
	log.Info("run aggregated", "status", report.Status, "found", report.Found())

	if !c.cfg.SkipReportFile {
		if err := writeReport(ns.Root, report); err != nil {
			log.Error("writing report", "state", state, "error", err)
			return nil, err
		}
	}

	if len(failed) > 0 {
		return report, &ScannerError{Failed: failed}
	}
	return report, nil
}

func writeReport(runRoot string, report *Report) error {
	path := filepath.Join(runRoot, ReportFileName)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return &FSError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &FSError{Path: path, Err: err}
	}
	return nil
}

// IsInputError reports whether err is an *InputError.
func IsInputError(err error) bool {
	var target *InputError
	return errors.As(err, &target)
}
