package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/buemura/scanrun/internal/run"
	"github.com/buemura/scanrun/pkg/types"
)

// TableFormatter renders the report as a colored terminal table, one row per
// scanner.
type TableFormatter struct{}

func (f *TableFormatter) Format(w io.Writer, report *run.Report) error {
	fmt.Fprintf(w, "\n[%s] %s (status %s)\n", report.RunID, report.Target, colorStatus(report.Status))
	fmt.Fprintf(w, "  Output: %s\n", report.OutputRoot)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Scanner", "Found", "Status", "Detail"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("│")

	for _, res := range report.Results {
		status, detail := "ok", ""
		if v, ok := res.Summary["task_id"].(string); ok {
			detail = v
		}
		if res.Err != "" {
			status = "error"
			if res.TimedOut {
				status = "timeout"
			}
			detail = res.Err
		}
		table.Append([]string{res.Name, colorFound(res.Found), status, detail})
	}
	table.Render()

	for _, res := range report.Results {
		findings := findingsOf(res)
		if len(findings) == 0 {
			continue
		}
		writeFindings(w, res.Name, findings)
	}

	fmt.Fprintf(w, "  Vulnerability found: %s\n", colorFound(report.Found()))
	return nil
}

func writeFindings(w io.Writer, name string, findings []types.Finding) {
	fmt.Fprintf(w, "\n[%s] %d findings\n", name, len(findings))

	// Sort by severity (most severe first).
	sort.SliceStable(findings, func(i, j int) bool {
		return types.SeverityRank(findings[i].Severity) < types.SeverityRank(findings[j].Severity)
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Severity", "Title", "Param", "URL"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("│")
	for _, f := range findings {
		table.Append([]string{colorSeverity(f.Severity), f.Title, f.Param, f.URL})
	}
	table.Render()
}

// findingsOf decodes the "findings" list of a scanner summary. Summaries
// that carry none, or carry something else under that key, yield nil.
func findingsOf(res run.ScannerResult) []types.Finding {
	raw, ok := res.Summary["findings"]
	if !ok || raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var findings []types.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil
	}
	return findings
}

func colorSeverity(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return color.RedString("CRITICAL")
	case types.SeverityHigh:
		return color.RedString("HIGH")
	case types.SeverityMedium:
		return color.YellowString("MEDIUM")
	case types.SeverityLow:
		return color.CyanString("LOW")
	case types.SeverityInfo:
		return color.WhiteString("INFO")
	default:
		return string(s)
	}
}

func colorFound(found bool) string {
	if found {
		return color.RedString("YES")
	}
	return color.GreenString("no")
}

func colorStatus(s run.Status) string {
	switch s {
	case run.StatusOK:
		return color.GreenString(string(s))
	case run.StatusPartial:
		return color.YellowString(string(s))
	default:
		return color.RedString(string(s))
	}
}
