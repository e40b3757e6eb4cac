package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/buemura/scanrun/internal/run"
)

// Formatter renders a run report to a writer.
type Formatter interface {
	Format(w io.Writer, report *run.Report) error
}

// GetFormatter returns the appropriate formatter for the given format string.
func GetFormatter(format string) (Formatter, error) {
	switch format {
	case "", "json":
		return &JSONFormatter{}, nil
	case "table":
		return &TableFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: json, table)", format)
	}
}

// WriteVerdict prints the single true/false line shell callers key off.
func WriteVerdict(w io.Writer, found bool) error {
	_, err := fmt.Fprintln(w, strconv.FormatBool(found))
	return err
}
