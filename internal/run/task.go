package run

import (
	"fmt"

	"github.com/buemura/scanrun/internal/scanner"
)

// NewTask builds the descriptor handed to one scanner. The task id is the
// prefix followed by the run's timestamp so every artifact of a run shares
// it. opts is copied.
func NewTask(prefix, targetURL string, stamp int64, opts map[string]any) scanner.Task {
	return scanner.Task{
		TaskID: fmt.Sprintf("%s-%d", prefix, stamp),
		Target: scanner.TaskTarget{URL: targetURL},
	}.WithOptions(opts)
}
