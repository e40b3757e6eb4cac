package run

import (
	"errors"
	"fmt"
)

// Exit codes for the command line.
const (
	ExitOK         = 0
	ExitInput      = 1
	ExitFilesystem = 2
	ExitScanner    = 3
)

// InputError reports an empty or malformed target. It is raised before any
// filesystem or network activity.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Msg, e.Err)
	}
	return "invalid input: " + e.Msg
}

func (e *InputError) Unwrap() error { return e.Err }

// FSError reports a directory or file the run could not create.
type FSError struct {
	Path string
	Err  error
}

func (e *FSError) Error() string {
	return fmt.Sprintf("filesystem error at %s: %v", e.Path, e.Err)
}

func (e *FSError) Unwrap() error { return e.Err }

// ScannerError reports that one or more scanners failed. The run still
// produced a report; Failed lists the scanners that did not contribute.
type ScannerError struct {
	Failed []string
}

func (e *ScannerError) Error() string {
	return fmt.Sprintf("%d scanner(s) failed: %v", len(e.Failed), e.Failed)
}

// ExitCode maps an error returned by a run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var inputErr *InputError
	var fsErr *FSError
	var scanErr *ScannerError
	switch {
	case errors.As(err, &inputErr):
		return ExitInput
	case errors.As(err, &fsErr):
		return ExitFilesystem
	case errors.As(err, &scanErr):
		return ExitScanner
	default:
		return ExitInput
	}
}
