package cmd

import (
	"github.com/kodesearch/semcode/internal/errs"
)

// errBackgroundJobsNotSupported is returned by --background flags on
// index/reindex: this build has no background job tracker (the jobs
// subcommands always fail), so every run is synchronous and in-process.
var errBackgroundJobsNotSupported = errs.Expected("CLI", "BACKGROUND_NOT_SUPPORTED",
	"--background is not available in this build; run without it for a synchronous, in-process run")

// ExitCode maps an error to the process exit code contract:
// 0 ok, 1 internal, 2 invalid input, 3 I/O.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	e, ok := err.(*errs.Error)
	if !ok {
		return 1
	}
	switch e.Kind {
	case errs.KindExpected:
		if e.Code.Namespace == "FS" {
			return 3
		}
		return 2
	case errs.KindCancelled:
		return 1
	default: // KindUnexpected
		if e.Code.Namespace == "FS" {
			return 3
		}
		return 1
	}
}
