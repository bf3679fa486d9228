package app

import (
	"errors"

	"github.com/dmitrijs2005/isoshare/internal/common"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitAuth    = 3
)

// ExitCode maps a run error to the process exit status. An empty batch is
// a success and arrives here as nil.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, common.ErrAuth):
		return ExitAuth
	case errors.Is(err, common.ErrUsage), errors.Is(err, common.ErrValidation):
		return ExitUsage
	default:
		return ExitFailure
	}
}
