package cli

import (
	"context"
	"errors"

	"github.com/couchcryptid/sheet-ladder-etl/internal/pipeline"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitUnexpected  = 1
	ExitConfig      = 2
	ExitSource      = 10
	ExitValidation  = 20
	ExitConversion  = 21
	ExitSink        = 30
	ExitInterrupted = 130
)

// configError marks invalid flags or environment.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// ExitCode maps a run error to the process exit code. Partial upload success
// is not an error and exits 0.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}

	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) {
		return ExitUnexpected
	}
	switch stageErr.Stage {
	case pipeline.StageSource:
		return ExitSource
	case pipeline.StageValidation:
		return ExitValidation
	case pipeline.StageExpansion, pipeline.StageConversion:
		return ExitConversion
	case pipeline.StageSink:
		return ExitSink
	default:
		return ExitUnexpected
	}
}
