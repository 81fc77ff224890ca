package errors

// Process exit codes. Upstream automation keys off these, so they are stable.
const (
	ExitOK             = 0
	ExitArgument       = 1
	ExitSchema         = 2
	ExitSystem         = 3
	ExitNotFound       = 4
	ExitRowErrors      = 5
	ExitDataValidation = 6
)

// ExitCode maps an error to the process exit code for its category.
// Persistence and notification failures never decide the outcome of a run
// on their own, so callers only pass them here when nothing else failed.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch TypeOf(err) {
	case ErrTypeArgument:
		return ExitArgument
	case ErrTypeSchema:
		return ExitSchema
	case ErrTypeNotFound:
		return ExitNotFound
	case ErrTypeRowField, ErrTypeGeocoding, ErrTypeStateConsistency:
		return ExitRowErrors
	default:
		return ExitSystem
	}
}
