package analytics

import (
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-learn/core"
)

var (
	// errors
	ErrInvalidScore         = errors.New("score must be between 0 and max_score, and max_score must be positive")
	ErrInvalidDuration      = errors.New("duration must be positive")
	ErrInvalidTier          = errors.New("difficulty must be one of low, medium, high")
	ErrInvalidStudent       = errors.New("student id is required")
	ErrNoSubjects           = errors.New("no subjects given and no quiz history to infer them from")
	ErrNoQuestionsAvailable = errors.New("no questions available for this subject")
	ErrRecordNotFound       = errors.New("student analytics record not found")
	ErrRecordExists         = errors.New("student analytics record already exists")
	ErrConflict             = errors.New("student analytics record was modified concurrently")
	ErrUpstreamUnavailable  = errors.New("upstream data unavailable")
)

func invalid(err error, field string) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

// UpstreamError reports a collaborator that failed to supply catalog data.
// It matches ErrUpstreamUnavailable with errors.Is.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return e.Op + ": " + ErrUpstreamUnavailable.Error() + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }
