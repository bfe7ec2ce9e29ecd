package gpx

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the pipeline stage that failed
type ErrorCode string

const (
	ParseError     ErrorCode = "PARSE_ERROR"
	MatchError     ErrorCode = "MATCH_ERROR"
	SurfaceError   ErrorCode = "SURFACE_ERROR"
	ElevationError ErrorCode = "ELEVATION_ERROR"
)

var stageMessages = map[ErrorCode]string{
	ParseError:     "Failed to parse GPX file",
	MatchError:     "Failed to match route to roads",
	SurfaceError:   "Failed to detect surfaces",
	ElevationError: "Failed to process elevation data",
}

// Sentinels for errors.Is; they match any ProcessingError with the same code.
var (
	ErrParse     = &ProcessingError{Code: ParseError}
	ErrMatch     = &ProcessingError{Code: MatchError}
	ErrSurface   = &ProcessingError{Code: SurfaceError}
	ErrElevation = &ProcessingError{Code: ElevationError}
)

// ProcessingError is returned by every failing pipeline stage. Err holds the
// triggering fault.
type ProcessingError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func newProcessingError(code ErrorCode, cause error) *ProcessingError {
	return &ProcessingError{
		Code:    code,
		Message: fmt.Sprintf("%s: %v", stageMessages[code], cause),
		Err:     cause,
	}
}

func (e *ProcessingError) Error() string {
	if e.Message == "" {
		return stageMessages[e.Code]
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is matches on the error code so callers can test errors.Is(err, gpx.ErrParse)
func (e *ProcessingError) Is(target error) bool {
	var pe *ProcessingError
	if !errors.As(target, &pe) {
		return false
	}
	return pe.Code == e.Code
}

// CodeOf returns the ErrorCode of the first ProcessingError in err's chain,
// or "" when there is none.
func CodeOf(err error) ErrorCode {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
