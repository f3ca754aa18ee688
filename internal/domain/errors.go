package domain

import (
	"errors"
	"fmt"
)

// Error classes. Callers match them with errors.Is.
var (
	// ErrConfiguration is a fatal pre-flight error: missing credential,
	// inverted date range, non-positive chunk size.
	ErrConfiguration = errors.New("configuration error")

	// ErrAcquisition aborts a run when the feed cannot be read completely.
	ErrAcquisition = errors.New("acquisition error")

	// ErrPersistence is returned when an artifact cannot be written or read.
	ErrPersistence = errors.New("persistence error")

	// ErrArtifactNotFound means the store holds no artifact under the name.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactInvalid means a stored artifact failed structural validation.
	ErrArtifactInvalid = errors.New("artifact invalid")
)

// AcquisitionKind classifies a feed failure.
type AcquisitionKind string

const (
	// KindAuth is a missing or rejected API credential. Never retried.
	KindAuth AcquisitionKind = "auth"
	// KindRejected is any other client error reported by the feed. Never retried.
	KindRejected AcquisitionKind = "rejected"
	// KindTransient is a network error, rate limit or server error on one attempt.
	KindTransient AcquisitionKind = "transient"
	// KindRetriesExhausted is a chunk that kept failing transiently.
	KindRetriesExhausted AcquisitionKind = "retries_exhausted"
	// KindMalformed is a response whose top-level shape is not a feed document.
	KindMalformed AcquisitionKind = "malformed"
)

// AcquisitionError describes a failed request for one chunk of the feed.
type AcquisitionError struct {
	Kind       AcquisitionKind
	Range      DateRange
	StatusCode int
	Attempts   int
	Err        error
}

func (e *AcquisitionError) Error() string {
	msg := fmt.Sprintf("acquisition %s for %s", e.Kind, e.Range)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the ErrAcquisition class and the underlying cause.
func (e *AcquisitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAcquisition}
	}
	return []error{ErrAcquisition, e.Err}
}

// Retryable reports whether another attempt at the same chunk may succeed.
func (e *AcquisitionError) Retryable() bool {
	return e.Kind == KindTransient
}

// IsAcquisitionKind reports whether err is an AcquisitionError of the given kind.
func IsAcquisitionKind(err error, kind AcquisitionKind) bool {
	var acqErr *AcquisitionError
	return errors.As(err, &acqErr) && acqErr.Kind == kind
}
