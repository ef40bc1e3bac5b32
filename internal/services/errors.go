package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying: network errors, HTTP 5xx,
	// rate limiting.
	ErrTransient = errors.New("transient failure")
	// ErrParse marks responses the remote sent but we could not interpret.
	ErrParse = errors.New("parse error")
	// ErrConflict marks remote data that contradicts already-persisted data.
	ErrConflict = errors.New("data conflict")
	// ErrInconsistent marks catalog records that violate their own contract,
	// e.g. a show with no usable name.
	ErrInconsistent = errors.New("catalog inconsistency")
	// ErrConfiguration marks operator errors that no retry can fix.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the manager should retry the failed operation on
// a later cycle rather than surface it. Unclassified errors count as
// retryable: the feed and the catalog misbehave in more ways than we tag.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrInconsistent):
		return false
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
