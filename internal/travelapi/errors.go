package travelapi

import (
	"errors"
	"fmt"
	"strings"
)

// Condition classifies the remote failure modes the booking flow reacts
// to. Everything else stays ConditionNone and is handled generically.
type Condition int

const (
	// ConditionNone means the error carries no recognized condition.
	ConditionNone Condition = iota
	// ConditionNotFound is a generic missing-resource response.
	ConditionNotFound
	// ConditionSearchNotFound means the transient search id is unknown
	// to the remote (stale or already consumed by a cart confirmation).
	ConditionSearchNotFound
	// ConditionValidation is a 400-class payload rejection.
	ConditionValidation
	// ConditionTemplateNotFound means the requested print template does
	// not exist on the remote account.
	ConditionTemplateNotFound
	// ConditionDocumentNotReady means the generated quote document has
	// not materialized server-side yet.
	ConditionDocumentNotReady
)

// APIError is a non-2xx response from the remote booking service. The
// original message text is always preserved for display.
type APIError struct {
	StatusCode int
	Condition  Condition
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("booking api returned %d: %s", e.StatusCode, e.Message)
}

// Classify builds an APIError from a response status and body, matching
// the known message fragments the remote uses for its quirk conditions.
func Classify(status int, body string) *APIError {
	message := strings.TrimSpace(body)
	apiErr := &APIError{StatusCode: status, Message: message}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "search not found"):
		apiErr.Condition = ConditionSearchNotFound
	case strings.Contains(lower, "template not found"):
		apiErr.Condition = ConditionTemplateNotFound
	case strings.Contains(lower, "no document found"):
		apiErr.Condition = ConditionDocumentNotReady
	case status == 404:
		apiErr.Condition = ConditionNotFound
	case status >= 400 && status < 500:
		apiErr.Condition = ConditionValidation
	}

	return apiErr
}

// IsCondition reports whether err is an APIError with the given condition.
func IsCondition(err error, c Condition) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Condition == c
}

// Message extracts the raw remote message from err, or err.Error() when
// the error did not originate from the remote service.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
