package flow

import "fmt"

// OutOfOrderStepError reports a step submitted out of sequence. It is
// raised locally; no remote call is made for an out-of-order step.
type OutOfOrderStepError struct {
	Expected int
	Got      int
}

func (e *OutOfOrderStepError) Error() string {
	return fmt.Sprintf("step %d submitted, step %d expected", e.Got, e.Expected)
}

// RemoteStepRejectedError wraps a step rejection from the remote
// service, preserving the raw remote message.
type RemoteStepRejectedError struct {
	Step    int
	Message string
}

func (e *RemoteStepRejectedError) Error() string {
	return fmt.Sprintf("step %d rejected: %s", e.Step, e.Message)
}

// SearchExpiredError means the remote no longer recognizes the search
// id. The session that held it must be discarded; the operation is
// never retried with the same id.
type SearchExpiredError struct {
	SearchID string
	Message  string
}

func (e *SearchExpiredError) Error() string {
	return fmt.Sprintf("search %s expired: %s", e.SearchID, e.Message)
}

// PaxCountMismatchError reports more contacts than enabled pax slots.
type PaxCountMismatchError struct {
	Contacts int
	Slots    int
}

func (e *PaxCountMismatchError) Error() string {
	return fmt.Sprintf("%d contacts for %d enabled pax slots", e.Contacts, e.Slots)
}

// PlacementRejectedError wraps a reservation placement rejection,
// preserving the raw remote message.
type PlacementRejectedError struct {
	Message string
}

func (e *PlacementRejectedError) Error() string {
	return "placement rejected: " + e.Message
}

// TemplateUnavailableError means neither the requested template nor the
// fallback produced a document.
type TemplateUnavailableError struct {
	TemplateID string
	FallbackID string
	Message    string
}

func (e *TemplateUnavailableError) Error() string {
	if e.FallbackID != "" && e.FallbackID != e.TemplateID {
		return fmt.Sprintf("template %s unavailable (fallback %s also failed): %s", e.TemplateID, e.FallbackID, e.Message)
	}
	return fmt.Sprintf("template %s unavailable: %s", e.TemplateID, e.Message)
}

// DocumentNotReadyError means the document never became ready within
// the configured attempt budget.
type DocumentNotReadyError struct {
	Attempts int
	Message  string
}

func (e *DocumentNotReadyError) Error() string {
	return fmt.Sprintf("document not ready after %d attempts: %s", e.Attempts, e.Message)
}

// CancelledError reports that the caller cancelled a delivery mid-retry.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return "delivery cancelled: " + e.Err.Error()
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}
