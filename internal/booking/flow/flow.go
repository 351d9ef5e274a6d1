// Package flow holds the booking workflow's state machine types. The
// remote protocol's implicit ordering is captured as an explicit Step
// enum so illegal transitions are rejected before a wire call is made.
package flow

import (
	"encoding/json"
	"time"
)

// Step is the last completed step of a search session.
type Step int

const (
	// StepNone: no step has completed; the session has no search id yet.
	StepNone Step = iota
	// StepServiceDates: the service/date search (step 0) completed.
	StepServiceDates
	// StepRoomSelection: the room/package pick (step 1) completed.
	StepRoomSelection
	// StepConfirmed: the confirmation (step 2) completed; the search id
	// is eligible for cart confirmation.
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepNone:
		return "none"
	case StepServiceDates:
		return "service_dates"
	case StepRoomSelection:
		return "room_selection"
	case StepConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// NextIndex returns the index of the only step that may be submitted
// next. Step indices and completed steps are off by one: completing
// step k moves Completed to Step(k+1).
func (s Step) NextIndex() int {
	return int(s)
}

// SearchSession tracks one in-flight search. It is owned by exactly one
// booking attempt; the search id is transient and must be discarded once
// the remote reports it unknown.
type SearchSession struct {
	SearchID  string
	Completed Step
	CreatedAt time.Time
	PickType  string
	// Groups holds the latest supplier payload for passthrough display.
	Groups json.RawMessage
}

// PaxEntry is a traveler slot on a cart. RemoteID is assigned solely by
// the remote service and is never generated or overwritten locally.
type PaxEntry struct {
	RemoteID int64
	Enabled  bool
	Name     string
	Surname  string
	Email    string
	Phone    string
}

// CartRecord is a durable cart created from a confirmed search. It is
// immutable except for pax reconciliation, which rewrites contact fields
// in place without touching identifiers.
type CartRecord struct {
	CartID string
	// SourceSearchID is the search whose confirmation created the cart
	// item. The remote keys cart removal by it, not by the cart id.
	SourceSearchID string
	Pax            []PaxEntry
	Raw            json.RawMessage
}

// Contact is locally-known customer contact data to reconcile onto a
// cart's placeholder pax.
type Contact struct {
	Name    string
	Surname string
	Email   string
	Phone   string
}

// ClientReference is the resolved master-data client id. It is sent
// verbatim as a bare number in the placement payload.
type ClientReference struct {
	ID int64
}

// AttemptStatus is the outcome of one delivery attempt.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSent    AttemptStatus = "sent"
	AttemptFailed  AttemptStatus = "failed"
)

// QuoteAttempt records one delivery attempt against the remote print
// endpoint, including the raw remote message on failure.
type QuoteAttempt struct {
	ReservationID string
	TemplateID    string
	Status        AttemptStatus
	Err           string
}

// DeliveryResult is the final outcome of a DeliverQuote call, including
// which template actually succeeded and every attempt made.
type DeliveryResult struct {
	Status       string
	TemplateUsed string
	PDFURL       string
	EmailSent    bool
	Attempts     []QuoteAttempt
}
