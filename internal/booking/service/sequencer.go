// Package service implements the booking workflow: step sequencing, cart
// confirmation, pax reconciliation, and quote placement and delivery
// against the remote booking API.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"travel_quote_backend/internal/activity"
	"travel_quote_backend/internal/booking/flow"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/platform/logger"
)

// Sequencer drives the remote multi-step search protocol. The remote
// enforces strict step order server-side; the sequencer enforces the
// same rule locally so an out-of-order submission never reaches the
// wire and never invalidates the session.
type Sequencer struct {
	api travelapi.API
	rec activity.Recorder
	log *logger.Logger
}

// NewSequencer creates a step sequencer.
func NewSequencer(api travelapi.API, rec activity.Recorder, log *logger.Logger) *Sequencer {
	return &Sequencer{api: api, rec: rec, log: log}
}

// guardStep rejects any step other than the single legal next one.
func guardStep(session *flow.SearchSession, step int) error {
	expected := session.Completed.NextIndex()
	if step != expected {
		return &flow.OutOfOrderStepError{Expected: expected, Got: step}
	}
	return nil
}

// StartSearch submits step 0, starting a fresh search. The session must
// not have completed any step yet; resubmitting step 0 on an advanced
// session is out of order and requires a new attempt.
func (s *Sequencer) StartSearch(ctx context.Context, session *flow.SearchSession, req travelapi.SearchRequest) (travelapi.SearchResponse, error) {
	if err := guardStep(session, 0); err != nil {
		return travelapi.SearchResponse{}, err
	}

	resp, err := s.api.StartSearch(ctx, req)
	s.rec.Record(ctx, "booking.search", "POST", "/booking/search", err)
	if err != nil {
		return travelapi.SearchResponse{}, mapStepError(session, 0, err)
	}

	session.SearchID = resp.SearchID
	session.Completed = flow.StepServiceDates
	session.CreatedAt = timeNow()
	session.PickType = resp.PickType
	session.Groups = resp.Groups
	return resp, nil
}

// FetchResults retrieves a further page of the session's option groups.
// Paging is not a step: any number of pages may be read between picks
// and the session never advances. The request's search id is filled in
// from the session.
func (s *Sequencer) FetchResults(ctx context.Context, session *flow.SearchSession, req travelapi.ResultsRequest) (travelapi.SearchResponse, error) {
	if session.SearchID == "" {
		return travelapi.SearchResponse{}, &flow.SearchExpiredError{Message: "no active search"}
	}
	req.SearchID = session.SearchID

	resp, err := s.api.FetchResults(ctx, req)
	s.rec.Record(ctx, "booking.results", "POST", "/booking/results", err)
	if err != nil {
		if travelapi.IsCondition(err, travelapi.ConditionSearchNotFound) {
			return travelapi.SearchResponse{}, &flow.SearchExpiredError{SearchID: session.SearchID, Message: travelapi.Message(err)}
		}
		return travelapi.SearchResponse{}, err
	}
	return resp, nil
}

// SubmitPick submits the selection for step 1 or 2. The session is
// advanced only when the remote accepts the pick; any rejection leaves
// it exactly where it was.
func (s *Sequencer) SubmitPick(ctx context.Context, session *flow.SearchSession, step int, picks json.RawMessage) (travelapi.SearchResponse, error) {
	if err := guardStep(session, step); err != nil {
		return travelapi.SearchResponse{}, err
	}

	resp, err := s.api.SubmitPicks(ctx, travelapi.PicksRequest{
		SearchID: session.SearchID,
		Step:     step,
		Picks:    picks,
	})
	s.rec.Record(ctx, "booking.pick", "POST", "/booking/picks", err)
	if err != nil {
		return travelapi.SearchResponse{}, mapStepError(session, step, err)
	}

	session.Completed = flow.Step(step + 1)
	session.PickType = resp.PickType
	session.Groups = resp.Groups
	return resp, nil
}

// mapStepError translates a remote step failure into the workflow error
// taxonomy. A stale search id is terminal for the session; everything
// else 400-class is a step rejection with the remote's own message.
func mapStepError(session *flow.SearchSession, step int, err error) error {
	if travelapi.IsCondition(err, travelapi.ConditionSearchNotFound) {
		return &flow.SearchExpiredError{SearchID: session.SearchID, Message: travelapi.Message(err)}
	}
	var apiErr *travelapi.APIError
	if errors.As(err, &apiErr) {
		return &flow.RemoteStepRejectedError{Step: step, Message: apiErr.Message}
	}
	return err
}
