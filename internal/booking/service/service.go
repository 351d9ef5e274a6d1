package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"travel_quote_backend/internal/booking/flow"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/platform/apperr"
	"travel_quote_backend/platform/logger"

	"github.com/google/uuid"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// attempt is one booking workflow from search to delivered quote. All
// state a workflow accumulates lives here, keyed by the attempt id the
// caller holds. The mutex serializes operations per attempt so the step
// order guard observes a consistent session.
type attempt struct {
	mu sync.Mutex

	id            string
	createdAt     time.Time
	session       flow.SearchSession
	cart          *flow.CartRecord
	reservationID string
	delivery      *flow.DeliveryResult
}

// AttemptStatus is a read-only snapshot of an attempt.
type AttemptStatus struct {
	AttemptID     string
	CreatedAt     time.Time
	SearchID      string
	CompletedStep string
	NextStep      int
	CartID        string
	ReservationID string
	Delivery      *flow.DeliveryResult
}

// Orchestrator exposes the booking workflow as attempt-keyed operations.
// Attempts are held in memory: a workflow is short-lived and owned by
// one operator session, and an expired search always means starting over.
type Orchestrator struct {
	mu       sync.Mutex
	attempts map[string]*attempt

	seq   *Sequencer
	carts *CartManager
	disp  *QuoteDispatcher
	log   *logger.Logger
}

// NewOrchestrator composes the workflow components.
func NewOrchestrator(seq *Sequencer, carts *CartManager, disp *QuoteDispatcher, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		attempts: make(map[string]*attempt),
		seq:      seq,
		carts:    carts,
		disp:     disp,
		log:      log,
	}
}

func (o *Orchestrator) lookup(attemptID string) (*attempt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.attempts[attemptID]
	if !ok {
		return nil, apperr.NotFound("booking attempt not found")
	}
	return a, nil
}

// StartBooking creates a new attempt and runs the initial search
// (step 0). The returned attempt id keys every later operation.
func (o *Orchestrator) StartBooking(ctx context.Context, req travelapi.SearchRequest) (string, travelapi.SearchResponse, error) {
	a := &attempt{id: uuid.NewString(), createdAt: timeNow()}
	ctx = context.WithValue(ctx, logger.AttemptIDKey, a.id)

	a.mu.Lock()
	defer a.mu.Unlock()

	resp, err := o.seq.StartSearch(ctx, &a.session, req)
	if err != nil {
		return "", travelapi.SearchResponse{}, err
	}

	o.mu.Lock()
	o.attempts[a.id] = a
	o.mu.Unlock()

	o.log.WithContext(ctx).Info("booking attempt started", "search_id", a.session.SearchID)
	return a.id, resp, nil
}

// PickStep submits the selection for the attempt's next protocol step.
func (o *Orchestrator) PickStep(ctx context.Context, attemptID string, step int, selection json.RawMessage) (travelapi.SearchResponse, error) {
	a, err := o.lookup(attemptID)
	if err != nil {
		return travelapi.SearchResponse{}, err
	}
	ctx = context.WithValue(ctx, logger.AttemptIDKey, a.id)

	a.mu.Lock()
	defer a.mu.Unlock()

	resp, err := o.seq.SubmitPick(ctx, &a.session, step, selection)
	if err != nil {
		o.noteSessionLoss(ctx, a, err)
		return travelapi.SearchResponse{}, err
	}
	return resp, nil
}

// Results retrieves a further page of the attempt's search results
// without advancing the workflow.
func (o *Orchestrator) Results(ctx context.Context, attemptID string, req travelapi.ResultsRequest) (travelapi.SearchResponse, error) {
	a, err := o.lookup(attemptID)
	if err != nil {
		return travelapi.SearchResponse{}, err
	}
	ctx = context.WithValue(ctx, logger.AttemptIDKey, a.id)

	a.mu.Lock()
	defer a.mu.Unlock()

	resp, err := o.seq.FetchResults(ctx, &a.session, req)
	if err != nil {
		o.noteSessionLoss(ctx, a, err)
		return travelapi.SearchResponse{}, err
	}
	return resp, nil
}

// ConfirmAndCart exchanges the attempt's confirmed search for a cart.
func (o *Orchestrator) ConfirmAndCart(ctx context.Context, attemptID string) (flow.CartRecord, error) {
	a, err := o.lookup(attemptID)
	if err != nil {
		return flow.CartRecord{}, err
	}
	ctx = context.WithValue(ctx, logger.AttemptIDKey, a.id)

	a.mu.Lock()
	defer a.mu.Unlock()

	cart, err := o.carts.ConfirmCart(ctx, &a.session)
	if err != nil {
		o.noteSessionLoss(ctx, a, err)
		return flow.CartRecord{}, err
	}

	a.cart = &cart
	o.log.WithContext(ctx).Info("cart confirmed", "cart_id", cart.CartID, "pax", len(cart.Pax))
	return cart, nil
}

// DiscardCart removes the attempt's cart item remotely and forgets the
// cart locally. The consumed search cannot be revived, so the attempt
// must restart with a fresh search afterwards.
func (o *Orchestrator) DiscardCart(ctx context.Context, attemptID string) error {
	a, err := o.lookup(attemptID)
	if err != nil {
		return err
	}
	ctx = context.WithValue(ctx, logger.AttemptIDKey, a.id)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cart == nil {
		return &flow.OutOfOrderStepError{Expected: a.session.Completed.NextIndex(), Got: cartStepIndex}
	}

	if err := o.carts.RemoveCart(ctx, *a.cart); err != nil {
		return err
	}

	o.log.WithContext(ctx).Info("cart discarded", "cart_id", a.cart.CartID)
	a.cart = nil
	a.session = flow.SearchSession{}
	return nil
}

// PlaceAndSendInput carries everything needed to finalize an attempt.
type PlaceAndSendInput struct {
	Client     flow.ClientReference
	Contacts   []flow.Contact
	TemplateID string
	Send       bool
	Placement  PlacementOptions
}

// PlaceAndSendOutput is the finalized quote.
type PlaceAndSendOutput struct {
	ReservationID string
	Cart          flow.CartRecord
	Delivery      flow.DeliveryResult
}

// PlaceAndSend finalizes an attempt: it re-reads the cart, reconciles
// the contacts onto its pax, places the reservation, and delivers the
// quote document. The cart must already be confirmed.
func (o *Orchestrator) PlaceAndSend(ctx context.Context, attemptID string, in PlaceAndSendInput) (PlaceAndSendOutput, error) {
	a, err := o.lookup(attemptID)
	if err != nil {
		return PlaceAndSendOutput{}, err
	}
	ctx = context.WithValue(ctx, logger.AttemptIDKey, a.id)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cart == nil {
		return PlaceAndSendOutput{}, &flow.OutOfOrderStepError{Expected: a.session.Completed.NextIndex(), Got: cartStepIndex + 1}
	}

	cart, err := o.carts.GetCart(ctx, a.cart.CartID)
	if err != nil {
		return PlaceAndSendOutput{}, err
	}
	cart.SourceSearchID = a.cart.SourceSearchID

	cart, err = Reconcile(cart, in.Contacts)
	if err != nil {
		return PlaceAndSendOutput{}, err
	}
	a.cart = &cart

	reservationID, err := o.disp.PlaceReservation(ctx, cart.CartID, in.Client, cart, in.Placement)
	if err != nil {
		return PlaceAndSendOutput{}, err
	}
	a.reservationID = reservationID
	o.log.WithContext(ctx).Info("reservation placed", "reservation_id", reservationID, "client_id", in.Client.ID)

	delivery, err := o.disp.DeliverQuote(ctx, reservationID, in.TemplateID, in.Send)
	a.delivery = &delivery
	if err != nil {
		return PlaceAndSendOutput{}, err
	}

	o.log.WithContext(ctx).Info("quote delivered",
		"reservation_id", reservationID, "template", delivery.TemplateUsed, "attempts", len(delivery.Attempts))
	return PlaceAndSendOutput{ReservationID: reservationID, Cart: cart, Delivery: delivery}, nil
}

// Status returns a snapshot of an attempt for display.
func (o *Orchestrator) Status(attemptID string) (AttemptStatus, error) {
	a, err := o.lookup(attemptID)
	if err != nil {
		return AttemptStatus{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	st := AttemptStatus{
		AttemptID:     a.id,
		CreatedAt:     a.createdAt,
		SearchID:      a.session.SearchID,
		CompletedStep: a.session.Completed.String(),
		NextStep:      a.session.Completed.NextIndex(),
		ReservationID: a.reservationID,
		Delivery:      a.delivery,
	}
	if a.cart != nil {
		st.CartID = a.cart.CartID
	}
	return st, nil
}

// noteSessionLoss clears the session when the remote reported the search
// id unknown. The attempt survives so the caller can see what happened,
// but the workflow must restart with a fresh search.
func (o *Orchestrator) noteSessionLoss(ctx context.Context, a *attempt, err error) {
	var expired *flow.SearchExpiredError
	if !errors.As(err, &expired) {
		return
	}
	o.log.WithContext(ctx).Warn("search session lost", "search_id", expired.SearchID)
	a.session = flow.SearchSession{}
}
