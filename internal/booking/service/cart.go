package service

import (
	"context"

	"travel_quote_backend/internal/activity"
	"travel_quote_backend/internal/booking/flow"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/platform/logger"
)

// cartStepIndex is the pseudo-index of cart confirmation in the step
// order, used only for out-of-order reporting.
const cartStepIndex = 3

// CartManager turns a finalized search into a durable cart. Confirming
// consumes the transient search id: the remote forgets it immediately,
// so a second confirmation of the same session reports expiry rather
// than being retried.
type CartManager struct {
	api travelapi.API
	rec activity.Recorder
	log *logger.Logger
}

// NewCartManager creates a cart manager.
func NewCartManager(api travelapi.API, rec activity.Recorder, log *logger.Logger) *CartManager {
	return &CartManager{api: api, rec: rec, log: log}
}

// ConfirmCart exchanges a fully confirmed search for a cart. The final
// step must have completed; a stale search id surfaces as SearchExpired
// and is never retried.
func (m *CartManager) ConfirmCart(ctx context.Context, session *flow.SearchSession) (flow.CartRecord, error) {
	if session.Completed != flow.StepConfirmed {
		return flow.CartRecord{}, &flow.OutOfOrderStepError{Expected: session.Completed.NextIndex(), Got: cartStepIndex}
	}

	resp, err := m.api.ConfirmCart(ctx, session.SearchID)
	m.rec.Record(ctx, "booking.cart.confirm", "PUT", "/booking/cart", err)
	if err != nil {
		if travelapi.IsCondition(err, travelapi.ConditionSearchNotFound) {
			return flow.CartRecord{}, &flow.SearchExpiredError{SearchID: session.SearchID, Message: travelapi.Message(err)}
		}
		return flow.CartRecord{}, err
	}

	cart := cartFromResponse(resp)
	cart.SourceSearchID = session.SearchID
	return cart, nil
}

// RemoveCart deletes the cart item remotely. Removal is keyed by the
// source search id; the consumed search cannot be revived afterwards,
// so the workflow restarts from a fresh search.
func (m *CartManager) RemoveCart(ctx context.Context, cart flow.CartRecord) error {
	err := m.api.RemoveFromCart(ctx, cart.SourceSearchID)
	m.rec.Record(ctx, "booking.cart.remove", "DELETE", "/booking/cart", err)
	return err
}

// GetCart re-reads a cart by its durable id.
func (m *CartManager) GetCart(ctx context.Context, cartID string) (flow.CartRecord, error) {
	resp, err := m.api.GetCart(ctx, cartID)
	m.rec.Record(ctx, "booking.cart.get", "GET", "/booking/cart/"+cartID, err)
	if err != nil {
		return flow.CartRecord{}, err
	}
	return cartFromResponse(resp), nil
}

func cartFromResponse(resp travelapi.CartResponse) flow.CartRecord {
	cart := flow.CartRecord{CartID: resp.CartID, Raw: resp.Raw}
	cart.Pax = make([]flow.PaxEntry, len(resp.Pax))
	for i, p := range resp.Pax {
		cart.Pax[i] = flow.PaxEntry{
			RemoteID: p.ID,
			Enabled:  p.Enabled,
			Name:     p.Name,
			Surname:  p.Surname,
			Email:    p.Email,
			Phone:    p.Phone,
		}
	}
	return cart
}

func paxToWire(entries []flow.PaxEntry) []travelapi.Pax {
	out := make([]travelapi.Pax, len(entries))
	for i, p := range entries {
		out[i] = travelapi.Pax{
			ID:      p.RemoteID,
			Enabled: p.Enabled,
			Name:    p.Name,
			Surname: p.Surname,
			Email:   p.Email,
			Phone:   p.Phone,
		}
	}
	return out
}
