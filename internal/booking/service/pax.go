package service

import (
	"strings"

	"travel_quote_backend/internal/booking/flow"
	"travel_quote_backend/platform/phone"
)

// Reconcile merges locally-known contacts onto a cart's pax slots.
//
// Pairing is positional: the first contact fills the first enabled slot,
// the second the next, and so on. Disabled slots are skipped, surplus
// slots keep their placeholder data, and surplus contacts are an error.
// Only contact fields are rewritten; the remote-assigned pax ids and the
// enabled flags pass through untouched, since the remote rejects pax
// lists whose id set differs from the cart's.
func Reconcile(cart flow.CartRecord, contacts []flow.Contact) (flow.CartRecord, error) {
	enabled := 0
	for _, p := range cart.Pax {
		if p.Enabled {
			enabled++
		}
	}
	if len(contacts) > enabled {
		return flow.CartRecord{}, &flow.PaxCountMismatchError{Contacts: len(contacts), Slots: enabled}
	}

	merged := cart
	merged.Pax = make([]flow.PaxEntry, len(cart.Pax))
	copy(merged.Pax, cart.Pax)

	next := 0
	for i := range merged.Pax {
		if !merged.Pax[i].Enabled || next >= len(contacts) {
			continue
		}
		c := contacts[next]
		next++

		name, surname := splitName(c)
		merged.Pax[i].Name = name
		merged.Pax[i].Surname = surname
		merged.Pax[i].Email = strings.TrimSpace(c.Email)
		merged.Pax[i].Phone = phone.NormalizeE164(c.Phone)
	}
	return merged, nil
}

// splitName derives a name/surname pair. When the surname is given the
// pair is used as-is; otherwise the free-form name is split on its first
// space, matching how the remote displays pax.
func splitName(c flow.Contact) (string, string) {
	name := strings.TrimSpace(c.Name)
	surname := strings.TrimSpace(c.Surname)
	if surname != "" {
		return name, surname
	}

	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 2 {
		return parts[0], strings.TrimSpace(parts[1])
	}
	return name, ""
}
