package service

import (
	"errors"
	"testing"

	"travel_quote_backend/internal/booking/flow"
)

func testCart() flow.CartRecord {
	return flow.CartRecord{
		CartID: "cart_1",
		Pax: []flow.PaxEntry{
			{RemoteID: 9001, Enabled: true, Name: "TBA", Surname: "Guest 1"},
			{RemoteID: 9002, Enabled: false, Name: "TBA", Surname: "Infant"},
			{RemoteID: 9003, Enabled: true, Name: "TBA", Surname: "Guest 2"},
		},
	}
}

func TestReconcileKeepsRemoteIDs(t *testing.T) {
	cart := testCart()
	merged, err := Reconcile(cart, []flow.Contact{
		{Name: "Mario", Surname: "Rossi", Email: "mario@example.com", Phone: "+39 055 1234567"},
		{Name: "Lucia", Surname: "Bianchi"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	for i := range cart.Pax {
		if merged.Pax[i].RemoteID != cart.Pax[i].RemoteID {
			t.Fatalf("pax %d remote id changed: %d -> %d", i, cart.Pax[i].RemoteID, merged.Pax[i].RemoteID)
		}
		if merged.Pax[i].Enabled != cart.Pax[i].Enabled {
			t.Fatalf("pax %d enabled flag changed", i)
		}
	}

	if merged.Pax[0].Name != "Mario" || merged.Pax[0].Surname != "Rossi" {
		t.Fatalf("first enabled slot = %+v", merged.Pax[0])
	}
	// The disabled slot keeps its placeholder; the second contact lands
	// on the next enabled slot.
	if merged.Pax[1].Name != "TBA" {
		t.Fatalf("disabled slot was overwritten: %+v", merged.Pax[1])
	}
	if merged.Pax[2].Name != "Lucia" || merged.Pax[2].Surname != "Bianchi" {
		t.Fatalf("second enabled slot = %+v", merged.Pax[2])
	}
}

func TestReconcileNormalizesPhone(t *testing.T) {
	merged, err := Reconcile(testCart(), []flow.Contact{
		{Name: "Mario", Surname: "Rossi", Phone: "055 1234567"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if merged.Pax[0].Phone != "+390551234567" {
		t.Fatalf("phone = %q, want E.164 with default country", merged.Pax[0].Phone)
	}
}

func TestReconcileSplitsFreeFormName(t *testing.T) {
	merged, err := Reconcile(testCart(), []flow.Contact{
		{Name: "Mario Maria Rossi"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if merged.Pax[0].Name != "Mario" || merged.Pax[0].Surname != "Maria Rossi" {
		t.Fatalf("split = %q / %q", merged.Pax[0].Name, merged.Pax[0].Surname)
	}
}

func TestReconcileSurplusSlotsKeepPlaceholders(t *testing.T) {
	merged, err := Reconcile(testCart(), []flow.Contact{
		{Name: "Mario", Surname: "Rossi"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if merged.Pax[2].Name != "TBA" || merged.Pax[2].Surname != "Guest 2" {
		t.Fatalf("surplus slot lost its placeholder: %+v", merged.Pax[2])
	}
}

func TestReconcileTooManyContacts(t *testing.T) {
	_, err := Reconcile(testCart(), []flow.Contact{
		{Name: "A"}, {Name: "B"}, {Name: "C"},
	})

	var mismatch *flow.PaxCountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want PaxCountMismatchError", err)
	}
	if mismatch.Contacts != 3 || mismatch.Slots != 2 {
		t.Fatalf("PaxCountMismatchError = %+v", mismatch)
	}
}

func TestReconcileDoesNotMutateInput(t *testing.T) {
	cart := testCart()
	if _, err := Reconcile(cart, []flow.Contact{{Name: "Mario", Surname: "Rossi"}}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if cart.Pax[0].Name != "TBA" {
		t.Fatalf("input cart mutated: %+v", cart.Pax[0])
	}
}
