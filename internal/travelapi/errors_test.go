package travelapi

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Condition
	}{
		{"search not found", 404, "Search not found", ConditionSearchNotFound},
		{"search not found mixed case", 404, "search NOT Found", ConditionSearchNotFound},
		{"template not found", 404, "Template not found", ConditionTemplateNotFound},
		{"document not ready", 404, "No document found", ConditionDocumentNotReady},
		{"plain not found", 404, "Cart not found", ConditionNotFound},
		{"validation", 400, "Validation error: occupancy is required", ConditionValidation},
		{"unauthorized", 401, "Unauthorized", ConditionValidation},
		{"server error", 500, "Internal server error", ConditionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, tt.body)
			if got.Condition != tt.want {
				t.Fatalf("Classify(%d, %q).Condition = %v, want %v", tt.status, tt.body, got.Condition, tt.want)
			}
			if got.Message != tt.body {
				t.Fatalf("Classify preserved message %q, want %q", got.Message, tt.body)
			}
			if got.StatusCode != tt.status {
				t.Fatalf("Classify status = %d, want %d", got.StatusCode, tt.status)
			}
		})
	}
}

func TestIsCondition(t *testing.T) {
	err := Classify(404, "Search not found")
	wrapped := fmt.Errorf("submit picks: %w", err)

	if !IsCondition(wrapped, ConditionSearchNotFound) {
		t.Fatal("IsCondition should see through wrapping")
	}
	if IsCondition(wrapped, ConditionTemplateNotFound) {
		t.Fatal("IsCondition matched the wrong condition")
	}
	if IsCondition(errors.New("plain"), ConditionSearchNotFound) {
		t.Fatal("IsCondition matched a non-API error")
	}
}

func TestMessagePreservesRemoteText(t *testing.T) {
	err := Classify(400, "Validation error: step 2 submitted, step 1 expected")
	if got := Message(fmt.Errorf("wrap: %w", err)); got != "Validation error: step 2 submitted, step 1 expected" {
		t.Fatalf("Message = %q", got)
	}
	if got := Message(errors.New("dial tcp: timeout")); got != "dial tcp: timeout" {
		t.Fatalf("Message fallback = %q", got)
	}
}
