// Package activity records every remote booking API call so operators
// can audit what was sent and what came back.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded remote call.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Action    string    `json:"action"`
	Method    string    `json:"method"`
	Endpoint  string    `json:"endpoint"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Statuses for recorded entries.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder accepts activity entries. Recording must never fail the
// calling operation; implementations log and swallow their own errors.
type Recorder interface {
	Record(ctx context.Context, action, method, endpoint string, err error)
}

// NoopRecorder drops all entries. Used when no database is configured.
type NoopRecorder struct{}

// Record implements Recorder.
func (NoopRecorder) Record(context.Context, string, string, string, error) {}
