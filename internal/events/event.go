package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "login-approval-service"
	EventVersion = "1.0"

	DefaultTopic = "login-approval.events"
)

// Event types published by the workflow
const (
	LoginSubmitted = "login.submitted"
	LoginApproved  = "login.approved"
	LoginRejected  = "login.rejected"

	CodeSubmitted = "code.submitted"
	CodeApproved  = "code.approved"
	CodeRejected  = "code.rejected"

	FinalRequested = "final.requested"
	FinalApproved  = "final.approved"
	FinalRejected  = "final.rejected"

	AccessGranted = "access.granted"
)

// Event is the envelope written to the bus
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// WorkflowData is the payload of every workflow event
type WorkflowData struct {
	Username     string `json:"username"`
	RequestID    uint   `json:"requestId,omitempty"`
	AuthProvider string `json:"authProvider,omitempty"`
	Status       string `json:"status,omitempty"`
	Code         string `json:"code,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher delivers workflow events. Callers treat publishing as
// best effort: a failed publish never fails the workflow step.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
