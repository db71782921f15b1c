// Package calendar defines the external calendar boundary: listing events in
// a time window and inserting new ones. The Google implementation lives in
// google.go; tests use in-memory fakes.
package calendar

import (
	"context"
	"time"
)

// Event is a busy interval on a calendar. The backing service returns events
// ordered by start time ascending.
type Event struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
}

// EventInput describes an event to create.
type EventInput struct {
	Summary  string
	Start    time.Time
	End      time.Time
	TimeZone string
}

// CreatedEvent is the service's acknowledgement of an insert.
type CreatedEvent struct {
	ID       string
	HTMLLink string
}

// Service is the narrow contract the booking tools depend on. Both operations
// are blocking; callers bound latency through ctx.
type Service interface {
	// ListEvents returns events overlapping [timeMin, timeMax) on the
	// calendar, ordered by start time ascending.
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error)

	// InsertEvent creates a new event on the calendar.
	InsertEvent(ctx context.Context, calendarID string, input EventInput) (*CreatedEvent, error)
}
