package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleClient implements Service over the Google Calendar v3 API using a
// service-account credential.
type GoogleClient struct {
	svc     *calendar.Service
	timeout time.Duration
}

// GoogleClientOptions configure a GoogleClient.
type GoogleClientOptions struct {
	// RequestTimeout bounds each API call. Zero means no client-side bound
	// beyond the caller's context.
	RequestTimeout time.Duration
}

// NewGoogleClient creates a Calendar client authenticated with the service
// account key file at credentialsFile.
func NewGoogleClient(ctx context.Context, credentialsFile string, optFns ...func(o *GoogleClientOptions)) (*GoogleClient, error) {
	opts := GoogleClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	keyData, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(keyData, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("invalid service account key: %w", err)
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &GoogleClient{svc: svc, timeout: opts.RequestTimeout}, nil
}

// NewGoogleClientFromService wraps an existing calendar service. Useful for
// tests with a stubbed HTTP transport.
func NewGoogleClientFromService(svc *calendar.Service, optFns ...func(o *GoogleClientOptions)) *GoogleClient {
	opts := GoogleClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &GoogleClient{svc: svc, timeout: opts.RequestTimeout}
}

// callContext applies the client-side request timeout, if any.
func (c *GoogleClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// ListEvents lists events in a calendar within a time range, expanded to
// single events and ordered by start time.
func (c *GoogleClient) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	events, err := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var out []Event
	for _, item := range events.Items {
		start, err := parseEventTime(item.Start, timeMin.Location())
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", item.Id, err)
		}
		end, err := parseEventTime(item.End, timeMin.Location())
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", item.Id, err)
		}
		out = append(out, Event{
			ID:      item.Id,
			Summary: item.Summary,
			Start:   start,
			End:     end,
		})
	}
	return out, nil
}

// InsertEvent creates a new timed event on the calendar.
func (c *GoogleClient) InsertEvent(ctx context.Context, calendarID string, input EventInput) (*CreatedEvent, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	event := &calendar.Event{
		Summary: input.Summary,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
	}

	created, err := c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	return &CreatedEvent{ID: created.Id, HTMLLink: created.HtmlLink}, nil
}

// parseEventTime handles both timed (DateTime) and all-day (Date) events.
func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, error) {
	if edt == nil {
		return time.Time{}, fmt.Errorf("missing event time")
	}
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	if edt.Date != "" {
		return time.ParseInLocation("2006-01-02", edt.Date, loc)
	}
	return time.Time{}, fmt.Errorf("event time has neither dateTime nor date")
}
