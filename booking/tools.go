// Package booking implements the two calendar tools exposed to the agent:
// checking availability for a day and booking an appointment. Failures are
// returned as descriptive observation strings, never as errors, so the model
// can relay them conversationally.
package booking

import (
	"fmt"
	"time"

	"github.com/schedbot/schedbot/calendar"
	"github.com/schedbot/schedbot/timeparse"
	"github.com/schedbot/schedbot/tool"
)

const (
	dayFormat  = "Monday, January 02, 2006"
	slotFormat = "03:04 PM"

	invalidDateMsg     = "Invalid date format. Please provide a clear date like 'tomorrow', 'October 31st', or '2024-10-31'."
	invalidDateTimeMsg = "Invalid start or end time format. Please provide a clear date and time."
	invalidRangeMsg    = "The end time must be after the start time. Please provide a valid time range."
)

// Toolkit bundles the calendar service, target calendar and parsing/timezone
// configuration behind the registered tools.
type Toolkit struct {
	svc        calendar.Service
	calendarID string
	timezone   *time.Location
	parser     *timeparse.Parser
	now        func() time.Time
}

// Options configure a Toolkit.
type Options struct {
	// Timezone is the fixed zone used to resolve dates and schedule events.
	Timezone *time.Location

	// Now supplies the reference time for relative expressions. Overridden in
	// tests for determinism.
	Now func() time.Time
}

// NewToolkit creates a Toolkit for the given calendar.
func NewToolkit(svc calendar.Service, calendarID string, optFns ...func(o *Options)) *Toolkit {
	opts := Options{
		Timezone: time.UTC,
		Now:      time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Toolkit{
		svc:        svc,
		calendarID: calendarID,
		timezone:   opts.Timezone,
		parser:     timeparse.New(),
		now:        opts.Now,
	}
}

// Tools returns the toolkit's tools ready for agent registration.
func (k *Toolkit) Tools() []tool.Tool {
	return []tool.Tool{k.CheckAvailabilityTool(), k.BookAppointmentTool()}
}

type checkAvailabilityArgs struct {
	Day string `json:"day" description:"The day to check, e.g. 'tomorrow', 'July 7th, 2025' or '2025-07-07'"`
}

// CheckAvailabilityTool checks the calendar for busy intervals on a given day.
func (k *Toolkit) CheckAvailabilityTool() tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"check_availability",
		"Check the calendar for open time slots on a specific day. "+
			"Understands dates like 'tomorrow', 'July 7th, 2025', or '2025-07-07'.",
		checkAvailabilityArgs{},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			day, _ := args["day"].(string)
			return k.checkAvailability(toolCtx, day), nil
		},
	)
}

// checkAvailability resolves the day and reports either a fully free day or
// one busy-interval line per event, in the order the service returns them.
func (k *Toolkit) checkAvailability(toolCtx *tool.Context, day string) any {
	ref := k.now().In(k.timezone)

	date, err := k.parser.ParseDate(day, ref)
	if err != nil {
		return invalidDateMsg
	}

	startOfDay := date
	endOfDay := date.AddDate(0, 0, 1)

	events, err := k.svc.ListEvents(toolCtx.Context(), k.calendarID, startOfDay, endOfDay)
	if err != nil {
		toolCtx.Logger().Error("booking.check_availability.list_failed", "error", err.Error())
		return fmt.Sprintf("An error occurred while checking the calendar: %v", err)
	}

	if len(events) == 0 {
		return []string{fmt.Sprintf("The entire day of %s is free.", date.Format(dayFormat))}
	}

	busy := make([]string, 0, len(events))
	for _, ev := range events {
		busy = append(busy, fmt.Sprintf(
			"Busy from %s to %s",
			ev.Start.In(k.timezone).Format(slotFormat),
			ev.End.In(k.timezone).Format(slotFormat),
		))
	}
	return busy
}

type bookAppointmentArgs struct {
	StartTime string `json:"start_time" description:"Full date and time the appointment starts, e.g. 'July 7th 2025 at 4pm'"`
	EndTime   string `json:"end_time" description:"Full date and time the appointment ends"`
	Summary   string `json:"summary" description:"Short title for the appointment"`
}

// BookAppointmentTool books an appointment once the user has confirmed a slot.
func (k *Toolkit) BookAppointmentTool() tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"book_appointment",
		"Book an appointment once the user has confirmed the time. Requires a "+
			"summary, a start time and an end time, each with the full date and time.",
		bookAppointmentArgs{},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			start, _ := args["start_time"].(string)
			end, _ := args["end_time"].(string)
			summary, _ := args["summary"].(string)
			return k.bookAppointment(toolCtx, start, end, summary), nil
		},
	)
}

// bookAppointment parses both times before touching the external service; a
// parse failure never triggers a creation call. Retries can create duplicate
// events since the service offers no idempotency.
func (k *Toolkit) bookAppointment(toolCtx *tool.Context, startStr, endStr, summary string) string {
	ref := k.now().In(k.timezone)

	start, err := k.parser.ParseDateTime(startStr, ref)
	if err != nil {
		return invalidDateTimeMsg
	}
	end, err := k.parser.ParseDateTime(endStr, ref)
	if err != nil {
		return invalidDateTimeMsg
	}
	if !end.After(start) {
		return invalidRangeMsg
	}

	created, err := k.svc.InsertEvent(toolCtx.Context(), k.calendarID, calendar.EventInput{
		Summary:  summary,
		Start:    start,
		End:      end,
		TimeZone: k.timezone.String(),
	})
	if err != nil {
		toolCtx.Logger().Error("booking.book_appointment.insert_failed", "error", err.Error())
		return fmt.Sprintf("An error occurred while booking: %v", err)
	}

	return fmt.Sprintf("Success! Appointment %q created. View it here: %s", summary, created.HTMLLink)
}
