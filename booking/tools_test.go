package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedbot/schedbot/calendar"
	"github.com/schedbot/schedbot/tool"
)

// fakeCalendar is an in-memory calendar.Service recording calls.
type fakeCalendar struct {
	events    []calendar.Event
	listErr   error
	insertErr error
	inserted  []calendar.EventInput
}

func (f *fakeCalendar) ListEvents(_ context.Context, _ string, _, _ time.Time) ([]calendar.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

func (f *fakeCalendar) InsertEvent(_ context.Context, _ string, input calendar.EventInput) (*calendar.CreatedEvent, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, input)
	return &calendar.CreatedEvent{ID: "ev1", HTMLLink: "https://calendar.google.com/event?eid=abc"}, nil
}

// fixedNow is Sunday, July 6th 2025 mid-morning UTC.
func fixedNow() time.Time {
	return time.Date(2025, time.July, 6, 10, 0, 0, 0, time.UTC)
}

func newTestToolkit(svc calendar.Service) *Toolkit {
	return NewToolkit(svc, "primary", func(o *Options) {
		o.Now = fixedNow
	})
}

func toolCtx() *tool.Context {
	return tool.NewContext(context.Background(), "fc1", nil)
}

func TestToolkit_Tools(t *testing.T) {
	k := newTestToolkit(&fakeCalendar{})
	tools := k.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "check_availability", tools[0].Name())
	assert.Equal(t, "book_appointment", tools[1].Name())
}

func TestCheckAvailability_FreeDay(t *testing.T) {
	k := newTestToolkit(&fakeCalendar{})

	result, err := k.CheckAvailabilityTool().Call(toolCtx(), map[string]any{"day": "2025-07-07"})
	require.NoError(t, err)

	assert.Equal(t, []string{"The entire day of Monday, July 07, 2025 is free."}, result)
}

func TestCheckAvailability_BusyIntervals(t *testing.T) {
	svc := &fakeCalendar{events: []calendar.Event{
		{
			ID:      "e1",
			Summary: "Standup",
			Start:   time.Date(2025, time.July, 7, 9, 0, 0, 0, time.UTC),
			End:     time.Date(2025, time.July, 7, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:      "e2",
			Summary: "Review",
			Start:   time.Date(2025, time.July, 7, 14, 0, 0, 0, time.UTC),
			End:     time.Date(2025, time.July, 7, 15, 0, 0, 0, time.UTC),
		},
	}}
	k := newTestToolkit(svc)

	result, err := k.CheckAvailabilityTool().Call(toolCtx(), map[string]any{"day": "2025-07-07"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Busy from 09:00 AM to 09:30 AM",
		"Busy from 02:00 PM to 03:00 PM",
	}, result)
}

func TestCheckAvailability_InvalidDate(t *testing.T) {
	k := newTestToolkit(&fakeCalendar{})

	result, err := k.CheckAvailabilityTool().Call(toolCtx(), map[string]any{"day": "definitely not a date"})
	require.NoError(t, err)

	assert.Equal(t, invalidDateMsg, result)
}

func TestCheckAvailability_ServiceError(t *testing.T) {
	k := newTestToolkit(&fakeCalendar{listErr: errors.New("quota exceeded")})

	result, err := k.CheckAvailabilityTool().Call(toolCtx(), map[string]any{"day": "tomorrow"})
	require.NoError(t, err)

	assert.Equal(t, "An error occurred while checking the calendar: quota exceeded", result)
}

func TestCheckAvailability_TimezoneAppliedToSlots(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 08:30 UTC is 14:00 in Kolkata (+05:30).
	svc := &fakeCalendar{events: []calendar.Event{{
		Start: time.Date(2025, time.July, 7, 8, 30, 0, 0, time.UTC),
		End:   time.Date(2025, time.July, 7, 9, 30, 0, 0, time.UTC),
	}}}
	k := NewToolkit(svc, "primary", func(o *Options) {
		o.Now = fixedNow
		o.Timezone = kolkata
	})

	result, err := k.CheckAvailabilityTool().Call(toolCtx(), map[string]any{"day": "2025-07-07"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Busy from 02:00 PM to 03:00 PM"}, result)
}

func TestBookAppointment_Success(t *testing.T) {
	svc := &fakeCalendar{}
	k := newTestToolkit(svc)

	result, err := k.BookAppointmentTool().Call(toolCtx(), map[string]any{
		"start_time": "2025-07-07T16:00:00",
		"end_time":   "2025-07-07T17:00:00",
		"summary":    "Dentist",
	})
	require.NoError(t, err)

	assert.Equal(t,
		fmt.Sprintf("Success! Appointment %q created. View it here: %s", "Dentist", "https://calendar.google.com/event?eid=abc"),
		result,
	)

	require.Len(t, svc.inserted, 1)
	assert.Equal(t, "Dentist", svc.inserted[0].Summary)
	assert.Equal(t, time.Date(2025, time.July, 7, 16, 0, 0, 0, time.UTC), svc.inserted[0].Start)
	assert.Equal(t, time.Date(2025, time.July, 7, 17, 0, 0, 0, time.UTC), svc.inserted[0].End)
	assert.Equal(t, "UTC", svc.inserted[0].TimeZone)
}

func TestBookAppointment_MeridiemTimes(t *testing.T) {
	svc := &fakeCalendar{}
	k := newTestToolkit(svc)

	result, err := k.BookAppointmentTool().Call(toolCtx(), map[string]any{
		"start_time": "July 7th 2025 at 4pm",
		"end_time":   "July 7th 2025 at 5pm",
		"summary":    "Dentist",
	})
	require.NoError(t, err)

	assert.Contains(t, result, "Success!")
	require.Len(t, svc.inserted, 1)
	assert.Equal(t, time.Date(2025, time.July, 7, 16, 0, 0, 0, time.UTC), svc.inserted[0].Start)
	assert.Equal(t, time.Date(2025, time.July, 7, 17, 0, 0, 0, time.UTC), svc.inserted[0].End)
}

func TestBookAppointment_EndBeforeStartNeverInserts(t *testing.T) {
	svc := &fakeCalendar{}
	k := newTestToolkit(svc)

	result, err := k.BookAppointmentTool().Call(toolCtx(), map[string]any{
		"start_time": "2025-07-07T17:00:00",
		"end_time":   "2025-07-07T16:00:00",
		"summary":    "Dentist",
	})
	require.NoError(t, err)

	assert.Equal(t, invalidRangeMsg, result)
	assert.Empty(t, svc.inserted)
}

func TestBookAppointment_ZeroLengthNeverInserts(t *testing.T) {
	svc := &fakeCalendar{}
	k := newTestToolkit(svc)

	result, err := k.BookAppointmentTool().Call(toolCtx(), map[string]any{
		"start_time": "2025-07-07T16:00:00",
		"end_time":   "2025-07-07T16:00:00",
		"summary":    "Dentist",
	})
	require.NoError(t, err)

	assert.Equal(t, invalidRangeMsg, result)
	assert.Empty(t, svc.inserted)
}

func TestBookAppointment_InvalidStartNeverInserts(t *testing.T) {
	svc := &fakeCalendar{}
	k := newTestToolkit(svc)

	result, err := k.BookAppointmentTool().Call(toolCtx(), map[string]any{
		"start_time": "garbage input",
		"end_time":   "2025-07-07T17:00:00",
		"summary":    "Dentist",
	})
	require.NoError(t, err)

	assert.Equal(t, invalidDateTimeMsg, result)
	assert.Empty(t, svc.inserted)
}

func TestBookAppointment_InvalidEndNeverInserts(t *testing.T) {
	svc := &fakeCalendar{}
	k := newTestToolkit(svc)

	result, err := k.BookAppointmentTool().Call(toolCtx(), map[string]any{
		"start_time": "2025-07-07T16:00:00",
		"end_time":   "garbage input",
		"summary":    "Dentist",
	})
	require.NoError(t, err)

	assert.Equal(t, invalidDateTimeMsg, result)
	assert.Empty(t, svc.inserted)
}

func TestBookAppointment_ServiceError(t *testing.T) {
	svc := &fakeCalendar{insertErr: errors.New("backend down")}
	k := newTestToolkit(svc)

	result, err := k.BookAppointmentTool().Call(toolCtx(), map[string]any{
		"start_time": "2025-07-07T16:00:00",
		"end_time":   "2025-07-07T17:00:00",
		"summary":    "Dentist",
	})
	require.NoError(t, err)

	assert.Equal(t, "An error occurred while booking: backend down", result)
}

func TestBookAppointment_MissingArgumentsFailValidation(t *testing.T) {
	svc := &fakeCalendar{}
	k := newTestToolkit(svc)

	_, err := k.BookAppointmentTool().Call(toolCtx(), map[string]any{
		"start_time": "2025-07-07T16:00:00",
	})
	assert.Error(t, err)
	assert.Empty(t, svc.inserted)
}
