package calendar

import (
	"bytes"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/vinylhub/eventsync/internal/domain/dto"
)

// DefaultDuration is used as the event length since events carry only a start time.
const DefaultDuration = time.Hour

// ExportEventsToICS serializes events into an iCalendar document. Events the viewer
// wants reminders for get a display alarm at their start time, mirroring the
// on-device reminder.
func ExportEventsToICS(events []dto.EventView, stamp time.Time) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//VinylHub//Events//EN")
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")

	for _, event := range events {
		e := cal.AddEvent(fmt.Sprintf("event-%d@vinylhub", event.ID))

		e.SetDtStampTime(stamp)
		e.SetCreatedTime(event.CreatedAt)
		e.SetModifiedAt(stamp)
		e.SetStartAt(event.EventDateTime)
		e.SetEndAt(event.EventDateTime.Add(DefaultDuration))

		e.SetSummary(event.Title)
		if event.Description != "" {
			e.SetDescription(event.Description)
		}
		if event.Location != "" {
			e.SetLocation(event.Location)
		}
		if event.ImageURL != "" {
			e.SetURL(event.ImageURL)
		}
		e.SetStatus(ics.ObjectStatusConfirmed)
		e.SetTimeTransparency(ics.TransparencyOpaque)
		e.SetClass(ics.ClassificationPublic)
		e.SetSequence(0)

		if event.NotificationEnabled {
			alarm := e.AddAlarm()
			alarm.SetAction(ics.ActionDisplay)
			alarm.SetTrigger("PT0M", ics.WithValue(string(ics.ValueDataTypeDuration)))
			alarm.SetDescription(event.Title)
		}
	}

	var buf bytes.Buffer
	err := cal.SerializeTo(&buf)
	if err != nil {
		return nil, fmt.Errorf("error serializing calendar: %w", err)
	}

	return buf.Bytes(), nil
}
