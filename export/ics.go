package export

import (
	"io"

	"linkedevents/models"

	ics "github.com/arran4/golang-ical"
)

// WriteICS serializes events as an iCalendar feed. Events with no start time
// (postponed ones, mainly) are skipped because VEVENT requires DTSTART.
func WriteICS(w io.Writer, events []models.Event) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//linkedevents//calendar export//EN")

	for _, event := range events {
		if event.StartTime == nil {
			continue
		}
		ve := cal.AddEvent(event.ID)
		ve.SetStartAt(event.StartTime.UTC())
		if event.EndTime != nil {
			ve.SetEndAt(event.EndTime.UTC())
		}
		ve.SetSummary(event.Name.AnyText("fi"))
		if desc := event.ShortDescription.AnyText("fi"); desc != "" {
			ve.SetDescription(desc)
		}
		if event.Location != "" {
			ve.SetLocation(event.Location)
		}
		if !event.LastModifiedTime.IsZero() {
			ve.SetDtStampTime(event.LastModifiedTime.UTC())
		}
		if event.EventStatus == models.EventCancelled {
			ve.SetStatus(ics.ObjectStatusCancelled)
		}
	}
	return cal.SerializeTo(w)
}
