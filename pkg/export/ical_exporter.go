package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// Event is one recurring calendar entry derived from a timetable cell.
type Event struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Weekday     time.Weekday
	Period      int
}

// ICalExporter renders timetable events into an RFC 5545 calendar.
// Periods carry no wall-clock times of their own, so the exporter maps
// them onto a configurable school day.
type ICalExporter struct {
	dayStart     time.Duration
	periodLength time.Duration
}

// NewICalExporter builds an exporter with an 08:00 start and 45 minute
// periods.
func NewICalExporter() *ICalExporter {
	return &ICalExporter{
		dayStart:     8 * time.Hour,
		periodLength: 45 * time.Minute,
	}
}

// Render emits one weekly-recurring VEVENT per entry. weekStart anchors
// the first occurrence and must be the Monday of the opening week; weeks
// controls the RRULE count, with values below two emitting single events.
func (e *ICalExporter) Render(calName string, events []Event, weekStart time.Time, weeks int) ([]byte, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("ical requires at least one event")
	}
	if weekStart.Weekday() != time.Monday {
		return nil, fmt.Errorf("week start %s is not a Monday", weekStart.Format("2006-01-02"))
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//veritas-edu//class-scheduler//EN")
	if calName != "" {
		cal.SetName(calName)
		cal.SetXWRCalName(calName)
	}

	now := time.Now().UTC()
	for _, entry := range events {
		if entry.Period < 1 {
			return nil, fmt.Errorf("event %s: invalid period %d", entry.Summary, entry.Period)
		}
		dayOffset := int(entry.Weekday - time.Monday)
		if dayOffset < 0 {
			return nil, fmt.Errorf("event %s: %s is outside the teaching week", entry.Summary, entry.Weekday)
		}

		start := weekStart.AddDate(0, 0, dayOffset).
			Add(e.dayStart).
			Add(time.Duration(entry.Period-1) * e.periodLength)

		ev := cal.AddEvent(entry.UID)
		ev.SetCreatedTime(now)
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(e.periodLength))
		ev.SetSummary(entry.Summary)
		if entry.Location != "" {
			ev.SetLocation(entry.Location)
		}
		if entry.Description != "" {
			ev.SetDescription(entry.Description)
		}
		if weeks > 1 {
			ev.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
		}
	}

	return []byte(cal.Serialize()), nil
}
