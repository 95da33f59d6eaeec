package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Template generation defaults: Monday to Saturday, 09:00-18:00, 30 minute slots.
const (
	templateDayStart = 9 * time.Hour
	templateDayEnd   = 18 * time.Hour
	SlotDuration     = 30 * time.Minute
)

var templateDays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return d, nil
}

// ParseClock validates an HH:MM time of day and returns it normalized.
func ParseClock(value string) (string, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(value))
	if err != nil {
		return "", err
	}
	return t.Format(TimeLayout), nil
}

// WeekdayOf returns the English weekday name of a YYYY-MM-DD date.
func WeekdayOf(date string) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return d.Weekday().String(), nil
}

// ParseWeekday maps a day name such as "monday" to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	name = strings.TrimSpace(name)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: %q", ErrInvalidWeekday, name)
}

// NextOccurrence returns the next calendar date falling on day, strictly after
// the day of now. When now is already that weekday the result is seven days out.
func NextOccurrence(day time.Weekday, now time.Time) time.Time {
	days := (int(day) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	y, m, d := now.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, time.UTC)
}

// GenerateWeeklyTemplate builds the default recurring template for a doctor.
func GenerateWeeklyTemplate(doctorID string) []AvailabilitySlot {
	perDay := int((templateDayEnd - templateDayStart) / SlotDuration)
	slots := make([]AvailabilitySlot, 0, perDay*len(templateDays))
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, day := range templateDays {
		for offset := templateDayStart; offset < templateDayEnd; offset += SlotDuration {
			start := base.Add(offset)
			slots = append(slots, AvailabilitySlot{
				ID:        uuid.NewString(),
				DoctorID:  doctorID,
				DayOfWeek: day.String(),
				StartTime: start.Format(TimeLayout),
				EndTime:   start.Add(SlotDuration).Format(TimeLayout),
			})
		}
	}
	return slots
}

type slotKey struct {
	date  string
	start string
}

// slotDates resolves the calendar date each template row is evaluated on.
// With an explicit date every row maps to it; otherwise each row maps to the
// next occurrence of its weekday.
func slotDates(templates []AvailabilitySlot, date *time.Time, now time.Time) ([]string, error) {
	dates := make([]string, len(templates))
	for i, slot := range templates {
		if date != nil {
			dates[i] = date.Format(DateLayout)
			continue
		}
		day, err := ParseWeekday(slot.DayOfWeek)
		if err != nil {
			return nil, err
		}
		dates[i] = NextOccurrence(day, now).Format(DateLayout)
	}
	return dates, nil
}

func annotateSlots(templates []AvailabilitySlot, dates []string, booked map[slotKey]bool) []SlotStatus {
	out := make([]SlotStatus, 0, len(templates))
	for i, slot := range templates {
		out = append(out, SlotStatus{
			ID:        slot.ID,
			DayOfWeek: slot.DayOfWeek,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Date:      dates[i],
			IsBooked:  booked[slotKey{date: dates[i], start: slot.StartTime}],
		})
	}
	return out
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
