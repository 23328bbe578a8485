// Package datetime parses user-supplied time specifications for reminders.
//
// Accepted forms:
//   - compact units: "10s", "5m", "2h", "1d", "1w"
//   - natural units: "5 minutes", "in 2 hours"
//   - named days with optional parts of day: "tomorrow morning",
//     "next monday afternoon", "friday"
//   - clock times: "at 14:30", "9pm", "9:15 am"
//   - absolute timestamps: RFC 3339 and a few common layouts
//
// Ambiguous day-only forms resolve to 09:00 in the caller-supplied location.
// The location is explicit configuration, not a guess at the user's zone.
package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Part-of-day anchor hours. Day-only forms use Morning.
const (
	hourMorning   = 9
	hourAfternoon = 15
	hourEvening   = 18
	hourNight     = 21
)

var (
	compactPattern   = regexp.MustCompile(`^(\d+(?:\.\d+)?)(s|m|h|d|w)$`)
	naturalPattern   = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|days?|weeks?)$`)
	clockPattern     = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	meridiemPattern  = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	dayPhrasePattern = regexp.MustCompile(`^(today|tomorrow|next\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)|monday|tuesday|wednesday|thursday|friday|saturday|sunday)(?:\s+(morning|afternoon|evening|night))?$`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWhen resolves a time specification against now in the given location.
// A nil location means the host's local zone.
func ParseWhen(spec string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	s := strings.ToLower(strings.TrimSpace(spec))
	s = strings.TrimPrefix(s, "in ")
	s = strings.TrimSpace(strings.TrimPrefix(s, "at "))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if m := compactPattern.FindStringSubmatch(s); m != nil {
		return addUnits(now, m[1], m[2])
	}
	if m := naturalPattern.FindStringSubmatch(s); m != nil {
		return addUnits(now, m[1], m[2])
	}
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		return nextClock(now, loc, m[1], m[2])
	}
	if m := meridiemPattern.FindStringSubmatch(s); m != nil {
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour < 1 || hour > 12 {
			return time.Time{}, fmt.Errorf("invalid hour: %s", m[1])
		}
		minute := 0
		if m[2] != "" {
			minute, err = strconv.Atoi(m[2])
			if err != nil || minute > 59 {
				return time.Time{}, fmt.Errorf("invalid minute: %s", m[2])
			}
		}
		if m[3] == "pm" && hour != 12 {
			hour += 12
		}
		if m[3] == "am" && hour == 12 {
			hour = 0
		}
		return todayOrTomorrow(now, loc, hour, minute), nil
	}
	if m := dayPhrasePattern.FindStringSubmatch(s); m != nil {
		return dayPhrase(now, loc, m[1], m[2])
	}

	// Absolute forms, tried last.
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		if t, err := time.ParseInLocation(layout, spec, loc); err == nil {
			if layout == "2006-01-02" {
				// Day-only defaults to the morning anchor.
				return time.Date(t.Year(), t.Month(), t.Day(), hourMorning, 0, 0, 0, loc), nil
			}
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("could not parse time: %s", spec)
}

// addUnits applies "amount unit" relative offsets.
func addUnits(now time.Time, amountStr, unit string) (time.Time, error) {
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid number: %s", amountStr)
	}

	var d time.Duration
	switch {
	case unit == "s" || strings.HasPrefix(unit, "sec"):
		d = time.Duration(amount * float64(time.Second))
	case unit == "m" || strings.HasPrefix(unit, "min"):
		d = time.Duration(amount * float64(time.Minute))
	case unit == "h" || strings.HasPrefix(unit, "hour"), strings.HasPrefix(unit, "hr"):
		d = time.Duration(amount * float64(time.Hour))
	case unit == "d" || strings.HasPrefix(unit, "day"):
		d = time.Duration(amount * float64(24*time.Hour))
	case unit == "w" || strings.HasPrefix(unit, "week"):
		d = time.Duration(amount * float64(7*24*time.Hour))
	default:
		return time.Time{}, fmt.Errorf("unknown unit: %s", unit)
	}

	return now.Add(d), nil
}

// nextClock returns the next occurrence of HH:MM, today or tomorrow.
func nextClock(now time.Time, loc *time.Location, hourStr, minuteStr string) (time.Time, error) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour: %s", hourStr)
	}
	minute, err := strconv.Atoi(minuteStr)
	if err != nil || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute: %s", minuteStr)
	}
	return todayOrTomorrow(now, loc, hour, minute), nil
}

// todayOrTomorrow anchors a clock time to today, rolling to tomorrow if it
// has already passed.
func todayOrTomorrow(now time.Time, loc *time.Location, hour, minute int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// dayPhrase resolves "tomorrow morning" style phrases.
func dayPhrase(now time.Time, loc *time.Location, day, part string) (time.Time, error) {
	hour := hourMorning
	switch part {
	case "afternoon":
		hour = hourAfternoon
	case "evening":
		hour = hourEvening
	case "night":
		hour = hourNight
	}

	base := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, loc)

	switch {
	case day == "today":
		if !base.After(now) {
			return time.Time{}, fmt.Errorf("%q already passed today", part)
		}
		return base, nil
	case day == "tomorrow":
		return base.AddDate(0, 0, 1), nil
	default:
		name := day
		forceNextWeek := false
		if strings.HasPrefix(day, "next") {
			name = strings.TrimSpace(strings.TrimPrefix(day, "next"))
			forceNextWeek = true
		}
		target, ok := weekdays[name]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown day: %s", day)
		}
		days := (int(target) - int(now.Weekday()) + 7) % 7
		if days == 0 && (forceNextWeek || !base.After(now)) {
			days = 7
		}
		return base.AddDate(0, 0, days), nil
	}
}
