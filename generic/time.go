package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DAY - Civil calendar date (attendance and payroll are keyed by day)
// =============================================================================

// DayLayout is the wire and storage format of a Day.
const DayLayout = "2006-01-02"

// Day is a calendar date without a time of day. The underlying time is always
// midnight UTC so two Days compare equal whenever their dates match.
type Day struct {
	Time time.Time
}

// Constructors
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar date of t as observed in t's own location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DayOf(t), nil
}

// MustParseDay is ParseDay for literals in tests and defaults.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Day) Before(other Day) bool { return d.Time.Before(other.Time) }
func (d Day) Equal(other Day) bool { return d.Time.Equal(other.Time) }
func (d Day) After(other Day) bool { return d.Time.After(other.Time) }
func (d Day) BeforeOrEqual(other Day) bool { return !d.After(other) }
func (d Day) AfterOrEqual(other Day) bool { return !d.Before(other) }

// Arithmetic
func (d Day) AddDays(n int) Day { return Day{Time: d.Time.AddDate(0, 0, n)} }
func (d Day) AddMonths(n int) Day { return Day{Time: d.Time.AddDate(0, n, 0)} }

// DaysUntil returns the number of days from d to other (negative if other is earlier).
func (d Day) DaysUntil(other Day) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

// Properties
func (d Day) Year() int { return d.Time.Year() }
func (d Day) Month() time.Month { return d.Time.Month() }
func (d Day) DayOfMonth() int { return d.Time.Day() }
func (d Day) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Day) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Day) IsWorkday() bool { return !d.IsWeekend() }
func (d Day) IsZero() bool { return d.Time.IsZero() }
func (d Day) String() string { return d.Time.Format(DayLayout) }

// At combines the date with a time of day in loc.
func (d Day) At(tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	h, m, s := tod.Clock()
	return time.Date(d.Year(), d.Month(), d.DayOfMonth(), h, m, s, 0, loc)
}

// MostRecent returns the latest day on or before d that falls on wd.
func (d Day) MostRecent(wd time.Weekday) Day {
	back := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDays(-back)
}

func (d Day) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// TIME OF DAY - Wall-clock thresholds (09:00, 09:10, 18:00, 18:30)
// =============================================================================

// TimeOfDay is a wall-clock time expressed as seconds since midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60)
}

// TimeOfDayOf extracts the wall-clock time of t in t's own location,
// truncated to the second.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(h*3600 + m*60 + s)
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) Clock() (hour, minute, second int) {
	v := int(t)
	return v / 3600, (v % 3600) / 60, v % 60
}

func (t TimeOfDay) String() string {
	h, m, s := t.Clock()
	if s == 0 {
		return fmt.Sprintf("%02d:%02d", h, m)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
