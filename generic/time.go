package generic

import (
	"regexp"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day abstraction
// =============================================================================

// DateLayout is the only accepted calendar date form.
const DateLayout = "2006-01-02"

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	yearPattern  = regexp.MustCompile(`^\d{4}$`)
	monthPattern = regexp.MustCompile(`^\d{2}$`)
)

// TimePoint is a calendar day in UTC.
type TimePoint struct {
	Time time.Time
}

// ParseDate parses a strict YYYY-MM-DD token. time.Parse alone accepts
// nothing looser, but the regex also rejects surrounding whitespace and signs.
func ParseDate(s string) (TimePoint, error) {
	if !datePattern.MatchString(s) {
		return TimePoint{}, &DateFormatError{Value: s}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, &DateFormatError{Value: s, Cause: err}
	}
	return TimePoint{Time: t}, nil
}

// IsDateKey reports whether s has the YYYY-MM-DD shape and names a real day.
func IsDateKey(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	return tp.Time.Format(DateLayout)
}

// =============================================================================
// CALENDAR RULES
// =============================================================================

// IsMonday fails closed: any parse error yields false.
func IsMonday(date string) bool {
	tp, err := ParseDate(date)
	if err != nil {
		return false
	}
	return tp.Weekday() == time.Monday
}

// ValidateWeekAnchor requires the week start date to be a Monday.
func ValidateWeekAnchor(date string) error {
	if !IsMonday(date) {
		return ErrInvalidWeekAnchor
	}
	return nil
}

// ValidateYearMonth checks token shape only. Any two digits pass as a month;
// range checking is intentionally not part of this rule.
func ValidateYearMonth(year, month string) error {
	if !yearPattern.MatchString(year) {
		return ErrInvalidYearFormat
	}
	if !monthPattern.MatchString(month) {
		return ErrInvalidMonthFormat
	}
	return nil
}

// WeekRange returns the inclusive range [anchor, anchor+6].
func WeekRange(anchor TimePoint) (TimePoint, TimePoint) {
	w := WeekOf(anchor)
	return w.Start, w.End
}

// InWeek reports whether day lies within the week starting at anchor.
func InWeek(anchor, day TimePoint) bool {
	return WeekOf(anchor).Contains(day)
}
