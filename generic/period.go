package generic

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive range of calendar days.
//
// Examples:
//   - Timesheet week 2025-03-10: Mon 2025-03-10 - Sun 2025-03-16
type Period struct {
	Start TimePoint
	End   TimePoint
}

// WeekOf returns the seven-day period starting at anchor.
func WeekOf(anchor TimePoint) Period {
	return Period{Start: anchor, End: anchor.AddDays(6)}
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
