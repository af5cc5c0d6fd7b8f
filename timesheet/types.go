/*
Package timesheet implements weekly time reporting: validation of submitted
weeks, the structural diff between submissions, and the week record store.

KEY CONCEPTS IN THIS FILE (types.go):
  - Task: Hours booked against a task code on one day
  - DayEntry: Hours worked on one calendar day plus its task breakdown
  - Timesheet: One week of DayEntry values keyed by date, plus totalHours/format
  - WeekRecord: The persisted week: timesheet, totals, activity log
  - MonthDocument: All week records of one employee for one month

WIRE FORMAT:
  A Timesheet is a flat JSON object. Date keys hold day entries and two
  reserved keys carry scalars:

    {
      "2025-03-10": {"hoursWorked": 8, "tasks": [{"taskCode": "A", "taskName": "Build", "hours": 8}]},
      "totalHours": 8,
      "format": "weekly"
    }

  In Go the days live in Timesheet.Days, never mixed with reserved keys.

SEE ALSO:
  - validator.go: Structural and business-rule checks
  - diff.go: Change detection between two timesheets
  - activity.go: Bounded activity log
  - store.go: WeekStore
*/
package timesheet

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/warp/timesheet-engine/generic"
)

// Reserved timesheet keys.
const (
	KeyTotalHours = "totalHours"
	KeyFormat     = "format"
)

// Limits enforced by the validator.
var (
	MaxDailyHours  = generic.NewHoursFromInt(24)
	MaxWeeklyHours = generic.NewHoursFromInt(168)
)

const MaxTasksPerDay = 10

// =============================================================================
// TASK / DAY
// =============================================================================

type Task struct {
	TaskCode string        `json:"taskCode"`
	TaskName string        `json:"taskName"`
	Hours    generic.Hours `json:"hours"`
}

// DayEntry is one day of a timesheet. A nil Tasks slice means the day carries
// no task collection; an empty slice is a present but empty collection.
type DayEntry struct {
	HoursWorked generic.Hours `json:"hoursWorked"`
	Tasks       []Task        `json:"tasks"`
}

// TaskHours sums the hours of every task.
func (d DayEntry) TaskHours() generic.Hours {
	hours := make([]generic.Hours, 0, len(d.Tasks))
	for _, t := range d.Tasks {
		hours = append(hours, t.Hours)
	}
	return generic.SumHours(hours...)
}

// HasTasks reports whether the day carries a tasks collection.
func (d DayEntry) HasTasks() bool {
	return d.Tasks != nil
}

// =============================================================================
// TIMESHEET
// =============================================================================

type Timesheet struct {
	Days       map[string]DayEntry
	TotalHours generic.Hours
	Format     string
}

// WorkedHours is the sum of hoursWorked across all days.
func (ts Timesheet) WorkedHours() generic.Hours {
	total := generic.ZeroHours()
	for _, day := range ts.Days {
		total = total.Add(day.HoursWorked)
	}
	return total
}

func (ts Timesheet) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(ts.Days)+2)
	for date, day := range ts.Days {
		out[date] = day
	}
	out[KeyTotalHours] = ts.TotalHours
	out[KeyFormat] = ts.Format
	return json.Marshal(out)
}

// UnmarshalJSON decodes a stored timesheet. It trusts its input; submitted
// timesheets go through Validate instead.
func (ts *Timesheet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := Timesheet{Days: make(map[string]DayEntry, len(raw)), TotalHours: generic.ZeroHours()}
	for key, value := range raw {
		switch key {
		case KeyTotalHours:
			if err := json.Unmarshal(value, &decoded.TotalHours); err != nil {
				return fmt.Errorf("timesheet %s: %w", key, err)
			}
		case KeyFormat:
			if err := json.Unmarshal(value, &decoded.Format); err != nil {
				return fmt.Errorf("timesheet %s: %w", key, err)
			}
		default:
			var day DayEntry
			if err := json.Unmarshal(value, &day); err != nil {
				return fmt.Errorf("timesheet day %s: %w", key, err)
			}
			decoded.Days[key] = day
		}
	}
	*ts = decoded
	return nil
}

// =============================================================================
// WEEK RECORD
// =============================================================================

// WeekRecord is what the store keeps for one week anchor.
type WeekRecord struct {
	Timesheet   Timesheet     `json:"timesheet"`
	TotalHours  generic.Hours `json:"totalHours"`
	Format      string        `json:"format"`
	ActivityLog *ActivityLog  `json:"activityLog"`
}

// MonthDocument maps week start dates to their records.
type MonthDocument map[string]WeekRecord

// WeekStartDates returns the week anchors in ascending order.
func (m MonthDocument) WeekStartDates() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WeekKey identifies the week a submission targets.
type WeekKey struct {
	EmployeeID    generic.EmployeeID
	Year          string
	Month         string
	WeekStartDate string
}

// Path returns the month document holding this week.
func (k WeekKey) Path() generic.DocumentPath {
	return generic.DocumentPath{EmployeeID: k.EmployeeID, Year: k.Year, Month: k.Month}
}
