/*
validator.go - Structural and business-rule validation of a submitted week

PURPOSE:
  Turns the raw JSON timesheet of a submission into a typed Timesheet, or
  reports the first rule it violates. Validation is pure: no store access,
  no clock, no logging.

RULES (checked in this order, first failure wins):
  1. Every non-reserved key is a YYYY-MM-DD date          MalformedDateKey
  2. hoursWorked is a number in [0, 24]                     DailyHoursExceeded
  3. tasks: at most 10; each has numeric hours >= 0,
     string taskCode, string taskName                       TooManyTasks / MalformedTask
  4. sum(task hours) == hoursWorked (within 0.0001)         TaskHoursMismatch
  5. sum(hoursWorked) <= 168                                WeeklyHoursExceeded
  6. sum(hoursWorked) == declared totalHours (0.0001)       TotalHoursMismatch
  7. weekStartDate is a Monday                              InvalidWeekAnchor
  8. year is 4 digits, month 2 digits, both match
     weekStartDate                                          YearMonthMismatch
  9. every date key lies in [weekStartDate, +6 days]        DateOutsideWeek

  Rules 2-4 run day by day in ascending date order.

DECLARED TOTAL:
  The declared total is the reserved "totalHours" key of the submitted
  timesheet (0 when absent). The returned Timesheet carries the computed
  total; the two are equal within tolerance once validation passes.

WHY RAW JSON:
  Shape rules ("hours must be a number") need the JSON types as sent. The
  payload is decoded with UseNumber so numbers keep their exact decimal text.

SEE ALSO:
  - generic/time.go: Calendar rules used by rules 7-9
  - errors.go: Rule codes and ValidationError
*/
package timesheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"

	"github.com/warp/timesheet-engine/generic"
)

// Validate checks a submitted timesheet against key and returns it typed.
func Validate(raw json.RawMessage, key WeekKey) (Timesheet, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return Timesheet{}, err
	}

	ts := Timesheet{Days: make(map[string]DayEntry), TotalHours: generic.ZeroHours()}
	declared := generic.ZeroHours()

	// Rule 1 and reserved keys
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dates []string
	for _, k := range keys {
		switch k {
		case KeyTotalHours:
			h, ok := numberHours(fields[k])
			if !ok {
				return Timesheet{}, newValidationError(RuleMalformedTimesheet, "totalHours must be a number")
			}
			declared = h
		case KeyFormat:
			format, ok := fields[k].(string)
			if !ok && fields[k] != nil {
				return Timesheet{}, newValidationError(RuleMalformedTimesheet, "format must be a string")
			}
			ts.Format = format
		default:
			if !generic.IsDateKey(k) {
				return Timesheet{}, newValidationError(RuleMalformedDateKey,
					"Invalid date key %q: expected YYYY-MM-DD", k)
			}
			dates = append(dates, k)
		}
	}

	// Rules 2-4
	weekly := generic.ZeroHours()
	for _, date := range dates {
		day, err := validateDay(date, fields[date])
		if err != nil {
			return Timesheet{}, err
		}
		ts.Days[date] = day
		weekly = weekly.Add(day.HoursWorked)
	}

	// Rule 5
	if weekly.GreaterThan(MaxWeeklyHours) {
		return Timesheet{}, newValidationError(RuleWeeklyHoursExceeded,
			"Weekly hours %s exceed the maximum of %s", weekly, MaxWeeklyHours)
	}

	// Rule 6
	if !weekly.ApproxEqual(declared) {
		return Timesheet{}, newValidationError(RuleTotalHoursMismatch,
			"Total hours %s do not match the sum of daily hours %s", declared, weekly)
	}
	ts.TotalHours = weekly

	// Rule 7
	if err := generic.ValidateWeekAnchor(key.WeekStartDate); err != nil {
		return Timesheet{}, newValidationError(RuleInvalidWeekAnchor,
			"weekStartDate %q must be a Monday in YYYY-MM-DD format", key.WeekStartDate)
	}

	// Rule 8
	if err := ValidateYearMonth(key); err != nil {
		return Timesheet{}, err
	}

	// Rule 9
	anchor, _ := generic.ParseDate(key.WeekStartDate)
	for _, date := range dates {
		day, _ := generic.ParseDate(date)
		if !generic.InWeek(anchor, day) {
			start, end := generic.WeekRange(anchor)
			return Timesheet{}, newValidationError(RuleDateOutsideWeek,
				"Date %s is outside the week %s to %s", date, start, end)
		}
	}

	return ts, nil
}

// ValidateYearMonth applies the year/month format rules and checks both
// tokens against the week start date. It is also used by read requests.
func ValidateYearMonth(key WeekKey) error {
	if err := generic.ValidateYearMonth(key.Year, key.Month); err != nil {
		rule := RuleInvalidYearFormat
		if errors.Is(err, generic.ErrInvalidMonthFormat) {
			rule = RuleInvalidMonthFormat
		}
		return newValidationError(rule, "Invalid year/month %q/%q: %v", key.Year, key.Month, err)
	}
	if len(key.WeekStartDate) < 7 ||
		key.WeekStartDate[0:4] != key.Year ||
		key.WeekStartDate[5:7] != key.Month {
		return newValidationError(RuleYearMonthMismatch,
			"Year %s and month %s do not match weekStartDate %s", key.Year, key.Month, key.WeekStartDate)
	}
	return nil
}

func validateDay(date string, value any) (DayEntry, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return DayEntry{}, newValidationError(RuleMalformedTimesheet, "Day %s must be an object", date)
	}

	worked, ok := numberHours(obj["hoursWorked"])
	if !ok || worked.IsNegative() || worked.GreaterThan(MaxDailyHours) {
		return DayEntry{}, newValidationError(RuleDailyHoursExceeded,
			"hoursWorked for %s must be a number between 0 and %s", date, MaxDailyHours)
	}
	day := DayEntry{HoursWorked: worked}

	rawTasks, present := obj["tasks"]
	if !present || rawTasks == nil {
		return day, nil
	}
	list, ok := rawTasks.([]any)
	if !ok {
		return DayEntry{}, newValidationError(RuleMalformedTask, "tasks for %s must be an array", date)
	}
	if len(list) > MaxTasksPerDay {
		return DayEntry{}, newValidationError(RuleTooManyTasks,
			"Day %s has %d tasks; at most %d are allowed", date, len(list), MaxTasksPerDay)
	}

	day.Tasks = make([]Task, 0, len(list))
	for i, item := range list {
		task, err := validateTask(date, i, item)
		if err != nil {
			return DayEntry{}, err
		}
		day.Tasks = append(day.Tasks, task)
	}

	if sum := day.TaskHours(); !sum.ApproxEqual(worked) {
		return DayEntry{}, newValidationError(RuleTaskHoursMismatch,
			"Task hours %s do not match hoursWorked %s for %s", sum, worked, date)
	}
	return day, nil
}

func validateTask(date string, index int, item any) (Task, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return Task{}, newValidationError(RuleMalformedTask, "Task %d for %s must be an object", index, date)
	}
	hours, ok := numberHours(obj["hours"])
	if !ok || hours.IsNegative() {
		return Task{}, newValidationError(RuleMalformedTask,
			"Task %d for %s must have non-negative numeric hours", index, date)
	}
	code, ok := obj["taskCode"].(string)
	if !ok {
		return Task{}, newValidationError(RuleMalformedTask, "Task %d for %s must have a string taskCode", index, date)
	}
	name, ok := obj["taskName"].(string)
	if !ok {
		return Task{}, newValidationError(RuleMalformedTask, "Task %d for %s must have a string taskName", index, date)
	}
	return Task{TaskCode: code, TaskName: name, Hours: hours}, nil
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, newValidationError(RuleMalformedTimesheet, "timesheet must be a JSON object")
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, newValidationError(RuleMalformedTimesheet, "timesheet must be a JSON object")
	}
	return obj, nil
}

func numberHours(v any) (generic.Hours, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return generic.Hours{}, false
	}
	h, err := generic.ParseHours(n.String())
	if err != nil {
		return generic.Hours{}, false
	}
	return h, true
}
