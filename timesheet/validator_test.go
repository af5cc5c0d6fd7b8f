package timesheet_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var marchWeek = timesheet.WeekKey{
	EmployeeID:    "emp-1",
	Year:          "2025",
	Month:         "03",
	WeekStartDate: "2025-03-10",
}

func keyFor(week string) timesheet.WeekKey {
	k := marchWeek
	k.WeekStartDate = week
	return k
}

// fullWeek is a valid Monday-Friday timesheet with 8h per day on one task.
const fullWeek = `{
	"2025-03-10": {"hoursWorked": 8, "tasks": [{"taskCode": "A", "taskName": "Build", "hours": 8}]},
	"2025-03-11": {"hoursWorked": 8, "tasks": [{"taskCode": "A", "taskName": "Build", "hours": 8}]},
	"2025-03-12": {"hoursWorked": 8, "tasks": [{"taskCode": "A", "taskName": "Build", "hours": 5}, {"taskCode": "B", "taskName": "Review", "hours": 3}]},
	"2025-03-13": {"hoursWorked": 8, "tasks": [{"taskCode": "A", "taskName": "Build", "hours": 8}]},
	"2025-03-14": {"hoursWorked": 8, "tasks": [{"taskCode": "A", "taskName": "Build", "hours": 8}]},
	"totalHours": 40,
	"format": "weekly"
}`

func requireRule(t *testing.T, err error, rule timesheet.Rule) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, rule, timesheet.RuleOf(err), "error: %v", err)
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestValidate_FullWeek(t *testing.T) {
	ts, err := timesheet.Validate(json.RawMessage(fullWeek), marchWeek)
	require.NoError(t, err)

	assert.Len(t, ts.Days, 5)
	assert.Equal(t, "weekly", ts.Format)
	assert.Equal(t, "40", ts.TotalHours.String())
	assert.Len(t, ts.Days["2025-03-12"].Tasks, 2)
	assert.Equal(t, "Review", ts.Days["2025-03-12"].Tasks[1].TaskName)
}

func TestValidate_HourSumInvariant(t *testing.T) {
	// For any accepted timesheet: totalHours == sum(hoursWorked) == sum(task hours)
	ts, err := timesheet.Validate(json.RawMessage(fullWeek), marchWeek)
	require.NoError(t, err)

	taskSum := generic.ZeroHours()
	for _, day := range ts.Days {
		assert.True(t, day.TaskHours().ApproxEqual(day.HoursWorked))
		taskSum = taskSum.Add(day.TaskHours())
	}
	assert.True(t, ts.TotalHours.ApproxEqual(ts.WorkedHours()))
	assert.True(t, ts.TotalHours.ApproxEqual(taskSum))
}

func TestValidate_DayWithoutTasks(t *testing.T) {
	raw := `{"2025-03-10": {"hoursWorked": 7.5}, "totalHours": 7.5}`
	ts, err := timesheet.Validate(json.RawMessage(raw), marchWeek)
	require.NoError(t, err)
	assert.False(t, ts.Days["2025-03-10"].HasTasks())
}

func TestValidate_TaskToleranceAccepted(t *testing.T) {
	raw := `{"2025-03-10": {"hoursWorked": 1, "tasks": [
		{"taskCode": "A", "taskName": "a", "hours": 0.33333},
		{"taskCode": "B", "taskName": "b", "hours": 0.33333},
		{"taskCode": "C", "taskName": "c", "hours": 0.33334}
	]}, "totalHours": 1.00005}`
	_, err := timesheet.Validate(json.RawMessage(raw), marchWeek)
	assert.NoError(t, err)
}

// =============================================================================
// RULE VIOLATIONS
// =============================================================================

func TestValidate_RuleViolations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		key  timesheet.WeekKey
		rule timesheet.Rule
	}{
		{
			name: "not an object",
			raw:  `[1,2,3]`,
			key:  marchWeek,
			rule: timesheet.RuleMalformedTimesheet,
		},
		{
			name: "malformed date key",
			raw:  `{"2025-3-10": {"hoursWorked": 8}, "totalHours": 8}`,
			key:  marchWeek,
			rule: timesheet.RuleMalformedDateKey,
		},
		{
			name: "unknown key",
			raw:  `{"monday": {"hoursWorked": 8}, "totalHours": 8}`,
			key:  marchWeek,
			rule: timesheet.RuleMalformedDateKey,
		},
		{
			name: "daily hours over 24",
			raw:  `{"2025-03-10": {"hoursWorked": 24.5}, "totalHours": 24.5}`,
			key:  marchWeek,
			rule: timesheet.RuleDailyHoursExceeded,
		},
		{
			name: "daily hours not a number",
			raw:  `{"2025-03-10": {"hoursWorked": "8"}, "totalHours": 8}`,
			key:  marchWeek,
			rule: timesheet.RuleDailyHoursExceeded,
		},
		{
			name: "daily hours negative",
			raw:  `{"2025-03-10": {"hoursWorked": -1}, "totalHours": -1}`,
			key:  marchWeek,
			rule: timesheet.RuleDailyHoursExceeded,
		},
		{
			name: "task hours not numeric",
			raw:  `{"2025-03-10": {"hoursWorked": 8, "tasks": [{"taskCode": "A", "taskName": "a", "hours": "8"}]}, "totalHours": 8}`,
			key:  marchWeek,
			rule: timesheet.RuleMalformedTask,
		},
		{
			name: "task code not a string",
			raw:  `{"2025-03-10": {"hoursWorked": 8, "tasks": [{"taskCode": 7, "taskName": "a", "hours": 8}]}, "totalHours": 8}`,
			key:  marchWeek,
			rule: timesheet.RuleMalformedTask,
		},
		{
			name: "task name missing",
			raw:  `{"2025-03-10": {"hoursWorked": 8, "tasks": [{"taskCode": "A", "hours": 8}]}, "totalHours": 8}`,
			key:  marchWeek,
			rule: timesheet.RuleMalformedTask,
		},
		{
			name: "task hours mismatch",
			raw:  `{"2025-03-10": {"hoursWorked": 8, "tasks": [{"taskCode": "A", "taskName": "a", "hours": 7}]}, "totalHours": 8}`,
			key:  marchWeek,
			rule: timesheet.RuleTaskHoursMismatch,
		},
		{
			name: "declared total mismatch",
			raw:  `{"2025-03-10": {"hoursWorked": 8}, "totalHours": 9}`,
			key:  marchWeek,
			rule: timesheet.RuleTotalHoursMismatch,
		},
		{
			name: "missing declared total",
			raw:  `{"2025-03-10": {"hoursWorked": 8}}`,
			key:  marchWeek,
			rule: timesheet.RuleTotalHoursMismatch,
		},
		{
			name: "week anchor on a Tuesday",
			raw:  `{"2025-03-11": {"hoursWorked": 8}, "totalHours": 8}`,
			key:  keyFor("2025-03-11"),
			rule: timesheet.RuleInvalidWeekAnchor,
		},
		{
			name: "bad year format",
			raw:  `{"2025-03-10": {"hoursWorked": 8}, "totalHours": 8}`,
			key:  timesheet.WeekKey{EmployeeID: "emp-1", Year: "25", Month: "03", WeekStartDate: "2025-03-10"},
			rule: timesheet.RuleInvalidYearFormat,
		},
		{
			name: "bad month format",
			raw:  `{"2025-03-10": {"hoursWorked": 8}, "totalHours": 8}`,
			key:  timesheet.WeekKey{EmployeeID: "emp-1", Year: "2025", Month: "3", WeekStartDate: "2025-03-10"},
			rule: timesheet.RuleInvalidMonthFormat,
		},
		{
			name: "month does not match anchor",
			raw:  `{"2025-03-10": {"hoursWorked": 8}, "totalHours": 8}`,
			key:  timesheet.WeekKey{EmployeeID: "emp-1", Year: "2025", Month: "04", WeekStartDate: "2025-03-10"},
			rule: timesheet.RuleYearMonthMismatch,
		},
		{
			name: "date outside week",
			raw:  `{"2025-03-20": {"hoursWorked": 8}, "totalHours": 8}`,
			key:  marchWeek,
			rule: timesheet.RuleDateOutsideWeek,
		},
		{
			name: "date before week",
			raw:  `{"2025-03-09": {"hoursWorked": 8}, "totalHours": 8}`,
			key:  marchWeek,
			rule: timesheet.RuleDateOutsideWeek,
		},
		{
			name: "format not a string",
			raw:  `{"2025-03-10": {"hoursWorked": 8}, "totalHours": 8, "format": 3}`,
			key:  marchWeek,
			rule: timesheet.RuleMalformedTimesheet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := timesheet.Validate(json.RawMessage(tt.raw), tt.key)
			requireRule(t, err, tt.rule)
			assert.True(t, timesheet.IsValidationError(err))
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestValidate_ExtremeExponents(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		rule timesheet.Rule
	}{
		{
			name: "tiny hoursWorked",
			raw:  `{"2025-03-10":{"hoursWorked":1e-300000000},"totalHours":0}`,
			rule: timesheet.RuleDailyHoursExceeded,
		},
		{
			name: "huge hoursWorked",
			raw:  `{"2025-03-10":{"hoursWorked":1e300000000},"totalHours":0}`,
			rule: timesheet.RuleDailyHoursExceeded,
		},
		{
			name: "tiny task hours",
			raw:  `{"2025-03-10":{"hoursWorked":0,"tasks":[{"taskCode":"A","taskName":"a","hours":1e-300000000}]},"totalHours":0}`,
			rule: timesheet.RuleMalformedTask,
		},
		{
			name: "huge totalHours",
			raw:  `{"2025-03-10":{"hoursWorked":8},"totalHours":1e300000000}`,
			rule: timesheet.RuleMalformedTimesheet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := timesheet.Validate(json.RawMessage(tt.raw), marchWeek)
			requireRule(t, err, tt.rule)
		})
	}
}

func TestValidate_TooManyTasks(t *testing.T) {
	tasks := make([]string, 11)
	for i := range tasks {
		tasks[i] = fmt.Sprintf(`{"taskCode": "T%d", "taskName": "t", "hours": 1}`, i)
	}
	raw := fmt.Sprintf(`{"2025-03-10": {"hoursWorked": 11, "tasks": [%s]}, "totalHours": 11}`, strings.Join(tasks, ","))

	_, err := timesheet.Validate(json.RawMessage(raw), marchWeek)
	requireRule(t, err, timesheet.RuleTooManyTasks)
	assert.ErrorIs(t, err, timesheet.ErrTooManyTasks)
}

func TestValidate_WeekAnchorSentinel(t *testing.T) {
	raw := `{"2025-03-11": {"hoursWorked": 8}, "totalHours": 8}`
	_, err := timesheet.Validate(json.RawMessage(raw), keyFor("2025-03-11"))
	assert.ErrorIs(t, err, generic.ErrInvalidWeekAnchor)
}

func TestValidate_MondayPassesAnchorChecks(t *testing.T) {
	raw := `{"2025-03-10": {"hoursWorked": 8}, "totalHours": 8}`
	_, err := timesheet.Validate(json.RawMessage(raw), keyFor("2025-03-10"))
	assert.NoError(t, err)
}

// =============================================================================
// ORDERING AND BOUNDARIES
// =============================================================================

func TestValidate_WeeklyCapBoundary(t *testing.T) {
	// GIVEN: 7 days at 24h (168 total)
	// THEN: Accepted
	days := make([]string, 0, 8)
	for d := 10; d <= 16; d++ {
		days = append(days, fmt.Sprintf(`"2025-03-%02d": {"hoursWorked": 24}`, d))
	}
	raw := fmt.Sprintf(`{%s, "totalHours": 168}`, strings.Join(days, ","))
	_, err := timesheet.Validate(json.RawMessage(raw), marchWeek)
	require.NoError(t, err)

	// GIVEN: 168.01 total
	// THEN: Rejected as weekly cap, which is checked before the week range
	over := append(days, `"2025-03-17": {"hoursWorked": 0.01}`)
	raw = fmt.Sprintf(`{%s, "totalHours": 168.01}`, strings.Join(over, ","))
	_, err = timesheet.Validate(json.RawMessage(raw), marchWeek)
	requireRule(t, err, timesheet.RuleWeeklyHoursExceeded)
}

func TestValidate_FirstFailureWins(t *testing.T) {
	// Bad date key and bad anchor: the date key rule is checked first
	raw := `{"bogus": {"hoursWorked": 8}, "totalHours": 8}`
	_, err := timesheet.Validate(json.RawMessage(raw), keyFor("2025-03-11"))
	requireRule(t, err, timesheet.RuleMalformedDateKey)

	// Total mismatch and out-of-week date: total is checked first
	raw = `{"2025-03-20": {"hoursWorked": 8}, "totalHours": 4}`
	_, err = timesheet.Validate(json.RawMessage(raw), marchWeek)
	requireRule(t, err, timesheet.RuleTotalHoursMismatch)
}

func TestValidateYearMonth_ReadPath(t *testing.T) {
	assert.NoError(t, timesheet.ValidateYearMonth(marchWeek))
	err := timesheet.ValidateYearMonth(timesheet.WeekKey{Year: "2024", Month: "03", WeekStartDate: "2025-03-10"})
	assert.ErrorIs(t, err, timesheet.ErrYearMonthMismatch)
}
