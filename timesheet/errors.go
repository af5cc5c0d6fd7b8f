package timesheet

import (
	"errors"
	"fmt"

	"github.com/warp/timesheet-engine/generic"
)

// Rule names a validation rule. The string is returned to API clients as the
// error code.
type Rule string

const (
	RuleMalformedTimesheet  Rule = "malformed_timesheet"
	RuleMalformedDateKey    Rule = "malformed_date_key"
	RuleDailyHoursExceeded  Rule = "daily_hours_exceeded"
	RuleTooManyTasks        Rule = "too_many_tasks"
	RuleMalformedTask       Rule = "malformed_task"
	RuleTaskHoursMismatch   Rule = "task_hours_mismatch"
	RuleWeeklyHoursExceeded Rule = "weekly_hours_exceeded"
	RuleTotalHoursMismatch  Rule = "total_hours_mismatch"
	RuleInvalidWeekAnchor   Rule = "invalid_week_anchor"
	RuleInvalidYearFormat   Rule = "invalid_year_format"
	RuleInvalidMonthFormat  Rule = "invalid_month_format"
	RuleYearMonthMismatch   Rule = "year_month_mismatch"
	RuleDateOutsideWeek     Rule = "date_outside_week"
)

var (
	ErrMalformedTimesheet  = errors.New("malformed timesheet")
	ErrMalformedDateKey    = errors.New("malformed date key")
	ErrDailyHoursExceeded  = errors.New("daily hours exceeded")
	ErrTooManyTasks        = errors.New("too many tasks")
	ErrMalformedTask       = errors.New("malformed task")
	ErrTaskHoursMismatch   = errors.New("task hours mismatch")
	ErrWeeklyHoursExceeded = errors.New("weekly hours exceeded")
	ErrTotalHoursMismatch  = errors.New("total hours mismatch")
	ErrYearMonthMismatch   = errors.New("year/month mismatch")
	ErrDateOutsideWeek     = errors.New("date outside week")

	// ErrWeekNotFound is returned by GetWeek when no record exists.
	ErrWeekNotFound = errors.New("timesheet week not found")

	// ErrPersistence wraps any document store failure.
	ErrPersistence = errors.New("timesheet persistence failed")
)

var ruleSentinels = map[Rule]error{
	RuleMalformedTimesheet:  ErrMalformedTimesheet,
	RuleMalformedDateKey:    ErrMalformedDateKey,
	RuleDailyHoursExceeded:  ErrDailyHoursExceeded,
	RuleTooManyTasks:        ErrTooManyTasks,
	RuleMalformedTask:       ErrMalformedTask,
	RuleTaskHoursMismatch:   ErrTaskHoursMismatch,
	RuleWeeklyHoursExceeded: ErrWeeklyHoursExceeded,
	RuleTotalHoursMismatch:  ErrTotalHoursMismatch,
	RuleInvalidWeekAnchor:   generic.ErrInvalidWeekAnchor,
	RuleInvalidYearFormat:   generic.ErrInvalidYearFormat,
	RuleInvalidMonthFormat:  generic.ErrInvalidMonthFormat,
	RuleYearMonthMismatch:   ErrYearMonthMismatch,
	RuleDateOutsideWeek:     ErrDateOutsideWeek,
}

// ValidationError reports the first rule a submission violated.
type ValidationError struct {
	Rule    Rule
	Message string
}

func newValidationError(rule Rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ruleSentinels[e.Rule]
}

// IsValidationError returns true for any rule violation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RuleOf extracts the violated rule, or "" if err is not a ValidationError.
func RuleOf(err error) Rule {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Rule
	}
	return ""
}
