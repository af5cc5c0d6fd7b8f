/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the week record model from the external API contract.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Response wrappers

TYPES:
  Week:
    SaveWeekRequest, SaveWeekResponse, WeekResponse

  Month:
    MonthResponse

  Errors:
    ErrorResponse

VALIDATION:
  Validation is done by timesheet.Validate, not in DTOs. The timesheet is
  kept as raw JSON so shape rules see exactly what the client sent.

SEE ALSO:
  - handlers.go: Uses these types
  - timesheet/types.go: Week record model
*/
package api

import (
	"encoding/json"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// SaveWeekRequest is the body of POST /timesheet/week.
type SaveWeekRequest struct {
	Year          string          `json:"year"`
	Month         string          `json:"month"`
	WeekStartDate string          `json:"weekStartDate"`
	Timesheet     json.RawMessage `json:"timesheet"`

	// EmployeeID lets an admin save on behalf of another employee.
	EmployeeID string `json:"employeeId,omitempty"`
}

// SaveWeekResponse echoes the key and the computed changes.
type SaveWeekResponse struct {
	Success       bool     `json:"success"`
	EmployeeID    string   `json:"employeeId"`
	WeekStartDate string   `json:"weekStartDate"`
	Year          string   `json:"year"`
	Month         string   `json:"month"`
	Message       string   `json:"message"`
	Changes       []string `json:"changes"`
}

// WeekResponse is a stored week record.
type WeekResponse struct {
	Success       bool                         `json:"success"`
	EmployeeID    string                       `json:"employeeId"`
	WeekStartDate string                       `json:"weekStartDate"`
	Year          string                       `json:"year"`
	Month         string                       `json:"month"`
	Timesheet     timesheet.Timesheet          `json:"timesheet"`
	TotalHours    generic.Hours                `json:"totalHours"`
	Format        string                       `json:"format"`
	ActivityLog   []timesheet.ActivityLogEntry `json:"activityLog"`
}

// MonthResponse lists every stored week of a month.
type MonthResponse struct {
	Success    bool                            `json:"success"`
	EmployeeID string                          `json:"employeeId"`
	Year       string                          `json:"year"`
	Month      string                          `json:"month"`
	Weeks      map[string]timesheet.WeekRecord `json:"weeks"`
}

// ErrorResponse is returned for every non-2xx status.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func toWeekResponse(key timesheet.WeekKey, record *timesheet.WeekRecord) WeekResponse {
	return WeekResponse{
		Success:       true,
		EmployeeID:    string(key.EmployeeID),
		WeekStartDate: key.WeekStartDate,
		Year:          key.Year,
		Month:         key.Month,
		Timesheet:     record.Timesheet,
		TotalHours:    record.TotalHours,
		Format:        record.Format,
		ActivityLog:   record.ActivityLog.Entries(),
	}
}
