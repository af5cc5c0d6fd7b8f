/*
handlers.go - HTTP API handlers for weekly timesheets

PURPOSE:
  Exposes the timesheet engine via REST API. Handles HTTP request/response,
  JSON serialization, identity checks, and delegates to the timesheet
  package for validation, change detection and persistence.

ENDPOINTS:
  Weeks:
    GET    /timesheet/week?year&month&weekStartDate   Read one stored week
    POST   /timesheet/week                            Validate and save a week

  Months:
    GET    /timesheet/month?year&month                Every stored week of a month

  Ops:
    GET    /healthz                                   Liveness
    GET    /metrics                                   Prometheus (see metrics.go)

  Admins may pass employeeId (query for GET, body for POST) to act on
  another employee. Anyone else passing a different id gets 403.

REQUEST FLOW (POST):
  1. Identity from context (Authenticate middleware)
  2. Decode body, resolve target employee
  3. timesheet.Validate (first failing rule => 400 with its code)
  4. WeekStore.SaveWeek (one transaction, returns the change list);
     store conflicts are retried up to maxSaveAttempts
  5. Serialize response

ERROR HANDLING:
  Errors are returned as {success: false, error, code}:
  - 400: Validation errors, invalid input
  - 401: Missing or invalid credentials
  - 403: Valid credentials lacking access (token or employee override)
  - 404: Week not found
  - 500: Persistence failures (cause is logged, never returned)

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Authentication and request logging
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/identity"
	"github.com/warp/timesheet-engine/timesheet"
)

const (
	codeBadRequest      = "bad_request"
	codeUnauthenticated = "unauthenticated"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeInternal        = "internal_error"

	// Saves that hit a store conflict are retried this many times in total.
	maxSaveAttempts = 3

	messageSaved     = "Timesheet saved successfully"
	messageUnchanged = "No changes detected"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Weeks   *timesheet.WeekStore
	Logger  logrus.FieldLogger
	Metrics *Metrics
}

// NewHandler creates a new handler. A nil logger falls back to the logrus
// standard logger.
func NewHandler(weeks *timesheet.WeekStore, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		Weeks:   weeks,
		Logger:  logger,
		Metrics: NewMetrics(),
	}
}

// =============================================================================
// WEEK ENDPOINTS
// =============================================================================

// GetWeek returns the stored record for one week.
func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	employee, ok := h.targetEmployee(w, r, q.Get("employeeId"))
	if !ok {
		return
	}

	key := timesheet.WeekKey{
		EmployeeID:    employee,
		Year:          q.Get("year"),
		Month:         q.Get("month"),
		WeekStartDate: q.Get("weekStartDate"),
	}
	if key.Year == "" || key.Month == "" || key.WeekStartDate == "" {
		writeError(w, http.StatusBadRequest, "year, month and weekStartDate are required", codeBadRequest)
		return
	}
	if err := generic.ValidateWeekAnchor(key.WeekStartDate); err != nil {
		writeError(w, http.StatusBadRequest, "weekStartDate must be a Monday in YYYY-MM-DD format", string(timesheet.RuleInvalidWeekAnchor))
		return
	}
	if err := timesheet.ValidateYearMonth(key); err != nil {
		h.writeValidationError(w, err)
		return
	}

	record, err := h.Weeks.GetWeek(r.Context(), key)
	if errors.Is(err, timesheet.ErrWeekNotFound) {
		writeError(w, http.StatusNotFound, "Timesheet not found", codeNotFound)
		return
	}
	if err != nil {
		h.writeInternal(w, r, "get week failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toWeekResponse(key, record))
}

// SaveWeek validates a submission and merges it into the month document.
func (h *Handler) SaveWeek(w http.ResponseWriter, r *http.Request) {
	var req SaveWeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", codeBadRequest)
		return
	}

	employee, ok := h.targetEmployee(w, r, req.EmployeeID)
	if !ok {
		return
	}
	if req.Year == "" || req.Month == "" || req.WeekStartDate == "" || len(req.Timesheet) == 0 {
		writeError(w, http.StatusBadRequest, "year, month, weekStartDate and timesheet are required", codeBadRequest)
		return
	}

	key := timesheet.WeekKey{
		EmployeeID:    employee,
		Year:          req.Year,
		Month:         req.Month,
		WeekStartDate: req.WeekStartDate,
	}
	ts, err := timesheet.Validate(req.Timesheet, key)
	if err != nil {
		h.Metrics.recordValidationFailure(string(timesheet.RuleOf(err)))
		h.writeValidationError(w, err)
		return
	}

	id, _ := identity.FromContext(r.Context())
	save := timesheet.SaveRequest{
		Key:       key,
		Timesheet: ts,
		UpdatedBy: id.ActorName(),
		IsAdmin:   id.IsAdmin,
	}
	// WeekStore never retries. Conflict retries belong to its callers, so
	// the loop lives here at the HTTP boundary.
	var changes []string
	for attempt := 1; ; attempt++ {
		start := time.Now()
		changes, err = h.Weeks.SaveWeek(r.Context(), save)
		h.Metrics.observeSave(start)
		if err == nil || !generic.IsRetryable(err) || attempt == maxSaveAttempts {
			break
		}
		h.Logger.WithError(err).WithField("attempt", attempt).Warn("save week conflicted, retrying")
	}
	if err != nil {
		h.Metrics.recordSubmission("failed")
		h.writeInternal(w, r, "save week failed", err)
		return
	}

	message := messageSaved
	switch {
	case len(changes) == 0:
		message = messageUnchanged
		h.Metrics.recordSubmission("unchanged")
	default:
		if len(changes) == 1 && changes[0] == timesheet.ChangeDiffUnavailable {
			h.Metrics.recordDiffFallback()
		}
		h.Metrics.recordSubmission("saved")
	}
	if changes == nil {
		changes = []string{}
	}

	writeJSON(w, http.StatusOK, SaveWeekResponse{
		Success:       true,
		EmployeeID:    string(employee),
		WeekStartDate: key.WeekStartDate,
		Year:          key.Year,
		Month:         key.Month,
		Message:       message,
		Changes:       changes,
	})
}

// =============================================================================
// MONTH ENDPOINTS
// =============================================================================

// GetMonth returns every stored week of a month.
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	employee, ok := h.targetEmployee(w, r, q.Get("employeeId"))
	if !ok {
		return
	}

	path := generic.DocumentPath{EmployeeID: employee, Year: q.Get("year"), Month: q.Get("month")}
	if err := generic.ValidateYearMonth(path.Year, path.Month); err != nil {
		code := timesheet.RuleInvalidYearFormat
		if errors.Is(err, generic.ErrInvalidMonthFormat) {
			code = timesheet.RuleInvalidMonthFormat
		}
		writeError(w, http.StatusBadRequest, "year must be YYYY and month must be MM", string(code))
		return
	}

	weeks, err := h.Weeks.ListMonth(r.Context(), path)
	if err != nil {
		h.writeInternal(w, r, "list month failed", err)
		return
	}

	writeJSON(w, http.StatusOK, MonthResponse{
		Success:    true,
		EmployeeID: string(employee),
		Year:       path.Year,
		Month:      path.Month,
		Weeks:      weeks,
	})
}

// =============================================================================
// OPS
// =============================================================================

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// targetEmployee resolves whose timesheet the request touches. On failure
// the response has already been written.
func (h *Handler) targetEmployee(w http.ResponseWriter, r *http.Request, requested string) (generic.EmployeeID, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok || id.EmployeeID == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required", codeUnauthenticated)
		return "", false
	}
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == string(id.EmployeeID) {
		return id.EmployeeID, true
	}
	if !id.IsAdmin {
		writeError(w, http.StatusForbidden, "Only admins may access another employee's timesheet", codeForbidden)
		return "", false
	}
	return generic.EmployeeID(requested), true
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var ve *timesheet.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Message, string(ve.Rule))
		return
	}
	writeError(w, http.StatusBadRequest, err.Error(), codeBadRequest)
}

func (h *Handler) writeInternal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.Logger.WithError(err).WithField("path", r.URL.Path).Error(msg)
	writeError(w, http.StatusInternalServerError, "Internal server error", codeInternal)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: message, Code: code})
}
