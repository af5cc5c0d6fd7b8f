/*
Package generic provides the primitives shared by the timesheet engine.

PURPOSE:
  This package contains the domain-agnostic building blocks: a precise
  hour quantity, calendar rules for week anchors, the sentinel errors, and
  the document store contract the week record store persists through.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: A decimal quantity of hours (e.g., 7.5h, 0.25h)
  - EmployeeID: Type-safe identifier for the record owner

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 0.1 + 0.2 sums stay exact
  2. Wire compatibility: Hours marshal as plain JSON numbers, never strings
  3. Tolerance: Comparisons that cross the API boundary use HoursTolerance

USAGE:
  worked := generic.NewHours(7.5)
  total := worked.Add(generic.NewHours(0.5))
  if total.ApproxEqual(generic.NewHours(8)) { ... }

SEE ALSO:
  - time.go: Calendar rules
  - store.go: Document store interfaces
  - timesheet/types.go: Timesheet model built on Hours
*/
package generic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Decimal quantity of time
// =============================================================================

// HoursTolerance is the largest difference treated as equal when reconciling
// hour sums.
var HoursTolerance = decimal.RequireFromString("0.0001")

// Hours is a non-unit quantity of hours backed by decimal.Decimal.
type Hours struct {
	Value decimal.Decimal
}

func NewHours(value float64) Hours {
	return Hours{Value: decimal.NewFromFloat(value)}
}

func NewHoursFromInt(value int) Hours {
	return Hours{Value: decimal.NewFromInt(int64(value))}
}

// Bounds on accepted hour literals. Decimal comparison rescales both operands,
// so the exponent must stay small for comparisons to stay cheap.
const (
	maxHoursLiteral = 64
	maxHoursScale   = 32
)

// ParseHours parses a decimal literal such as "7.5" or "1e1".
func ParseHours(s string) (Hours, error) {
	if len(s) > maxHoursLiteral {
		return Hours{}, fmt.Errorf("%w: %d characters", ErrHoursOutOfRange, len(s))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Hours{}, fmt.Errorf("invalid hours %q: %w", s, err)
	}
	if d.IsZero() {
		return ZeroHours(), nil
	}
	if exp := d.Exponent(); exp < -maxHoursScale || exp > maxHoursScale {
		return Hours{}, fmt.Errorf("%w: %q", ErrHoursOutOfRange, s)
	}
	return Hours{Value: d}, nil
}

func ZeroHours() Hours { return Hours{Value: decimal.Zero} }

func (h Hours) Add(o Hours) Hours        { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours        { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) IsNegative() bool         { return h.Value.IsNegative() }
func (h Hours) IsZero() bool             { return h.Value.IsZero() }
func (h Hours) GreaterThan(o Hours) bool { return h.Value.GreaterThan(o.Value) }
func (h Hours) LessThan(o Hours) bool    { return h.Value.LessThan(o.Value) }
func (h Hours) Equal(o Hours) bool       { return h.Value.Equal(o.Value) }

// ApproxEqual reports whether |h - o| <= HoursTolerance.
func (h Hours) ApproxEqual(o Hours) bool {
	return h.Value.Sub(o.Value).Abs().LessThanOrEqual(HoursTolerance)
}

// String renders the shortest exact form: "4", "2.5", "0.25".
func (h Hours) String() string {
	return h.Value.String()
}

// SumHours adds a list of quantities.
func SumHours(hs ...Hours) Hours {
	total := ZeroHours()
	for _, h := range hs {
		total = total.Add(h)
	}
	return total
}

// MarshalJSON writes hours as a bare JSON number.
func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(h.Value.String()), nil
}

// UnmarshalJSON accepts JSON numbers only. Quoted numbers are rejected so
// that "hours":"8" is reported as malformed instead of silently accepted.
func (h *Hours) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("hours must be a JSON number, got %s", string(data))
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("hours must be a JSON number: %w", err)
	}
	parsed, err := ParseHours(n.String())
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

func (id EmployeeID) String() string { return string(id) }
