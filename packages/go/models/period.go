package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a resolved report month
type Period struct {
	Month string `json:"month"` // two digits, "01".."12"
	Year  string `json:"year"`  // four digits
}

// InvalidPeriodError indicates a month or year token that cannot be resolved
type InvalidPeriodError struct {
	Field string
	Value string
}

func (e *InvalidPeriodError) Error() string {
	if e.Field == "year" {
		return fmt.Sprintf(`Invalid "year" %q. Use four digits like "2025", or omit it for the current year.`, e.Value)
	}
	return fmt.Sprintf(`Invalid "month" %q. Use two digits like "09", or "auto", or "prev".`, e.Value)
}

// IsInvalidPeriodError checks if an error is an InvalidPeriodError
func IsInvalidPeriodError(err error) bool {
	var periodErr *InvalidPeriodError
	return errors.As(err, &periodErr)
}

// ResolvePeriod turns request tokens into a concrete period.
//
// month accepts "", "auto" (current month), "prev"/"previous"/"last" (prior
// calendar month) or a number 1..12. A non-empty year overrides the year of
// any month form. now is converted to UTC.
func ResolvePeriod(month, year string, now time.Time) (Period, error) {
	now = now.UTC()
	month = strings.ToLower(strings.TrimSpace(month))
	year = strings.TrimSpace(year)

	var ref time.Time
	switch month {
	case "", "auto":
		ref = now
	case "prev", "previous", "last":
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		ref = firstOfMonth.AddDate(0, 0, -1)
	default:
		m, ok := parseDigits(month)
		if !ok || m < 1 || m > 12 {
			return Period{}, &InvalidPeriodError{Field: "month", Value: month}
		}
		ref = time.Date(now.Year(), time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	}

	y := ref.Year()
	if year != "" {
		parsed, ok := parseDigits(year)
		if !ok || parsed < 1 || parsed > 9999 {
			return Period{}, &InvalidPeriodError{Field: "year", Value: year}
		}
		y = parsed
	}

	return Period{
		Month: fmt.Sprintf("%02d", int(ref.Month())),
		Year:  fmt.Sprintf("%04d", y),
	}, nil
}

// ParsePeriod parses a "YYYY-MM" string
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("parsing period %q (want YYYY-MM): %w", s, err)
	}
	return PeriodOf(t), nil
}

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) Period {
	return Period{
		Month: t.Format("01"),
		Year:  t.Format("2006"),
	}
}

// PeriodRange returns every period from..to inclusive
func PeriodRange(from, to Period) ([]Period, error) {
	start, err := from.first()
	if err != nil {
		return nil, err
	}
	end, err := to.first()
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, fmt.Errorf("period %s is after %s", from, to)
	}

	var periods []Period
	for t := start; !t.After(end); t = t.AddDate(0, 1, 0) {
		periods = append(periods, PeriodOf(t))
	}
	return periods, nil
}

// String returns the period as YYYY-MM
func (p Period) String() string {
	return p.Year + "-" + p.Month
}

// Prefix returns the date-partitioned key prefix under base: base/YYYY/MM/
func (p Period) Prefix(base string) string {
	base = strings.Trim(base, "/")
	if base == "" {
		return p.Year + "/" + p.Month + "/"
	}
	return base + "/" + p.Year + "/" + p.Month + "/"
}

func (p Period) first() (time.Time, error) {
	return time.Parse("2006-01", p.String())
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
