package availability

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDatePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthDayYearPattern = regexp.MustCompile(`(?i)^([a-z]+)\s+(\d{1,2})(?:,|\s)\s*(\d{4})$`)
)

var monthNumbers = map[string]string{
	"january": "01", "february": "02", "march": "03", "april": "04",
	"may": "05", "june": "06", "july": "07", "august": "08",
	"september": "09", "october": "10", "november": "11", "december": "12",
	"jan": "01", "feb": "02", "mar": "03", "apr": "04",
	"jun": "06", "jul": "07", "aug": "08", "sep": "09",
	"oct": "10", "nov": "11", "dec": "12",
}

// NormalizeDate converts a date expression into canonical YYYY-MM-DD form.
//
// Accepted shapes:
//
//	2025-04-01      passed through unchanged
//	April 1, 2025   full month name, comma separator
//	Apr 1 2025      abbreviation, whitespace separator
//
// Everything else yields a *NormalizationError.
func NormalizeDate(expr string) (string, error) {
	s := strings.TrimSpace(expr)

	if isoDatePattern.MatchString(s) {
		return s, nil
	}

	m := monthDayYearPattern.FindStringSubmatch(s)
	if m == nil {
		return "", &NormalizationError{Input: expr}
	}

	month, ok := monthNumbers[strings.ToLower(m[1])]
	if !ok {
		return "", &NormalizationError{Input: expr, Reason: fmt.Sprintf("unknown month %q", m[1])}
	}
	day, _ := strconv.Atoi(m[2])
	if day < 1 || day > 31 {
		return "", &NormalizationError{Input: expr, Reason: "day must be between 1 and 31"}
	}

	return fmt.Sprintf("%s-%s-%02d", m[3], month, day), nil
}

// NormalizeMonth zero-pads a 1-12 month given as a bare or padded number.
func NormalizeMonth(month string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || n < 1 || n > 12 {
		return "", &ValidationError{Field: "month", Message: fmt.Sprintf("%q is not a month number between 1 and 12", month)}
	}
	return fmt.Sprintf("%02d", n), nil
}

// ParseMonthYear validates month/year parameters as callers receive them
// ("9" or "09", "2025").
func ParseMonthYear(month, year string) (time.Month, int, error) {
	if strings.TrimSpace(month) == "" || strings.TrimSpace(year) == "" {
		return 0, 0, &ValidationError{Field: "month/year", Message: "both month and year are required"}
	}
	mm, err := NormalizeMonth(month)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 1 || y > 9999 {
		return 0, 0, &ValidationError{Field: "year", Message: fmt.Sprintf("%q is not a four-digit year", year)}
	}
	m, _ := strconv.Atoi(mm)
	return time.Month(m), y, nil
}

// CanonicalDate builds YYYY-MM-DD with zero-padded month and day.
func CanonicalDate(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// MonthPrefix returns the YYYY-MM- prefix shared by every date in a month.
func MonthPrefix(month time.Month, year int) string {
	return fmt.Sprintf("%04d-%02d-", year, int(month))
}

// DaysIn returns the number of days in the given month.
func DaysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
