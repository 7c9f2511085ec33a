package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var statusLabels = map[Status]string{
	StatusAvailable:   "Available",
	StatusBooked:      "Booked",
	StatusBlocked:     "Blocked",
	StatusMaintenance: "Maintenance",
}

// FormatReport renders a month's records grouped by status:
//
//	Availability for 09/2025:
//	- Available dates: 04, 05
//	- Booked dates: 01, 02, 03
//
// Empty groups are omitted. An empty record list is a message, not an error.
func FormatReport(records []Record, month time.Month, year int) string {
	label := fmt.Sprintf("%02d/%d", int(month), year)
	if len(records) == 0 {
		return fmt.Sprintf("No availability information found for %s.", label)
	}

	groups := make(map[Status][]string, len(Statuses))
	for _, r := range records {
		groups[r.Status] = append(groups[r.Status], r.Day())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Availability for %s:", label)
	for _, s := range Statuses {
		days := groups[s]
		if len(days) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n- %s dates: %s", statusLabels[s], strings.Join(days, ", "))
	}
	return b.String()
}

// Summary is the numeric companion of FormatReport.
type Summary struct {
	Month       time.Month
	Year        int
	Counts      map[Status]int
	DaysInMonth int
	// Unrecorded days read as available on point lookup but have no row.
	Unrecorded int
	// Occupancy is booked days as a percentage of the month, 2 decimal places.
	Occupancy decimal.Decimal
}

// Summarize counts records per status for one month.
func Summarize(records []Record, month time.Month, year int) Summary {
	s := Summary{
		Month:       month,
		Year:        year,
		Counts:      make(map[Status]int, len(Statuses)),
		DaysInMonth: DaysIn(month, year),
	}
	for _, st := range Statuses {
		s.Counts[st] = 0
	}
	for _, r := range records {
		s.Counts[r.Status]++
	}

	s.Unrecorded = s.DaysInMonth - len(records)
	if s.Unrecorded < 0 {
		s.Unrecorded = 0
	}
	s.Occupancy = decimal.NewFromInt(int64(s.Counts[StatusBooked])).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(s.DaysInMonth))).
		Round(2)
	return s
}
