/*
types.go - Core types for the availability ledger

PURPOSE:
  Defines the single persisted entity (Record) and the small vocabulary
  around it: resources, statuses, and the canonical date layout.

KEY CONCEPTS:
  Resource:   The bookable unit (one apartment). Every record is scoped to one.
  Status:     available | booked | blocked | maintenance.
  Natural key: (ResourceID, Date). At most one status per resource per day.

DEFAULT-AVAILABLE:
  A date with no record reads as StatusAvailable on a point lookup.
  Range queries never synthesize those days; they return stored rows only.

SEE ALSO:
  - normalize.go: Canonical date construction
  - store.go: Persistence interfaces
*/
package availability

import "fmt"

// DateLayout is the canonical YYYY-MM-DD form every stored date uses.
const DateLayout = "2006-01-02"

// ResourceID identifies a bookable unit.
type ResourceID string

// DefaultResource is used when a caller does not name a resource.
const DefaultResource ResourceID = "santa-maria"

// OrDefault returns r, or DefaultResource when r is empty.
func (r ResourceID) OrDefault() ResourceID {
	if r == "" {
		return DefaultResource
	}
	return r
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the state of a resource on one calendar day.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusBooked      Status = "booked"
	StatusBlocked     Status = "blocked"
	StatusMaintenance Status = "maintenance"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusAvailable, StatusBooked, StatusBlocked, StatusMaintenance}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusBooked, StatusBlocked, StatusMaintenance:
		return true
	}
	return false
}

// ParseStatus validates a raw status keyword.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("%q is not one of: available, booked, blocked, maintenance", raw),
		}
	}
	return s, nil
}

// =============================================================================
// RECORD
// =============================================================================

// Record is one (resource, date) -> status entry. Records are created and
// mutated only through a Store.
type Record struct {
	ID         int64
	ResourceID ResourceID
	Date       string
	Status     Status
	Notes      string
}

// Day returns the DD component of the record's date.
func (r Record) Day() string {
	if len(r.Date) < 10 {
		return r.Date
	}
	return r.Date[8:10]
}
