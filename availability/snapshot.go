/*
snapshot.go - Legacy availability snapshot shapes

PURPOSE:
  Bulk availability arrives as JSON produced by older tooling. This file
  turns raw bytes into an explicit sum type before any processing, so the
  importer never inspects untyped maps.

SHAPES:
  ArraySnapshot:
    [{"date": "2025-08-10", "status": "maintenance", "notes": "boiler"}, ...]

  MonthKeyedSnapshot:
    {"8/2025": {"available": [1, 2], "booked": [10], "blocked": [], "maintenance": []}}

  Also accepted (older admin files):
    {"availability": {"2025-07": {"available_days": [...], "booked_days": [...]}}, "updated": "..."}

  Object-valued keys beside "availability" are imported as months as well.
  Scalar siblings such as "updated" are ignored.

TOLERANCE:
  Parsing only fails for payloads that match no shape at all. Individual
  entries that are malformed are kept and reported by the importer as skips.
*/
package availability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Snapshot is either an ArraySnapshot or a MonthKeyedSnapshot.
type Snapshot interface {
	shape() string
}

// ArrayEntry is one element of the array form. Empty fields mean the field
// was missing or had the wrong JSON type.
type ArrayEntry struct {
	Index     int
	Date      string
	Status    string
	Notes     string
	Malformed bool
}

// ArraySnapshot is the [{date, status, notes?}] form.
type ArraySnapshot []ArrayEntry

func (ArraySnapshot) shape() string { return "array" }

// StatusDays holds the day-of-month tokens listed under one status.
type StatusDays struct {
	Status Status
	Days   []string
}

// MonthBlock is one "month/year" key and its status arrays, in report order.
// Conflict marks a month given both inside and beside the "availability"
// wrapper; the wrapped block is kept and this one carries no days.
type MonthBlock struct {
	Key       string
	Days      []StatusDays
	Malformed bool
	Conflict  bool
}

// MonthKeyedSnapshot is the {"M/YYYY": {...}} form. Blocks are sorted by key.
type MonthKeyedSnapshot []MonthBlock

func (MonthKeyedSnapshot) shape() string { return "month-keyed" }

// ShapeOf names the snapshot variant for logs and API responses.
func ShapeOf(s Snapshot) string {
	if s == nil {
		return ""
	}
	return s.shape()
}

// ParseSnapshot decodes a raw payload into one of the snapshot variants.
func ParseSnapshot(raw []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidSnapshot)
	}

	switch trimmed[0] {
	case '[':
		return parseArray(trimmed)
	case '{':
		return parseMonthKeyed(trimmed)
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrInvalidSnapshot)
	}
}

type arrayEntryJSON struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func parseArray(raw []byte) (ArraySnapshot, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	out := make(ArraySnapshot, 0, len(items))
	for i, item := range items {
		var e arrayEntryJSON
		if err := json.Unmarshal(item, &e); err != nil {
			out = append(out, ArrayEntry{Index: i, Malformed: true})
			continue
		}
		out = append(out, ArrayEntry{
			Index:  i,
			Date:   strings.TrimSpace(e.Date),
			Status: strings.TrimSpace(e.Status),
			Notes:  e.Notes,
		})
	}
	return out, nil
}

type monthJSON struct {
	Available     dayList `json:"available"`
	Booked        dayList `json:"booked"`
	Blocked       dayList `json:"blocked"`
	Maintenance   dayList `json:"maintenance"`
	AvailableDays dayList `json:"available_days"`
	BookedDays    dayList `json:"booked_days"`
}

func parseMonthKeyed(raw []byte) (MonthKeyedSnapshot, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	// Older admin files wrap the months in {"availability": {...}}. Object
	// siblings of the wrapper are months too; other siblings are metadata.
	inner, wrapped := obj["availability"]
	if !wrapped || !isJSONObject(inner) {
		return monthBlocks(obj), nil
	}
	var months map[string]json.RawMessage
	if err := json.Unmarshal(inner, &months); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	out := monthBlocks(months)

	siblings := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		if k != "availability" && isJSONObject(v) {
			siblings[k] = v
		}
	}
	for _, b := range monthBlocks(siblings) {
		if _, dup := months[b.Key]; dup {
			b = MonthBlock{Key: b.Key, Conflict: true}
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func monthBlocks(obj map[string]json.RawMessage) MonthKeyedSnapshot {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(MonthKeyedSnapshot, 0, len(keys))
	for _, k := range keys {
		v := obj[k]
		if !isJSONObject(v) {
			out = append(out, MonthBlock{Key: k, Malformed: true})
			continue
		}
		var m monthJSON
		if err := json.Unmarshal(v, &m); err != nil {
			out = append(out, MonthBlock{Key: k, Malformed: true})
			continue
		}
		out = append(out, MonthBlock{
			Key: k,
			Days: []StatusDays{
				{Status: StatusAvailable, Days: append(m.Available, m.AvailableDays...)},
				{Status: StatusBooked, Days: append(m.Booked, m.BookedDays...)},
				{Status: StatusBlocked, Days: m.Blocked},
				{Status: StatusMaintenance, Days: m.Maintenance},
			},
		})
	}
	return out
}

func isJSONObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}

// dayList accepts numbers or numeric strings. A field that is not an array
// decodes to nil rather than failing the block.
type dayList []string

func (d *dayList) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		*d = nil
		return nil
	}
	out := make(dayList, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err == nil {
			out = append(out, strings.TrimSpace(s))
			continue
		}
		out = append(out, string(bytes.TrimSpace(it)))
	}
	*d = out
	return nil
}
