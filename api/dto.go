/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags. Handlers run the
  validator before anything reaches the store, so the store never sees an
  unknown status or an empty batch.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/availability-engine/availability"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// UpdateAvailabilityRequest sets one status on a set of dates. Dates may be
// YYYY-MM-DD or human-readable ("April 1, 2025").
type UpdateAvailabilityRequest struct {
	Dates  []string `json:"dates" validate:"required,min=1,dive,required"`
	Status string   `json:"status" validate:"required,oneof=available booked blocked maintenance"`
	Notes  string   `json:"notes" validate:"max=500"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RecordDTO represents one stored day.
type RecordDTO struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// SummaryDTO is the numeric view of a month.
type SummaryDTO struct {
	Counts           map[string]int `json:"counts"`
	DaysInMonth      int            `json:"days_in_month"`
	Unrecorded       int            `json:"unrecorded"`
	OccupancyPercent string         `json:"occupancy_percent"`
}

// MonthAvailabilityDTO is the response of a month query.
type MonthAvailabilityDTO struct {
	ResourceID string      `json:"resource_id"`
	Month      string      `json:"month"`
	Year       int         `json:"year"`
	Report     string      `json:"report"`
	Summary    SummaryDTO  `json:"summary"`
	Records    []RecordDTO `json:"records"`
}

// DateStatusDTO is the response of a point lookup.
type DateStatusDTO struct {
	ResourceID string `json:"resource_id"`
	Date       string `json:"date"`
	Status     string `json:"status"`
}

// UpdateAvailabilityDTO confirms an update.
type UpdateAvailabilityDTO struct {
	ResourceID string   `json:"resource_id"`
	Dates      []string `json:"dates"`
	Status     string   `json:"status"`
	Message    string   `json:"message"`
}

// SkippedEntryDTO explains one skipped snapshot entry.
type SkippedEntryDTO struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// ImportResultDTO reports a committed import.
type ImportResultDTO struct {
	ResourceID string            `json:"resource_id"`
	Shape      string            `json:"shape"`
	Source     string            `json:"source,omitempty"`
	Applied    int               `json:"applied"`
	Skipped    []SkippedEntryDTO `json:"skipped"`
	Message    string            `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toRecordDTOs(records []availability.Record) []RecordDTO {
	dtos := make([]RecordDTO, len(records))
	for i, r := range records {
		dtos[i] = RecordDTO{Date: r.Date, Status: string(r.Status), Notes: r.Notes}
	}
	return dtos
}

func toSummaryDTO(s availability.Summary) SummaryDTO {
	counts := make(map[string]int, len(s.Counts))
	for status, n := range s.Counts {
		counts[string(status)] = n
	}
	return SummaryDTO{
		Counts:           counts,
		DaysInMonth:      s.DaysInMonth,
		Unrecorded:       s.Unrecorded,
		OccupancyPercent: s.Occupancy.StringFixed(2),
	}
}

func toImportResultDTO(res availability.ImportResult, source string) ImportResultDTO {
	skipped := make([]SkippedEntryDTO, len(res.Skipped))
	for i, s := range res.Skipped {
		skipped[i] = SkippedEntryDTO{Ref: s.Ref, Reason: s.Reason}
	}
	return ImportResultDTO{
		ResourceID: string(res.ResourceID),
		Shape:      res.Shape,
		Source:     source,
		Applied:    res.Applied,
		Skipped:    skipped,
		Message:    "Successfully imported availability data",
	}
}
