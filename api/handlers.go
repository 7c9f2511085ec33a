/*
handlers.go - HTTP API handlers for the availability ledger

PURPOSE:
  Exposes the ledger over REST. This is the action layer: it parses and
  validates caller input (status keyword, dates, month/year), normalizes
  dates, and only then calls the store or the importer.

ENDPOINTS:
  Availability:
    GET  /api/resources/{resourceID}/availability?month=&year=   Month report
    GET  /api/resources/{resourceID}/availability/{date}         Point lookup
    PUT  /api/resources/{resourceID}/availability                Batch update

  Import:
    POST /api/resources/{resourceID}/import                      Import request body
    POST /api/resources/{resourceID}/import/source               Import configured snapshot

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid status, dates, month/year, or snapshot
  - 404: No snapshot source available
  - 503: Store not initialized
  - 500: Rolled-back transaction or other internal error

SECURITY NOTE:
  No authentication. Deploy behind the admin gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/warp/availability-engine/availability"
	"github.com/warp/availability-engine/loader"
	"github.com/warp/availability-engine/metrics"
	"github.com/warp/availability-engine/reportcache"
)

const maxSnapshotBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    availability.TxStore
	Importer *availability.Importer
	Cache    reportcache.Cache
	Loader   loader.Loader
	Metrics  *metrics.Collectors
	Log      zerolog.Logger

	validate *validator.Validate
}

// NewHandler creates a handler over store. Cache and Loader may be set on
// the returned value; a nil Cache behaves as reportcache.Noop.
func NewHandler(store availability.TxStore, importer *availability.Importer) *Handler {
	return &Handler{
		Store:    store,
		Importer: importer,
		Cache:    reportcache.Noop{},
		Log:      zerolog.Nop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) cache() reportcache.Cache {
	if h.Cache == nil {
		return reportcache.Noop{}
	}
	return h.Cache
}

func resourceParam(r *http.Request) availability.ResourceID {
	return availability.ResourceID(strings.TrimSpace(chi.URLParam(r, "resourceID"))).OrDefault()
}

// =============================================================================
// HEALTH
// =============================================================================

type readiness interface {
	Ready() bool
}

// Health returns 200 when the store is open, 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if rs, ok := h.Store.(readiness); ok && !rs.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Store not initialized", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// AVAILABILITY HANDLERS
// =============================================================================

// GetMonth returns the formatted report, summary and records of a month.
// ?format=text returns only the report as text/plain.
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	resourceID := resourceParam(r)
	q := r.URL.Query()

	month, year, err := availability.ParseMonthYear(q.Get("month"), q.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please provide both month and year to check availability", err)
		return
	}

	dto, err := h.monthAvailability(r.Context(), resourceID, month, year)
	if err != nil {
		h.writeLedgerError(w, "Failed to query availability", err)
		return
	}

	if q.Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, dto.Report)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) monthAvailability(ctx context.Context, resourceID availability.ResourceID, month time.Month, year int) (MonthAvailabilityDTO, error) {
	if cached, ok, err := h.cache().Get(ctx, resourceID, month, year); err != nil {
		h.Metrics.ObserveCache("error")
		h.Log.Warn().Err(err).Str("resource", string(resourceID)).Msg("report cache read failed")
	} else if ok {
		var dto MonthAvailabilityDTO
		if err := json.Unmarshal([]byte(cached), &dto); err == nil {
			h.Metrics.ObserveCache("hit")
			return dto, nil
		}
	}
	h.Metrics.ObserveCache("miss")

	// Taken before the store read so a write that commits in between
	// turns the fill below into a no-op.
	version, verr := h.cache().Version(ctx, resourceID, month, year)
	if verr != nil {
		h.Log.Warn().Err(verr).Str("resource", string(resourceID)).Msg("report cache version read failed")
	}

	records, err := h.Store.QueryRange(ctx, resourceID, month, year)
	if err != nil {
		return MonthAvailabilityDTO{}, err
	}

	dto := MonthAvailabilityDTO{
		ResourceID: string(resourceID),
		Month:      fmt.Sprintf("%02d", int(month)),
		Year:       year,
		Report:     availability.FormatReport(records, month, year),
		Summary:    toSummaryDTO(availability.Summarize(records, month, year)),
		Records:    toRecordDTOs(records),
	}

	if verr != nil {
		return dto, nil
	}
	if payload, err := json.Marshal(dto); err == nil {
		if err := h.cache().SetIfVersion(ctx, resourceID, month, year, version, string(payload)); err != nil {
			h.Log.Warn().Err(err).Str("resource", string(resourceID)).Msg("report cache write failed")
		}
	}
	return dto, nil
}

// GetDate returns the status of one date (available when never written).
func (h *Handler) GetDate(w http.ResponseWriter, r *http.Request) {
	resourceID := resourceParam(r)

	// chi routes on RawPath when the client escaped the comma, so the
	// parameter can still be percent-encoded here.
	raw, err := url.PathUnescape(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date in path", err)
		return
	}

	date, err := availability.NormalizeDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Date format not supported. Please use YYYY-MM-DD or a date like \"April 1, 2025\".", err)
		return
	}

	status, err := h.Store.GetStatus(r.Context(), resourceID, date)
	if err != nil {
		h.writeLedgerError(w, "Failed to get status", err)
		return
	}

	writeJSON(w, http.StatusOK, DateStatusDTO{
		ResourceID: string(resourceID),
		Date:       date,
		Status:     string(status),
	})
}

// UpdateAvailability sets one status on every requested date in a single batch.
func (h *Handler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	resourceID := resourceParam(r)

	var req UpdateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), err)
		return
	}

	dates := make([]string, 0, len(req.Dates))
	var rejected []string
	for _, d := range req.Dates {
		date, err := availability.NormalizeDate(d)
		if err != nil {
			rejected = append(rejected, err.Error())
			continue
		}
		dates = append(dates, date)
	}
	if len(rejected) > 0 {
		writeError(w, http.StatusBadRequest,
			"Date format not supported. Please use YYYY-MM-DD or a date like \"April 1, 2025\".",
			errors.New(strings.Join(rejected, "; ")))
		return
	}

	status := availability.Status(req.Status)
	if err := h.Store.UpsertStatus(r.Context(), resourceID, dates, status, req.Notes); err != nil {
		h.writeLedgerError(w, "Failed to update availability", err)
		return
	}

	if err := h.cache().Invalidate(r.Context(), resourceID, touchedMonths(dates)...); err != nil {
		h.Log.Warn().Err(err).Str("resource", string(resourceID)).Msg("report cache invalidation failed")
	}

	writeJSON(w, http.StatusOK, UpdateAvailabilityDTO{
		ResourceID: string(resourceID),
		Dates:      dates,
		Status:     string(status),
		Message:    fmt.Sprintf("Successfully updated %d dates to status: %s", len(dates), status),
	})
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// ImportSnapshot imports the snapshot JSON in the request body.
func (h *Handler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	resourceID := resourceParam(r)

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSnapshotBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.importRaw(r.Context(), raw, resourceID)
	if err != nil {
		h.writeLedgerError(w, "Failed to import availability data", err)
		return
	}
	writeJSON(w, http.StatusOK, toImportResultDTO(res, "request"))
}

// ImportFromSource imports from the configured snapshot loader.
func (h *Handler) ImportFromSource(w http.ResponseWriter, r *http.Request) {
	res, source, err := h.ImportFromLoader(r.Context(), resourceParam(r))
	if err != nil {
		h.writeLedgerError(w, "Failed to import availability data", err)
		return
	}
	writeJSON(w, http.StatusOK, toImportResultDTO(res, source))
}

// ImportFromLoader loads the configured snapshot and imports it.
func (h *Handler) ImportFromLoader(ctx context.Context, resourceID availability.ResourceID) (availability.ImportResult, string, error) {
	if h.Loader == nil {
		return availability.ImportResult{}, "", fmt.Errorf("%w: no snapshot source configured", availability.ErrSnapshotNotFound)
	}
	raw, source, err := h.Loader.Load(ctx)
	if err != nil {
		return availability.ImportResult{}, source, err
	}
	res, err := h.importRaw(ctx, raw, resourceID)
	return res, source, err
}

func (h *Handler) importRaw(ctx context.Context, raw []byte, resourceID availability.ResourceID) (availability.ImportResult, error) {
	res, err := h.Importer.ImportJSON(ctx, raw, resourceID)
	if err != nil {
		return res, err
	}
	if err := h.cache().Invalidate(ctx, res.ResourceID); err != nil {
		h.Log.Warn().Err(err).Str("resource", string(res.ResourceID)).Msg("report cache invalidation failed")
	}
	return res, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeLedgerError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, availability.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, "Store not initialized", err)
	case availability.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, availability.ErrSnapshotNotFound):
		writeError(w, http.StatusNotFound, message, err)
	default:
		h.Log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func touchedMonths(dates []string) []string {
	seen := make(map[string]bool, len(dates))
	var months []string
	for _, d := range dates {
		m := reportcache.MonthOf(d)
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	sort.Strings(months)
	return months
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "oneof":
		return "Status must be one of: available, booked, blocked, maintenance"
	case "required", "min":
		return "Please provide both dates and status to update availability"
	case "max":
		return fmt.Sprintf("%s is too long", strings.ToLower(fe.Field()))
	}
	return fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
