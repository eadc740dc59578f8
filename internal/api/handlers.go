package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bookline/internal/metrics"
	"bookline/internal/models"
	"bookline/internal/service"
	"bookline/internal/timegrid"
)

// GridOverride carries explicit grid parameters for a provisioning request.
type GridOverride struct {
	Open         string `json:"open"`        // HH:MM
	Close        string `json:"close"`       // HH:MM
	SlotDuration int    `json:"slot_duration_minutes"`
	BreakStart   string `json:"break_start,omitempty"`
	BreakEnd     string `json:"break_end,omitempty"`
}

// ProvisionRequest is the request body for POST /api/v1/slots/provision.
type ProvisionRequest struct {
	LocationID int64         `json:"location_id"`
	From       string        `json:"from"` // YYYY-MM-DD
	To         string        `json:"to"`   // YYYY-MM-DD
	Override   *GridOverride `json:"override,omitempty"`
}

// ProvisionResponse reports how many slot rows the call inserted.
type ProvisionResponse struct {
	Inserted int64 `json:"inserted"`
}

// handleProvision materializes slots for a date range.
// POST /api/v1/slots/provision
func (s *HTTPServer) handleProvision(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("provision")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req ProvisionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.LocationID <= 0 {
		writeError(w, http.StatusBadRequest, "location_id is required")
		return
	}

	var override *timegrid.Params
	if req.Override != nil {
		override = &timegrid.Params{
			Open:         req.Override.Open,
			Close:        req.Override.Close,
			SlotDuration: req.Override.SlotDuration,
			BreakStart:   req.Override.BreakStart,
			BreakEnd:     req.Override.BreakEnd,
		}
	}

	inserted, err := s.scheduling.Provision(r.Context(), req.LocationID, req.From, req.To, override)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProvisionResponse{Inserted: inserted})
}

// SlotActionRequest addresses one slot for block and unblock calls.
type SlotActionRequest struct {
	LocationID int64  `json:"location_id"`
	Date       string `json:"date"` // YYYY-MM-DD
	Time       string `json:"time"` // HH:MM
	Reason     string `json:"reason,omitempty"`
}

func (req *SlotActionRequest) validate() error {
	if req.LocationID <= 0 {
		return fmt.Errorf("location_id is required")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return fmt.Errorf("invalid date format; expected YYYY-MM-DD")
	}
	if _, err := timegrid.ParseClock(req.Time); err != nil {
		return fmt.Errorf("invalid time format; expected HH:MM")
	}
	return nil
}

// handleBlock takes an available slot out of circulation.
// POST /api/v1/slots/block
func (s *HTTPServer) handleBlock(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("block")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req SlotActionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.scheduling.Block(r.Context(), req.LocationID, req.Date, req.Time, req.Reason); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleUnblock returns a blocked slot to circulation.
// POST /api/v1/slots/unblock
func (s *HTTPServer) handleUnblock(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("unblock")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req SlotActionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.scheduling.Unblock(r.Context(), req.LocationID, req.Date, req.Time); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// BookRequest is the request body for POST /api/v1/book.
type BookRequest struct {
	LocationID    int64                  `json:"location_id"`
	Date          string                 `json:"date"` // YYYY-MM-DD
	Time          string                 `json:"time"` // HH:MM
	Customer      models.CustomerInfo    `json:"customer"`
	Items         []models.LineItemInput `json:"items"`
	Notes         string                 `json:"notes,omitempty"`
	TotalDuration int                    `json:"total_duration_minutes,omitempty"`
}

// handleBook reserves a slot and records the booking.
// POST /api/v1/book
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req BookRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.scheduling.Book(r.Context(), service.BookRequest{
		LocationID:    req.LocationID,
		Date:          req.Date,
		Time:          req.Time,
		Customer:      req.Customer,
		Items:         req.Items,
		Notes:         req.Notes,
		TotalDuration: req.TotalDuration,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// AvailabilityResponse lists the slot rows for one location and date.
type AvailabilityResponse struct {
	LocationID int64         `json:"location_id"`
	Date       string        `json:"date"`
	Slots      []models.Slot `json:"slots"`
}

// handleAvailability returns the slot grid for a date.
// GET /api/v1/availability?location=1&date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	locationID, err := strconv.ParseInt(r.URL.Query().Get("location"), 10, 64)
	if err != nil || locationID <= 0 {
		writeError(w, http.StatusBadRequest, "location query parameter is required")
		return
	}
	date := r.URL.Query().Get("date")

	slots, err := s.scheduling.DayAvailability(r.Context(), locationID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		LocationID: locationID,
		Date:       date,
		Slots:      slots,
	})
}

// handleWorkingHours reads or replaces per-day-of-week configuration.
// GET  /api/v1/working-hours?location=1
// PUT  /api/v1/working-hours
func (s *HTTPServer) handleWorkingHours(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("working_hours")
	switch r.Method {
	case http.MethodGet:
		locationID, err := strconv.ParseInt(r.URL.Query().Get("location"), 10, 64)
		if err != nil || locationID <= 0 {
			writeError(w, http.StatusBadRequest, "location query parameter is required")
			return
		}
		hours, err := s.scheduling.WorkingHours(r.Context(), locationID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if hours == nil {
			hours = []models.WorkingHours{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"working_hours": hours})

	case http.MethodPut:
		var wh models.WorkingHours
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&wh); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if wh.LocationID <= 0 {
			writeError(w, http.StatusBadRequest, "location_id is required")
			return
		}
		if err := s.scheduling.SetWorkingHours(r.Context(), &wh); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET or PUT")
	}
}

// handleBookingsReport streams an xlsx export of bookings for a date range.
// GET /api/v1/reports/bookings?location=1&from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleBookingsReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_report")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	if s.reports == nil {
		writeError(w, http.StatusNotFound, "reports are not enabled")
		return
	}

	locationID, err := strconv.ParseInt(r.URL.Query().Get("location"), 10, 64)
	if err != nil || locationID <= 0 {
		writeError(w, http.StatusBadRequest, "location query parameter is required")
		return
	}
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from format; expected YYYY-MM-DD")
		return
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to format; expected YYYY-MM-DD")
		return
	}
	if fromDate.After(toDate) {
		writeError(w, http.StatusBadRequest, "from must be before or equal to to")
		return
	}

	buf, err := s.reports.BookingsXLSX(r.Context(), locationID, from, to)
	if err != nil {
		s.log.Error().Err(err).
			Int64("location_id", locationID).
			Str("from", from).
			Str("to", to).
			Msg("failed to build bookings report")
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	filename := fmt.Sprintf("bookings_%s_%s.xlsx", from, to)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
