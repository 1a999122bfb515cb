// Package handler: export.go implements GET /trips/export.
// Returns every item of every live trip as a flat table.
// Supports ?format=csv (CSV) or the default (JSON).
package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "trip_title", "trip_start_at", "trip_end_at",
	"day_date", "item_id", "item_type", "item_time",
	"item_label", "item_address", "item_note", "attachments",
}

// GetExport implements GET /trips/export.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	format, err := queryString(r, "format")
	if err != nil {
		badRequest(w, "invalid format parameter")
		return
	}
	if format != "" && format != "csv" && format != "json" {
		badRequest(w, "format must be one of: csv json")
		return
	}
	if s.export == nil {
		s.internalError(w, r, "failed to export trips", errExportUnavailable)
		return
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		s.internalError(w, r, "failed to export trips", err)
		return
	}

	if format == "csv" {
		writeCSV(w, rows)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// writeCSV encodes rows as CSV into a buffer first so an encoding failure
// never leaves a half-written 200 response.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(rowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trips.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	w.Write(buf.Bytes())
}

// rowToCSVRecord converts a domain.ExportRow to a []string for csv.Writer.
// Column order must match csvHeaders exactly.
func rowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.TripID,
		r.TripTitle,
		r.TripStartAt,
		r.TripEndAt,
		r.DayDate,
		r.ItemID,
		string(r.ItemType),
		r.ItemTime,
		r.ItemLabel,
		r.ItemAddress,
		r.ItemNote,
		strconv.Itoa(r.Attachments),
	}
}
