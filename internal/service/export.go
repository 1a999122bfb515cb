package service

import (
	"context"
	"fmt"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// ExportService assembles a flat export of every live trip's itinerary.
type ExportService struct {
	trips repo.TripRepo
}

// NewExportService constructs an ExportService backed by the provided repo.
func NewExportService(trips repo.TripRepo) *ExportService {
	return &ExportService{trips: trips}
}

// Export returns one ExportRow per item across all live trips, in list order
// (most recently updated trip first, days and items in stored order).
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	trips, err := s.trips.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	rows := []domain.ExportRow{}
	for _, t := range trips {
		base := domain.ExportRow{
			TripID:      t.ID,
			TripTitle:   t.Title,
			TripStartAt: t.StartAt,
			TripEndAt:   t.EndAt,
		}
		if len(t.Days) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, d := range t.Days {
			dayRow := base
			dayRow.DayDate = d.Date
			if len(d.Items) == 0 {
				rows = append(rows, dayRow)
				continue
			}
			for _, it := range d.Items {
				rows = append(rows, itemRow(dayRow, it))
			}
		}
	}
	return rows, nil
}

func itemRow(row domain.ExportRow, it domain.Item) domain.ExportRow {
	row.ItemID = it.ID
	row.ItemType = it.Type
	row.ItemTime = it.Time
	row.ItemLabel = it.Label()
	row.ItemAddress = it.Address
	if it.Note != nil {
		row.ItemNote = it.Note.Text
		row.Attachments = len(it.Note.Attachments)
	}
	return row
}
