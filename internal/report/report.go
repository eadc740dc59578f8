// Package report renders booking data to spreadsheet form for admins.
package report

import (
	"bytes"
	"context"
	"fmt"

	"bookline/internal/store"

	"github.com/xuri/excelize/v2"
)

// BookingSource supplies bookings joined with customers for a date range.
type BookingSource interface {
	ListBookingsForRange(ctx context.Context, locationID int64, from, to string) ([]store.BookingReportRow, error)
}

// Exporter writes bookings reports as xlsx workbooks.
type Exporter struct {
	source BookingSource
}

// NewExporter creates a report exporter over the booking source.
func NewExporter(source BookingSource) *Exporter {
	return &Exporter{source: source}
}

var bookingColumns = []string{
	"Reference", "Date", "Time", "Status", "Customer", "Phone",
	"Total Price", "Duration (min)", "Notes", "Created At",
}

// BookingsXLSX renders all bookings in [from, to] inclusive to a workbook.
func (e *Exporter) BookingsXLSX(ctx context.Context, locationID int64, from, to string) (*bytes.Buffer, error) {
	rows, err := e.source.ListBookingsForRange(ctx, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Bookings"
	file.SetSheetName("Sheet1", sheet)

	for i, col := range bookingColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return nil, err
		}
	}
	if style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(bookingColumns), 1)
		_ = file.SetCellStyle(sheet, "A1", endCell, style)
	}

	for i, r := range rows {
		values := []interface{}{
			r.Booking.Reference,
			r.Booking.Date,
			r.Booking.Time,
			r.Booking.Status,
			r.Customer.Name,
			r.Customer.Phone,
			r.Booking.TotalPrice,
			r.Booking.TotalDuration,
			r.Booking.Notes,
			r.Booking.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for j, val := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := file.SetCellValue(sheet, cell, val); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &buf, nil
}
