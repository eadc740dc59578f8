package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"bookline/internal/models"
	"bookline/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubSource struct {
	rows []store.BookingReportRow
	err  error
}

func (s *stubSource) ListBookingsForRange(_ context.Context, _ int64, _, _ string) ([]store.BookingReportRow, error) {
	return s.rows, s.err
}

func TestBookingsXLSX(t *testing.T) {
	created := time.Date(2026, 4, 20, 9, 15, 0, 0, time.UTC)
	src := &stubSource{rows: []store.BookingReportRow{
		{
			Booking: models.Booking{
				Reference:     "ref-001",
				Date:          "2026-04-20",
				Time:          "10:30",
				Status:        models.BookingConfirmed,
				TotalPrice:    55.0,
				TotalDuration: 45,
				Notes:         "first visit",
				CreatedAt:     created,
			},
			Customer: models.Customer{Name: "Anna", Phone: "+15550001"},
		},
		{
			Booking: models.Booking{
				Reference:  "ref-002",
				Date:       "2026-04-21",
				Time:       "08:00",
				Status:     models.BookingCancelled,
				TotalPrice: 20.0,
				CreatedAt:  created,
			},
			Customer: models.Customer{Name: "Boris", Phone: "+15550002"},
		},
	}}

	buf, err := NewExporter(src).BookingsXLSX(context.Background(), 1, "2026-04-20", "2026-04-21")
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Reference", rows[0][0])
	assert.Equal(t, "Phone", rows[0][5])

	assert.Equal(t, "ref-001", rows[1][0])
	assert.Equal(t, "2026-04-20", rows[1][1])
	assert.Equal(t, "10:30", rows[1][2])
	assert.Equal(t, "Anna", rows[1][4])
	assert.Equal(t, "55", rows[1][6])
	assert.Equal(t, "first visit", rows[1][8])

	assert.Equal(t, "ref-002", rows[2][0])
	assert.Equal(t, models.BookingCancelled, rows[2][3])
}

func TestBookingsXLSXEmptyRange(t *testing.T) {
	buf, err := NewExporter(&stubSource{}).BookingsXLSX(context.Background(), 1, "2026-04-20", "2026-04-20")
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestBookingsXLSXSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("db down")}
	_, err := NewExporter(src).BookingsXLSX(context.Background(), 1, "2026-04-20", "2026-04-21")
	assert.ErrorContains(t, err, "db down")
}
