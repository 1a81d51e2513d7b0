// Package report exports restaurant bookings to spreadsheets.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"restoboost/internal/model"
)

var ErrInvalidMonth = errors.New("month must be YYYY-MM")

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
)

var bookingColumns = []string{
	"ID", "Date", "Time", "Guest", "Phone", "Party size", "Status", "Discount %", "Code",
}

// BookingSource reads the bookings of a restaurant in a [from, to) datetime range.
type BookingSource interface {
	BookingsBetween(ctx context.Context, restaurantID int64, from, to string) ([]model.Booking, error)
	GetRestaurant(ctx context.Context, id int64) (*model.Restaurant, error)
}

type Exporter struct {
	source BookingSource
	logger zerolog.Logger
}

func NewExporter(source BookingSource, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		source: source,
		logger: logger.With().Str("component", "report").Logger(),
	}
}

// Summary aggregates a month of bookings.
type Summary struct {
	Restaurant  string
	Month       string
	Total       int
	ByStatus    map[string]int
	Guests      int
	AvgDiscount float64
}

// ParseMonth validates a YYYY-MM month and returns its first day.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), model.Almaty)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return t, nil
}

// Filename returns the export file name, e.g. "restaurant_7_2026-03.xlsx".
func Filename(restaurantID int64, month time.Time) string {
	return fmt.Sprintf("restaurant_%d_%s.xlsx", restaurantID, month.Format("2006-01"))
}

// ExportBookings writes the bookings of restaurantID in month as an xlsx workbook
// with a bookings sheet and a summary sheet.
func (e *Exporter) ExportBookings(ctx context.Context, restaurantID int64, month string, w io.Writer) (*Summary, error) {
	first, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	from := first.Format(model.DateLayout)
	to := first.AddDate(0, 1, 0).Format(model.DateLayout)

	bookings, err := e.source.BookingsBetween(ctx, restaurantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	name := fmt.Sprintf("#%d", restaurantID)
	if r, err := e.source.GetRestaurant(ctx, restaurantID); err == nil && r != nil {
		name = r.Name
	} else if err != nil {
		e.logger.Warn().Err(err).Int64("restaurant_id", restaurantID).Msg("restaurant name unavailable")
	}

	summary := summarize(bookings)
	summary.Restaurant = name
	summary.Month = first.Format("2006-01")

	sw := newSheetWriter()
	defer sw.Close()

	if err := writeBookings(sw, bookings); err != nil {
		return nil, err
	}
	if err := writeSummary(sw, summary); err != nil {
		return nil, err
	}
	if err := sw.Save(w); err != nil {
		return nil, fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().
		Int64("restaurant_id", restaurantID).
		Str("month", summary.Month).
		Int("bookings", summary.Total).
		Msg("bookings exported")
	return summary, nil
}

func writeBookings(sw *sheetWriter, bookings []model.Booking) error {
	if err := sw.AddSheet(bookingsSheet); err != nil {
		return err
	}
	if err := sw.WriteHeader(bookingColumns); err != nil {
		return err
	}
	for i := range bookings {
		b := &bookings[i]
		date, clock := b.BookingDatetime, ""
		if start, err := b.Start(); err == nil {
			local := start.In(model.Almaty)
			date, clock = local.Format(model.DateLayout), local.Format("15:04")
		}
		row := []any{b.ID, date, clock, b.GuestName, b.GuestPhone, b.Guests(), b.Status, b.DiscountApplied, b.ConfirmationCode}
		if err := sw.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(sw *sheetWriter, s *Summary) error {
	if err := sw.AddSheet(summarySheet); err != nil {
		return err
	}
	if err := sw.WriteHeader([]string{"Metric", "Value"}); err != nil {
		return err
	}
	rows := [][]any{
		{"Restaurant", s.Restaurant},
		{"Month", s.Month},
		{"Bookings", s.Total},
		{"Guests seated", s.Guests},
		{"Average discount %", s.AvgDiscount},
	}

	statuses := make([]string, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, st)
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		rows = append(rows, []any{"Status " + st, s.ByStatus[st]})
	}

	for _, r := range rows {
		if err := sw.WriteRow(r); err != nil {
			return err
		}
	}
	return nil
}

// summarize counts guests only for bookings that held seats.
func summarize(bookings []model.Booking) *Summary {
	s := &Summary{ByStatus: make(map[string]int)}
	discountSum := 0
	for i := range bookings {
		b := &bookings[i]
		s.Total++
		s.ByStatus[b.Status]++
		discountSum += b.DiscountApplied
		if b.HoldsSeats() {
			s.Guests += b.Guests()
		}
	}
	if s.Total > 0 {
		s.AvgDiscount = float64(discountSum*100/s.Total) / 100
	}
	return s
}
