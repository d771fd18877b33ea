package service

import (
	"context"
	"time"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/store"
)

// revenueStatuses are the booking states that count as earned or committed
// revenue.
var revenueStatuses = []string{model.BookingConfirmed, model.BookingCheckedIn, model.BookingCheckedOut}

// ReportService computes the admin dashboard and reports. Aggregation is done
// in Go so the same code runs on every database dialect.
type ReportService struct {
	store *store.Store
	now   func() time.Time
}

// NewReportService returns a ReportService.
func NewReportService(st *store.Store) *ReportService {
	return &ReportService{store: st, now: time.Now}
}

// Dashboard returns the headline counts for the admin home page.
func (s *ReportService) Dashboard(ctx context.Context) (*model.DashboardSummary, error) {
	bookingCounts, err := s.store.BookingStatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	roomCounts, err := s.store.RoomStatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.store.CountCustomers(ctx)
	if err != nil {
		return nil, err
	}
	earning, err := s.store.ListBookingsByStatus(ctx, revenueStatuses...)
	if err != nil {
		return nil, err
	}

	sum := &model.DashboardSummary{
		BookingsByStatus: toIntMap(bookingCounts),
		RoomsByStatus:    toIntMap(roomCounts),
		TotalCustomers:   int(customers),
	}
	today := model.DateOnly(s.now().UTC())
	for _, b := range earning {
		sum.TotalRevenue += b.TotalAmount
		if b.Status == model.BookingConfirmed && model.DateOnly(b.CheckIn).Equal(today) {
			sum.ArrivalsToday++
		}
		if b.Status == model.BookingCheckedIn && model.DateOnly(b.CheckOut).Equal(today) {
			sum.DeparturesToday++
		}
	}
	sum.TotalRevenue = roundCents(sum.TotalRevenue)
	return sum, nil
}

// Revenue groups booking totals by check-in month for year.
func (s *ReportService) Revenue(ctx context.Context, year int) (*model.RevenueReport, error) {
	if year < 2000 || year > 2100 {
		return nil, invalid("year", "must be between 2000 and 2100")
	}
	bookings, err := s.store.ListBookingsByStatus(ctx, revenueStatuses...)
	if err != nil {
		return nil, err
	}

	rep := &model.RevenueReport{Year: year, Months: make([]model.MonthlyRevenue, 12)}
	for i := range rep.Months {
		rep.Months[i].Month = i + 1
	}
	for _, b := range bookings {
		in := b.CheckIn.UTC()
		if in.Year() != year {
			continue
		}
		m := &rep.Months[in.Month()-1]
		m.Bookings++
		m.Revenue += b.TotalAmount
		rep.Total += b.TotalAmount
	}
	for i := range rep.Months {
		rep.Months[i].Revenue = roundCents(rep.Months[i].Revenue)
	}
	rep.Total = roundCents(rep.Total)
	return rep, nil
}

// Occupancy reports booked room-nights against available room-nights for
// [from, to). Rooms under maintenance are left out of capacity and booked nights.
func (s *ReportService) Occupancy(ctx context.Context, from, to time.Time) (*model.OccupancyReport, error) {
	from, to = model.DateOnly(from), model.DateOnly(to)
	if !to.After(from) {
		return nil, invalid("to", "must be after from")
	}
	if model.NightsBetween(from, to) > 366 {
		return nil, invalid("to", "range cannot exceed 366 days")
	}

	counts, err := s.store.RoomStatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	rooms := 0
	for status, n := range counts {
		if status != model.RoomMaintenance {
			rooms += int(n)
		}
	}

	// Rooms under maintenance are out of capacity, so their nights are too.
	maintenance, err := s.store.RoomIDsWithStatus(ctx, model.RoomMaintenance)
	if err != nil {
		return nil, err
	}
	excluded := make(map[int64]bool, len(maintenance))
	for _, id := range maintenance {
		excluded[id] = true
	}

	bookings, err := s.store.ListBookingsByStatus(ctx, model.BookingConfirmed, model.BookingCheckedIn, model.BookingCheckedOut)
	if err != nil {
		return nil, err
	}

	nights := model.NightsBetween(from, to)
	rep := &model.OccupancyReport{
		From:   from.Format(time.DateOnly),
		To:     to.Format(time.DateOnly),
		Rooms:  rooms,
		Nights: nights,
	}
	for _, b := range bookings {
		if excluded[b.RoomID] || !b.Overlaps(from, to) {
			continue
		}
		start, end := model.DateOnly(b.CheckIn), model.DateOnly(b.CheckOut)
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		rep.BookedNights += model.NightsBetween(start, end)
	}
	if capacity := rooms * nights; capacity > 0 {
		rep.OccupancyRate = roundCents(float64(rep.BookedNights) / float64(capacity) * 100)
	}
	return rep, nil
}

func toIntMap(m map[string]int64) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = int(v)
	}
	return out
}
