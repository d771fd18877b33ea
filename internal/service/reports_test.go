package service

import (
	"context"
	"testing"
	"time"

	"github.com/palmcove/resortd/internal/model"
)

func TestReports(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	reports := NewReportService(f.st)
	reports.now = f.svc.now

	mk := func(room *model.Room, in, out time.Time, status string) {
		t.Helper()
		b, err := f.svc.Create(ctx, f.customer.ID, BookingRequest{RoomID: room.ID, CheckIn: in, CheckOut: out, Guests: 1})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		path := map[string][]string{
			model.BookingPending:    nil,
			model.BookingConfirmed:  {model.BookingConfirmed},
			model.BookingCheckedIn:  {model.BookingConfirmed, model.BookingCheckedIn},
			model.BookingCheckedOut: {model.BookingConfirmed, model.BookingCheckedIn, model.BookingCheckedOut},
			model.BookingCancelled:  {model.BookingCancelled},
		}[status]
		for _, s := range path {
			if _, err := f.svc.UpdateStatus(ctx, b.ID, s); err != nil {
				t.Fatalf("UpdateStatus(%s): %v", s, err)
			}
		}
	}

	mk(f.standard, july(1), july(3), model.BookingCheckedIn)   // 200, departs 3rd
	mk(f.suite, july(1), july(2), model.BookingConfirmed)      // 250, arrives today
	mk(f.standard, july(10), july(12), model.BookingCancelled) // ignored
	mk(f.suite, july(20), july(22), model.BookingPending)      // not revenue

	dash, err := reports.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if dash.TotalRevenue != 450 {
		t.Errorf("revenue = %v, want 450", dash.TotalRevenue)
	}
	if dash.ArrivalsToday != 1 || dash.DeparturesToday != 0 {
		t.Errorf("arrivals=%d departures=%d", dash.ArrivalsToday, dash.DeparturesToday)
	}
	if dash.BookingsByStatus[model.BookingCancelled] != 1 || dash.RoomsByStatus[model.RoomOccupied] != 1 {
		t.Errorf("counts: bookings=%v rooms=%v", dash.BookingsByStatus, dash.RoomsByStatus)
	}
	if dash.TotalCustomers != 2 {
		t.Errorf("customers = %d", dash.TotalCustomers)
	}

	rev, err := reports.Revenue(ctx, 2026)
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if len(rev.Months) != 12 || rev.Months[6].Bookings != 2 || rev.Months[6].Revenue != 450 || rev.Total != 450 {
		t.Errorf("unexpected revenue report: %+v", rev)
	}
	if _, err := reports.Revenue(ctx, 1900); !IsValidation(err) {
		t.Errorf("bad year: got %v", err)
	}

	occ, err := reports.Occupancy(ctx, july(1), july(3))
	if err != nil {
		t.Fatalf("Occupancy: %v", err)
	}
	// Two bookable rooms over two nights; three room-nights booked.
	if occ.Rooms != 2 || occ.Nights != 2 || occ.BookedNights != 3 || occ.OccupancyRate != 75 {
		t.Errorf("unexpected occupancy: %+v", occ)
	}
	if _, err := reports.Occupancy(ctx, july(3), july(1)); !IsValidation(err) {
		t.Errorf("reversed range: got %v", err)
	}
}

func TestOccupancySkipsRoomsUnderMaintenance(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	reports := NewReportService(f.st)
	reports.now = f.svc.now

	for _, room := range []*model.Room{f.standard, f.suite} {
		b, err := f.svc.Create(ctx, f.customer.ID, BookingRequest{RoomID: room.ID, CheckIn: july(1), CheckOut: july(3), Guests: 1})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := f.svc.UpdateStatus(ctx, b.ID, model.BookingConfirmed); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
	}
	if err := f.st.SetRoomStatus(ctx, f.suite.ID, model.RoomMaintenance); err != nil {
		t.Fatalf("SetRoomStatus: %v", err)
	}

	occ, err := reports.Occupancy(ctx, july(1), july(3))
	if err != nil {
		t.Fatalf("Occupancy: %v", err)
	}
	if occ.Rooms != 1 || occ.BookedNights != 2 || occ.OccupancyRate != 100 {
		t.Errorf("unexpected occupancy: %+v", occ)
	}
}
