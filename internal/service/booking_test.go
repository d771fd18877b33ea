package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/store"
)

func july(d int) time.Time { return time.Date(2026, 7, d, 0, 0, 0, 0, time.UTC) }

type bookingFixture struct {
	st        *store.Store
	svc       *BookingService
	customer  *model.Customer
	other     *model.Customer
	standard  *model.Room
	suite     *model.Room
	broken    *model.Room
	breakfast *model.Service
	retired   *model.Service
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	st := newTestStore(t)
	ctx := context.Background()
	f := &bookingFixture{st: st, svc: NewBookingService(st)}
	f.svc.now = func() time.Time { return july(1).Add(10 * time.Hour) }

	f.customer = seedCustomer(t, st, "ana@example.com", "sunny2026", false)
	f.other = seedCustomer(t, st, "ben@example.com", "sunny2026", false)

	f.standard = &model.Room{RoomNumber: "101", RoomType: "standard", Capacity: 2, PricePerNight: 100}
	f.suite = &model.Room{RoomNumber: "201", RoomType: "suite", Capacity: 4, PricePerNight: 250}
	f.broken = &model.Room{RoomNumber: "301", RoomType: "suite", Capacity: 4, PricePerNight: 250, Status: model.RoomMaintenance}
	for _, r := range []*model.Room{f.standard, f.suite, f.broken} {
		if err := st.CreateRoom(ctx, r); err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}
	}
	f.breakfast = &model.Service{Name: "Breakfast", Price: 12.5, IsActive: true}
	f.retired = &model.Service{Name: "Old tour", Price: 40, IsActive: false}
	for _, s := range []*model.Service{f.breakfast, f.retired} {
		if err := st.CreateService(ctx, s); err != nil {
			t.Fatalf("CreateService: %v", err)
		}
	}
	return f
}

func TestQuote(t *testing.T) {
	f := newBookingFixture(t)

	q, err := f.svc.Quote(context.Background(), BookingRequest{
		RoomID: f.standard.ID, CheckIn: july(10), CheckOut: july(13), Guests: 2,
		ServiceIDs: []int64{f.breakfast.ID, f.breakfast.ID},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Nights != 3 || q.RoomTotal != 300 || q.ServicesTotal != 12.5 || q.Total != 312.5 {
		t.Errorf("unexpected quote: %+v", q)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  BookingRequest
	}{
		{"check-out before check-in", BookingRequest{RoomID: f.standard.ID, CheckIn: july(10), CheckOut: july(9), Guests: 1}},
		{"same day", BookingRequest{RoomID: f.standard.ID, CheckIn: july(10), CheckOut: july(10), Guests: 1}},
		{"in the past", BookingRequest{RoomID: f.standard.ID, CheckIn: time.Date(2026, 6, 28, 0, 0, 0, 0, time.UTC), CheckOut: july(2), Guests: 1}},
		{"too long", BookingRequest{RoomID: f.standard.ID, CheckIn: july(2), CheckOut: july(2).AddDate(0, 0, 31), Guests: 1}},
		{"no guests", BookingRequest{RoomID: f.standard.ID, CheckIn: july(10), CheckOut: july(11)}},
		{"over capacity", BookingRequest{RoomID: f.standard.ID, CheckIn: july(10), CheckOut: july(11), Guests: 3}},
		{"inactive service", BookingRequest{RoomID: f.standard.ID, CheckIn: july(10), CheckOut: july(11), Guests: 1, ServiceIDs: []int64{f.retired.ID}}},
		{"unknown room", BookingRequest{RoomID: 999, CheckIn: july(10), CheckOut: july(11), Guests: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.customer.ID, tt.req)
			if !IsValidation(err) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestCreateBookingAndOverlap(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.customer.ID, BookingRequest{
		RoomID: f.suite.ID, CheckIn: july(10), CheckOut: july(12), Guests: 3,
		ServiceIDs: []int64{f.breakfast.ID}, Notes: "  late arrival ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Status != model.BookingPending || b.TotalAmount != 512.5 || b.Notes != "late arrival" {
		t.Errorf("unexpected booking: %+v", b)
	}
	if !strings.HasPrefix(b.Reference, "RS-") || len(b.Reference) != 15 {
		t.Errorf("reference = %q", b.Reference)
	}

	_, err = f.svc.Create(ctx, f.other.ID, BookingRequest{RoomID: f.suite.ID, CheckIn: july(11), CheckOut: july(14), Guests: 1})
	if !errors.Is(err, ErrRoomUnavailable) {
		t.Errorf("overlap: got %v, want ErrRoomUnavailable", err)
	}

	if _, err := f.svc.Create(ctx, f.other.ID, BookingRequest{RoomID: f.suite.ID, CheckIn: july(12), CheckOut: july(14), Guests: 1}); err != nil {
		t.Errorf("adjacent stay should be bookable: %v", err)
	}

	_, err = f.svc.Create(ctx, f.other.ID, BookingRequest{RoomID: f.broken.ID, CheckIn: july(20), CheckOut: july(21), Guests: 1})
	if !errors.Is(err, ErrRoomUnavailable) {
		t.Errorf("maintenance: got %v, want ErrRoomUnavailable", err)
	}
}

func TestCancelByCustomer(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.customer.ID, BookingRequest{RoomID: f.standard.ID, CheckIn: july(10), CheckOut: july(11), Guests: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.CancelByCustomer(ctx, f.other.ID, b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("other customer cancel: got %v, want ErrNotFound", err)
	}

	got, err := f.svc.CancelByCustomer(ctx, f.customer.ID, b.ID)
	if err != nil {
		t.Fatalf("CancelByCustomer: %v", err)
	}
	if got.Status != model.BookingCancelled {
		t.Errorf("status = %q", got.Status)
	}

	if _, err := f.svc.CancelByCustomer(ctx, f.customer.ID, b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double cancel: got %v, want ErrInvalidTransition", err)
	}

	// The freed nights can be booked again.
	if _, err := f.svc.Create(ctx, f.other.ID, BookingRequest{RoomID: f.standard.ID, CheckIn: july(10), CheckOut: july(11), Guests: 1}); err != nil {
		t.Errorf("rebook after cancel: %v", err)
	}
}

func TestUpdateStatusLifecycle(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.customer.ID, BookingRequest{RoomID: f.standard.ID, CheckIn: july(2), CheckOut: july(4), Guests: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, b.ID, model.BookingCheckedIn); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending -> checked_in: got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, b.ID, "teleported"); !IsValidation(err) {
		t.Errorf("unknown status: got %v", err)
	}

	steps := []struct {
		status     string
		roomStatus string
	}{
		{model.BookingConfirmed, model.RoomAvailable},
		{model.BookingCheckedIn, model.RoomOccupied},
		{model.BookingCheckedOut, model.RoomAvailable},
	}
	for _, step := range steps {
		got, err := f.svc.UpdateStatus(ctx, b.ID, step.status)
		if err != nil {
			t.Fatalf("UpdateStatus(%s): %v", step.status, err)
		}
		if got.Status != step.status {
			t.Errorf("status = %q, want %q", got.Status, step.status)
		}
		room, _ := f.st.GetRoom(ctx, f.standard.ID)
		if room.Status != step.roomStatus {
			t.Errorf("after %s room status = %q, want %q", step.status, room.Status, step.roomStatus)
		}
	}

	if _, err := f.svc.UpdateStatus(ctx, b.ID, model.BookingCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("checked_out -> cancelled: got %v", err)
	}
}

func TestAvailability(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.customer.ID, BookingRequest{RoomID: f.suite.ID, CheckIn: july(10), CheckOut: july(15), Guests: 2}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rooms, err := f.svc.Availability(ctx, july(12), july(13), 2)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != f.standard.ID {
		t.Errorf("available = %+v, want only the standard room", rooms)
	}

	rooms, err = f.svc.Availability(ctx, july(12), july(13), 3)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("expected no room for 3 guests, got %d", len(rooms))
	}

	rooms, err = f.svc.Availability(ctx, july(15), july(16), 3)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != f.suite.ID {
		t.Errorf("suite should be free from check-out day, got %+v", rooms)
	}

	if _, err := f.svc.Availability(ctx, july(13), july(12), 1); !IsValidation(err) {
		t.Errorf("reversed dates: got %v", err)
	}
}
