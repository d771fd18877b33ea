package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/query"
	"github.com/palmcove/resortd/internal/store"
)

// MaxStayNights caps a single booking.
const MaxStayNights = 30

// BookingRequest is a stay a customer wants to book or price.
type BookingRequest struct {
	RoomID     int64     `json:"room_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Guests     int       `json:"guests"`
	ServiceIDs []int64   `json:"service_ids,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// Quote is the price breakdown for a BookingRequest.
type Quote struct {
	RoomID        int64                  `json:"room_id"`
	Nights        int                    `json:"nights"`
	PricePerNight float64                `json:"price_per_night"`
	RoomTotal     float64                `json:"room_total"`
	ServicesTotal float64                `json:"services_total"`
	Total         float64                `json:"total"`
	Services      []model.BookingService `json:"services"`
}

// BookingService prices, creates and moves bookings through their lifecycle.
type BookingService struct {
	store *store.Store
	now   func() time.Time
}

// NewBookingService returns a BookingService.
func NewBookingService(st *store.Store) *BookingService {
	return &BookingService{store: st, now: time.Now}
}

func (s *BookingService) today() time.Time {
	return model.DateOnly(s.now().UTC())
}

// validateStay checks the date range and guest count shared by every booking
// path.
func (s *BookingService) validateStay(checkIn, checkOut time.Time, guests int) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return invalid("check_in", "check-in and check-out dates are required")
	}
	in, out := model.DateOnly(checkIn), model.DateOnly(checkOut)
	if !out.After(in) {
		return invalid("check_out", "must be after check-in")
	}
	if in.Before(s.today()) {
		return invalid("check_in", "cannot be in the past")
	}
	if model.NightsBetween(in, out) > MaxStayNights {
		return invalid("check_out", "stay cannot exceed %d nights", MaxStayNights)
	}
	if guests < 1 {
		return invalid("guests", "must be at least 1")
	}
	return nil
}

// Quote prices a stay without reserving anything.
func (s *BookingService) Quote(ctx context.Context, req BookingRequest) (*Quote, error) {
	if err := s.validateStay(req.CheckIn, req.CheckOut, req.Guests); err != nil {
		return nil, err
	}
	room, err := s.store.GetRoom(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalid("room_id", "room does not exist")
		}
		return nil, err
	}
	if req.Guests > room.Capacity {
		return nil, invalid("guests", "room %s holds at most %d guests", room.RoomNumber, room.Capacity)
	}
	extras, err := s.resolveServices(ctx, req.ServiceIDs)
	if err != nil {
		return nil, err
	}
	return buildQuote(room, model.NightsBetween(req.CheckIn, req.CheckOut), extras), nil
}

func buildQuote(room *model.Room, nights int, extras []model.BookingService) *Quote {
	q := &Quote{
		RoomID:        room.ID,
		Nights:        nights,
		PricePerNight: room.PricePerNight,
		RoomTotal:     roundCents(room.PricePerNight * float64(nights)),
		Services:      extras,
	}
	for _, e := range extras {
		q.ServicesTotal += e.Price
	}
	q.ServicesTotal = roundCents(q.ServicesTotal)
	q.Total = roundCents(q.RoomTotal + q.ServicesTotal)
	return q
}

// resolveServices snapshots the requested extras. Unknown or inactive extras
// are rejected.
func (s *BookingService) resolveServices(ctx context.Context, ids []int64) ([]model.BookingService, error) {
	out := []model.BookingService{}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		svc, err := s.store.GetService(ctx, id)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !svc.IsActive) {
			return nil, invalid("service_ids", "service %d is not available", id)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, model.BookingService{ServiceID: svc.ID, Name: svc.Name, Price: svc.Price})
	}
	return out, nil
}

// Create books a room for a customer. The availability check and insert run
// in one transaction with the room locked, so two concurrent requests for the
// same nights cannot both succeed.
func (s *BookingService) Create(ctx context.Context, customerID int64, req BookingRequest) (*model.Booking, error) {
	if err := s.validateStay(req.CheckIn, req.CheckOut, req.Guests); err != nil {
		return nil, err
	}
	notes, err := query.CleanText(req.Notes, 1000)
	if err != nil {
		return nil, invalid("notes", "%s", err.Error())
	}
	extras, err := s.resolveServices(ctx, req.ServiceIDs)
	if err != nil {
		return nil, err
	}

	in, out := model.DateOnly(req.CheckIn), model.DateOnly(req.CheckOut)
	b := &model.Booking{
		CustomerID: customerID,
		RoomID:     req.RoomID,
		CheckIn:    in,
		CheckOut:   out,
		Guests:     req.Guests,
		Status:     model.BookingPending,
		Notes:      notes,
		Services:   extras,
	}

	guard := func(room *model.Room, active []model.Booking) error {
		if room.Status == model.RoomMaintenance {
			return ErrRoomUnavailable
		}
		if req.Guests > room.Capacity {
			return invalid("guests", "room %s holds at most %d guests", room.RoomNumber, room.Capacity)
		}
		for i := range active {
			if active[i].Overlaps(in, out) {
				return ErrRoomUnavailable
			}
		}
		b.TotalAmount = buildQuote(room, model.NightsBetween(in, out), extras).Total
		return nil
	}

	for attempt := 0; ; attempt++ {
		b.Reference = newReference()
		err = s.store.CreateBooking(ctx, b, guard)
		if errors.Is(err, store.ErrConflict) && attempt < 2 {
			continue
		}
		break
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid("room_id", "room does not exist")
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CancelByCustomer cancels a pending or confirmed booking owned by
// customerID. Bookings of other customers are reported as not found.
func (s *BookingService) CancelByCustomer(ctx context.Context, customerID, bookingID int64) (*model.Booking, error) {
	return s.store.TransitionBooking(ctx, bookingID, func(b *model.Booking) (store.BookingChange, error) {
		if b.CustomerID != customerID {
			return store.BookingChange{}, store.ErrNotFound
		}
		if !model.CanTransition(b.Status, model.BookingCancelled) {
			return store.BookingChange{}, ErrInvalidTransition
		}
		return store.BookingChange{Status: model.BookingCancelled}, nil
	})
}

// UpdateStatus moves a booking to status and applies the room side effect:
// checking in occupies the room, checking out frees it.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID int64, status string) (*model.Booking, error) {
	if !model.ValidBookingStatus(status) {
		return nil, invalid("status", "unknown booking status %q", status)
	}
	return s.store.TransitionBooking(ctx, bookingID, func(b *model.Booking) (store.BookingChange, error) {
		if !model.CanTransition(b.Status, status) {
			return store.BookingChange{}, ErrInvalidTransition
		}
		change := store.BookingChange{Status: status}
		switch status {
		case model.BookingCheckedIn:
			change.RoomStatus = model.RoomOccupied
		case model.BookingCheckedOut:
			change.RoomStatus = model.RoomAvailable
		}
		return change, nil
	})
}

// Availability lists rooms that can host guests for the whole stay.
func (s *BookingService) Availability(ctx context.Context, checkIn, checkOut time.Time, guests int) ([]model.Room, error) {
	if err := s.validateStay(checkIn, checkOut, guests); err != nil {
		return nil, err
	}
	in, out := model.DateOnly(checkIn), model.DateOnly(checkOut)

	busy := map[int64]bool{}
	active, err := s.store.ListActiveBookingsBetween(ctx, in, out)
	if err != nil {
		return nil, err
	}
	for _, b := range active {
		busy[b.RoomID] = true
	}

	rooms, err := s.allRooms(ctx, store.RoomFilter{MinCapacity: guests})
	if err != nil {
		return nil, err
	}
	free := []model.Room{}
	for _, r := range rooms {
		if r.Status != model.RoomMaintenance && !busy[r.ID] {
			free = append(free, r)
		}
	}
	return free, nil
}

// allRooms pages through ListRooms.
func (s *BookingService) allRooms(ctx context.Context, f store.RoomFilter) ([]model.Room, error) {
	var all []model.Room
	f.Page = query.Page{Limit: query.MaxLimit}
	for {
		rooms, total, err := s.store.ListRooms(ctx, f)
		if err != nil {
			return nil, err
		}
		all = append(all, rooms...)
		f.Page.Offset += len(rooms)
		if len(rooms) == 0 || int64(f.Page.Offset) >= total {
			return all, nil
		}
	}
}

// newReference returns a short booking reference such as "RS-4F9A1C2B7E0D".
func newReference() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RS-" + strings.ToUpper(hex[:12])
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
