package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/query"
)

const bookingColumns = `id, reference, customer_id, room_id, check_in, check_out, guests, status,
	total_amount, notes, created_at, updated_at`

var bookingSort = map[string]string{
	"id":         "id",
	"check_in":   "check_in",
	"check_out":  "check_out",
	"status":     "status",
	"total":      "total_amount",
	"created_at": "created_at",
}

// BookingFilter narrows ListBookings. Zero values match everything.
type BookingFilter struct {
	Status     string
	CustomerID int64
	RoomID     int64
	Order      string
	Page       query.Page
}

// BookingGuard validates a new booking against its room and the room's
// active bookings. It runs inside the insert transaction with the room row
// locked, so a nil return guarantees no concurrent overlap.
type BookingGuard func(room *model.Room, active []model.Booking) error

// BookingChange is the outcome of a BookingTransition. An empty RoomStatus
// leaves the room untouched.
type BookingChange struct {
	Status     string
	RoomStatus string
}

// BookingTransition decides how a locked booking changes.
type BookingTransition func(b *model.Booking) (BookingChange, error)

// CreateBooking inserts a booking and its extras in one transaction. guard is
// called with the room row locked; its error aborts the insert unchanged.
func (s *Store) CreateBooking(ctx context.Context, b *model.Booking, guard BookingGuard) error {
	t := now()
	b.CreatedAt, b.UpdatedAt = t, t
	b.CheckIn = model.DateOnly(b.CheckIn)
	b.CheckOut = model.DateOnly(b.CheckOut)

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var room model.Room
		err := s.get(ctx, tx, &room, "SELECT "+roomColumns+" FROM room WHERE id = ?"+s.forUpdate(), b.RoomID)
		if err != nil {
			return wrapRead("lock room", err)
		}

		active, err := s.activeForRoom(ctx, tx, b.RoomID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(&room, active); err != nil {
				return err
			}
		}

		const q = `INSERT INTO booking (reference, customer_id, room_id, check_in, check_out, guests,
				status, total_amount, notes, created_at, updated_at)
			VALUES (:reference, :customer_id, :room_id, :check_in, :check_out, :guests,
				:status, :total_amount, :notes, :created_at, :updated_at)`
		id, err := s.insert(ctx, tx, q, b)
		if err != nil {
			return wrapWrite("create booking", err)
		}
		b.ID = id

		for i := range b.Services {
			b.Services[i].BookingID = id
			const sq = `INSERT INTO booking_service (booking_id, service_id, name, price)
				VALUES (:booking_id, :service_id, :name, :price)`
			bound, args, err := tx.BindNamed(sq, b.Services[i])
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, bound, args...); err != nil {
				return wrapWrite("attach booking service", err)
			}
		}
		return nil
	})
}

// GetBooking returns a booking with its extras.
func (s *Store) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	var b model.Booking
	if err := s.get(ctx, s.db, &b, "SELECT "+bookingColumns+" FROM booking WHERE id = ?", id); err != nil {
		return nil, wrapRead("get booking", err)
	}
	if err := s.loadServices(ctx, s.db, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBookingByReference returns a booking by its public reference.
func (s *Store) GetBookingByReference(ctx context.Context, ref string) (*model.Booking, error) {
	var b model.Booking
	if err := s.get(ctx, s.db, &b, "SELECT "+bookingColumns+" FROM booking WHERE reference = ?", ref); err != nil {
		return nil, wrapRead("get booking by reference", err)
	}
	if err := s.loadServices(ctx, s.db, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBookings returns one page of bookings and the total matching count.
// Extras are not loaded.
func (s *Store) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, int64, error) {
	var where []string
	var args []interface{}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.CustomerID > 0 {
		where = append(where, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.RoomID > 0 {
		where = append(where, "room_id = ?")
		args = append(args, f.RoomID)
	}
	cond := joinWhere(where)

	order, err := query.ParseOrder(f.Order, bookingSort, "check_in DESC, id DESC")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	var total int64
	if err := s.get(ctx, s.db, &total, "SELECT COUNT(*) FROM booking"+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	bookings := []model.Booking{}
	q := "SELECT " + bookingColumns + " FROM booking" + cond + " ORDER BY " + order + pageOf(f.Page).SQL()
	if err := s.list(ctx, s.db, &bookings, q, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, total, nil
}

// ListBookingsByStatus returns every booking in one of the given statuses.
func (s *Store) ListBookingsByStatus(ctx context.Context, statuses ...string) ([]model.Booking, error) {
	bookings := []model.Booking{}
	if len(statuses) == 0 {
		return bookings, nil
	}
	q, args, err := sqlx.In("SELECT "+bookingColumns+" FROM booking WHERE status IN (?) ORDER BY check_in", statuses)
	if err != nil {
		return nil, fmt.Errorf("build booking status query: %w", err)
	}
	if err := s.list(ctx, s.db, &bookings, q, args...); err != nil {
		return nil, fmt.Errorf("list bookings by status: %w", err)
	}
	return bookings, nil
}

// ListActiveBookingsForRoom returns the bookings that currently hold a room.
func (s *Store) ListActiveBookingsForRoom(ctx context.Context, roomID int64) ([]model.Booking, error) {
	return s.activeForRoom(ctx, s.db, roomID)
}

// ListActiveBookingsBetween returns active bookings whose stay intersects
// [from, to).
func (s *Store) ListActiveBookingsBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	all, err := s.ListBookingsByStatus(ctx, model.BookingPending, model.BookingConfirmed, model.BookingCheckedIn)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, b := range all {
		if b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

// TransitionBooking locks a booking, lets fn decide the change and applies
// the booking and room updates in one transaction.
func (s *Store) TransitionBooking(ctx context.Context, id int64, fn BookingTransition) (*model.Booking, error) {
	var out model.Booking
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.get(ctx, tx, &out, "SELECT "+bookingColumns+" FROM booking WHERE id = ?"+s.forUpdate(), id); err != nil {
			return wrapRead("lock booking", err)
		}
		change, err := fn(&out)
		if err != nil {
			return err
		}
		out.Status = change.Status
		out.UpdatedAt = now()
		if err := s.exec(ctx, tx, "UPDATE booking SET status = ?, updated_at = ? WHERE id = ?",
			out.Status, out.UpdatedAt, out.ID); err != nil {
			return wrapWrite("update booking status", err)
		}
		if change.RoomStatus != "" {
			if err := s.exec(ctx, tx, "UPDATE room SET status = ?, updated_at = ? WHERE id = ?",
				change.RoomStatus, out.UpdatedAt, out.RoomID); err != nil {
				return wrapWrite("update room status", err)
			}
		}
		return s.loadServices(ctx, tx, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BookingStatusCounts returns the number of bookings per status.
func (s *Store) BookingStatusCounts(ctx context.Context) (map[string]int64, error) {
	return s.statusCounts(ctx, "booking")
}

func (s *Store) activeForRoom(ctx context.Context, q sqlx.QueryerContext, roomID int64) ([]model.Booking, error) {
	bookings := []model.Booking{}
	err := s.list(ctx, q, &bookings,
		"SELECT "+bookingColumns+" FROM booking WHERE room_id = ? AND status IN (?, ?, ?) ORDER BY check_in",
		roomID, model.BookingPending, model.BookingConfirmed, model.BookingCheckedIn)
	if err != nil {
		return nil, fmt.Errorf("list active bookings for room: %w", err)
	}
	return bookings, nil
}

func (s *Store) loadServices(ctx context.Context, q sqlx.QueryerContext, b *model.Booking) error {
	services := []model.BookingService{}
	err := s.list(ctx, q, &services,
		"SELECT booking_id, service_id, name, price FROM booking_service WHERE booking_id = ? ORDER BY name", b.ID)
	if err != nil {
		return fmt.Errorf("load booking services: %w", err)
	}
	b.Services = services
	return nil
}
