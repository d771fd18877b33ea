package store

import (
	"context"
	"fmt"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/query"
)

// ---------------------------------------------------------------------------
// Rooms
// ---------------------------------------------------------------------------

const roomColumns = `id, room_number, room_type, capacity, price_per_night, status,
	description, image_url, created_at, updated_at`

var roomSort = map[string]string{
	"id":          "id",
	"room_number": "room_number",
	"room_type":   "room_type",
	"capacity":    "capacity",
	"price":       "price_per_night",
	"status":      "status",
}

// RoomFilter narrows ListRooms. Zero values match everything.
type RoomFilter struct {
	Status          string
	RoomType        string
	MinCapacity     int
	HideMaintenance bool // public listings
	Order           string
	Page            query.Page
}

// CreateRoom inserts a room. A duplicate room number yields ErrConflict.
func (s *Store) CreateRoom(ctx context.Context, r *model.Room) error {
	t := now()
	r.CreatedAt, r.UpdatedAt = t, t
	if r.Status == "" {
		r.Status = model.RoomAvailable
	}
	const q = `INSERT INTO room (room_number, room_type, capacity, price_per_night, status,
			description, image_url, created_at, updated_at)
		VALUES (:room_number, :room_type, :capacity, :price_per_night, :status,
			:description, :image_url, :created_at, :updated_at)`

	id, err := s.insert(ctx, s.db, q, r)
	if err != nil {
		return wrapWrite("create room", err)
	}
	r.ID = id
	return nil
}

// GetRoom returns the room with the given id.
func (s *Store) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var r model.Room
	if err := s.get(ctx, s.db, &r, "SELECT "+roomColumns+" FROM room WHERE id = ?", id); err != nil {
		return nil, wrapRead("get room", err)
	}
	return &r, nil
}

// ListRooms returns one page of rooms and the total matching count.
func (s *Store) ListRooms(ctx context.Context, f RoomFilter) ([]model.Room, int64, error) {
	var where []string
	var args []interface{}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.RoomType != "" {
		where = append(where, "room_type = ?")
		args = append(args, f.RoomType)
	}
	if f.MinCapacity > 0 {
		where = append(where, "capacity >= ?")
		args = append(args, f.MinCapacity)
	}
	if f.HideMaintenance {
		where = append(where, "status <> ?")
		args = append(args, model.RoomMaintenance)
	}
	cond := joinWhere(where)

	order, err := query.ParseOrder(f.Order, roomSort, "room_number ASC")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	var total int64
	if err := s.get(ctx, s.db, &total, "SELECT COUNT(*) FROM room"+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}
	rooms := []model.Room{}
	q := "SELECT " + roomColumns + " FROM room" + cond + " ORDER BY " + order + pageOf(f.Page).SQL()
	if err := s.list(ctx, s.db, &rooms, q, args...); err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, total, nil
}

// UpdateRoom replaces every editable room field.
func (s *Store) UpdateRoom(ctx context.Context, r *model.Room) error {
	r.UpdatedAt = now()
	const q = `UPDATE room SET room_number = :room_number, room_type = :room_type,
		capacity = :capacity, price_per_night = :price_per_night, status = :status,
		description = :description, image_url = :image_url, updated_at = :updated_at
		WHERE id = :id`
	return wrapWrite("update room", s.namedExec(ctx, s.db, q, r))
}

// SetRoomStatus changes only the room status.
func (s *Store) SetRoomStatus(ctx context.Context, id int64, status string) error {
	err := s.exec(ctx, s.db, "UPDATE room SET status = ?, updated_at = ? WHERE id = ?", status, now(), id)
	return wrapWrite("set room status", err)
}

// DeleteRoom removes a room. Rooms referenced by bookings cannot be deleted.
func (s *Store) DeleteRoom(ctx context.Context, id int64) error {
	return wrapWrite("delete room", s.exec(ctx, s.db, "DELETE FROM room WHERE id = ?", id))
}

// RoomStatusCounts returns the number of rooms per status.
func (s *Store) RoomStatusCounts(ctx context.Context) (map[string]int64, error) {
	return s.statusCounts(ctx, "room")
}

// RoomIDsWithStatus returns the ids of every room in the given status.
func (s *Store) RoomIDsWithStatus(ctx context.Context, status string) ([]int64, error) {
	ids := []int64{}
	if err := s.list(ctx, s.db, &ids, "SELECT id FROM room WHERE status = ? ORDER BY id", status); err != nil {
		return nil, fmt.Errorf("list room ids: %w", err)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Amenities
// ---------------------------------------------------------------------------

const amenityColumns = `id, name, description, icon, is_active, created_at, updated_at`

// CreateAmenity inserts an amenity.
func (s *Store) CreateAmenity(ctx context.Context, a *model.Amenity) error {
	t := now()
	a.CreatedAt, a.UpdatedAt = t, t
	const q = `INSERT INTO amenity (name, description, icon, is_active, created_at, updated_at)
		VALUES (:name, :description, :icon, :is_active, :created_at, :updated_at)`

	id, err := s.insert(ctx, s.db, q, a)
	if err != nil {
		return wrapWrite("create amenity", err)
	}
	a.ID = id
	return nil
}

// GetAmenity returns the amenity with the given id.
func (s *Store) GetAmenity(ctx context.Context, id int64) (*model.Amenity, error) {
	var a model.Amenity
	if err := s.get(ctx, s.db, &a, "SELECT "+amenityColumns+" FROM amenity WHERE id = ?", id); err != nil {
		return nil, wrapRead("get amenity", err)
	}
	return &a, nil
}

// ListAmenities returns amenities ordered by name, optionally only active ones.
func (s *Store) ListAmenities(ctx context.Context, activeOnly bool) ([]model.Amenity, error) {
	q := "SELECT " + amenityColumns + " FROM amenity"
	var args []interface{}
	if activeOnly {
		q += " WHERE is_active = ?"
		args = append(args, true)
	}
	amenities := []model.Amenity{}
	if err := s.list(ctx, s.db, &amenities, q+" ORDER BY name", args...); err != nil {
		return nil, fmt.Errorf("list amenities: %w", err)
	}
	return amenities, nil
}

// UpdateAmenity replaces every editable amenity field.
func (s *Store) UpdateAmenity(ctx context.Context, a *model.Amenity) error {
	a.UpdatedAt = now()
	const q = `UPDATE amenity SET name = :name, description = :description, icon = :icon,
		is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	return wrapWrite("update amenity", s.namedExec(ctx, s.db, q, a))
}

// DeleteAmenity removes an amenity.
func (s *Store) DeleteAmenity(ctx context.Context, id int64) error {
	return wrapWrite("delete amenity", s.exec(ctx, s.db, "DELETE FROM amenity WHERE id = ?", id))
}

// ---------------------------------------------------------------------------
// Services (resort extras, not to be confused with the service package)
// ---------------------------------------------------------------------------

const serviceColumns = `id, name, description, price, is_active, created_at, updated_at`

// CreateService inserts a bookable extra.
func (s *Store) CreateService(ctx context.Context, svc *model.Service) error {
	t := now()
	svc.CreatedAt, svc.UpdatedAt = t, t
	const q = `INSERT INTO service (name, description, price, is_active, created_at, updated_at)
		VALUES (:name, :description, :price, :is_active, :created_at, :updated_at)`

	id, err := s.insert(ctx, s.db, q, svc)
	if err != nil {
		return wrapWrite("create service", err)
	}
	svc.ID = id
	return nil
}

// GetService returns the extra with the given id.
func (s *Store) GetService(ctx context.Context, id int64) (*model.Service, error) {
	var svc model.Service
	if err := s.get(ctx, s.db, &svc, "SELECT "+serviceColumns+" FROM service WHERE id = ?", id); err != nil {
		return nil, wrapRead("get service", err)
	}
	return &svc, nil
}

// ListServices returns extras ordered by name, optionally only active ones.
func (s *Store) ListServices(ctx context.Context, activeOnly bool) ([]model.Service, error) {
	q := "SELECT " + serviceColumns + " FROM service"
	var args []interface{}
	if activeOnly {
		q += " WHERE is_active = ?"
		args = append(args, true)
	}
	services := []model.Service{}
	if err := s.list(ctx, s.db, &services, q+" ORDER BY name", args...); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// UpdateService replaces every editable field of an extra.
func (s *Store) UpdateService(ctx context.Context, svc *model.Service) error {
	svc.UpdatedAt = now()
	const q = `UPDATE service SET name = :name, description = :description, price = :price,
		is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	return wrapWrite("update service", s.namedExec(ctx, s.db, q, svc))
}

// DeleteService removes an extra. Extras attached to bookings cannot be deleted;
// deactivate them instead.
func (s *Store) DeleteService(ctx context.Context, id int64) error {
	return wrapWrite("delete service", s.exec(ctx, s.db, "DELETE FROM service WHERE id = ?", id))
}

// ---------------------------------------------------------------------------
// Employees
// ---------------------------------------------------------------------------

const employeeColumns = `id, first_name, last_name, email, phone, position, salary, hired_at,
	is_active, created_at, updated_at`

// CreateEmployee inserts a staff record.
func (s *Store) CreateEmployee(ctx context.Context, e *model.Employee) error {
	t := now()
	e.CreatedAt, e.UpdatedAt = t, t
	const q = `INSERT INTO employee (first_name, last_name, email, phone, position, salary, hired_at,
			is_active, created_at, updated_at)
		VALUES (:first_name, :last_name, :email, :phone, :position, :salary, :hired_at,
			:is_active, :created_at, :updated_at)`

	id, err := s.insert(ctx, s.db, q, e)
	if err != nil {
		return wrapWrite("create employee", err)
	}
	e.ID = id
	return nil
}

// GetEmployee returns the employee with the given id.
func (s *Store) GetEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	var e model.Employee
	if err := s.get(ctx, s.db, &e, "SELECT "+employeeColumns+" FROM employee WHERE id = ?", id); err != nil {
		return nil, wrapRead("get employee", err)
	}
	return &e, nil
}

// ListEmployees returns every employee ordered by last name.
func (s *Store) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	employees := []model.Employee{}
	q := "SELECT " + employeeColumns + " FROM employee ORDER BY last_name, first_name"
	if err := s.list(ctx, s.db, &employees, q); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

// UpdateEmployee replaces every editable employee field.
func (s *Store) UpdateEmployee(ctx context.Context, e *model.Employee) error {
	e.UpdatedAt = now()
	const q = `UPDATE employee SET first_name = :first_name, last_name = :last_name, email = :email,
		phone = :phone, position = :position, salary = :salary, hired_at = :hired_at,
		is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	return wrapWrite("update employee", s.namedExec(ctx, s.db, q, e))
}

// DeleteEmployee removes an employee.
func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	return wrapWrite("delete employee", s.exec(ctx, s.db, "DELETE FROM employee WHERE id = ?", id))
}

// statusCounts groups a table with a status column.
func (s *Store) statusCounts(ctx context.Context, table string) (map[string]int64, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int64  `db:"n"`
	}
	if err := s.list(ctx, s.db, &rows, "SELECT status, COUNT(*) AS n FROM "+table+" GROUP BY status"); err != nil {
		return nil, fmt.Errorf("count %s by status: %w", table, err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
