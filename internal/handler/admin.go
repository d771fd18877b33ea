package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/query"
	"github.com/palmcove/resortd/internal/server/middleware"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/store"
)

// AdminHandler serves the back-office. Every route sits behind
// RequireRole(admin).
type AdminHandler struct {
	store    *store.Store
	auth     *service.Authenticator
	bookings *service.BookingService
	reports  *service.ReportService
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(st *store.Store, auth *service.Authenticator, bookings *service.BookingService,
	reports *service.ReportService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: st, auth: auth, bookings: bookings, reports: reports, logger: logger}
}

// idParam parses {id} and writes a 400 when it is malformed.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidation, err.Error())
		return 0, false
	}
	return id, true
}

func required(field, val string) error {
	if val == "" {
		return &service.ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Dashboard and reports
// ---------------------------------------------------------------------------

// Dashboard returns headline counts.
// GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.reports.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "dashboard", err)
		return
	}
	writeData(w, http.StatusOK, d)
}

// RevenueReport returns monthly revenue for a year, the current one by
// default.
// GET /api/v1/admin/reports/revenue?year=
func (h *AdminHandler) RevenueReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Revenue(r.Context(), queryInt(r, "year", time.Now().UTC().Year()))
	if err != nil {
		writeServiceError(w, r, h.logger, "revenue report", err)
		return
	}
	writeData(w, http.StatusOK, rep)
}

// OccupancyReport returns the occupancy rate for [from, to).
// GET /api/v1/admin/reports/occupancy?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *AdminHandler) OccupancyReport(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate("from", r.URL.Query().Get("from"))
	if err != nil {
		writeServiceError(w, r, h.logger, "occupancy report", err)
		return
	}
	to, err := parseDate("to", r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, r, h.logger, "occupancy report", err)
		return
	}
	rep, err := h.reports.Occupancy(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, h.logger, "occupancy report", err)
		return
	}
	writeData(w, http.StatusOK, rep)
}

// ---------------------------------------------------------------------------
// Bookings
// ---------------------------------------------------------------------------

// ListBookings returns bookings filtered by status, customer and room.
// GET /api/v1/admin/bookings?status=&customer_id=&room_id=&order=&limit=&offset=
func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.BookingFilter{
		Status:     q.Get("status"),
		CustomerID: int64(queryInt(r, "customer_id", 0)),
		RoomID:     int64(queryInt(r, "room_id", 0)),
		Order:      q.Get("order"),
		Page:       query.ParsePage(q),
	}
	if f.Status != "" && !model.ValidBookingStatus(f.Status) {
		writeError(w, http.StatusBadRequest, model.CodeValidation, "unknown booking status "+f.Status)
		return
	}
	bookings, total, err := h.store.ListBookings(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, h.logger, "list bookings", err)
		return
	}
	writeList(w, bookings, len(bookings), total, f.Page)
}

// GetBooking returns a booking by id.
// GET /api/v1/admin/bookings/{id}
func (h *AdminHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	b, err := h.store.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get booking", err)
		return
	}
	writeData(w, http.StatusOK, b)
}

// CreateBooking books a room on behalf of a customer.
// POST /api/v1/admin/bookings
func (h *AdminHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var p bookingPayload
	if err := readJSON(r, &p); err != nil {
		writeBadBody(w, err)
		return
	}
	if _, err := h.store.GetCustomer(r.Context(), p.CustomerID); err != nil {
		if isNotFound(err) {
			err = &service.ValidationError{Field: "customer_id", Message: "customer does not exist"}
		}
		writeServiceError(w, r, h.logger, "create booking", err)
		return
	}
	req, err := p.request()
	if err != nil {
		writeServiceError(w, r, h.logger, "create booking", err)
		return
	}
	b, err := h.bookings.Create(r.Context(), p.CustomerID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, "create booking", err)
		return
	}
	writeData(w, http.StatusCreated, b)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateBookingStatus moves a booking through its lifecycle.
// POST /api/v1/admin/bookings/{id}/status
func (h *AdminHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	b, err := h.bookings.UpdateStatus(r.Context(), id, strings.TrimSpace(req.Status))
	if err != nil {
		writeServiceError(w, r, h.logger, "update booking status", err)
		return
	}
	writeData(w, http.StatusOK, b)
}

// ---------------------------------------------------------------------------
// Rooms
// ---------------------------------------------------------------------------

type roomRequest struct {
	RoomNumber    string  `json:"room_number"`
	RoomType      string  `json:"room_type"`
	Capacity      int     `json:"capacity"`
	PricePerNight float64 `json:"price_per_night"`
	Status        string  `json:"status"`
	Description   string  `json:"description"`
	ImageURL      string  `json:"image_url"`
}

func (p roomRequest) apply(room *model.Room) error {
	var err error
	if room.RoomNumber, err = cleanField("room_number", p.RoomNumber, 20); err != nil {
		return err
	}
	if err := required("room_number", room.RoomNumber); err != nil {
		return err
	}
	if room.RoomType, err = cleanField("room_type", p.RoomType, 50); err != nil {
		return err
	}
	if err := required("room_type", room.RoomType); err != nil {
		return err
	}
	if p.Capacity < 1 {
		return &service.ValidationError{Field: "capacity", Message: "must be at least 1"}
	}
	if p.PricePerNight <= 0 {
		return &service.ValidationError{Field: "price_per_night", Message: "must be positive"}
	}
	room.Capacity, room.PricePerNight = p.Capacity, p.PricePerNight
	room.Status = p.Status
	if room.Status == "" {
		room.Status = model.RoomAvailable
	}
	if !model.ValidRoomStatus(room.Status) {
		return &service.ValidationError{Field: "status", Message: "must be available, occupied or maintenance"}
	}
	if room.Description, err = cleanField("description", p.Description, 0); err != nil {
		return err
	}
	room.ImageURL, err = cleanField("image_url", p.ImageURL, 255)
	return err
}

// ListRooms returns every room, including those under maintenance.
// GET /api/v1/admin/rooms?status=&type=&order=&limit=&offset=
func (h *AdminHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.RoomFilter{
		Status:      q.Get("status"),
		RoomType:    q.Get("type"),
		MinCapacity: queryInt(r, "min_capacity", 0),
		Order:       q.Get("order"),
		Page:        query.ParsePage(q),
	}
	rooms, total, err := h.store.ListRooms(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, h.logger, "list rooms", err)
		return
	}
	writeList(w, rooms, len(rooms), total, f.Page)
}

// GetRoom returns a room by id.
// GET /api/v1/admin/rooms/{id}
func (h *AdminHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	room, err := h.store.GetRoom(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get room", err)
		return
	}
	writeData(w, http.StatusOK, room)
}

// CreateRoom adds a room.
// POST /api/v1/admin/rooms
func (h *AdminHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	room := &model.Room{}
	if err := req.apply(room); err != nil {
		writeServiceError(w, r, h.logger, "create room", err)
		return
	}
	if err := h.store.CreateRoom(r.Context(), room); err != nil {
		writeServiceError(w, r, h.logger, "create room", err)
		return
	}
	writeData(w, http.StatusCreated, room)
}

// UpdateRoom replaces a room's fields.
// PUT /api/v1/admin/rooms/{id}
func (h *AdminHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req roomRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	room, err := h.store.GetRoom(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "update room", err)
		return
	}
	if err := req.apply(room); err != nil {
		writeServiceError(w, r, h.logger, "update room", err)
		return
	}
	if err := h.store.UpdateRoom(r.Context(), room); err != nil {
		writeServiceError(w, r, h.logger, "update room", err)
		return
	}
	writeData(w, http.StatusOK, room)
}

// DeleteRoom removes a room that has no bookings.
// DELETE /api/v1/admin/rooms/{id}
func (h *AdminHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteRoom(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, "delete room", err)
		return
	}
	writeMessage(w, http.StatusOK, "Room deleted")
}

// ---------------------------------------------------------------------------
// Amenities
// ---------------------------------------------------------------------------

type amenityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	IsActive    *bool  `json:"is_active"`
}

func (p amenityRequest) apply(a *model.Amenity) error {
	var err error
	if a.Name, err = cleanField("name", p.Name, 100); err != nil {
		return err
	}
	if err := required("name", a.Name); err != nil {
		return err
	}
	if a.Description, err = cleanField("description", p.Description, 0); err != nil {
		return err
	}
	if a.Icon, err = cleanField("icon", p.Icon, 50); err != nil {
		return err
	}
	a.IsActive = p.IsActive == nil || *p.IsActive
	return nil
}

// ListAmenities returns every amenity, active or not.
// GET /api/v1/admin/amenities
func (h *AdminHandler) ListAmenities(w http.ResponseWriter, r *http.Request) {
	amenities, err := h.store.ListAmenities(r.Context(), false)
	if err != nil {
		writeServiceError(w, r, h.logger, "list amenities", err)
		return
	}
	writeList(w, amenities, len(amenities), int64(len(amenities)), query.Page{})
}

// GetAmenity returns an amenity by id.
// GET /api/v1/admin/amenities/{id}
func (h *AdminHandler) GetAmenity(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	a, err := h.store.GetAmenity(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get amenity", err)
		return
	}
	writeData(w, http.StatusOK, a)
}

// CreateAmenity adds an amenity.
// POST /api/v1/admin/amenities
func (h *AdminHandler) CreateAmenity(w http.ResponseWriter, r *http.Request) {
	var req amenityRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	a := &model.Amenity{}
	if err := req.apply(a); err != nil {
		writeServiceError(w, r, h.logger, "create amenity", err)
		return
	}
	if err := h.store.CreateAmenity(r.Context(), a); err != nil {
		writeServiceError(w, r, h.logger, "create amenity", err)
		return
	}
	writeData(w, http.StatusCreated, a)
}

// UpdateAmenity replaces an amenity's fields.
// PUT /api/v1/admin/amenities/{id}
func (h *AdminHandler) UpdateAmenity(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req amenityRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	a, err := h.store.GetAmenity(r.Context(), id)
	if err == nil {
		err = req.apply(a)
	}
	if err == nil {
		err = h.store.UpdateAmenity(r.Context(), a)
	}
	if err != nil {
		writeServiceError(w, r, h.logger, "update amenity", err)
		return
	}
	writeData(w, http.StatusOK, a)
}

// DeleteAmenity removes an amenity.
// DELETE /api/v1/admin/amenities/{id}
func (h *AdminHandler) DeleteAmenity(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteAmenity(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, "delete amenity", err)
		return
	}
	writeMessage(w, http.StatusOK, "Amenity deleted")
}

// ---------------------------------------------------------------------------
// Services (bookable extras)
// ---------------------------------------------------------------------------

type serviceRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	IsActive    *bool   `json:"is_active"`
}

func (p serviceRequest) apply(svc *model.Service) error {
	var err error
	if svc.Name, err = cleanField("name", p.Name, 100); err != nil {
		return err
	}
	if err := required("name", svc.Name); err != nil {
		return err
	}
	if svc.Description, err = cleanField("description", p.Description, 0); err != nil {
		return err
	}
	if p.Price < 0 {
		return &service.ValidationError{Field: "price", Message: "cannot be negative"}
	}
	svc.Price = p.Price
	svc.IsActive = p.IsActive == nil || *p.IsActive
	return nil
}

// ListServices returns every extra, active or not.
// GET /api/v1/admin/services
func (h *AdminHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context(), false)
	if err != nil {
		writeServiceError(w, r, h.logger, "list services", err)
		return
	}
	writeList(w, services, len(services), int64(len(services)), query.Page{})
}

// GetService returns an extra by id.
// GET /api/v1/admin/services/{id}
func (h *AdminHandler) GetService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	svc, err := h.store.GetService(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get service", err)
		return
	}
	writeData(w, http.StatusOK, svc)
}

// CreateService adds an extra.
// POST /api/v1/admin/services
func (h *AdminHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	svc := &model.Service{}
	if err := req.apply(svc); err != nil {
		writeServiceError(w, r, h.logger, "create service", err)
		return
	}
	if err := h.store.CreateService(r.Context(), svc); err != nil {
		writeServiceError(w, r, h.logger, "create service", err)
		return
	}
	writeData(w, http.StatusCreated, svc)
}

// UpdateService replaces an extra's fields.
// PUT /api/v1/admin/services/{id}
func (h *AdminHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req serviceRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	svc, err := h.store.GetService(r.Context(), id)
	if err == nil {
		err = req.apply(svc)
	}
	if err == nil {
		err = h.store.UpdateService(r.Context(), svc)
	}
	if err != nil {
		writeServiceError(w, r, h.logger, "update service", err)
		return
	}
	writeData(w, http.StatusOK, svc)
}

// DeleteService removes an extra that no booking references.
// DELETE /api/v1/admin/services/{id}
func (h *AdminHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteService(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, "delete service", err)
		return
	}
	writeMessage(w, http.StatusOK, "Service deleted")
}

// ---------------------------------------------------------------------------
// Employees
// ---------------------------------------------------------------------------

type employeeRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Position  string  `json:"position"`
	Salary    float64 `json:"salary"`
	HiredAt   string  `json:"hired_at"`
	IsActive  *bool   `json:"is_active"`
}

func (p employeeRequest) apply(e *model.Employee) error {
	var err error
	if e.FirstName, err = cleanField("first_name", p.FirstName, 100); err != nil {
		return err
	}
	if err := required("first_name", e.FirstName); err != nil {
		return err
	}
	if e.LastName, err = cleanField("last_name", p.LastName, 100); err != nil {
		return err
	}
	if e.Email, err = service.ValidateEmail(p.Email); err != nil {
		return err
	}
	if e.Phone, err = cleanField("phone", p.Phone, 40); err != nil {
		return err
	}
	if e.Position, err = cleanField("position", p.Position, 100); err != nil {
		return err
	}
	if err := required("position", e.Position); err != nil {
		return err
	}
	if p.Salary < 0 {
		return &service.ValidationError{Field: "salary", Message: "cannot be negative"}
	}
	e.Salary = p.Salary
	e.HiredAt = nil
	if p.HiredAt != "" {
		t, err := parseDate("hired_at", p.HiredAt)
		if err != nil {
			return err
		}
		e.HiredAt = &t
	}
	e.IsActive = p.IsActive == nil || *p.IsActive
	return nil
}

// ListEmployees returns every employee.
// GET /api/v1/admin/employees
func (h *AdminHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.store.ListEmployees(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list employees", err)
		return
	}
	writeList(w, employees, len(employees), int64(len(employees)), query.Page{})
}

// GetEmployee returns an employee by id.
// GET /api/v1/admin/employees/{id}
func (h *AdminHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	e, err := h.store.GetEmployee(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get employee", err)
		return
	}
	writeData(w, http.StatusOK, e)
}

// CreateEmployee adds a staff record.
// POST /api/v1/admin/employees
func (h *AdminHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	e := &model.Employee{}
	if err := req.apply(e); err != nil {
		writeServiceError(w, r, h.logger, "create employee", err)
		return
	}
	if err := h.store.CreateEmployee(r.Context(), e); err != nil {
		writeServiceError(w, r, h.logger, "create employee", err)
		return
	}
	writeData(w, http.StatusCreated, e)
}

// UpdateEmployee replaces an employee's fields.
// PUT /api/v1/admin/employees/{id}
func (h *AdminHandler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req employeeRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	e, err := h.store.GetEmployee(r.Context(), id)
	if err == nil {
		err = req.apply(e)
	}
	if err == nil {
		err = h.store.UpdateEmployee(r.Context(), e)
	}
	if err != nil {
		writeServiceError(w, r, h.logger, "update employee", err)
		return
	}
	writeData(w, http.StatusOK, e)
}

// DeleteEmployee removes a staff record.
// DELETE /api/v1/admin/employees/{id}
func (h *AdminHandler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteEmployee(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, "delete employee", err)
		return
	}
	writeMessage(w, http.StatusOK, "Employee deleted")
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

// ListCustomers searches customers by name, email or phone.
// GET /api/v1/admin/customers?search=&banned=&order=&limit=&offset=
func (h *AdminHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search, err := cleanField("search", q.Get("search"), 100)
	if err != nil {
		writeServiceError(w, r, h.logger, "list customers", err)
		return
	}
	f := store.CustomerFilter{
		Search: search,
		Banned: queryBoolPtr(r, "banned"),
		Order:  q.Get("order"),
		Page:   query.ParsePage(q),
	}
	customers, total, err := h.store.ListCustomers(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, h.logger, "list customers", err)
		return
	}
	writeList(w, customers, len(customers), total, f.Page)
}

// GetCustomer returns a customer by id.
// GET /api/v1/admin/customers/{id}
func (h *AdminHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.store.GetCustomer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get customer", err)
		return
	}
	writeData(w, http.StatusOK, c)
}

// UpdateCustomer edits a customer's contact details.
// PUT /api/v1/admin/customers/{id}
func (h *AdminHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	c, err := h.store.GetCustomer(r.Context(), id)
	if err == nil {
		err = req.apply(c)
	}
	if err == nil {
		err = h.store.UpdateCustomerProfile(r.Context(), c)
	}
	if err != nil {
		writeServiceError(w, r, h.logger, "update customer", err)
		return
	}
	writeData(w, http.StatusOK, c)
}

// BanCustomer blocks a customer from signing in.
// POST /api/v1/admin/customers/{id}/ban
func (h *AdminHandler) BanCustomer(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, true)
}

// UnbanCustomer lifts a ban.
// POST /api/v1/admin/customers/{id}/unban
func (h *AdminHandler) UnbanCustomer(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, false)
}

func (h *AdminHandler) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.SetCustomerBanned(r.Context(), id, banned); err != nil {
		writeServiceError(w, r, h.logger, "set customer banned", err)
		return
	}
	c, err := h.store.GetCustomer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get customer", err)
		return
	}
	writeData(w, http.StatusOK, c)
}

// DeleteCustomer removes a customer and their bookings.
// DELETE /api/v1/admin/customers/{id}
func (h *AdminHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteCustomer(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, "delete customer", err)
		return
	}
	writeMessage(w, http.StatusOK, "Customer deleted")
}

// ---------------------------------------------------------------------------
// Administrators
// ---------------------------------------------------------------------------

// ListAdministrators returns every back-office account.
// GET /api/v1/admin/administrators
func (h *AdminHandler) ListAdministrators(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdministrators(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list administrators", err)
		return
	}
	writeList(w, admins, len(admins), int64(len(admins)), query.Page{})
}

type createAdminRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CreateAdministrator adds a back-office account.
// POST /api/v1/admin/administrators
func (h *AdminHandler) CreateAdministrator(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	adm, err := h.auth.CreateAdministrator(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, "create administrator", err)
		return
	}
	writeData(w, http.StatusCreated, adm)
}

type activeRequest struct {
	IsActive bool `json:"is_active"`
}

// SetAdministratorActive enables or disables an account. Administrators
// cannot disable themselves.
// POST /api/v1/admin/administrators/{id}/active
func (h *AdminHandler) SetAdministratorActive(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req activeRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	if p := middleware.GetPrincipal(r.Context()); p != nil && p.UserID == id && !req.IsActive {
		writeError(w, http.StatusBadRequest, model.CodeValidation, "You cannot disable your own account")
		return
	}
	if err := h.store.SetAdministratorActive(r.Context(), id, req.IsActive); err != nil {
		writeServiceError(w, r, h.logger, "set administrator active", err)
		return
	}
	adm, err := h.store.GetAdministrator(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get administrator", err)
		return
	}
	writeData(w, http.StatusOK, adm)
}

// ---------------------------------------------------------------------------
// Activity log
// ---------------------------------------------------------------------------

// ListActivity returns authentication events, newest first.
// GET /api/v1/admin/activity?event=&role=&outcome=&user_id=&limit=&offset=
func (h *AdminHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ActivityFilter{
		Event:   q.Get("event"),
		Role:    q.Get("role"),
		Outcome: q.Get("outcome"),
		UserID:  int64(queryInt(r, "user_id", 0)),
		Page:    query.ParsePage(q),
	}
	entries, total, err := h.store.ListActivity(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, h.logger, "list activity", err)
		return
	}
	writeList(w, entries, len(entries), total, f.Page)
}
