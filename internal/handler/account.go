package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/query"
	"github.com/palmcove/resortd/internal/server/middleware"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/store"
)

// AccountHandler serves the signed-in customer's own profile and bookings.
// Every route sits behind RequireRole(client).
type AccountHandler struct {
	store    *store.Store
	auth     *service.Authenticator
	bookings *service.BookingService
	logger   *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(st *store.Store, auth *service.Authenticator, bookings *service.BookingService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{store: st, auth: auth, bookings: bookings, logger: logger}
}

func customerID(r *http.Request) int64 {
	if p := middleware.GetPrincipal(r.Context()); p != nil {
		return p.UserID
	}
	return 0
}

// bookingPayload is the wire form of service.BookingRequest with plain dates.
type bookingPayload struct {
	CustomerID int64   `json:"customer_id,omitempty"`
	RoomID     int64   `json:"room_id"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	Guests     int     `json:"guests"`
	ServiceIDs []int64 `json:"service_ids"`
	Notes      string  `json:"notes"`
}

func (p bookingPayload) request() (service.BookingRequest, error) {
	in, err := parseDate("check_in", p.CheckIn)
	if err != nil {
		return service.BookingRequest{}, err
	}
	out, err := parseDate("check_out", p.CheckOut)
	if err != nil {
		return service.BookingRequest{}, err
	}
	return service.BookingRequest{
		RoomID:     p.RoomID,
		CheckIn:    in,
		CheckOut:   out,
		Guests:     p.Guests,
		ServiceIDs: p.ServiceIDs,
		Notes:      p.Notes,
	}, nil
}

// GetProfile returns the customer record.
// GET /api/v1/account/profile
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetCustomer(r.Context(), customerID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "get profile", err)
		return
	}
	writeData(w, http.StatusOK, c)
}

// profileRequest holds the editable contact fields.
type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

func (p profileRequest) apply(c *model.Customer) error {
	var err error
	if c.FirstName, err = cleanField("first_name", p.FirstName, 100); err != nil {
		return err
	}
	if c.FirstName == "" {
		return &service.ValidationError{Field: "first_name", Message: "is required"}
	}
	if c.LastName, err = cleanField("last_name", p.LastName, 100); err != nil {
		return err
	}
	if c.Phone, err = cleanField("phone", p.Phone, 40); err != nil {
		return err
	}
	c.Address, err = cleanField("address", p.Address, 255)
	return err
}

// UpdateProfile replaces the customer's contact details.
// PUT /api/v1/account/profile
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	c, err := h.store.GetCustomer(r.Context(), customerID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "get profile", err)
		return
	}
	if err := req.apply(c); err != nil {
		writeServiceError(w, r, h.logger, "update profile", err)
		return
	}
	if err := h.store.UpdateCustomerProfile(r.Context(), c); err != nil {
		writeServiceError(w, r, h.logger, "update profile", err)
		return
	}
	writeData(w, http.StatusOK, c)
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the password after checking the current one.
// POST /api/v1/account/password
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	err := h.auth.ChangePassword(r.Context(), customerID(r), req.CurrentPassword, req.NewPassword)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeError(w, http.StatusBadRequest, model.CodeInvalidCredentials, "Current password is incorrect")
		return
	}
	if err != nil {
		writeServiceError(w, r, h.logger, "change password", err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated")
}

// ListBookings returns the customer's bookings, newest stay first.
// GET /api/v1/account/bookings?status=&limit=&offset=
func (h *AccountHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	f := store.BookingFilter{
		CustomerID: customerID(r),
		Status:     r.URL.Query().Get("status"),
		Page:       query.ParsePage(r.URL.Query()),
	}
	bookings, total, err := h.store.ListBookings(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, h.logger, "list bookings", err)
		return
	}
	writeList(w, bookings, len(bookings), total, f.Page)
}

// GetBooking returns one of the customer's bookings. Other customers'
// bookings are reported as not found.
// GET /api/v1/account/bookings/{id}
func (h *AccountHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidation, err.Error())
		return
	}
	b, err := h.store.GetBooking(r.Context(), id)
	if err == nil && b.CustomerID != customerID(r) {
		err = store.ErrNotFound
	}
	if err != nil {
		writeServiceError(w, r, h.logger, "get booking", err)
		return
	}
	writeData(w, http.StatusOK, b)
}

// QuoteBooking prices a stay without reserving it.
// POST /api/v1/account/bookings/quote
func (h *AccountHandler) QuoteBooking(w http.ResponseWriter, r *http.Request) {
	var p bookingPayload
	if err := readJSON(r, &p); err != nil {
		writeBadBody(w, err)
		return
	}
	req, err := p.request()
	if err == nil {
		var q *service.Quote
		if q, err = h.bookings.Quote(r.Context(), req); err == nil {
			writeData(w, http.StatusOK, q)
			return
		}
	}
	writeServiceError(w, r, h.logger, "quote booking", err)
}

// CreateBooking books a room for the signed-in customer.
// POST /api/v1/account/bookings
func (h *AccountHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var p bookingPayload
	if err := readJSON(r, &p); err != nil {
		writeBadBody(w, err)
		return
	}
	req, err := p.request()
	if err != nil {
		writeServiceError(w, r, h.logger, "create booking", err)
		return
	}
	b, err := h.bookings.Create(r.Context(), customerID(r), req)
	if err != nil {
		writeServiceError(w, r, h.logger, "create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, model.Response{
		Success: true,
		Message: "Booking " + b.Reference + " received",
		Data:    b,
	})
}

// CancelBooking cancels a pending or confirmed booking.
// POST /api/v1/account/bookings/{id}/cancel
func (h *AccountHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidation, err.Error())
		return
	}
	b, err := h.bookings.CancelByCustomer(r.Context(), customerID(r), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "cancel booking", err)
		return
	}
	writeData(w, http.StatusOK, b)
}
