package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.Options{Driver: store.DialectSQLite, Migrate: true})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func validationField(err error) string {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr.Field
	}
	return ""
}

func TestRoomRequestApply(t *testing.T) {
	base := roomRequest{RoomNumber: " 101 ", RoomType: "deluxe", Capacity: 2, PricePerNight: 150}

	var room model.Room
	if err := base.apply(&room); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if room.RoomNumber != "101" || room.Status != model.RoomAvailable {
		t.Errorf("unexpected room: %+v", room)
	}

	tests := []struct {
		name  string
		edit  func(*roomRequest)
		field string
	}{
		{"missing number", func(p *roomRequest) { p.RoomNumber = "  " }, "room_number"},
		{"missing type", func(p *roomRequest) { p.RoomType = "" }, "room_type"},
		{"zero capacity", func(p *roomRequest) { p.Capacity = 0 }, "capacity"},
		{"free room", func(p *roomRequest) { p.PricePerNight = 0 }, "price_per_night"},
		{"unknown status", func(p *roomRequest) { p.Status = "haunted" }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.edit(&p)
			if got := validationField(p.apply(&model.Room{})); got != tt.field {
				t.Errorf("field = %q, want %q", got, tt.field)
			}
		})
	}
}

func TestEmployeeRequestApply(t *testing.T) {
	p := employeeRequest{FirstName: "Mara", Email: "Mara@Resort.test", Position: "Concierge", HiredAt: "2025-02-01"}
	var e model.Employee
	if err := p.apply(&e); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if e.Email != "mara@resort.test" || !e.IsActive || e.HiredAt == nil {
		t.Errorf("unexpected employee: %+v", e)
	}

	p.Email = ""
	if got := validationField(p.apply(&model.Employee{})); got != "email" {
		t.Errorf("missing email field = %q", got)
	}
	p.Email, p.Salary = "mara@resort.test", -1
	if got := validationField(p.apply(&model.Employee{})); got != "salary" {
		t.Errorf("negative salary field = %q", got)
	}
}

func TestProfileRequestApply(t *testing.T) {
	c := model.Customer{Email: "keep@resort.test"}
	if err := (profileRequest{FirstName: " Ana ", Phone: "555"}).apply(&c); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if c.FirstName != "Ana" || c.Email != "keep@resort.test" {
		t.Errorf("unexpected customer: %+v", c)
	}
	if got := validationField((profileRequest{}).apply(&c)); got != "first_name" {
		t.Errorf("field = %q, want first_name", got)
	}
}

func TestPublicListRoomsFallback(t *testing.T) {
	st := newTestStore(t)
	st.Close()

	h := NewPublicHandler(st, service.NewBookingService(st), true, quietLogger())
	rr := httptest.NewRecorder()
	h.ListRooms(rr, httptest.NewRequest("GET", "/api/v1/rooms?type=suite", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp.Meta == nil || !resp.Meta.Fallback {
		t.Fatalf("expected fallback meta, got %+v", resp.Meta)
	}
	rooms, ok := resp.Data.([]interface{})
	if !ok || len(rooms) == 0 {
		t.Fatalf("expected demo rooms, got %#v", resp.Data)
	}
	for _, r := range rooms {
		if r.(map[string]interface{})["room_type"] != "suite" {
			t.Errorf("filter not applied to demo rooms: %v", r)
		}
	}
}

func TestPublicListRoomsBadOrderIsNotMasked(t *testing.T) {
	st := newTestStore(t)
	h := NewPublicHandler(st, service.NewBookingService(st), true, quietLogger())

	rr := httptest.NewRecorder()
	h.ListRooms(rr, httptest.NewRequest("GET", "/api/v1/rooms?order=password_hash", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestAvailabilityValidatesDates(t *testing.T) {
	st := newTestStore(t)
	h := NewPublicHandler(st, service.NewBookingService(st), true, quietLogger())

	rr := httptest.NewRecorder()
	h.Availability(rr, httptest.NewRequest("GET", "/api/v1/availability?check_in=soon", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp.Code != model.CodeValidation {
		t.Errorf("code = %q", resp.Code)
	}
}
