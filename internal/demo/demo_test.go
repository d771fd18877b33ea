package demo

import (
	"testing"

	"github.com/palmcove/resortd/internal/model"
)

func TestCatalogIsConsistent(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Rooms() {
		if seen[r.RoomNumber] {
			t.Errorf("duplicate room number %s", r.RoomNumber)
		}
		seen[r.RoomNumber] = true
		if r.Capacity < 1 || r.PricePerNight <= 0 || !model.ValidRoomStatus(r.Status) {
			t.Errorf("invalid room %+v", r)
		}
	}
	for _, a := range Amenities() {
		if a.Name == "" || !a.IsActive {
			t.Errorf("invalid amenity %+v", a)
		}
	}
	for _, s := range Services() {
		if s.Name == "" || s.Price <= 0 || !s.IsActive {
			t.Errorf("invalid service %+v", s)
		}
	}
}

func TestRoomsReturnsCopy(t *testing.T) {
	a := Rooms()
	a[0].Status = model.RoomMaintenance
	if Rooms()[0].Status != model.RoomAvailable {
		t.Error("Rooms must return a fresh slice")
	}
}
