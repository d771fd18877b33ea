package model

import "time"

// Room status values.
const (
	RoomAvailable   = "available"
	RoomOccupied    = "occupied"
	RoomMaintenance = "maintenance"
)

// Room is a bookable unit of accommodation.
type Room struct {
	ID            int64     `json:"id" db:"id"`
	RoomNumber    string    `json:"room_number" db:"room_number"`
	RoomType      string    `json:"room_type" db:"room_type"`
	Capacity      int       `json:"capacity" db:"capacity"`
	PricePerNight float64   `json:"price_per_night" db:"price_per_night"`
	Status        string    `json:"status" db:"status"`
	Description   string    `json:"description" db:"description"`
	ImageURL      string    `json:"image_url" db:"image_url"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ValidRoomStatus reports whether s is a known room status.
func ValidRoomStatus(s string) bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomMaintenance:
		return true
	}
	return false
}
