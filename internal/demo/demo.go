// Package demo holds the sample catalog served when the database cannot be
// reached and inserted by `resortd db seed`.
package demo

import "github.com/palmcove/resortd/internal/model"

// Rooms returns the sample rooms. IDs are set so fallback responses link
// consistently; seeding ignores them.
func Rooms() []model.Room {
	return []model.Room{
		{ID: 1, RoomNumber: "101", RoomType: "standard", Capacity: 2, PricePerNight: 120, Status: model.RoomAvailable,
			Description: "Garden view room with a queen bed.", ImageURL: "/images/rooms/standard.jpg"},
		{ID: 2, RoomNumber: "102", RoomType: "standard", Capacity: 2, PricePerNight: 120, Status: model.RoomAvailable,
			Description: "Garden view room with two single beds.", ImageURL: "/images/rooms/standard-twin.jpg"},
		{ID: 3, RoomNumber: "201", RoomType: "deluxe", Capacity: 3, PricePerNight: 185, Status: model.RoomAvailable,
			Description: "Ocean view room with balcony.", ImageURL: "/images/rooms/deluxe.jpg"},
		{ID: 4, RoomNumber: "301", RoomType: "suite", Capacity: 4, PricePerNight: 320, Status: model.RoomAvailable,
			Description: "Two-room suite with living area and terrace.", ImageURL: "/images/rooms/suite.jpg"},
		{ID: 5, RoomNumber: "401", RoomType: "villa", Capacity: 6, PricePerNight: 540, Status: model.RoomAvailable,
			Description: "Beachfront villa with private pool.", ImageURL: "/images/rooms/villa.jpg"},
	}
}

// Amenities returns the sample amenities.
func Amenities() []model.Amenity {
	return []model.Amenity{
		{ID: 1, Name: "Infinity Pool", Description: "Heated pool overlooking the bay.", Icon: "pool", IsActive: true},
		{ID: 2, Name: "Spa", Description: "Massages and treatments by appointment.", Icon: "spa", IsActive: true},
		{ID: 3, Name: "Fitness Center", Description: "Open 6am to 10pm.", Icon: "gym", IsActive: true},
		{ID: 4, Name: "Beach Bar", Description: "Cocktails and light meals.", Icon: "bar", IsActive: true},
	}
}

// Services returns the sample bookable extras.
func Services() []model.Service {
	return []model.Service{
		{ID: 1, Name: "Airport Transfer", Description: "Private car, one way.", Price: 45, IsActive: true},
		{ID: 2, Name: "Breakfast Package", Description: "Daily buffet breakfast for the stay.", Price: 60, IsActive: true},
		{ID: 3, Name: "Island Tour", Description: "Half-day guided boat tour.", Price: 90, IsActive: true},
	}
}
