package model

// DashboardSummary is the headline block of the admin dashboard.
type DashboardSummary struct {
	BookingsByStatus map[string]int `json:"bookings_by_status"`
	RoomsByStatus    map[string]int `json:"rooms_by_status"`
	TotalCustomers   int            `json:"total_customers"`
	TotalRevenue     float64        `json:"total_revenue"`
	ArrivalsToday    int            `json:"arrivals_today"`
	DeparturesToday  int            `json:"departures_today"`
}

// MonthlyRevenue is one row of the revenue report.
type MonthlyRevenue struct {
	Month    int     `json:"month"`
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

// RevenueReport aggregates booking revenue for a calendar year.
type RevenueReport struct {
	Year   int              `json:"year"`
	Months []MonthlyRevenue `json:"months"`
	Total  float64          `json:"total"`
}

// OccupancyReport expresses booked room-nights as a share of available
// room-nights for a date range.
type OccupancyReport struct {
	From          string  `json:"from"`
	To            string  `json:"to"`
	Rooms         int     `json:"rooms"`
	Nights        int     `json:"nights"`
	BookedNights  int     `json:"booked_nights"`
	OccupancyRate float64 `json:"occupancy_rate"`
}
