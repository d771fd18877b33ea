package model

import "time"

// Employee is a staff record managed from the back-office. Employees do not
// sign in; administrators do.
type Employee struct {
	ID        int64      `json:"id" db:"id"`
	FirstName string     `json:"first_name" db:"first_name"`
	LastName  string     `json:"last_name" db:"last_name"`
	Email     string     `json:"email" db:"email"`
	Phone     string     `json:"phone" db:"phone"`
	Position  string     `json:"position" db:"position"`
	Salary    float64    `json:"salary" db:"salary"`
	HiredAt   *time.Time `json:"hired_at,omitempty" db:"hired_at"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
