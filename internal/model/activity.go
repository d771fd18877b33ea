package model

import "time"

// Activity event types.
const (
	EventLogin        = "login"
	EventLoginFailed  = "login_failed"
	EventLogout       = "logout"
	EventRegistration = "registration"
	EventLocked       = "locked"
	EventToken        = "token"
)

// Activity outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeLocked   = "locked"
	OutcomeDisabled = "disabled"
)

// ActivityEntry is an append-only record of an authentication event. UserID
// is nil when the event could not be tied to an account (unknown email).
type ActivityEntry struct {
	ID        int64     `json:"id" db:"id"`
	UserID    *int64    `json:"user_id,omitempty" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	Event     string    `json:"event" db:"event"`
	Outcome   string    `json:"outcome" db:"outcome"`
	Email     string    `json:"email" db:"email"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
