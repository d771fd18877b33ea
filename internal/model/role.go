package model

// Role identifies which side of the application a session is signed in to.
// A session holds at most one role at a time.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// ParseRole converts user input to a Role. An empty string defaults to
// client, matching the public login form.
func ParseRole(s string) (Role, bool) {
	if s == "" {
		return RoleClient, true
	}
	r := Role(s)
	return r, r.Valid()
}
