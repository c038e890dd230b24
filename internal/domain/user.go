package domain

import "strings"

// Role is the closed set of session kinds. Raw role strings from storage or
// the API go through ParseRole before any branching.
type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	default:
		return "anonymous"
	}
}

// NormalizeRole case-folds, strips a leading "role_" and maps what is left to
// "" when it is the literal "undefined" or "null".
func NormalizeRole(raw string) string {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "role_")
	if s == "undefined" || s == "null" {
		return ""
	}
	return s
}

// ParseRole maps a raw role string to a Role. Unknown non-empty roles are
// regular users.
func ParseRole(raw string) Role {
	switch NormalizeRole(raw) {
	case "":
		return RoleAnonymous
	case "admin":
		return RoleAdmin
	default:
		return RoleUser
	}
}

// User is the signed-in account. Attrs keeps the record exactly as the API
// returned it so it can be persisted and restored without loss.
type User struct {
	ID    string         `json:"-"`
	Name  string         `json:"-"`
	Email string         `json:"-"`
	Role  string         `json:"-"` // raw role carried on the record, if any
	Attrs map[string]any `json:"-"`
}

// AuthSession is the single authoritative in-memory session.
type AuthSession struct {
	User *User  `json:"user,omitempty"`
	Role string `json:"role"` // normalized
}

// Kind returns the session's Role. A session without a user is anonymous.
func (s AuthSession) Kind() Role {
	if s.User == nil {
		return RoleAnonymous
	}
	return ParseRole(s.Role)
}
