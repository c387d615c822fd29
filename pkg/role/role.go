package role

import "strings"

// Role is the authorization class of a profile. The zero value None covers
// "no profile", "not resolved yet" and "resolution failed".
type Role uint8

const (
	None Role = iota
	Client
	Admin
)

func (r Role) String() string {
	switch r {
	case Client:
		return "client"
	case Admin:
		return "admin"
	default:
		return ""
	}
}

// Parse maps a backend role string onto the closed set. Anything unknown is None.
func Parse(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client":
		return Client
	case "admin":
		return Admin
	default:
		return None
	}
}

func (r Role) Valid() bool {
	return r == Client || r == Admin
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	*r = Parse(string(text))
	return nil
}

// In reports whether r is a real role listed in allowed.
func (r Role) In(allowed []Role) bool {
	if !r.Valid() {
		return false
	}
	for _, a := range allowed {
		if a == r {
			return true
		}
	}
	return false
}
