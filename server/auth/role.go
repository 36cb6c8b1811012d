package auth

import "net/http"

type Role string

const RoleAdmin Role = "admin"

func (r Role) String() string {
	return string(r)
}

// RequestIsAdmin reports whether the request carries admin claims.
func RequestIsAdmin(r *http.Request) bool {
	claims := GetClaims(r.Context())
	return claims != nil && claims.Role == RoleAdmin
}
