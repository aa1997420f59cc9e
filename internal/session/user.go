package session

import "strings"

// DefaultRole is assumed when a stored user carries no role.
const DefaultRole = "customer"

// User is the projection of an authenticated account kept in the session.
// It never carries the password or its hash.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// User resolves the current user.  The structured "user" entry wins; older
// sessions written with flat keys (user_id, email, name, role) are read as
// a fallback.  A user is present when it has an id or an email.
func (s *Session) User() (User, bool) {
	var u User
	if m, ok := s.Map(KeyUser); ok {
		u.ID, _ = toInt(m["id"])
		u.Email = toString(m["email"])
		u.Name = toString(m["name"])
		u.Role = toString(m["role"])
	} else {
		u.ID, _ = s.Int(KeyUserID)
		u.Email = s.String(KeyEmail)
		u.Name = s.String(KeyName)
		u.Role = s.String(KeyRole)
	}
	if u.ID == 0 && strings.TrimSpace(u.Email) == "" {
		return User{}, false
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}
	return u, true
}

// SetUser stores u under the structured key and the legacy flat keys and
// clears any redirect counter.
func (s *Session) SetUser(u User) {
	if u.Role == "" {
		u.Role = DefaultRole
	}
	s.Set(KeyUser, map[string]any{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
		"role":  u.Role,
	})
	s.Set(KeyUserID, u.ID)
	s.Set(KeyEmail, u.Email)
	s.Set(KeyName, u.Name)
	s.Set(KeyRole, u.Role)
	s.Delete(KeyRedirectCount)
}
