package chat

// Role is the privilege tier reported to clients. Admin implies
// moderator-level privilege but is reported distinctly.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleNormal    Role = "normal"
)

// Session is the authenticated state of one socket connection. Exactly
// one session exists per connection id; re-login attempts are rejected,
// not replaced.
type Session struct {
	ID        string
	Addr      string
	Room      string
	Name      string
	Admin     bool
	Moderator bool
	Muted     bool
	Color     int
}

func (s *Session) Role() Role {
	switch {
	case s.Admin:
		return RoleAdmin
	case s.Moderator:
		return RoleModerator
	default:
		return RoleNormal
	}
}

// HTMLColor renders the session color as a 7-character #rrggbb string.
func (s *Session) HTMLColor() string {
	return HTMLColor(s.Color)
}

// User is the public roster projection sent to clients.
type User struct {
	Username string `json:"username"`
	Type     Role   `json:"type"`
	Color    string `json:"color"`
}

func (s *Session) User() User {
	return User{
		Username: s.Name,
		Type:     s.Role(),
		Color:    s.HTMLColor(),
	}
}
