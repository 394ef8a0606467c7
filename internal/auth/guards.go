package auth

import (
	"errors"
	"slices"

	"github.com/reliefops/reliefhub/internal/database"
)

var (
	// ErrLoginRequired means the caller must send the client to the login page
	ErrLoginRequired = errors.New("login required")
	// ErrForbidden means the caller must send the client home
	ErrForbidden = errors.New("insufficient role")
)

const (
	LoginPath              = "/login"
	HomePath               = "/"
	AdminDashboardPath     = "/admin/dashboard"
	VolunteerDashboardPath = "/volunteer/dashboard"
)

// RequireLogin passes for authenticated sessions
func RequireLogin(s Session) error {
	if !s.LoggedIn || s.UserID == 0 {
		return ErrLoginRequired
	}
	return nil
}

// RequireRole passes for authenticated sessions holding one of roles
func RequireRole(s Session, roles ...database.Role) error {
	if err := RequireLogin(s); err != nil {
		return err
	}
	if !slices.Contains(roles, s.Role) {
		return ErrForbidden
	}
	return nil
}

// RedirectPath returns where a guard failure should send the client
func RedirectPath(err error) string {
	if errors.Is(err, ErrLoginRequired) {
		return LoginPath
	}
	return HomePath
}

// RedirectFor returns the landing page for a role after login
func RedirectFor(role database.Role) string {
	switch role {
	case database.RoleAdmin, database.RoleStaff:
		return AdminDashboardPath
	case database.RoleVolunteer:
		return VolunteerDashboardPath
	default:
		return HomePath
	}
}
