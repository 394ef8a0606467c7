package handlers

import (
	"errors"
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/reliefops/reliefhub/internal/auth"
	"github.com/reliefops/reliefhub/internal/database"
	"github.com/reliefops/reliefhub/internal/web/middleware"
)

// Roles a visitor may pick when signing up; staff and admin accounts come from the CLI
var selfServiceRoles = []database.Role{database.RoleDonor, database.RoleVolunteer}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// isJSON reports whether the request body is JSON rather than a form post
func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// Login handles login submissions, either form-encoded or JSON
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isJSON(r) {
		if !h.decode(w, r, &req) {
			return
		}
	} else {
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	}
	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" || req.Password == "" {
		h.jsonError(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.jsonError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Msg("Login error")
		h.jsonError(w, "An error occurred during login", http.StatusInternalServerError)
		return
	}

	h.jsonSuccess(w, http.StatusOK, "Login successful", map[string]any{
		"redirect": auth.RedirectFor(user.Role),
		"user":     user,
	})
}

// Register handles self-service sign up
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if isJSON(r) {
		if !h.decode(w, r, &in) {
			return
		}
	} else {
		in = auth.RegisterInput{
			Username: r.FormValue("username"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
			FullName: r.FormValue("full_name"),
			Phone:    r.FormValue("phone"),
			Role:     database.Role(r.FormValue("role")),
		}
	}

	if in.Role != "" && !slices.Contains(selfServiceRoles, in.Role) {
		h.validationFailed(w, map[string]string{"role": "Invalid role"})
		return
	}

	id, err := h.authService.Register(in)
	if err != nil {
		var verrs auth.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			h.validationFailed(w, verrs)
		case errors.Is(err, auth.ErrUsernameTaken):
			h.jsonError(w, "Username already exists", http.StatusConflict)
		case errors.Is(err, auth.ErrEmailTaken):
			h.jsonError(w, "Email already exists", http.StatusConflict)
		default:
			h.jsonError(w, "Registration failed. Please try again.", http.StatusInternalServerError)
		}
		return
	}

	h.jsonSuccess(w, http.StatusCreated, "Registration successful", map[string]any{
		"user_id":  id,
		"redirect": auth.LoginPath,
	})
}

// Logout destroys the session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to destroy session during logout")
		h.jsonError(w, "An error occurred during logout", http.StatusInternalServerError)
		return
	}
	h.jsonSuccess(w, http.StatusOK, "Logged out", map[string]any{"redirect": auth.HomePath})
}

// Me returns the signed-in principal and account
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	user, err := h.users.GetByID(session.UserID)
	if err != nil {
		h.repoError(w, err, "User")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": session,
		"data":    user,
	})
}

// ChangePassword updates the signed-in user's password
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.authService.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword)
	if err != nil {
		var verrs auth.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			h.validationFailed(w, verrs)
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.jsonError(w, "Current password is incorrect", http.StatusBadRequest)
		default:
			h.jsonError(w, "An error occurred. Please try again.", http.StatusInternalServerError)
		}
		return
	}
	h.jsonSuccess(w, http.StatusOK, "Password updated", nil)
}
