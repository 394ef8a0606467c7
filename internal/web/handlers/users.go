package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/reliefops/reliefhub/internal/auth"
	"github.com/reliefops/reliefhub/internal/database"
	"github.com/reliefops/reliefhub/internal/web/middleware"
)

// UsersList returns accounts filtered by role and status
func (h *Handlers) UsersList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(queryFilters(r))
	if err != nil {
		h.repoError(w, err, "User")
		return
	}
	h.jsonData(w, users)
}

// UserGet returns a single account
func (h *Handlers) UserGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetByID(id)
	if err != nil {
		h.repoError(w, err, "User")
		return
	}
	h.jsonData(w, user)
}

// UserUpdate changes full_name, email, phone or status
func (h *Handlers) UserUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var fields database.Fields
	if !h.decode(w, r, &fields) {
		return
	}
	if status, ok := fields["status"]; ok && status != nil {
		if status != database.UserActive && status != database.UserInactive {
			h.validationFailed(w, map[string]string{"status": "Status must be active or inactive"})
			return
		}
	}
	if email, ok := fields["email"]; ok && email != nil {
		if s, isString := email.(string); !isString || !auth.ValidEmail(s) {
			h.validationFailed(w, map[string]string{"email": "Valid email is required"})
			return
		}
	}
	current, err := h.users.GetByID(id)
	if err != nil {
		h.repoError(w, err, "User")
		return
	}
	if email, ok := fields["email"].(string); ok && email != current.Email {
		taken, err := h.users.EmailExists(email)
		if err != nil {
			h.repoError(w, err, "User")
			return
		}
		if taken {
			h.jsonError(w, "Email already exists", http.StatusConflict)
			return
		}
	}
	if err := h.users.Update(id, fields); err != nil {
		h.repoError(w, err, "User")
		return
	}
	h.jsonSuccess(w, http.StatusOK, "User updated", nil)
}

// UserDelete removes an account other than the caller's own
func (h *Handlers) UserDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	session := middleware.GetSession(r.Context())
	if id == session.UserID {
		h.jsonError(w, "You cannot delete your own account", http.StatusBadRequest)
		return
	}
	if err := h.users.Delete(id); err != nil {
		h.repoError(w, err, "User")
		return
	}
	log.Info().Int64("user_id", id).Int64("deleted_by", session.UserID).Msg("User deleted")
	h.jsonSuccess(w, http.StatusOK, "User deleted", nil)
}

// UserStatistics returns account counts by status and role
func (h *Handlers) UserStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Statistics()
	if err != nil {
		h.repoError(w, err, "User")
		return
	}
	h.jsonData(w, stats)
}
