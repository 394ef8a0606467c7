package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/reliefops/reliefhub/internal/auth"
	"github.com/reliefops/reliefhub/internal/database"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Handlers contains all HTTP handlers
type Handlers struct {
	db          *database.DB
	users       *database.Users
	disasters   *database.Disasters
	camps       *database.Camps
	donations   *database.Donations
	authService *auth.Service
	notifier    Notifier
}

// New creates a new Handlers instance. notifier may be nil.
func New(db *database.DB, authService *auth.Service, notifier Notifier) *Handlers {
	return &Handlers{
		db:          db,
		users:       database.NewUsers(db),
		disasters:   database.NewDisasters(db),
		camps:       database.NewCamps(db),
		donations:   database.NewDonations(db),
		authService: authService,
		notifier:    notifier,
	}
}

// Health reports whether the database answers
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.db.FetchOne("SELECT 1 AS ok"); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		h.jsonError(w, "Database unavailable", http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}

// writeJSON sends v as a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// jsonError sends a JSON error response
func (h *Handlers) jsonError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]any{"success": false, "message": message})
}

// jsonSuccess sends a JSON success response with optional extra fields
func (h *Handlers) jsonSuccess(w http.ResponseWriter, status int, message string, extra map[string]any) {
	body := map[string]any{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	h.writeJSON(w, status, body)
}

// validationFailed sends a field to message map with 400
func (h *Handlers) validationFailed(w http.ResponseWriter, errs map[string]string) {
	h.writeJSON(w, http.StatusBadRequest, map[string]any{
		"success": false,
		"message": "Validation failed",
		"errors":  errs,
	})
}

// jsonData sends {"success": true, "data": v}
func (h *Handlers) jsonData(w http.ResponseWriter, v any) {
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": v})
}

// decode reads a JSON request body into v
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Invalid request body")
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses the {id} route parameter
func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.jsonError(w, "Invalid ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryFilters copies the first value of every query parameter.
// Repositories ignore keys outside their vocabulary.
func queryFilters(r *http.Request) database.Filters {
	filters := database.Filters{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}
	return filters
}

// queryInt64 parses an optional integer query parameter
func queryInt64(r *http.Request, key string) (*int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// repoError maps repository sentinels to responses
func (h *Handlers) repoError(w http.ResponseWriter, err error, entity string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		h.jsonError(w, entity+" not found", http.StatusNotFound)
	case errors.Is(err, database.ErrNothingToUpdate):
		h.jsonError(w, "No valid fields to update", http.StatusBadRequest)
	default:
		h.jsonError(w, "An error occurred. Please try again.", http.StatusInternalServerError)
	}
}
