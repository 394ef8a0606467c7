package handlers

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reliefops/reliefhub/internal/database"
	"github.com/reliefops/reliefhub/internal/notification"
	"github.com/reliefops/reliefhub/internal/web/middleware"
)

// DisastersList returns disasters filtered by status, type and severity
func (h *Handlers) DisastersList(w http.ResponseWriter, r *http.Request) {
	disasters, err := h.disasters.List(queryFilters(r))
	if err != nil {
		h.repoError(w, err, "Disaster")
		return
	}
	h.jsonData(w, disasters)
}

// DisasterGet returns a single disaster
func (h *Handlers) DisasterGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	disaster, err := h.disasters.GetByID(id)
	if err != nil {
		h.repoError(w, err, "Disaster")
		return
	}
	h.jsonData(w, disaster)
}

// DisasterStatistics returns camp and donation totals for a disaster
func (h *Handlers) DisasterStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.disasters.GetByID(id); err != nil {
		h.repoError(w, err, "Disaster")
		return
	}
	stats, err := h.disasters.Statistics(id)
	if err != nil {
		h.repoError(w, err, "Disaster")
		return
	}
	h.jsonData(w, stats)
}

// DisasterCreate records a new disaster on behalf of the signed-in staff member
func (h *Handlers) DisasterCreate(w http.ResponseWriter, r *http.Request) {
	var in database.NewDisaster
	if !h.decode(w, r, &in) {
		return
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	in.Location = strings.TrimSpace(in.Location)
	if errs := validateDisaster(in); len(errs) > 0 {
		h.validationFailed(w, errs)
		return
	}
	if in.StartDate.IsZero() {
		in.StartDate = time.Now().UTC()
	}

	session := middleware.GetSession(r.Context())
	in.CreatedBy = &session.UserID

	id, err := h.disasters.Create(in)
	if err != nil {
		h.repoError(w, err, "Disaster")
		return
	}

	log.Info().Int64("disaster_id", id).Str("name", in.Name).Int64("user_id", session.UserID).Msg("Disaster created")
	h.alertDisasterDeclared(id, in)
	h.jsonSuccess(w, http.StatusCreated, "Disaster created", map[string]any{"disaster_id": id})
}

func validateDisaster(in database.NewDisaster) map[string]string {
	errs := map[string]string{}
	if in.Name == "" {
		errs["disaster_name"] = "Disaster name is required"
	}
	if in.Type == "" {
		errs["disaster_type"] = "Disaster type is required"
	}
	if in.Location == "" {
		errs["location"] = "Location is required"
	}
	if !slices.Contains(database.Severities, in.Severity) {
		errs["severity"] = "Severity must be low, medium, high or critical"
	}
	if in.Status != "" && !slices.Contains([]string{database.DisasterActive, database.DisasterMonitoring, database.DisasterResolved}, in.Status) {
		errs["status"] = "Invalid status"
	}
	if in.AffectedPopulation < 0 {
		errs["affected_population"] = "Affected population cannot be negative"
	}
	if in.Casualties < 0 {
		errs["casualties"] = "Casualties cannot be negative"
	}
	return errs
}

// DisasterUpdate applies a partial update
func (h *Handlers) DisasterUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var fields database.Fields
	if !h.decode(w, r, &fields) {
		return
	}
	current, err := h.disasters.GetByID(id)
	if err != nil {
		h.repoError(w, err, "Disaster")
		return
	}
	if err := h.disasters.Update(id, fields); err != nil {
		h.repoError(w, err, "Disaster")
		return
	}
	h.alertStatusChange(notification.EventDisasterStatusChanged, "Disaster", current.Name, id, current.Status, fields)
	h.jsonSuccess(w, http.StatusOK, "Disaster updated", nil)
}

// DisasterDelete removes a disaster
func (h *Handlers) DisasterDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.disasters.Delete(id); err != nil {
		h.repoError(w, err, "Disaster")
		return
	}
	log.Info().Int64("disaster_id", id).Msg("Disaster deleted")
	h.jsonSuccess(w, http.StatusOK, "Disaster deleted", nil)
}
