package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/reliefops/reliefhub/internal/database"
	"github.com/reliefops/reliefhub/internal/notification"
)

// CampsList returns camps filtered by disaster_id and status
func (h *Handlers) CampsList(w http.ResponseWriter, r *http.Request) {
	camps, err := h.camps.List(queryFilters(r))
	if err != nil {
		h.repoError(w, err, "Camp")
		return
	}
	h.jsonData(w, camps)
}

// CampGet returns a single camp
func (h *Handlers) CampGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	camp, err := h.camps.GetByID(id)
	if err != nil {
		h.repoError(w, err, "Camp")
		return
	}
	h.jsonData(w, camp)
}

// CampResources returns the inventory of a camp
func (h *Handlers) CampResources(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.camps.GetByID(id); err != nil {
		h.repoError(w, err, "Camp")
		return
	}
	resources, err := h.camps.ListResources(id)
	if err != nil {
		h.repoError(w, err, "Camp")
		return
	}
	h.jsonData(w, resources)
}

// CampCreate opens a camp under an existing disaster
func (h *Handlers) CampCreate(w http.ResponseWriter, r *http.Request) {
	var in database.NewCamp
	if !h.decode(w, r, &in) {
		return
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	errs := map[string]string{}
	if in.Name == "" {
		errs["camp_name"] = "Camp name is required"
	}
	if in.Location == "" {
		errs["location"] = "Location is required"
	}
	if in.Capacity <= 0 {
		errs["capacity"] = "Capacity must be greater than zero"
	}
	if in.CurrentOccupancy < 0 {
		errs["current_occupancy"] = "Occupancy cannot be negative"
	}
	if in.DisasterID <= 0 {
		errs["disaster_id"] = "Disaster is required"
	} else if _, err := h.disasters.GetByID(in.DisasterID); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.repoError(w, err, "Disaster")
			return
		}
		errs["disaster_id"] = "Disaster does not exist"
	}
	if len(errs) > 0 {
		h.validationFailed(w, errs)
		return
	}

	id, err := h.camps.Create(in)
	if err != nil {
		h.repoError(w, err, "Camp")
		return
	}

	log.Info().Int64("camp_id", id).Int64("disaster_id", in.DisasterID).Str("name", in.Name).Msg("Camp created")
	h.alertCampOpened(id, in)
	h.jsonSuccess(w, http.StatusCreated, "Camp created", map[string]any{"camp_id": id})
}

// CampUpdate applies a partial update
func (h *Handlers) CampUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var fields database.Fields
	if !h.decode(w, r, &fields) {
		return
	}
	current, err := h.camps.GetByID(id)
	if err != nil {
		h.repoError(w, err, "Camp")
		return
	}
	if err := h.camps.Update(id, fields); err != nil {
		h.repoError(w, err, "Camp")
		return
	}
	h.alertStatusChange(notification.EventCampStatusChanged, "Camp", current.Name, id, current.Status, fields)
	h.jsonSuccess(w, http.StatusOK, "Camp updated", nil)
}

// CampDelete removes a camp
func (h *Handlers) CampDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.camps.Delete(id); err != nil {
		h.repoError(w, err, "Camp")
		return
	}
	log.Info().Int64("camp_id", id).Msg("Camp deleted")
	h.jsonSuccess(w, http.StatusOK, "Camp deleted", nil)
}

// CampStatistics returns camp totals, optionally for one disaster
func (h *Handlers) CampStatistics(w http.ResponseWriter, r *http.Request) {
	disasterID, err := queryInt64(r, "disaster_id")
	if err != nil {
		h.jsonError(w, "Invalid disaster_id", http.StatusBadRequest)
		return
	}
	stats, err := h.camps.Statistics(disasterID)
	if err != nil {
		h.repoError(w, err, "Camp")
		return
	}
	h.jsonData(w, stats)
}
