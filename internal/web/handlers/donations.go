package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/reliefops/reliefhub/internal/auth"
	"github.com/reliefops/reliefhub/internal/database"
	"github.com/reliefops/reliefhub/internal/notification"
	"github.com/reliefops/reliefhub/internal/web/middleware"
)

var donationStatuses = []string{
	database.DonationPending,
	database.DonationCompleted,
	database.DonationFailed,
	database.DonationCancelled,
}

// DonationsList returns donations filtered by donor_id, disaster_id, donation_type and status
func (h *Handlers) DonationsList(w http.ResponseWriter, r *http.Request) {
	donations, err := h.donations.List(queryFilters(r))
	if err != nil {
		h.repoError(w, err, "Donation")
		return
	}
	h.jsonData(w, donations)
}

// DonationsMine returns the signed-in user's donations
func (h *Handlers) DonationsMine(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	filters := queryFilters(r)
	filters["donor_id"] = strconv.FormatInt(session.UserID, 10)

	donations, err := h.donations.List(filters)
	if err != nil {
		h.repoError(w, err, "Donation")
		return
	}
	h.jsonData(w, donations)
}

// DonationGet returns a donation to staff or to the donor who made it
func (h *Handlers) DonationGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	donation, err := h.donations.GetByID(id)
	if err != nil {
		h.repoError(w, err, "Donation")
		return
	}

	session := middleware.GetSession(r.Context())
	isDonor := donation.DonorID != nil && *donation.DonorID == session.UserID
	if !isDonor && auth.RequireRole(session, database.RoleAdmin, database.RoleStaff) != nil {
		h.jsonError(w, "Access denied", http.StatusForbidden)
		return
	}
	h.jsonData(w, donation)
}

// DonationCreate records a donation from the signed-in user
func (h *Handlers) DonationCreate(w http.ResponseWriter, r *http.Request) {
	var in database.NewDonation
	if !h.decode(w, r, &in) {
		return
	}

	in.MaterialDescription = strings.TrimSpace(in.MaterialDescription)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	// Completion is a staff decision
	in.Status = ""

	errs := map[string]string{}
	switch in.Type {
	case database.DonationMonetary:
		if in.Amount == nil || *in.Amount <= 0 {
			errs["amount"] = "Amount must be greater than zero"
		}
	case database.DonationMaterial:
		if in.MaterialDescription == "" {
			errs["material_description"] = "Material description is required"
		}
		if in.MaterialQuantity != nil && *in.MaterialQuantity <= 0 {
			errs["material_quantity"] = "Quantity must be greater than zero"
		}
	default:
		errs["donation_type"] = "Donation type must be monetary or material"
	}
	if in.DisasterID != nil {
		if _, err := h.disasters.GetByID(*in.DisasterID); err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				h.repoError(w, err, "Disaster")
				return
			}
			errs["disaster_id"] = "Disaster does not exist"
		}
	}
	if len(errs) > 0 {
		h.validationFailed(w, errs)
		return
	}

	session := middleware.GetSession(r.Context())
	in.DonorID = &session.UserID

	id, err := h.donations.Create(in)
	if err != nil {
		h.repoError(w, err, "Donation")
		return
	}

	log.Info().Int64("donation_id", id).Int64("donor_id", session.UserID).Str("type", in.Type).Msg("Donation recorded")
	h.alertDonation(notification.EventDonationReceived, id, in.Type, in.Amount, in.Currency, in.MaterialDescription)
	h.jsonSuccess(w, http.StatusCreated, "Thank you for your donation", map[string]any{"donation_id": id})
}

// DonationUpdate applies a partial update to status, payment_method, transaction_id or notes
func (h *Handlers) DonationUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var fields database.Fields
	if !h.decode(w, r, &fields) {
		return
	}
	if status, ok := fields["status"]; ok && status != nil {
		if s, isString := status.(string); !isString || !slices.Contains(donationStatuses, s) {
			h.validationFailed(w, map[string]string{"status": "Invalid status"})
			return
		}
	}
	current, err := h.donations.GetByID(id)
	if err != nil {
		h.repoError(w, err, "Donation")
		return
	}
	if err := h.donations.Update(id, fields); err != nil {
		h.repoError(w, err, "Donation")
		return
	}
	if fields["status"] == database.DonationCompleted {
		h.donationCompleted(current)
	}
	h.jsonSuccess(w, http.StatusOK, "Donation updated", nil)
}

// DonationUpdateStatus moves a donation to a new status
func (h *Handlers) DonationUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if !slices.Contains(donationStatuses, req.Status) {
		h.validationFailed(w, map[string]string{"status": "Invalid status"})
		return
	}
	current, err := h.donations.GetByID(id)
	if err != nil {
		h.repoError(w, err, "Donation")
		return
	}
	if err := h.donations.UpdateStatus(id, req.Status); err != nil {
		h.repoError(w, err, "Donation")
		return
	}
	if req.Status == database.DonationCompleted {
		h.donationCompleted(current)
	}

	log.Info().Int64("donation_id", id).Str("status", req.Status).Msg("Donation status changed")
	h.jsonSuccess(w, http.StatusOK, "Donation status updated", nil)
}

// DonationDelete removes a donation
func (h *Handlers) DonationDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.donations.Delete(id); err != nil {
		h.repoError(w, err, "Donation")
		return
	}
	h.jsonSuccess(w, http.StatusOK, "Donation deleted", nil)
}

// DonationStatistics returns donation totals, optionally for one disaster
func (h *Handlers) DonationStatistics(w http.ResponseWriter, r *http.Request) {
	disasterID, err := queryInt64(r, "disaster_id")
	if err != nil {
		h.jsonError(w, "Invalid disaster_id", http.StatusBadRequest)
		return
	}
	stats, err := h.donations.Statistics(disasterID)
	if err != nil {
		h.repoError(w, err, "Donation")
		return
	}
	h.jsonData(w, stats)
}
