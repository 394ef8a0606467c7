package handlers

import (
	"net/http"

	"github.com/reliefops/reliefhub/internal/database"
)

// dashboardActiveLimit caps the active disasters listed on the dashboard
const dashboardActiveLimit = 5

// DashboardData is the staff overview
type DashboardData struct {
	ActiveDisasterCount int                     `json:"total_disasters"`
	TotalCamps          int64                   `json:"total_camps"`
	TotalOccupancy      int64                   `json:"total_occupancy"`
	TotalCapacity       int64                   `json:"total_capacity"`
	TotalDonations      int64                   `json:"total_donations"`
	TotalAmount         float64                 `json:"total_amount"`
	ActiveDisasters     []database.Disaster     `json:"active_disasters"`
	Donations           *database.DonationStats `json:"donations"`
	Users               *database.UserStats     `json:"users"`
}

// Dashboard returns active disasters with camp, donation and account totals
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	active, err := h.disasters.ListActive()
	if err != nil {
		h.repoError(w, err, "Dashboard")
		return
	}
	camps, err := h.camps.Statistics(nil)
	if err != nil {
		h.repoError(w, err, "Dashboard")
		return
	}
	donations, err := h.donations.Statistics(nil)
	if err != nil {
		h.repoError(w, err, "Dashboard")
		return
	}
	users, err := h.users.Statistics()
	if err != nil {
		h.repoError(w, err, "Dashboard")
		return
	}

	data := DashboardData{
		ActiveDisasterCount: len(active),
		TotalCamps:          camps.TotalCamps,
		TotalOccupancy:      camps.TotalOccupancy,
		TotalCapacity:       camps.TotalCapacity,
		TotalDonations:      donations.TotalDonations,
		TotalAmount:         donations.TotalAmount,
		ActiveDisasters:     active[:min(len(active), dashboardActiveLimit)],
		Donations:           donations,
		Users:               users,
	}
	h.jsonData(w, data)
}
