package handlers

import (
	"fmt"
	"strconv"

	"github.com/reliefops/reliefhub/internal/database"
	"github.com/reliefops/reliefhub/internal/notification"
)

// Notifier queues relief alerts. *notification.Manager satisfies it.
type Notifier interface {
	Notify(event notification.Event)
}

func (h *Handlers) notify(event notification.Event) {
	if h.notifier == nil {
		return
	}
	h.notifier.Notify(event)
}

func (h *Handlers) alertDisasterDeclared(id int64, in database.NewDisaster) {
	h.notify(notification.Event{
		Type:    notification.EventDisasterDeclared,
		Title:   "Disaster declared: " + in.Name,
		Message: fmt.Sprintf("%s reported in %s", in.Type, in.Location),
		Fields: map[string]string{
			"disaster_id":         strconv.FormatInt(id, 10),
			"severity":            in.Severity,
			"location":            in.Location,
			"affected_population": strconv.FormatInt(in.AffectedPopulation, 10),
		},
	})
}

// alertStatusChange fires when an update moved the status field away from old
func (h *Handlers) alertStatusChange(eventType notification.EventType, entity, name string, id int64, old string, fields database.Fields) {
	next, ok := fields["status"].(string)
	if !ok || next == old {
		return
	}
	h.notify(notification.Event{
		Type:    eventType,
		Title:   fmt.Sprintf("%s %s is now %s", entity, name, next),
		Message: fmt.Sprintf("Status changed from %s to %s", old, next),
		Fields: map[string]string{
			"id":     strconv.FormatInt(id, 10),
			"from":   old,
			"status": next,
		},
	})
}

func (h *Handlers) alertCampOpened(id int64, in database.NewCamp) {
	h.notify(notification.Event{
		Type:    notification.EventCampOpened,
		Title:   "Relief camp opened: " + in.Name,
		Message: "New camp at " + in.Location,
		Fields: map[string]string{
			"camp_id":     strconv.FormatInt(id, 10),
			"disaster_id": strconv.FormatInt(in.DisasterID, 10),
			"capacity":    strconv.FormatInt(in.Capacity, 10),
		},
	})
}

func (h *Handlers) alertDonation(eventType notification.EventType, id int64, donationType string, amount *float64, currency, description string) {
	title := "Donation received"
	if eventType == notification.EventDonationCompleted {
		title = "Donation completed"
	}

	fields := map[string]string{
		"donation_id": strconv.FormatInt(id, 10),
		"type":        donationType,
	}
	message := description
	if amount != nil {
		fields["amount"] = strconv.FormatFloat(*amount, 'f', 2, 64)
		message = fields["amount"] + " " + currency
	}

	h.notify(notification.Event{
		Type:    eventType,
		Title:   title,
		Message: message,
		Fields:  fields,
	})
}

// donationCompleted alerts once per donation; repeated completions are ignored
func (h *Handlers) donationCompleted(before *database.Donation) {
	if before.Status == database.DonationCompleted {
		return
	}
	h.alertDonation(notification.EventDonationCompleted, before.ID, before.Type, before.Amount, before.Currency, before.MaterialDescription)
}
