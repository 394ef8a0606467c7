package database

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestDonations_CreateAppliesDefaults(t *testing.T) {
	db := newTestDB(t)
	donor := seedUser(t, db, "giver", RoleDonor)
	disaster := seedDisaster(t, db, "Flood", DisasterActive, "2024-01-01")
	amount := 25.5

	id, err := NewDonations(db).Create(NewDonation{DonorID: &donor, DisasterID: &disaster, Type: DonationMonetary, Amount: &amount})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	d, err := NewDonations(db).GetByID(id)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if d.Currency != DefaultCurrency || d.Status != DonationPending {
		t.Fatalf("expected USD/pending defaults, got %s/%s", d.Currency, d.Status)
	}
	if d.DonorName != "User giver" || d.DisasterName != "Flood" {
		t.Fatalf("expected display names, got %q / %q", d.DonorName, d.DisasterName)
	}
	if d.Amount == nil || *d.Amount != amount {
		t.Fatalf("expected amount %v, got %v", amount, d.Amount)
	}
	if d.MaterialQuantity != nil {
		t.Fatal("expected no material quantity on a monetary donation")
	}
}

func TestDonations_Anonymous(t *testing.T) {
	db := newTestDB(t)
	qty := int64(40)

	id, err := NewDonations(db).Create(NewDonation{
		Type:                DonationMaterial,
		MaterialDescription: "Blankets",
		MaterialQuantity:    &qty,
		MaterialUnit:        "pcs",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	d, err := NewDonations(db).GetByID(id)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if d.DonorID != nil || d.DonorName != "" || d.DisasterID != nil {
		t.Fatalf("expected anonymous unscoped donation, got %+v", d)
	}
	if d.Amount != nil || d.MaterialQuantity == nil || *d.MaterialQuantity != 40 {
		t.Fatalf("unexpected material fields %+v", d)
	}
}

func TestDonations_GetByIDNotFound(t *testing.T) {
	db := newTestDB(t)

	if _, err := NewDonations(db).GetByID(3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDonations_ListOrderingAndFilters(t *testing.T) {
	db := newTestDB(t)
	donations := NewDonations(db)
	donor := seedUser(t, db, "giver", RoleDonor)
	amount := 10.0

	var ids []int64
	for i := 0; i < 3; i++ {
		in := NewDonation{Type: DonationMonetary, Amount: &amount}
		if i == 1 {
			in.DonorID = &donor
		}
		id, err := donations.Create(in)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range ids {
		if _, err := db.Execute(`UPDATE donations SET donation_date = ? WHERE donation_id = ?`, base.AddDate(0, 0, i), id); err != nil {
			t.Fatal(err)
		}
	}

	all, err := donations.List(nil)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Fatalf("expected donation_date descending, got %+v", all)
	}

	mine, err := donations.List(Filters{"donor_id": strconv.FormatInt(donor, 10)})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != ids[1] {
		t.Fatalf("expected only the donor's donation, got %+v", mine)
	}

	unknown, err := donations.List(Filters{"amount": "10"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(unknown) != 3 {
		t.Fatalf("unknown filter key changed the result: %d", len(unknown))
	}
}

func TestDonations_UpdateStatusAndDelete(t *testing.T) {
	db := newTestDB(t)
	donations := NewDonations(db)
	amount := 5.0
	id, err := donations.Create(NewDonation{Type: DonationMonetary, Amount: &amount})
	if err != nil {
		t.Fatal(err)
	}

	if err := donations.Update(id, Fields{"amount": 500.0}); !errors.Is(err, ErrNothingToUpdate) {
		t.Fatalf("expected ErrNothingToUpdate, got %v", err)
	}
	if err := donations.UpdateStatus(id, DonationCompleted); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	d, err := donations.GetByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != DonationCompleted || *d.Amount != 5 {
		t.Fatalf("expected status change only, got %+v", d)
	}

	if err := donations.Delete(id); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := donations.GetByID(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDonations_StatisticsScenario(t *testing.T) {
	db := newTestDB(t)
	donations := NewDonations(db)
	completed, pending := 100.0, 50.0

	if _, err := donations.Create(NewDonation{Type: DonationMonetary, Amount: &completed, Status: DonationCompleted}); err != nil {
		t.Fatal(err)
	}
	if _, err := donations.Create(NewDonation{Type: DonationMonetary, Amount: &pending}); err != nil {
		t.Fatal(err)
	}

	stats, err := donations.Statistics(nil)
	if err != nil {
		t.Fatalf("Statistics returned error: %v", err)
	}
	if stats.TotalDonations != 2 || stats.TotalAmount != 100 {
		t.Fatalf("expected 2 donations totalling 100, got %+v", stats)
	}
	if stats.MonetaryCount != 2 || stats.MaterialCount != 0 {
		t.Fatalf("unexpected kind counts %+v", stats)
	}
}

func TestDonations_StatisticsScopedToDisaster(t *testing.T) {
	db := newTestDB(t)
	donations := NewDonations(db)
	flood := seedDisaster(t, db, "Flood", DisasterActive, "2024-01-01")
	fire := seedDisaster(t, db, "Fire", DisasterActive, "2024-02-01")
	amount := 30.0
	qty := int64(2)

	for _, in := range []NewDonation{
		{DisasterID: &flood, Type: DonationMonetary, Amount: &amount, Status: DonationCompleted},
		{DisasterID: &flood, Type: DonationMaterial, MaterialDescription: "Tents", MaterialQuantity: &qty},
		{DisasterID: &fire, Type: DonationMonetary, Amount: &amount, Status: DonationCompleted},
	} {
		if _, err := donations.Create(in); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := donations.Statistics(&flood)
	if err != nil {
		t.Fatalf("Statistics returned error: %v", err)
	}
	if stats.TotalDonations != 2 || stats.MonetaryCount != 1 || stats.MaterialCount != 1 || stats.TotalAmount != 30 {
		t.Fatalf("unexpected scoped statistics %+v", stats)
	}

	empty, err := donations.Statistics(new(int64))
	if err != nil {
		t.Fatalf("Statistics returned error: %v", err)
	}
	if *empty != (DonationStats{}) {
		t.Fatalf("expected zero statistics, got %+v", empty)
	}
}
