package database

import (
	"errors"
	"slices"
	"testing"
)

func TestPredicate_FilterUsesVocabularyOnly(t *testing.T) {
	p := where().filter(Filters{
		"status":         "active",
		"severity":       "",
		"status; DROP--": "x",
		"unknown":        "ignored",
		"type":           "flood",
	}, disasterFilters)

	want := "WHERE 1=1 AND d.status = ? AND d.disaster_type = ?"
	if p.String() != want {
		t.Fatalf("expected %q, got %q", want, p.String())
	}
	if !slices.Equal(p.args, []any{"active", "flood"}) {
		t.Fatalf("unexpected args %v", p.args)
	}
}

func TestPredicate_Empty(t *testing.T) {
	p := where().filter(nil, userFilters)
	if p.String() != "WHERE 1=1" || len(p.args) != 0 {
		t.Fatalf("expected bare predicate, got %q %v", p.String(), p.args)
	}
}

func TestAssignments(t *testing.T) {
	set, args, err := mutableFields[EntityDonation].assignments(Fields{
		"notes":          "checked",
		"status":         "completed",
		"amount":         999,
		"donation_id":    5,
		"payment_method": nil,
	})
	if err != nil {
		t.Fatalf("assignments returned error: %v", err)
	}
	if set != "status = ?, notes = ?" {
		t.Fatalf("unexpected set clause %q", set)
	}
	if !slices.Equal(args, []any{"completed", "checked"}) {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestAssignments_NothingAllowed(t *testing.T) {
	_, _, err := mutableFields[EntityUser].assignments(Fields{"role": "admin", "password_hash": "x"})
	if !errors.Is(err, ErrNothingToUpdate) {
		t.Fatalf("expected ErrNothingToUpdate, got %v", err)
	}
}

func TestMutableFields_ReturnsCopy(t *testing.T) {
	fields := MutableFields(EntityUser)
	fields[0] = "password_hash"

	if MutableFields(EntityUser)[0] != "full_name" {
		t.Fatal("expected allow-list to be unaffected by caller mutation")
	}
	if slices.Contains(MutableFields(EntityUser), "role") {
		t.Fatal("role must not be updatable through Update")
	}
}
