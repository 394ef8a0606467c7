package database

import (
	"database/sql"
	"errors"
	"time"
)

const (
	DonationMonetary = "monetary"
	DonationMaterial = "material"

	DonationPending   = "pending"
	DonationCompleted = "completed"
	DonationFailed    = "failed"
	DonationCancelled = "cancelled"

	DefaultCurrency = "USD"
)

// Donation is a monetary or material contribution with donor and disaster display names.
// Amount is meaningful for monetary donations and the material fields for material ones.
type Donation struct {
	ID                  int64     `json:"donation_id"`
	DonorID             *int64    `json:"donor_id,omitempty"`
	DonorName           string    `json:"donor_name,omitempty"`
	DisasterID          *int64    `json:"disaster_id,omitempty"`
	DisasterName        string    `json:"disaster_name,omitempty"`
	Type                string    `json:"donation_type"`
	Amount              *float64  `json:"amount,omitempty"`
	Currency            string    `json:"currency"`
	MaterialDescription string    `json:"material_description,omitempty"`
	MaterialQuantity    *int64    `json:"material_quantity,omitempty"`
	MaterialUnit        string    `json:"material_unit,omitempty"`
	PaymentMethod       string    `json:"payment_method,omitempty"`
	TransactionID       string    `json:"transaction_id,omitempty"`
	Status              string    `json:"status"`
	Notes               string    `json:"notes,omitempty"`
	DonationDate        time.Time `json:"donation_date"`
}

// NewDonation is the input for Donations.Create. A nil DonorID records an anonymous donation.
type NewDonation struct {
	DonorID             *int64   `json:"-"`
	DisasterID          *int64   `json:"disaster_id"`
	Type                string   `json:"donation_type"`
	Amount              *float64 `json:"amount"`
	Currency            string   `json:"currency"`
	MaterialDescription string   `json:"material_description"`
	MaterialQuantity    *int64   `json:"material_quantity"`
	MaterialUnit        string   `json:"material_unit"`
	PaymentMethod       string   `json:"payment_method"`
	TransactionID       string   `json:"transaction_id"`
	Status              string   `json:"status"`
	Notes               string   `json:"notes"`
}

// DonationStats summarises donations, optionally for one disaster
type DonationStats struct {
	TotalDonations int64   `json:"total_donations"`
	MonetaryCount  int64   `json:"monetary_count"`
	MaterialCount  int64   `json:"material_count"`
	TotalAmount    float64 `json:"total_amount"`
}

var donationFilters = []filterKey{
	{name: "donor_id", column: "d.donor_id"},
	{name: "disaster_id", column: "d.disaster_id"},
	{name: "donation_type", column: "d.donation_type"},
	{name: "status", column: "d.status"},
}

const donationSelect = `
	SELECT d.donation_id, d.donor_id, u.full_name, d.disaster_id, dis.disaster_name, d.donation_type,
		d.amount, d.currency, d.material_description, d.material_quantity, d.material_unit,
		d.payment_method, d.transaction_id, d.status, d.notes, d.donation_date
	FROM donations d
	LEFT JOIN users u ON d.donor_id = u.user_id
	LEFT JOIN disasters dis ON d.disaster_id = dis.disaster_id
`

// Donations is the donation repository
type Donations struct {
	db *DB
}

// NewDonations returns a repository bound to db
func NewDonations(db *DB) *Donations {
	return &Donations{db: db}
}

func scanDonation(s rowScanner) (*Donation, error) {
	d := &Donation{}
	var donorID, disasterID, quantity sql.NullInt64
	var donorName, disasterName, description, unit, method, txID, notes sql.NullString
	var amount sql.NullFloat64
	err := s.Scan(&d.ID, &donorID, &donorName, &disasterID, &disasterName, &d.Type,
		&amount, &d.Currency, &description, &quantity, &unit,
		&method, &txID, &d.Status, &notes, &d.DonationDate)
	if err != nil {
		return nil, err
	}
	d.DonorID = nullInt64ToPtr(donorID)
	d.DonorName = nullStringValue(donorName)
	d.DisasterID = nullInt64ToPtr(disasterID)
	d.DisasterName = nullStringValue(disasterName)
	d.Amount = nullFloat64ToPtr(amount)
	d.MaterialDescription = nullStringValue(description)
	d.MaterialQuantity = nullInt64ToPtr(quantity)
	d.MaterialUnit = nullStringValue(unit)
	d.PaymentMethod = nullStringValue(method)
	d.TransactionID = nullStringValue(txID)
	d.Notes = nullStringValue(notes)
	return d, nil
}

// Create inserts a donation and returns its id. Currency defaults to USD and status to pending.
func (r *Donations) Create(in NewDonation) (int64, error) {
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if in.Status == "" {
		in.Status = DonationPending
	}

	id, err := r.db.Insert(`
		INSERT INTO donations (donor_id, disaster_id, donation_type, amount, currency, material_description,
			material_quantity, material_unit, payment_method, transaction_id, status, notes, donation_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ptrValue(in.DonorID), ptrValue(in.DisasterID), in.Type, ptrValue(in.Amount), in.Currency,
		nullString(in.MaterialDescription), ptrValue(in.MaterialQuantity), nullString(in.MaterialUnit),
		nullString(in.PaymentMethod), nullString(in.TransactionID), in.Status, nullString(in.Notes),
		time.Now().UTC())
	if err != nil {
		return 0, fail("create donation", err)
	}
	return id, nil
}

// GetByID retrieves a donation by id
func (r *Donations) GetByID(id int64) (*Donation, error) {
	d, err := scanDonation(r.db.queryRow(donationSelect+` WHERE d.donation_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fail("get donation", err)
	}
	return d, nil
}

// List returns donations matching the donor, disaster, type and status filters, newest first
func (r *Donations) List(filters Filters) ([]Donation, error) {
	p := where().filter(filters, donationFilters)
	rows, err := r.db.query(donationSelect+p.String()+` ORDER BY d.donation_date DESC, d.donation_id DESC`, p.args...)
	if err != nil {
		return nil, fail("list donations", err)
	}
	defer rows.Close()

	donations := []Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fail("scan donation", err)
		}
		donations = append(donations, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("list donations", err)
	}
	return donations, nil
}

// Update assigns the allowed fields present in fields
func (r *Donations) Update(id int64, fields Fields) error {
	set, args, err := mutableFields[EntityDonation].assignments(fields)
	if err != nil {
		return err
	}
	if _, err := r.db.exec(`UPDATE donations SET `+set+` WHERE donation_id = ?`, append(args, id)...); err != nil {
		return fail("update donation", err)
	}
	return nil
}

// UpdateStatus moves a donation to a new status
func (r *Donations) UpdateStatus(id int64, status string) error {
	return r.Update(id, Fields{"status": status})
}

// Delete removes a donation
func (r *Donations) Delete(id int64) error {
	if _, err := r.db.exec(`DELETE FROM donations WHERE donation_id = ?`, id); err != nil {
		return fail("delete donation", err)
	}
	return nil
}

// Statistics counts donations by kind and sums completed monetary amounts,
// scoped to one disaster when disasterID is set
func (r *Donations) Statistics(disasterID *int64) (*DonationStats, error) {
	p := where()
	if disasterID != nil {
		p.eq("disaster_id", *disasterID)
	}

	stats := &DonationStats{}
	args := append([]any{DonationMonetary, DonationMaterial, DonationMonetary, DonationCompleted}, p.args...)
	err := r.db.queryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN donation_type = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN donation_type = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN donation_type = ? AND status = ? THEN amount ELSE 0 END), 0)
		FROM donations
		`+p.String(), args...).Scan(&stats.TotalDonations, &stats.MonetaryCount, &stats.MaterialCount, &stats.TotalAmount)
	if err != nil {
		return nil, fail("donation statistics", err)
	}
	return stats, nil
}
