package database

import (
	"database/sql"
	"errors"
	"time"
)

const (
	DisasterActive     = "active"
	DisasterMonitoring = "monitoring"
	DisasterResolved   = "resolved"

	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Severities lists the accepted severity levels in ascending order
var Severities = []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Disaster is a disaster event with its creator's display name and camp count
type Disaster struct {
	ID                 int64      `json:"disaster_id"`
	Name               string     `json:"disaster_name"`
	Type               string     `json:"disaster_type"`
	Location           string     `json:"location"`
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	Severity           string     `json:"severity"`
	Description        string     `json:"description,omitempty"`
	AffectedPopulation int64      `json:"affected_population"`
	Casualties         int64      `json:"casualties"`
	Status             string     `json:"status"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	CreatedBy          *int64     `json:"created_by,omitempty"`
	CreatedByName      string     `json:"created_by_name,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	CampCount          int64      `json:"camp_count"`
}

// NewDisaster is the input for Disasters.Create
type NewDisaster struct {
	Name               string     `json:"disaster_name"`
	Type               string     `json:"disaster_type"`
	Location           string     `json:"location"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	Severity           string     `json:"severity"`
	Description        string     `json:"description"`
	AffectedPopulation int64      `json:"affected_population"`
	Casualties         int64      `json:"casualties"`
	Status             string     `json:"status"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	CreatedBy          *int64     `json:"-"`
}

// DisasterStats aggregates the camps and donations attached to one disaster
type DisasterStats struct {
	TotalCamps     int64   `json:"total_camps"`
	TotalOccupancy int64   `json:"total_occupancy"`
	TotalCapacity  int64   `json:"total_capacity"`
	TotalDonations int64   `json:"total_donations"`
	TotalAmount    float64 `json:"total_amount"`
}

var disasterFilters = []filterKey{
	{name: "status", column: "d.status"},
	{name: "type", column: "d.disaster_type"},
	{name: "severity", column: "d.severity"},
}

const disasterSelect = `
	SELECT d.disaster_id, d.disaster_name, d.disaster_type, d.location, d.latitude, d.longitude,
		d.severity, d.description, d.affected_population, d.casualties, d.status,
		d.start_date, d.end_date, d.created_by, u.full_name, d.created_at,
		(SELECT COUNT(*) FROM relief_camps c WHERE c.disaster_id = d.disaster_id)
	FROM disasters d
	LEFT JOIN users u ON d.created_by = u.user_id
`

// Disasters is the disaster event repository
type Disasters struct {
	db *DB
}

// NewDisasters returns a repository bound to db
func NewDisasters(db *DB) *Disasters {
	return &Disasters{db: db}
}

func scanDisaster(s rowScanner) (*Disaster, error) {
	d := &Disaster{}
	var lat, lng sql.NullFloat64
	var description, creatorName sql.NullString
	var endDate sql.NullTime
	var createdBy sql.NullInt64
	err := s.Scan(&d.ID, &d.Name, &d.Type, &d.Location, &lat, &lng,
		&d.Severity, &description, &d.AffectedPopulation, &d.Casualties, &d.Status,
		&d.StartDate, &endDate, &createdBy, &creatorName, &d.CreatedAt, &d.CampCount)
	if err != nil {
		return nil, err
	}
	d.Latitude = nullFloat64ToPtr(lat)
	d.Longitude = nullFloat64ToPtr(lng)
	d.Description = nullStringValue(description)
	d.EndDate = nullTimeToPtr(endDate)
	d.CreatedBy = nullInt64ToPtr(createdBy)
	d.CreatedByName = nullStringValue(creatorName)
	return d, nil
}

// Create inserts a disaster and returns its id. Status defaults to active.
func (r *Disasters) Create(in NewDisaster) (int64, error) {
	if in.Status == "" {
		in.Status = DisasterActive
	}

	id, err := r.db.Insert(`
		INSERT INTO disasters (disaster_name, disaster_type, location, latitude, longitude, severity,
			description, affected_population, casualties, status, start_date, end_date, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.Name, in.Type, in.Location, ptrValue(in.Latitude), ptrValue(in.Longitude), in.Severity,
		nullString(in.Description), in.AffectedPopulation, in.Casualties, in.Status,
		in.StartDate, ptrValue(in.EndDate), ptrValue(in.CreatedBy), time.Now().UTC())
	if err != nil {
		return 0, fail("create disaster", err)
	}
	return id, nil
}

// GetByID retrieves a disaster by id
func (r *Disasters) GetByID(id int64) (*Disaster, error) {
	d, err := scanDisaster(r.db.queryRow(disasterSelect+` WHERE d.disaster_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fail("get disaster", err)
	}
	return d, nil
}

// List returns disasters matching the status, type and severity filters, latest start first
func (r *Disasters) List(filters Filters) ([]Disaster, error) {
	return r.list(where().filter(filters, disasterFilters))
}

// ListActive returns the disasters that are still active
func (r *Disasters) ListActive() ([]Disaster, error) {
	return r.list(where().eq("d.status", DisasterActive))
}

func (r *Disasters) list(p *predicate) ([]Disaster, error) {
	rows, err := r.db.query(disasterSelect+p.String()+` ORDER BY d.start_date DESC, d.disaster_id DESC`, p.args...)
	if err != nil {
		return nil, fail("list disasters", err)
	}
	defer rows.Close()

	disasters := []Disaster{}
	for rows.Next() {
		d, err := scanDisaster(rows)
		if err != nil {
			return nil, fail("scan disaster", err)
		}
		disasters = append(disasters, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("list disasters", err)
	}
	return disasters, nil
}

// Update assigns the allowed fields present in fields
func (r *Disasters) Update(id int64, fields Fields) error {
	set, args, err := mutableFields[EntityDisaster].assignments(fields)
	if err != nil {
		return err
	}
	if _, err := r.db.exec(`UPDATE disasters SET `+set+` WHERE disaster_id = ?`, append(args, id)...); err != nil {
		return fail("update disaster", err)
	}
	return nil
}

// Delete removes a disaster. Camps and donations referencing it are left to the store's foreign keys.
func (r *Disasters) Delete(id int64) error {
	if _, err := r.db.exec(`DELETE FROM disasters WHERE disaster_id = ?`, id); err != nil {
		return fail("delete disaster", err)
	}
	return nil
}

// Statistics aggregates camp occupancy and completed donations for a disaster
func (r *Disasters) Statistics(id int64) (*DisasterStats, error) {
	stats := &DisasterStats{}
	err := r.db.queryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(current_occupancy), 0),
			COALESCE(SUM(capacity), 0),
			(SELECT COUNT(*) FROM donations WHERE disaster_id = ? AND status = ?),
			(SELECT COALESCE(SUM(amount), 0) FROM donations WHERE disaster_id = ? AND status = ? AND donation_type = ?)
		FROM relief_camps
		WHERE disaster_id = ?
	`, id, DonationCompleted, id, DonationCompleted, DonationMonetary, id).Scan(
		&stats.TotalCamps, &stats.TotalOccupancy, &stats.TotalCapacity, &stats.TotalDonations, &stats.TotalAmount)
	if err != nil {
		return nil, fail("disaster statistics", err)
	}
	return stats, nil
}
