package database

import (
	"database/sql"
	"errors"
	"time"
)

const (
	CampOperational = "operational"
	CampFull        = "full"
	CampClosed      = "closed"
)

// Camp is a relief camp with its disaster and manager display names
type Camp struct {
	ID               int64      `json:"camp_id"`
	DisasterID       int64      `json:"disaster_id"`
	DisasterName     string     `json:"disaster_name,omitempty"`
	Name             string     `json:"camp_name"`
	Location         string     `json:"location"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
	Capacity         int64      `json:"capacity"`
	CurrentOccupancy int64      `json:"current_occupancy"`
	Facilities       string     `json:"facilities,omitempty"`
	Status           string     `json:"status"`
	ManagerID        *int64     `json:"manager_id,omitempty"`
	ManagerName      string     `json:"manager_name,omitempty"`
	EstablishedDate  time.Time  `json:"established_date"`
	ClosedDate       *time.Time `json:"closed_date,omitempty"`
	ResourceCount    int64      `json:"resource_count"`
}

// NewCamp is the input for Camps.Create
type NewCamp struct {
	DisasterID       int64      `json:"disaster_id"`
	Name             string     `json:"camp_name"`
	Location         string     `json:"location"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
	Capacity         int64      `json:"capacity"`
	CurrentOccupancy int64      `json:"current_occupancy"`
	Facilities       string     `json:"facilities"`
	Status           string     `json:"status"`
	ManagerID        *int64     `json:"manager_id"`
	EstablishedDate  time.Time  `json:"established_date"`
	ClosedDate       *time.Time `json:"closed_date"`
}

// Resource is one inventory line held at a camp
type Resource struct {
	ID        int64     `json:"resource_id"`
	CampID    int64     `json:"camp_id"`
	Type      string    `json:"resource_type"`
	Name      string    `json:"resource_name"`
	Quantity  int64     `json:"quantity"`
	Unit      string    `json:"unit,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CampStats summarises camps, optionally for one disaster
type CampStats struct {
	TotalCamps       int64 `json:"total_camps"`
	OperationalCamps int64 `json:"operational_camps"`
	TotalCapacity    int64 `json:"total_capacity"`
	TotalOccupancy   int64 `json:"total_occupancy"`
}

var campFilters = []filterKey{
	{name: "disaster_id", column: "c.disaster_id"},
	{name: "status", column: "c.status"},
}

const campSelect = `
	SELECT c.camp_id, c.disaster_id, d.disaster_name, c.camp_name, c.location, c.latitude, c.longitude,
		c.capacity, c.current_occupancy, c.facilities, c.status, c.manager_id, u.full_name,
		c.established_date, c.closed_date,
		(SELECT COUNT(*) FROM resources r WHERE r.camp_id = c.camp_id)
	FROM relief_camps c
	LEFT JOIN disasters d ON c.disaster_id = d.disaster_id
	LEFT JOIN users u ON c.manager_id = u.user_id
`

// Camps is the relief camp repository
type Camps struct {
	db *DB
}

// NewCamps returns a repository bound to db
func NewCamps(db *DB) *Camps {
	return &Camps{db: db}
}

func scanCamp(s rowScanner) (*Camp, error) {
	c := &Camp{}
	var lat, lng sql.NullFloat64
	var disasterName, facilities, managerName sql.NullString
	var managerID sql.NullInt64
	var closed sql.NullTime
	err := s.Scan(&c.ID, &c.DisasterID, &disasterName, &c.Name, &c.Location, &lat, &lng,
		&c.Capacity, &c.CurrentOccupancy, &facilities, &c.Status, &managerID, &managerName,
		&c.EstablishedDate, &closed, &c.ResourceCount)
	if err != nil {
		return nil, err
	}
	c.DisasterName = nullStringValue(disasterName)
	c.Latitude = nullFloat64ToPtr(lat)
	c.Longitude = nullFloat64ToPtr(lng)
	c.Facilities = nullStringValue(facilities)
	c.ManagerID = nullInt64ToPtr(managerID)
	c.ManagerName = nullStringValue(managerName)
	c.ClosedDate = nullTimeToPtr(closed)
	return c, nil
}

// Create inserts a camp and returns its id. Status defaults to operational and occupancy to zero.
// Occupancy is not checked against capacity.
func (r *Camps) Create(in NewCamp) (int64, error) {
	if in.Status == "" {
		in.Status = CampOperational
	}
	if in.EstablishedDate.IsZero() {
		in.EstablishedDate = time.Now().UTC()
	}

	id, err := r.db.Insert(`
		INSERT INTO relief_camps (disaster_id, camp_name, location, latitude, longitude, capacity,
			current_occupancy, facilities, status, manager_id, established_date, closed_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.DisasterID, in.Name, in.Location, ptrValue(in.Latitude), ptrValue(in.Longitude), in.Capacity,
		in.CurrentOccupancy, nullString(in.Facilities), in.Status, ptrValue(in.ManagerID),
		in.EstablishedDate, ptrValue(in.ClosedDate))
	if err != nil {
		return 0, fail("create camp", err)
	}
	return id, nil
}

// GetByID retrieves a camp by id
func (r *Camps) GetByID(id int64) (*Camp, error) {
	c, err := scanCamp(r.db.queryRow(campSelect+` WHERE c.camp_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fail("get camp", err)
	}
	return c, nil
}

// List returns camps matching the disaster_id and status filters, most recently established first
func (r *Camps) List(filters Filters) ([]Camp, error) {
	p := where().filter(filters, campFilters)
	rows, err := r.db.query(campSelect+p.String()+` ORDER BY c.established_date DESC, c.camp_id DESC`, p.args...)
	if err != nil {
		return nil, fail("list camps", err)
	}
	defer rows.Close()

	camps := []Camp{}
	for rows.Next() {
		c, err := scanCamp(rows)
		if err != nil {
			return nil, fail("scan camp", err)
		}
		camps = append(camps, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("list camps", err)
	}
	return camps, nil
}

// Update assigns the allowed fields present in fields
func (r *Camps) Update(id int64, fields Fields) error {
	set, args, err := mutableFields[EntityCamp].assignments(fields)
	if err != nil {
		return err
	}
	if _, err := r.db.exec(`UPDATE relief_camps SET `+set+` WHERE camp_id = ?`, append(args, id)...); err != nil {
		return fail("update camp", err)
	}
	return nil
}

// Delete removes a camp
func (r *Camps) Delete(id int64) error {
	if _, err := r.db.exec(`DELETE FROM relief_camps WHERE camp_id = ?`, id); err != nil {
		return fail("delete camp", err)
	}
	return nil
}

// ListResources returns the inventory of a camp ordered by type and name
func (r *Camps) ListResources(campID int64) ([]Resource, error) {
	rows, err := r.db.query(`
		SELECT resource_id, camp_id, resource_type, resource_name, quantity, unit, updated_at
		FROM resources
		WHERE camp_id = ?
		ORDER BY resource_type, resource_name
	`, campID)
	if err != nil {
		return nil, fail("list resources", err)
	}
	defer rows.Close()

	resources := []Resource{}
	for rows.Next() {
		var res Resource
		var unit sql.NullString
		if err := rows.Scan(&res.ID, &res.CampID, &res.Type, &res.Name, &res.Quantity, &unit, &res.UpdatedAt); err != nil {
			return nil, fail("scan resource", err)
		}
		res.Unit = nullStringValue(unit)
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("list resources", err)
	}
	return resources, nil
}

// Statistics summarises camps, scoped to one disaster when disasterID is set
func (r *Camps) Statistics(disasterID *int64) (*CampStats, error) {
	p := where()
	if disasterID != nil {
		p.eq("disaster_id", *disasterID)
	}

	stats := &CampStats{}
	args := append([]any{CampOperational}, p.args...)
	err := r.db.queryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(capacity), 0),
			COALESCE(SUM(current_occupancy), 0)
		FROM relief_camps
		`+p.String(), args...).Scan(&stats.TotalCamps, &stats.OperationalCamps, &stats.TotalCapacity, &stats.TotalOccupancy)
	if err != nil {
		return nil, fail("camp statistics", err)
	}
	return stats, nil
}
