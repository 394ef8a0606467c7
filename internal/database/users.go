package database

import (
	"database/sql"
	"errors"
	"time"
)

// Role is a user's access level
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleStaff     Role = "staff"
	RoleVolunteer Role = "volunteer"
	RoleDonor     Role = "donor"
)

// Roles lists every role in privilege order
var Roles = []Role{RoleAdmin, RoleStaff, RoleVolunteer, RoleDonor}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleVolunteer, RoleDonor:
		return true
	}
	return false
}

const (
	UserActive   = "active"
	UserInactive = "inactive"
)

// User is the public account record. It never carries the password hash.
type User struct {
	ID        int64      `json:"user_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Phone     string     `json:"phone,omitempty"`
	Role      Role       `json:"role"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Credential is the stored account record including the password hash.
// Only the auth package should hold one.
type Credential struct {
	User
	PasswordHash string `json:"-"`
}

// NewUser is the input for Users.Create
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Role         Role
	Status       string
}

// UserStats summarises accounts
type UserStats struct {
	TotalUsers  int64          `json:"total_users"`
	ActiveUsers int64          `json:"active_users"`
	ByRole      map[Role]int64 `json:"by_role"`
}

var userFilters = []filterKey{
	{name: "role", column: "role"},
	{name: "status", column: "status"},
}

const userColumns = `user_id, username, email, full_name, phone, role, status, created_at, last_login`

// Users is the account repository
type Users struct {
	db *DB
}

// NewUsers returns a repository bound to db
func NewUsers(db *DB) *Users {
	return &Users{db: db}
}

func scanUser(s rowScanner, u *User, extra ...any) error {
	var phone sql.NullString
	var lastLogin sql.NullTime
	dest := []any{&u.ID, &u.Username, &u.Email, &u.FullName, &phone, &u.Role, &u.Status, &u.CreatedAt, &lastLogin}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	u.Phone = nullStringValue(phone)
	u.LastLogin = nullTimeToPtr(lastLogin)
	return nil
}

// Create inserts an account and returns its id. Role defaults to donor and status to active.
func (r *Users) Create(in NewUser) (int64, error) {
	if in.Role == "" {
		in.Role = RoleDonor
	}
	if in.Status == "" {
		in.Status = UserActive
	}

	id, err := r.db.Insert(`
		INSERT INTO users (username, email, password_hash, full_name, phone, role, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, in.Username, in.Email, in.PasswordHash, in.FullName, nullString(in.Phone), string(in.Role), in.Status, time.Now().UTC())
	if err != nil {
		return 0, fail("create user", err)
	}
	return id, nil
}

// GetByID retrieves an account by id
func (r *Users) GetByID(id int64) (*User, error) {
	u := &User{}
	err := scanUser(r.db.queryRow(`SELECT `+userColumns+` FROM users WHERE user_id = ?`, id), u)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fail("get user", err)
	}
	return u, nil
}

// List returns accounts matching the role and status filters, newest first
func (r *Users) List(filters Filters) ([]User, error) {
	p := where().filter(filters, userFilters)
	rows, err := r.db.query(`SELECT `+userColumns+` FROM users `+p.String()+` ORDER BY created_at DESC`, p.args...)
	if err != nil {
		return nil, fail("list users", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, fail("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("list users", err)
	}
	return users, nil
}

// Update assigns the allowed profile fields present in fields
func (r *Users) Update(id int64, fields Fields) error {
	set, args, err := mutableFields[EntityUser].assignments(fields)
	if err != nil {
		return err
	}
	if _, err := r.db.exec(`UPDATE users SET `+set+` WHERE user_id = ?`, append(args, id)...); err != nil {
		return fail("update user", err)
	}
	return nil
}

// Delete removes an account
func (r *Users) Delete(id int64) error {
	if _, err := r.db.exec(`DELETE FROM users WHERE user_id = ?`, id); err != nil {
		return fail("delete user", err)
	}
	return nil
}

// UsernameExists reports whether any account uses username
func (r *Users) UsernameExists(username string) (bool, error) {
	return r.exists("username", username)
}

// EmailExists reports whether any account uses email
func (r *Users) EmailExists(email string) (bool, error) {
	return r.exists("email", email)
}

func (r *Users) exists(column, value string) (bool, error) {
	var count int64
	if err := r.db.queryRow(`SELECT COUNT(*) FROM users WHERE `+column+` = ?`, value).Scan(&count); err != nil {
		return false, fail("check "+column, err)
	}
	return count > 0, nil
}

// FindCredential looks up an active account whose username or email equals identifier
func (r *Users) FindCredential(identifier string) (*Credential, error) {
	c := &Credential{}
	err := scanUser(r.db.queryRow(`
		SELECT `+userColumns+`, password_hash
		FROM users
		WHERE (username = ? OR email = ?) AND status = ?
	`, identifier, identifier, UserActive), &c.User, &c.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fail("find credential", err)
	}
	return c, nil
}

// ChangePassword replaces an account's password hash
func (r *Users) ChangePassword(id int64, passwordHash string) error {
	if _, err := r.db.exec(`UPDATE users SET password_hash = ? WHERE user_id = ?`, passwordHash, id); err != nil {
		return fail("change password", err)
	}
	return nil
}

// TouchLastLogin stamps the account's last login time
func (r *Users) TouchLastLogin(id int64) error {
	if _, err := r.db.exec(`UPDATE users SET last_login = ? WHERE user_id = ?`, time.Now().UTC(), id); err != nil {
		return fail("update last login", err)
	}
	return nil
}

// Statistics counts accounts in total, active ones and per role
func (r *Users) Statistics() (*UserStats, error) {
	stats := &UserStats{ByRole: make(map[Role]int64, len(Roles))}
	var admins, staff, volunteers, donors int64
	err := r.db.queryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0)
		FROM users
	`, UserActive, string(RoleAdmin), string(RoleStaff), string(RoleVolunteer), string(RoleDonor)).Scan(
		&stats.TotalUsers, &stats.ActiveUsers, &admins, &staff, &volunteers, &donors)
	if err != nil {
		return nil, fail("user statistics", err)
	}
	stats.ByRole[RoleAdmin] = admins
	stats.ByRole[RoleStaff] = staff
	stats.ByRole[RoleVolunteer] = volunteers
	stats.ByRole[RoleDonor] = donors
	return stats, nil
}
