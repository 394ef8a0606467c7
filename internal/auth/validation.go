package auth

import (
	"net/mail"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/reliefops/reliefhub/internal/database"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6

	// MaxPasswordBytes is the longest input bcrypt accepts
	MaxPasswordBytes = 72
)

// ValidationErrors maps a registration field to the problem found with it
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RegisterInput is a registration request
type RegisterInput struct {
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Password string        `json:"password"`
	FullName string        `json:"full_name"`
	Phone    string        `json:"phone"`
	Role     database.Role `json:"role"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
}

func (in RegisterInput) validate() ValidationErrors {
	errs := ValidationErrors{}

	if utf8.RuneCountInString(in.Username) < MinUsernameLength {
		errs["username"] = "Username must be at least 3 characters"
	}
	if !ValidEmail(in.Email) {
		errs["email"] = "Valid email is required"
	}
	if msg := passwordProblem(in.Password); msg != "" {
		errs["password"] = msg
	}
	if in.FullName == "" {
		errs["full_name"] = "Full name is required"
	}
	if in.Role != "" && !in.Role.Valid() {
		errs["role"] = "Invalid role"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// passwordProblem describes why pw cannot be hashed as a password, or returns ""
func passwordProblem(pw string) string {
	switch {
	case utf8.RuneCountInString(pw) < MinPasswordLength:
		return "Password must be at least 6 characters"
	case len(pw) > MaxPasswordBytes:
		return "Password must be at most 72 bytes"
	}
	return ""
}

// ValidEmail accepts a bare address only, not a display-name form
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email, "@")
}
