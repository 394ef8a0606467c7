package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog/log"

	"github.com/reliefops/reliefhub/internal/database"
)

var (
	// ErrInvalidCredentials covers every login failure: unknown identifier, inactive account or wrong password
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	// ErrRegistrationFailed is returned when the account row could not be written
	ErrRegistrationFailed = errors.New("registration failed")
)

// Session record keys
const (
	keyUserID   = "user_id"
	keyUsername = "username"
	keyFullName = "full_name"
	keyRole     = "role"
	keyLoggedIn = "logged_in"
)

// Accounts is the slice of the user repository the auth service needs
type Accounts interface {
	UsernameExists(username string) (bool, error)
	EmailExists(email string) (bool, error)
	Create(in database.NewUser) (int64, error)
	FindCredential(identifier string) (*database.Credential, error)
	TouchLastLogin(id int64) error
	ChangePassword(id int64, passwordHash string) error
}

// Session is the authenticated principal held in the session record
type Session struct {
	UserID   int64         `json:"user_id"`
	Username string        `json:"username"`
	FullName string        `json:"full_name"`
	Role     database.Role `json:"role"`
	LoggedIn bool          `json:"logged_in"`
}

// Service handles registration, login and the session record
type Service struct {
	accounts Accounts
	sessions *scs.SessionManager
	cost     int
}

// NewService creates a new auth service
func NewService(accounts Accounts, sessions *scs.SessionManager, cost int) *Service {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &Service{accounts: accounts, sessions: sessions, cost: cost}
}

// Register validates and creates an account, returning its id.
// Role defaults to donor.
func (s *Service) Register(in RegisterInput) (int64, error) {
	in.normalize()
	if errs := in.validate(); errs != nil {
		return 0, errs
	}

	taken, err := s.accounts.UsernameExists(in.Username)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrUsernameTaken
	}

	taken, err = s.accounts.EmailExists(in.Email)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrEmailTaken
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return 0, err
	}

	role := in.Role
	if role == "" {
		role = database.RoleDonor
	}

	id, err := s.accounts.Create(database.NewUser{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Role:         role,
	})
	if err != nil {
		return 0, ErrRegistrationFailed
	}

	log.Info().Int64("user_id", id).Str("username", in.Username).Str("role", string(role)).Msg("User registered")
	return id, nil
}

// Login verifies credentials for an active account, identified by username or email,
// and establishes the session record under a fresh token
func (s *Service) Login(ctx context.Context, identifier, password string) (*database.User, error) {
	cred, err := s.accounts.FindCredential(identifier)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			CheckPassword(password, dummyHash())
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(password, cred.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if err := s.accounts.TouchLastLogin(cred.ID); err != nil {
		log.Warn().Err(err).Int64("user_id", cred.ID).Msg("Failed to record last login")
	}

	if err := s.sessions.RenewToken(ctx); err != nil {
		return nil, fmt.Errorf("failed to renew session token: %w", err)
	}
	s.sessions.Put(ctx, keyUserID, cred.ID)
	s.sessions.Put(ctx, keyUsername, cred.Username)
	s.sessions.Put(ctx, keyFullName, cred.FullName)
	s.sessions.Put(ctx, keyRole, string(cred.Role))
	s.sessions.Put(ctx, keyLoggedIn, true)

	log.Info().Int64("user_id", cred.ID).Str("username", cred.Username).Msg("User logged in")

	user := cred.User
	return &user, nil
}

// ChangePassword replaces the signed-in user's password after verifying the current one
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	principal := s.Current(ctx)
	if err := RequireLogin(principal); err != nil {
		return err
	}
	if msg := passwordProblem(next); msg != "" {
		return ValidationErrors{"new_password": msg}
	}

	cred, err := s.accounts.FindCredential(principal.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if cred.ID != principal.UserID || !CheckPassword(current, cred.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(next, s.cost)
	if err != nil {
		return err
	}
	if err := s.accounts.ChangePassword(cred.ID, hash); err != nil {
		return err
	}

	log.Info().Int64("user_id", cred.ID).Msg("Password changed")
	return nil
}

// Logout destroys the session record. Calling it again has no further effect.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.Destroy(ctx); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// Current returns the principal stored in the session record
func (s *Service) Current(ctx context.Context) Session {
	return Session{
		UserID:   s.sessions.GetInt64(ctx, keyUserID),
		Username: s.sessions.GetString(ctx, keyUsername),
		FullName: s.sessions.GetString(ctx, keyFullName),
		Role:     database.Role(s.sessions.GetString(ctx, keyRole)),
		LoggedIn: s.sessions.GetBool(ctx, keyLoggedIn),
	}
}
