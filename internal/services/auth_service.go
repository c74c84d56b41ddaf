package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"beertracker/internal/apperrors"
	"beertracker/internal/models"
	"beertracker/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and session resolution.
type AuthService struct {
	ledger repositories.Ledger
}

// NewAuthService creates a new AuthService.
func NewAuthService(ledger repositories.Ledger) *AuthService {
	return &AuthService{
		ledger: ledger,
	}
}

// Register creates a user from an invite code, consumes the invite and opens
// a session. The invite's admin grant propagates to the new user; the user
// creation and invite consumption commit as one unit in the ledger.
// Returns the created user and the session token.
func (s *AuthService) Register(username, displayName, password, inviteCode string) (*models.User, string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	// Cheap validity check up front so a spent invite does not cost a
	// bcrypt round. The ledger re-checks under its transaction.
	invite, err := s.ledger.GetInvite(inviteCode)
	if err != nil {
		return nil, "", err
	}
	if invite.UsedBy != nil {
		return nil, "", fmt.Errorf("invite %q: %w", inviteCode, apperrors.ErrAlreadyUsed)
	}

	if existing, err := s.ledger.GetUserByUsername(username); err == nil && existing != nil {
		return nil, "", fmt.Errorf("username %q already taken: %w", username, apperrors.ErrConflict)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:    username,
		DisplayName: displayName,
		Password:    string(hashedPassword),
	}
	if err := s.ledger.RegisterWithInvite(user, inviteCode); err != nil {
		return nil, "", err
	}

	token, err := s.openSession(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates a user and opens a new session. Credential failures
// collapse into a single ErrUnauthenticated so the response does not reveal
// whether the username exists.
func (s *AuthService) Login(username, password string) (*models.User, string, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.ledger.GetUserByUsername(username)
	if err != nil {
		return nil, "", fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthenticated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthenticated)
	}

	token, err := s.openSession(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout revokes a session. Revoking an unknown token is not an error.
func (s *AuthService) Logout(token string) error {
	return s.ledger.DeleteSession(token)
}

// ResolveSession maps a session token to its user. Any miss in the chain
// (unknown token, deleted user) is ErrUnauthenticated.
func (s *AuthService) ResolveSession(token string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	session, err := s.ledger.GetSession(token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("invalid session: %w", apperrors.ErrUnauthenticated)
		}
		return nil, err
	}
	user, err := s.ledger.GetUserByID(session.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("session user gone: %w", apperrors.ErrUnauthenticated)
		}
		return nil, err
	}
	return user, nil
}

// openSession issues a fresh token and stores the session.
func (s *AuthService) openSession(userID string) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	session := &models.Session{
		Token:  token,
		UserID: userID,
	}
	if err := s.ledger.CreateSession(session); err != nil {
		return "", err
	}
	return token, nil
}

// newSessionToken returns 256 bits of crypto/rand as base64url. The token
// space is large enough that collisions need no retry handling.
func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
