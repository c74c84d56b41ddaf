package repositories

import (
	"fmt"
	"sync"
	"time"

	"beertracker/internal/apperrors"
	"beertracker/internal/models"

	"github.com/google/uuid"
)

// MockLedger is an in-memory implementation of Ledger. A single mutex
// guards every operation, which makes the multi-entity operations
// trivially atomic; it serves as the test double for services and
// handlers (the production store is GORMLedger).
type MockLedger struct {
	mu       sync.Mutex
	users    map[string]*models.User
	invites  map[string]*models.Invite
	sessions map[string]*models.Session
	drinks   []models.Drink
	order    []string // user ids in creation order
	nextID   uint

	// ResetFailure, when set, makes ResetAllCounts fail without touching
	// any state. Test hook for the all-or-nothing reset property.
	ResetFailure error
}

// NewMockLedger creates a new instance of MockLedger.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		users:    make(map[string]*models.User),
		invites:  make(map[string]*models.Invite),
		sessions: make(map[string]*models.Session),
	}
}

// CreateUser adds a new user to the in-memory store.
func (m *MockLedger) CreateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createUserLocked(user)
}

func (m *MockLedger) createUserLocked(user *models.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return fmt.Errorf("username %q: %w", user.Username, apperrors.ErrConflict)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	cp := *user
	m.users[user.ID] = &cp
	m.order = append(m.order, user.ID)
	return nil
}

// GetUserByID retrieves a user by ID.
func (m *MockLedger) GetUserByID(id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

// GetUserByUsername retrieves a user by username.
func (m *MockLedger) GetUserByUsername(username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, apperrors.ErrNotFound)
}

// AllUsers returns users in creation order.
func (m *MockLedger) AllUsers() ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]models.User, 0, len(m.order))
	for _, id := range m.order {
		users = append(users, *m.users[id])
	}
	return users, nil
}

// CreateInvite adds a new unused invite.
func (m *MockLedger) CreateInvite(invite *models.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invites[invite.Code]; ok {
		return fmt.Errorf("invite code %q: %w", invite.Code, apperrors.ErrConflict)
	}
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now()
	}
	cp := *invite
	m.invites[invite.Code] = &cp
	return nil
}

// GetInvite retrieves an invite by code.
func (m *MockLedger) GetInvite(code string) (*models.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[code]
	if !ok {
		return nil, fmt.Errorf("invite %q: %w", code, apperrors.ErrNotFound)
	}
	cp := *inv
	return &cp, nil
}

// ConsumeInvite performs the nil -> userID compare-and-set under the lock.
func (m *MockLedger) ConsumeInvite(code, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumeInviteLocked(code, userID)
}

func (m *MockLedger) consumeInviteLocked(code, userID string) (bool, error) {
	inv, ok := m.invites[code]
	if !ok {
		return false, fmt.Errorf("invite %q: %w", code, apperrors.ErrNotFound)
	}
	if inv.UsedBy != nil {
		return false, fmt.Errorf("invite %q: %w", code, apperrors.ErrAlreadyUsed)
	}
	uid := userID
	now := time.Now()
	inv.UsedBy = &uid
	inv.UsedAt = &now
	return inv.IsAdmin, nil
}

// RegisterWithInvite creates the user and consumes the invite atomically.
func (m *MockLedger) RegisterWithInvite(user *models.User, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invites[code]
	if !ok {
		return fmt.Errorf("invite %q: %w", code, apperrors.ErrNotFound)
	}
	if inv.UsedBy != nil {
		return fmt.Errorf("invite %q: %w", code, apperrors.ErrAlreadyUsed)
	}

	user.IsAdmin = inv.IsAdmin
	if err := m.createUserLocked(user); err != nil {
		return err
	}
	_, err := m.consumeInviteLocked(code, user.ID)
	return err
}

// CreateSession stores a session.
func (m *MockLedger) CreateSession(session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	cp := *session
	m.sessions[session.Token] = &cp
	return nil
}

// GetSession retrieves a session by token.
func (m *MockLedger) GetSession(token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, fmt.Errorf("session: %w", apperrors.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

// DeleteSession removes a session; unknown tokens are a no-op.
func (m *MockLedger) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// RecordDrink increments the count and appends the event under one lock
// acquisition, so concurrent callers can never lose an update.
func (m *MockLedger) RecordDrink(userID, username, beerType string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return 0, fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}
	u.BeerCount++
	m.nextID++
	m.drinks = append(m.drinks, models.Drink{
		ID:        m.nextID,
		UserID:    userID,
		Username:  username,
		BeerType:  beerType,
		CreatedAt: time.Now(),
	})
	return u.BeerCount, nil
}

// TotalBeers sums every user's count.
func (m *MockLedger) TotalBeers() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, u := range m.users {
		total += u.BeerCount
	}
	return total, nil
}

// RecentDrinks returns the newest limit events, newest first.
func (m *MockLedger) RecentDrinks(limit int) ([]models.Drink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.drinks)
	if limit > n {
		limit = n
	}
	out := make([]models.Drink, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.drinks[i])
	}
	return out, nil
}

// ResetAllCounts zeroes counts and clears events, or fails without
// touching anything when ResetFailure is set.
func (m *MockLedger) ResetAllCounts() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResetFailure != nil {
		return m.ResetFailure
	}
	for _, u := range m.users {
		u.BeerCount = 0
	}
	m.drinks = nil
	return nil
}
