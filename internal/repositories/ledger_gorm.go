package repositories

import (
	"errors"
	"fmt"
	"time"

	"beertracker/internal/apperrors"
	"beertracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMLedger is a GORM implementation of Ledger. It relies on database
// transactions for the multi-entity invariants (registration, drink
// recording, reset) and on conditional updates for the invite
// compare-and-set. Open the *gorm.DB with TranslateError enabled so
// duplicate keys surface as gorm.ErrDuplicatedKey.
type GORMLedger struct {
	db *gorm.DB
}

// NewGORMLedger creates a new instance of GORMLedger.
func NewGORMLedger(db *gorm.DB) *GORMLedger {
	return &GORMLedger{
		db: db,
	}
}

// CreateUser creates a new user in the database.
func (r *GORMLedger) CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("username %q: %w", user.Username, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their ID from the database.
func (r *GORMLedger) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by their username. Usernames are stored
// lowercased by the auth service, so lookups are effectively case-insensitive.
func (r *GORMLedger) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by username %q: %w", username, err)
	}
	return &user, nil
}

// AllUsers returns every user in creation order, oldest first.
func (r *GORMLedger) AllUsers() ([]models.User, error) {
	var users []models.User
	if err := r.db.Order("created_at ASC, id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateInvite inserts a new invite with UsedBy = nil.
func (r *GORMLedger) CreateInvite(invite *models.Invite) error {
	if err := r.db.Create(invite).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("invite code %q: %w", invite.Code, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// GetInvite retrieves an invite by its code.
func (r *GORMLedger) GetInvite(code string) (*models.Invite, error) {
	var invite models.Invite
	if err := r.db.First(&invite, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invite %q: %w", code, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invite %q: %w", code, err)
	}
	return &invite, nil
}

// ConsumeInvite marks the invite as used by userID and returns its admin
// grant. The UPDATE is guarded by "used_by IS NULL" so a concurrent second
// caller affects zero rows and is told the invite was already used.
func (r *GORMLedger) ConsumeInvite(code, userID string) (bool, error) {
	var admin bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		grant, err := consumeInviteTx(tx, code, userID)
		if err != nil {
			return err
		}
		admin = grant
		return nil
	})
	return admin, err
}

// consumeInviteTx performs the invite compare-and-set inside tx.
func consumeInviteTx(tx *gorm.DB, code, userID string) (bool, error) {
	var invite models.Invite
	if err := tx.First(&invite, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("invite %q: %w", code, apperrors.ErrNotFound)
		}
		return false, fmt.Errorf("failed to get invite %q: %w", code, err)
	}

	now := time.Now()
	res := tx.Model(&models.Invite{}).
		Where("code = ? AND used_by IS NULL", code).
		Updates(map[string]interface{}{"used_by": userID, "used_at": now})
	if res.Error != nil {
		return false, fmt.Errorf("failed to consume invite %q: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, fmt.Errorf("invite %q: %w", code, apperrors.ErrAlreadyUsed)
	}
	return invite.IsAdmin, nil
}

// RegisterWithInvite creates the user and consumes the invite in a single
// transaction. The admin grant is read from the invite before anything is
// mutated; losing the consume race or hitting a duplicate username rolls
// the user creation back, so a half-registered account is never observable.
func (r *GORMLedger) RegisterWithInvite(user *models.User, code string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var invite models.Invite
		if err := tx.First(&invite, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invite %q: %w", code, apperrors.ErrNotFound)
			}
			return fmt.Errorf("failed to get invite %q: %w", code, err)
		}
		if invite.UsedBy != nil {
			return fmt.Errorf("invite %q: %w", code, apperrors.ErrAlreadyUsed)
		}

		user.IsAdmin = invite.IsAdmin
		if user.ID == "" {
			user.ID = uuid.New().String()
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("username %q: %w", user.Username, apperrors.ErrConflict)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		if _, err := consumeInviteTx(tx, code, user.ID); err != nil {
			return err
		}
		return nil
	})
}

// CreateSession stores a new session token.
func (r *GORMLedger) CreateSession(session *models.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by its token.
func (r *GORMLedger) GetSession(token string) (*models.Session, error) {
	var session models.Session
	if err := r.db.First(&session, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session. Deleting an unknown token is a no-op.
func (r *GORMLedger) DeleteSession(token string) error {
	if err := r.db.Delete(&models.Session{}, "token = ?", token).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// RecordDrink increments the user's beer count and appends the drink event
// as one transaction. The increment runs as "beer_count = beer_count + 1"
// in the store, so concurrent submissions serialize without lost updates.
func (r *GORMLedger) RecordDrink(userID, username, beerType string) (int, error) {
	var newCount int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("beer_count", gorm.Expr("beer_count + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to increment beer count: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
		}

		drink := models.Drink{
			UserID:   userID,
			Username: username,
			BeerType: beerType,
		}
		if err := tx.Create(&drink).Error; err != nil {
			return fmt.Errorf("failed to append drink event: %w", err)
		}

		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("failed to read back beer count: %w", err)
		}
		newCount = user.BeerCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newCount, nil
}

// TotalBeers sums every user's beer count.
func (r *GORMLedger) TotalBeers() (int, error) {
	var total int
	err := r.db.Model(&models.User{}).
		Select("COALESCE(SUM(beer_count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum beer counts: %w", err)
	}
	return total, nil
}

// RecentDrinks returns the newest limit drink events, newest first.
func (r *GORMLedger) RecentDrinks(limit int) ([]models.Drink, error) {
	var drinks []models.Drink
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&drinks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent drinks: %w", err)
	}
	return drinks, nil
}

// ResetAllCounts zeroes every user's count and deletes every drink event in
// one transaction. A failure on either leg rolls the other back.
func (r *GORMLedger) ResetAllCounts() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// GORM refuses global updates without a condition.
		res := tx.Model(&models.User{}).
			Where("1 = 1").
			UpdateColumn("beer_count", 0)
		if res.Error != nil {
			return fmt.Errorf("failed to zero beer counts: %w", res.Error)
		}
		if err := tx.Where("1 = 1").Delete(&models.Drink{}).Error; err != nil {
			return fmt.Errorf("failed to clear drink events: %w", err)
		}
		return nil
	})
}
