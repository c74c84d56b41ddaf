package repositories

import "beertracker/internal/models"

// Ledger defines the interface for the drink ledger store. It is the single
// owner of users, invites, sessions and drink events; every mutation goes
// through it. Operations that span more than one entity (registration,
// drink recording, the admin reset) are transactional: they either commit
// fully or leave the store untouched.
type Ledger interface {
	// Users
	CreateUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	// AllUsers returns every user ordered by creation, oldest first.
	AllUsers() ([]models.User, error)

	// Invites
	CreateInvite(invite *models.Invite) error
	GetInvite(code string) (*models.Invite, error)
	// ConsumeInvite marks the invite as used by userID and returns the
	// invite's admin grant. It is a compare-and-set: out of any number of
	// concurrent callers exactly one succeeds, the rest get ErrAlreadyUsed.
	ConsumeInvite(code, userID string) (bool, error)
	// RegisterWithInvite creates the user and consumes the invite in one
	// transaction. The invite's admin grant is read before any mutation and
	// written onto user.IsAdmin. Losing the consume race or a duplicate
	// username rolls the whole registration back.
	RegisterWithInvite(user *models.User, code string) error

	// Sessions
	CreateSession(session *models.Session) error
	GetSession(token string) (*models.Session, error)
	// DeleteSession is idempotent; deleting an unknown token is not an error.
	DeleteSession(token string) error

	// Drinks
	// RecordDrink increments the user's count by exactly one and appends the
	// event as a single unit, returning the new count. The increment is a
	// store-side expression, never read-modify-write by the caller.
	RecordDrink(userID, username, beerType string) (int, error)
	TotalBeers() (int, error)
	// RecentDrinks returns the newest events first.
	RecentDrinks(limit int) ([]models.Drink, error)
	// ResetAllCounts zeroes every user's count and deletes every drink
	// event, all-or-nothing.
	ResetAllCounts() error
}
