package repositories_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"beertracker/internal/apperrors"
	"beertracker/internal/models"
	"beertracker/internal/repositories"

	"github.com/stretchr/testify/assert"
)

func newLedgerWithUser(t *testing.T, username string) (*repositories.MockLedger, *models.User) {
	t.Helper()
	ledger := repositories.NewMockLedger()
	user := &models.User{
		Username:    username,
		DisplayName: username,
		Password:    "irrelevant",
	}
	err := ledger.CreateUser(user)
	assert.NoError(t, err)
	return ledger, user
}

func TestConsumeInvite_ExactlyOnce(t *testing.T) {
	ledger, user := newLedgerWithUser(t, "alice")

	err := ledger.CreateInvite(&models.Invite{Code: "CODE1"})
	assert.NoError(t, err)

	admin, err := ledger.ConsumeInvite("CODE1", user.ID)
	assert.NoError(t, err)
	assert.False(t, admin)

	// Sequential replay must fail, never silently succeed.
	_, err = ledger.ConsumeInvite("CODE1", user.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyUsed)

	// Unknown code is a distinct failure.
	_, err = ledger.ConsumeInvite("NOSUCH", user.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConsumeInvite_ConcurrentCallersRace(t *testing.T) {
	ledger, user := newLedgerWithUser(t, "alice")

	err := ledger.CreateInvite(&models.Invite{Code: "CODE1"})
	assert.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.ConsumeInvite("CODE1", user.ID)
		}(i)
	}
	wg.Wait()

	successes := 0
	replays := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, apperrors.ErrAlreadyUsed):
			replays++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one consume must win")
	assert.Equal(t, attempts-1, replays)
}

func TestRecordDrink_NoLostUpdates(t *testing.T) {
	ledger, user := newLedgerWithUser(t, "bob")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RecordDrink(user.ID, user.DisplayName, "IPA")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := ledger.GetUserByID(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, n, got.BeerCount)

	total, err := ledger.TotalBeers()
	assert.NoError(t, err)
	assert.Equal(t, n, total)

	drinks, err := ledger.RecentDrinks(n + 10)
	assert.NoError(t, err)
	assert.Len(t, drinks, n)
}

func TestRegisterWithInvite_AdminGrantPropagation(t *testing.T) {
	ledger := repositories.NewMockLedger()

	assert.NoError(t, ledger.CreateInvite(&models.Invite{Code: "ADMINBEER", IsAdmin: true}))
	assert.NoError(t, ledger.CreateInvite(&models.Invite{Code: "FIRSTBEER"}))

	admin := &models.User{Username: "root", DisplayName: "root", Password: "x"}
	assert.NoError(t, ledger.RegisterWithInvite(admin, "ADMINBEER"))
	assert.True(t, admin.IsAdmin)

	regular := &models.User{Username: "carol", DisplayName: "carol", Password: "x"}
	assert.NoError(t, ledger.RegisterWithInvite(regular, "FIRSTBEER"))
	assert.False(t, regular.IsAdmin)

	// The consumed invite is burned for everyone else.
	late := &models.User{Username: "dave", DisplayName: "dave", Password: "x"}
	err := ledger.RegisterWithInvite(late, "FIRSTBEER")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyUsed)
	_, err = ledger.GetUserByUsername("dave")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "failed registration must not leave a user behind")
}

func TestRegisterWithInvite_ConcurrentRegistrations(t *testing.T) {
	ledger := repositories.NewMockLedger()
	assert.NoError(t, ledger.CreateInvite(&models.Invite{Code: "CODE1"}))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := &models.User{
				Username:    fmt.Sprintf("user%d", i),
				DisplayName: fmt.Sprintf("user%d", i),
				Password:    "x",
			}
			errs[i] = ledger.RegisterWithInvite(user, "CODE1")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrAlreadyUsed)
		}
	}
	assert.Equal(t, 1, successes)

	users, err := ledger.AllUsers()
	assert.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestDeleteSession_Idempotent(t *testing.T) {
	ledger, user := newLedgerWithUser(t, "erin")

	session := &models.Session{Token: "tok", UserID: user.ID}
	assert.NoError(t, ledger.CreateSession(session))

	got, err := ledger.GetSession("tok")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	assert.NoError(t, ledger.DeleteSession("tok"))
	assert.NoError(t, ledger.DeleteSession("tok"), "double delete is a no-op")

	_, err = ledger.GetSession("tok")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResetAllCounts_AllOrNothing(t *testing.T) {
	ledger, alice := newLedgerWithUser(t, "alice")
	bob := &models.User{Username: "bob", DisplayName: "bob", Password: "x"}
	assert.NoError(t, ledger.CreateUser(bob))

	for i := 0; i < 3; i++ {
		_, err := ledger.RecordDrink(alice.ID, "alice", "Lager")
		assert.NoError(t, err)
	}
	_, err := ledger.RecordDrink(bob.ID, "bob", "Stout")
	assert.NoError(t, err)

	// Simulated mid-reset failure leaves pre-reset state fully intact.
	ledger.ResetFailure = errors.New("disk full")
	err = ledger.ResetAllCounts()
	assert.Error(t, err)

	got, err := ledger.GetUserByID(alice.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, got.BeerCount)
	drinks, err := ledger.RecentDrinks(10)
	assert.NoError(t, err)
	assert.Len(t, drinks, 4)

	// Successful reset zeroes everything together.
	ledger.ResetFailure = nil
	assert.NoError(t, ledger.ResetAllCounts())

	users, err := ledger.AllUsers()
	assert.NoError(t, err)
	for _, u := range users {
		assert.Equal(t, 0, u.BeerCount)
	}
	drinks, err = ledger.RecentDrinks(10)
	assert.NoError(t, err)
	assert.Empty(t, drinks)

	total, err := ledger.TotalBeers()
	assert.NoError(t, err)
	assert.Equal(t, 0, total)
}
