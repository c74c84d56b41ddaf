package services_test

import (
	"context"
	"errors"
	"testing"

	"beertracker/internal/apperrors"
	"beertracker/internal/models"
	"beertracker/internal/repositories"
	"beertracker/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockVerifier is a mock implementation of services.Verifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyDrink(ctx context.Context, photoDataURL, claimedLabel string) (bool, string, error) {
	args := m.Called(photoDataURL, claimedLabel)
	return args.Bool(0), args.String(1), args.Error(2)
}

// MockRoaster is a mock implementation of services.Roaster
type MockRoaster struct {
	mock.Mock
}

func (m *MockRoaster) GenerateRoast(ctx context.Context, displayName, beerType string, count, remaining int) (string, error) {
	args := m.Called(displayName, beerType, count, remaining)
	return args.String(0), args.Error(1)
}

func newDrinkFixture(t *testing.T, verifier services.Verifier, roaster services.Roaster, cfg services.DrinkConfig) (*repositories.MockLedger, *models.User, *services.DrinkService) {
	t.Helper()
	ledger := repositories.NewMockLedger()
	user := &models.User{Username: "alice", DisplayName: "Alice", Password: "x"}
	assert.NoError(t, ledger.CreateUser(user))
	if cfg.Goal == 0 {
		cfg.Goal = 1000000
	}
	return ledger, user, services.NewDrinkService(ledger, verifier, roaster, nil, cfg)
}

func TestDrinkService_RecordWithoutVerification(t *testing.T) {
	ledger, user, drinkService := newDrinkFixture(t, nil, nil, services.DrinkConfig{})

	result, err := drinkService.RecordDrink(user, "  IPA  ", "")
	assert.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, 1, result.BeerCount)

	drinks, err := ledger.RecentDrinks(10)
	assert.NoError(t, err)
	assert.Len(t, drinks, 1)
	assert.Equal(t, "IPA", drinks[0].BeerType, "label is trimmed before recording")
	assert.Equal(t, "Alice", drinks[0].Username, "event carries the display name snapshot")

	result, err = drinkService.RecordDrink(user, "IPA", "")
	assert.NoError(t, err)
	assert.Equal(t, 2, result.BeerCount)
}

func TestDrinkService_InvalidInput(t *testing.T) {
	_, user, drinkService := newDrinkFixture(t, nil, nil, services.DrinkConfig{})

	_, err := drinkService.RecordDrink(user, "   ", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	// Photo required by configuration but absent.
	_, user2, strictService := newDrinkFixture(t, nil, nil, services.DrinkConfig{RequirePhoto: true})
	_, err = strictService.RecordDrink(user2, "IPA", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDrinkService_RejectionMutatesNothing(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("VerifyDrink", "photo-data", "Radler").
		Return(false, "That is lemonade at best", nil).Once()

	ledger, user, drinkService := newDrinkFixture(t, verifier, nil, services.DrinkConfig{})

	result, err := drinkService.RecordDrink(user, "Radler", "photo-data")
	assert.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, "That is lemonade at best", result.VerificationMessage)

	got, err := ledger.GetUserByID(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, got.BeerCount, "rejected submissions never increment")
	drinks, err := ledger.RecentDrinks(10)
	assert.NoError(t, err)
	assert.Empty(t, drinks, "rejected submissions never append events")
	verifier.AssertExpectations(t)
}

func TestDrinkService_VerifierFailureFailClosed(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("VerifyDrink", "photo-data", "IPA").
		Return(false, "", errors.New("timeout")).Once()

	ledger, user, drinkService := newDrinkFixture(t, verifier, nil, services.DrinkConfig{FailOpen: false})

	result, err := drinkService.RecordDrink(user, "IPA", "photo-data")
	assert.NoError(t, err)
	assert.False(t, result.Verified)
	assert.NotEmpty(t, result.VerificationMessage)

	got, err := ledger.GetUserByID(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, got.BeerCount)
	verifier.AssertExpectations(t)
}

func TestDrinkService_VerifierFailureFailOpen(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("VerifyDrink", "photo-data", "IPA").
		Return(false, "", errors.New("timeout")).Once()

	ledger, user, drinkService := newDrinkFixture(t, verifier, nil, services.DrinkConfig{FailOpen: true})

	result, err := drinkService.RecordDrink(user, "IPA", "photo-data")
	assert.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, 1, result.BeerCount)

	got, err := ledger.GetUserByID(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, got.BeerCount)
	verifier.AssertExpectations(t)
}

func TestDrinkService_AcceptedVerificationRecords(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("VerifyDrink", "photo-data", "Stout").
		Return(true, "Beer confirmed", nil).Once()

	_, user, drinkService := newDrinkFixture(t, verifier, nil, services.DrinkConfig{RequirePhoto: true})

	result, err := drinkService.RecordDrink(user, "Stout", "photo-data")
	assert.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, "Beer confirmed", result.VerificationMessage)
	assert.Equal(t, 1, result.BeerCount)
	verifier.AssertExpectations(t)
}

func TestDrinkService_RoastIsBestEffort(t *testing.T) {
	roaster := new(MockRoaster)
	roaster.On("GenerateRoast", "Alice", "IPA", 1, 999999).
		Return("", errors.New("model overloaded")).Once()
	roaster.On("GenerateRoast", "Alice", "IPA", 2, 999998).
		Return("Two already, Alice?", nil).Once()

	_, user, drinkService := newDrinkFixture(t, nil, roaster, services.DrinkConfig{})

	// A failing roaster degrades to no flavor text, never an error.
	result, err := drinkService.RecordDrink(user, "IPA", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, result.BeerCount)
	assert.Empty(t, result.AIRoast)

	result, err = drinkService.RecordDrink(user, "IPA", "")
	assert.NoError(t, err)
	assert.Equal(t, 2, result.BeerCount)
	assert.Equal(t, "Two already, Alice?", result.AIRoast)
	roaster.AssertExpectations(t)
}

func TestDrinkService_ResetAll(t *testing.T) {
	ledger, user, drinkService := newDrinkFixture(t, nil, nil, services.DrinkConfig{})
	admin := &models.User{Username: "boss", DisplayName: "boss", Password: "x", IsAdmin: true}
	assert.NoError(t, ledger.CreateUser(admin))

	_, err := drinkService.RecordDrink(user, "IPA", "")
	assert.NoError(t, err)

	// Non-admin callers are refused before the store is touched.
	err = drinkService.ResetAll(user)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	got, err := ledger.GetUserByID(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, got.BeerCount)

	assert.NoError(t, drinkService.ResetAll(admin))
	got, err = ledger.GetUserByID(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, got.BeerCount)
	drinks, err := ledger.RecentDrinks(10)
	assert.NoError(t, err)
	assert.Empty(t, drinks)

	// A store failure surfaces as StoreFailure.
	ledger.ResetFailure = errors.New("disk full")
	err = drinkService.ResetAll(admin)
	assert.ErrorIs(t, err, apperrors.ErrStoreFailure)
}
