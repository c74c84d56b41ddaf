package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"beertracker/internal/apperrors"
	"beertracker/internal/models"
	"beertracker/internal/repositories"
	"beertracker/pkg/rabbitmq"
)

// Verifier judges whether submitted photo evidence supports the claimed
// beverage. Implementations must return structured accept/reject data or an
// error; a slow or failing verifier is resolved by the service's
// fail-open/fail-closed policy.
type Verifier interface {
	VerifyDrink(ctx context.Context, photoDataURL, claimedLabel string) (accepted bool, message string, err error)
}

// Roaster produces optional flavor text for a freshly logged drink.
// Strictly best-effort; callers must tolerate any error.
type Roaster interface {
	GenerateRoast(ctx context.Context, displayName, beerType string, count, remaining int) (string, error)
}

// DrinkConfig carries the product-policy knobs of the drink recorder.
type DrinkConfig struct {
	// RequirePhoto rejects submissions without photo evidence.
	RequirePhoto bool
	// FailOpen treats a verifier failure as acceptance. Default is
	// fail-closed: a failed verification call rejects the drink.
	FailOpen bool
	// Goal is the shared target count (used for the roast's "remaining").
	Goal int
	// CollaboratorTimeout bounds each external call.
	CollaboratorTimeout time.Duration
}

// DrinkResult is the outcome of a drink submission.
type DrinkResult struct {
	Verified            bool
	VerificationMessage string
	BeerCount           int
	AIRoast             string
}

// DrinkService orchestrates drink recording: verify (optional), increment
// atomically, then best-effort roast and event publishing. It also owns the
// privileged ledger reset.
type DrinkService struct {
	ledger   repositories.Ledger
	verifier Verifier         // nil disables verification
	roaster  Roaster          // nil disables roasts
	mqClient *rabbitmq.Client // nil disables event publishing
	cfg      DrinkConfig
}

// NewDrinkService creates a new DrinkService. verifier, roaster and mqClient
// may be nil to disable the corresponding collaborator.
func NewDrinkService(ledger repositories.Ledger, verifier Verifier, roaster Roaster, mqClient *rabbitmq.Client, cfg DrinkConfig) *DrinkService {
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = 15 * time.Second
	}
	return &DrinkService{
		ledger:   ledger,
		verifier: verifier,
		roaster:  roaster,
		mqClient: mqClient,
		cfg:      cfg,
	}
}

// RecordDrink runs one submission through the state machine
// Received -> (Verifying) -> Verified|Rejected -> Recorded.
//
// A rejected submission returns a DrinkResult with Verified=false and no
// ledger mutation. The verifier is consulted strictly before the
// transactional increment and the roast strictly after it, so a hung
// collaborator never blocks other users' mutations.
func (s *DrinkService) RecordDrink(user *models.User, beerType, photoDataURL string) (*DrinkResult, error) {
	label := strings.TrimSpace(beerType)
	if label == "" {
		return nil, fmt.Errorf("beer type is required: %w", apperrors.ErrInvalidInput)
	}
	if s.cfg.RequirePhoto && photoDataURL == "" {
		return nil, fmt.Errorf("photo evidence is required: %w", apperrors.ErrInvalidInput)
	}

	result := &DrinkResult{Verified: true}

	if s.verifier != nil && photoDataURL != "" {
		accepted, message, err := s.verifyWithPolicy(photoDataURL, label)
		result.VerificationMessage = message
		// err is non-nil only when the policy resolved a collaborator
		// failure into a rejection (fail-closed).
		if err != nil || !accepted {
			result.Verified = false
			return result, nil
		}
	}

	newCount, err := s.ledger.RecordDrink(user.ID, user.DisplayName, label)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreFailure, err)
	}
	result.BeerCount = newCount

	remaining := 0
	if total, err := s.ledger.TotalBeers(); err == nil {
		remaining = s.cfg.Goal - total
		if remaining < 0 {
			remaining = 0
		}
	}

	if s.roaster != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CollaboratorTimeout)
		roast, err := s.roaster.GenerateRoast(ctx, user.DisplayName, label, newCount, remaining)
		cancel()
		if err != nil {
			log.Printf("Warning: roast generation failed for user %s: %v", user.ID, err)
		} else {
			result.AIRoast = roast
		}
	}

	s.publishDrinkRecorded(user, label, newCount)

	return result, nil
}

// verifyWithPolicy calls the verifier with a bounded context and resolves
// collaborator failures per the configured policy. The returned error is
// non-nil only when the failure means rejection (fail-closed).
func (s *DrinkService) verifyWithPolicy(photoDataURL, label string) (bool, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CollaboratorTimeout)
	defer cancel()

	accepted, message, err := s.verifier.VerifyDrink(ctx, photoDataURL, label)
	if err != nil {
		log.Printf("Warning: drink verification unavailable: %v", err)
		if s.cfg.FailOpen {
			return true, "Verification unavailable, counted anyway", nil
		}
		return false, "Could not verify your beer, try again", fmt.Errorf("%w: %v", apperrors.ErrCollaboratorUnavailable, err)
	}
	return accepted, message, nil
}

// publishDrinkRecorded emits a drink.recorded event, best-effort.
func (s *DrinkService) publishDrinkRecorded(user *models.User, label string, newCount int) {
	if s.mqClient == nil {
		return
	}
	event := map[string]interface{}{
		"userID":    user.ID,
		"username":  user.DisplayName,
		"beerType":  label,
		"beerCount": newCount,
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal drink event to JSON: %v", err)
		return
	}
	if err := s.mqClient.Publish("", rabbitmq.DrinkQueue, body); err != nil {
		log.Printf("Warning: failed to publish drink event for user %s: %v", user.ID, err)
	}
}

// ResetAll zeroes every user's count and clears the drink log. Admin only;
// the ledger performs it all-or-nothing.
func (s *DrinkService) ResetAll(caller *models.User) error {
	if caller == nil || !caller.IsAdmin {
		return fmt.Errorf("admin privileges required: %w", apperrors.ErrForbidden)
	}
	if err := s.ledger.ResetAllCounts(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreFailure, err)
	}
	return nil
}
