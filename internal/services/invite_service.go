package services

import (
	"fmt"
	"strings"

	"beertracker/internal/models"
	"beertracker/internal/repositories"

	"github.com/google/uuid"
)

// InviteService handles creation and validity checks of invite codes.
// Consumption itself happens inside the ledger's registration transaction.
type InviteService struct {
	ledger  repositories.Ledger
	baseURL string
}

// NewInviteService creates a new InviteService.
func NewInviteService(ledger repositories.Ledger, baseURL string) *InviteService {
	return &InviteService{
		ledger:  ledger,
		baseURL: baseURL,
	}
}

// IsValid reports whether the code exists and has not been consumed.
// Side-effect free.
func (s *InviteService) IsValid(code string) bool {
	invite, err := s.ledger.GetInvite(code)
	if err != nil {
		return false
	}
	return invite.UsedBy == nil
}

// CreateInvite mints a new single-use, non-admin invite for creatorID and
// returns it with a shareable link. Codes are the first 8 hex chars of a
// UUID, uppercased.
func (s *InviteService) CreateInvite(creatorID string) (*models.Invite, string, error) {
	code := strings.ToUpper(uuid.New().String()[:8])
	invite := &models.Invite{
		Code:      code,
		CreatedBy: &creatorID,
	}
	if err := s.ledger.CreateInvite(invite); err != nil {
		return nil, "", err
	}
	link := fmt.Sprintf("%s?invite=%s", s.baseURL, code)
	return invite, link, nil
}
