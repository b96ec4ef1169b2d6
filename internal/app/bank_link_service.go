/**
 * @description
 * This file implements the bank-account linkage use-cases on top of the
 * Plaid client: minting link tokens, exchanging the public token for
 * persistent credentials, and fetching the liabilities report admins review.
 *
 * @notes
 * - Exchanging the public token stores the credentials and enqueues the
 *   welcome e-mail and the bank-link-completed event in the same database
 *   transaction, so reconciliation is never triggered without the
 *   credentials actually being in place.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loanapp/loan-service/internal/domain"
	"github.com/loanapp/loan-service/internal/store"
	"github.com/loanapp/loan-service/pkg/plaidclient"
)

// BankLinkService provides the Plaid-backed linkage use-cases.
type BankLinkService struct {
	users  store.UserRepository
	plaid  *plaidclient.Client
	logger *slog.Logger
}

// NewBankLinkService creates a new instance of BankLinkService.
func NewBankLinkService(users store.UserRepository, plaid *plaidclient.Client, logger *slog.Logger) *BankLinkService {
	return &BankLinkService{users: users, plaid: plaid, logger: logger}
}

// CreateLinkToken mints a short-lived Plaid Link token for the caller.
func (s *BankLinkService) CreateLinkToken(ctx context.Context, userID string) (*domain.PlaidLinkTokenCreateResponse, error) {
	return s.plaid.CreateLinkToken(ctx, userID)
}

// SetPublicToken exchanges the public token returned by Plaid Link for the
// persistent item credentials and stores them on the user.
func (s *BankLinkService) SetPublicToken(ctx context.Context, userID, publicToken string) (string, error) {
	if publicToken == "" {
		return "", fmt.Errorf("%w: public_token is required", domain.ErrValidation)
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	resp, err := s.plaid.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return "", fmt.Errorf("exchanging public token: %w", err)
	}

	events := []store.OutboxEvent{
		{
			Exchange:   NotificationExchange,
			RoutingKey: RoutingKeyWelcomeEmail,
			Payload:    domain.WelcomeEmailEvent{Recipient: user.Email, ItemID: resp.ItemID},
		},
		{
			Exchange:   UserEventsExchange,
			RoutingKey: RoutingKeyBankLinked,
			Payload:    domain.BankLinkCompletedEvent{UserID: user.ID, Email: user.Email, ItemID: resp.ItemID},
		},
	}
	if err := s.users.SetPlaidCredentialsAndEnqueueEvents(ctx, user.ID, resp.ItemID, resp.AccessToken, events); err != nil {
		return "", err
	}

	s.logger.Info("bank account linked", "user", user.ID, "item_id", resp.ItemID)
	return resp.ItemID, nil
}

// FinancialDetails fetches the liabilities report for a user's linked
// account. Admin-only; the router enforces the role.
func (s *BankLinkService) FinancialDetails(ctx context.Context, userID string) (*domain.PlaidLiabilitiesGetResponse, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.BankLinked() {
		return nil, fmt.Errorf("%w: user has no linked bank account", domain.ErrValidation)
	}
	return s.plaid.GetLiabilities(ctx, *user.PlaidAccessToken)
}
