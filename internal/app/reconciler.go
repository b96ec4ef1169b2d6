/**
 * @description
 * This file reconciles incomplete applications once a user's bank linkage
 * completes: every incomplete application of a bank-linked user moves to
 * pending in a single atomic update.
 *
 * The primary trigger is the user.bank_linked event; a periodic sweep picks
 * up anything the event path missed (broker outage, consumer restart).
 */
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/loanapp/loan-service/internal/domain"
	"github.com/loanapp/loan-service/internal/store"
)

const reconcileTimeout = 30 * time.Second

// Reconciler moves incomplete applications to pending for bank-linked users.
type Reconciler struct {
	users        store.UserRepository
	applications store.ApplicationRepository
	logger       *slog.Logger
}

// NewReconciler creates a new instance of Reconciler.
func NewReconciler(users store.UserRepository, applications store.ApplicationRepository, logger *slog.Logger) *Reconciler {
	return &Reconciler{users: users, applications: applications, logger: logger}
}

// ReconcileApplications promotes the user's incomplete applications to
// pending. It is a no-op unless the user is actually bank-linked, so a
// premature or replayed trigger cannot promote anything early. Returns the
// number of applications moved.
func (r *Reconciler) ReconcileApplications(ctx context.Context, userID string) (int64, error) {
	user, err := r.users.FindUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !user.BankLinked() {
		return 0, nil
	}

	moved, err := r.applications.ReconcileIncompleteApplications(ctx, userID)
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		r.logger.Info("applications reconciled to pending", "user", userID, "count", moved)
	}
	return moved, nil
}

// HandleBankLinkCompletedEvent is the AMQP handler for user.bank_linked
// messages. The returned bool is the ack decision: malformed payloads and
// missing users are acked (requeueing cannot fix them), transient failures
// are nacked for redelivery.
func (r *Reconciler) HandleBankLinkCompletedEvent(body []byte) bool {
	var event domain.BankLinkCompletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		r.logger.Error("discarding malformed bank-link event", "error", err)
		return true
	}
	if event.UserID == "" {
		r.logger.Error("discarding bank-link event without user id")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	if _, err := r.ReconcileApplications(ctx, event.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("bank-link event for unknown user", "user", event.UserID)
			return true
		}
		r.logger.Error("failed to reconcile applications", "user", event.UserID, "error", err)
		return false
	}
	return true
}

// SweepIncomplete reconciles every bank-linked user that still has
// incomplete applications. Run periodically as a safety net behind the
// event-driven path.
func (r *Reconciler) SweepIncomplete(ctx context.Context) error {
	userIDs, err := r.users.FindBankLinkedUserIDsWithIncompleteApplications(ctx)
	if err != nil {
		return err
	}
	for _, id := range userIDs {
		if _, err := r.ReconcileApplications(ctx, id); err != nil {
			r.logger.Error("sweep reconcile failed", "user", id, "error", err)
		}
	}
	return nil
}
