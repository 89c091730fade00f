package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service starts checkouts and records their completion.
type Service struct {
	db      *sql.DB
	gateway PaymentGateway
}

func NewService(db *sql.DB, gateway PaymentGateway) *Service {
	return &Service{db: db, gateway: gateway}
}

// StartCheckout opens a gateway session for a course purchase and
// records it as pending. Callers pass an already authorized workspace
// and account; duplicate completed purchases are rejected here.
func (s *Service) StartCheckout(ctx context.Context, workspaceID, accountID, courseID string, amountCents int64, currency, description, successURL, cancelURL string) (*Purchase, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM purchases
			WHERE workspace_id = $1 AND account_id = $2 AND course_id = $3 AND status = 'completed'
		)`, workspaceID, accountID, courseID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking prior purchase: %w", err)
	}
	if exists {
		return nil, ErrAlreadyPaid
	}

	purchase := &Purchase{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		AccountID:   accountID,
		CourseID:    courseID,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      PurchasePending,
		CreatedAt:   time.Now().UTC(),
	}

	session, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		AmountCents: amountCents,
		Currency:    currency,
		Description: description,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Reference:   purchase.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("opening checkout session: %w", err)
	}
	purchase.CheckoutID = session.ID
	purchase.CheckoutURL = session.URL

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, workspace_id, account_id, course_id, amount_cents, currency, status, checkout_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		purchase.ID, purchase.WorkspaceID, purchase.AccountID, purchase.CourseID,
		purchase.AmountCents, purchase.Currency, purchase.Status,
		purchase.CheckoutID, purchase.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("recording purchase: %w", err)
	}
	return purchase, nil
}

// CompletePurchase marks a pending purchase completed, keyed by the
// gateway's checkout id. Called from the gateway's success webhook.
func (s *Service) CompletePurchase(ctx context.Context, checkoutID string) (*Purchase, error) {
	now := time.Now().UTC()
	var p Purchase
	err := s.db.QueryRowContext(ctx, `
		UPDATE purchases SET status = 'completed', completed_at = $2
		WHERE checkout_id = $1 AND status = 'pending'
		RETURNING id, workspace_id, account_id, course_id, amount_cents, currency, status, checkout_id, created_at`,
		checkoutID, now,
	).Scan(&p.ID, &p.WorkspaceID, &p.AccountID, &p.CourseID,
		&p.AmountCents, &p.Currency, &p.Status, &p.CheckoutID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPurchaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("completing purchase: %w", err)
	}
	p.CompletedAt = &now
	return &p, nil
}

// ListPurchases returns an account's purchases within a workspace.
func (s *Service) ListPurchases(ctx context.Context, workspaceID, accountID string) ([]*Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, account_id, course_id, amount_cents, currency, status, checkout_id, created_at, completed_at
		FROM purchases WHERE workspace_id = $1 AND account_id = $2
		ORDER BY created_at DESC`,
		workspaceID, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*Purchase
	for rows.Next() {
		var p Purchase
		var completedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.AccountID, &p.CourseID,
			&p.AmountCents, &p.Currency, &p.Status, &p.CheckoutID,
			&p.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning purchase: %w", err)
		}
		if completedAt.Valid {
			p.CompletedAt = &completedAt.Time
		}
		purchases = append(purchases, &p)
	}
	return purchases, rows.Err()
}
