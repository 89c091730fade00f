// Package billing handles paid course enrollment: checkout sessions
// against the payment gateway and the purchase records backing them.
// Billing endpoints sit behind the guards like everything else; no
// payment call happens before the request is authorized.
package billing

import (
	"errors"
	"time"
)

var (
	ErrPurchaseNotFound = errors.New("billing: purchase not found")
	ErrAlreadyPaid      = errors.New("billing: course already paid")
)

// PurchaseStatus tracks a checkout through its lifecycle.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseFailed    PurchaseStatus = "failed"
)

// Purchase records one checkout of a course by an account.
type Purchase struct {
	ID           string         `json:"id"`
	WorkspaceID  string         `json:"workspace_id"`
	AccountID    string         `json:"account_id"`
	CourseID     string         `json:"course_id"`
	AmountCents  int64          `json:"amount_cents"`
	Currency     string         `json:"currency"`
	Status       PurchaseStatus `json:"status"`
	CheckoutID   string         `json:"checkout_id,omitempty"`
	CheckoutURL  string         `json:"checkout_url,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// CheckoutRequest is what the gateway needs to open a session.
type CheckoutRequest struct {
	AmountCents int64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
	Reference   string
}

// CheckoutSession is the gateway's answer: where to send the browser.
type CheckoutSession struct {
	ID  string
	URL string
}
