package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	lastReq CheckoutRequest
	session CheckoutSession
	err     error
}

func (f *fakeGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &f.session, nil
}

func TestStartCheckout(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	gateway := &fakeGateway{session: CheckoutSession{ID: "cs_123", URL: "https://pay.example.com/cs_123"}}
	svc := NewService(db, gateway)

	t.Run("happy path records a pending purchase", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("ws-1", "acct-1", "c-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO purchases`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		p, err := svc.StartCheckout(context.Background(), "ws-1", "acct-1", "c-1",
			4900, "usd", "Algebra I", "https://app/success", "https://app/cancel")
		require.NoError(t, err)
		assert.Equal(t, PurchasePending, p.Status)
		assert.Equal(t, "cs_123", p.CheckoutID)
		assert.Equal(t, "https://pay.example.com/cs_123", p.CheckoutURL)
		assert.Equal(t, p.ID, gateway.lastReq.Reference)
	})

	t.Run("already paid short-circuits before the gateway", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("ws-1", "acct-1", "c-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		before := gateway.lastReq
		_, err := svc.StartCheckout(context.Background(), "ws-1", "acct-1", "c-1",
			4900, "usd", "Algebra I", "https://app/success", "https://app/cancel")
		assert.ErrorIs(t, err, ErrAlreadyPaid)
		assert.Equal(t, before, gateway.lastReq)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletePurchase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	svc := NewService(db, nil)
	now := time.Now().UTC()

	cols := []string{"id", "workspace_id", "account_id", "course_id", "amount_cents", "currency", "status", "checkout_id", "created_at"}

	t.Run("pending purchase completes", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE purchases SET status = 'completed'`).
			WithArgs("cs_123", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("p-1", "ws-1", "acct-1", "c-1", 4900, "usd", "completed", "cs_123", now))

		p, err := svc.CompletePurchase(context.Background(), "cs_123")
		require.NoError(t, err)
		assert.Equal(t, PurchaseCompleted, p.Status)
		assert.NotNil(t, p.CompletedAt)
	})

	t.Run("unknown checkout id", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE purchases SET status = 'completed'`).
			WithArgs("cs_nope", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := svc.CompletePurchase(context.Background(), "cs_nope")
		assert.ErrorIs(t, err, ErrPurchaseNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStripeGatewayCreateCheckout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "payment", r.Form.Get("mode"))
		assert.Equal(t, "4900", r.Form.Get("line_items[0][price_data][unit_amount]"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id": "cs_live", "url": "https://checkout.example.com/cs_live",
		})
	}))
	defer srv.Close()

	gw := NewStripeGateway(srv.URL, "sk_test_123", time.Second)
	session, err := gw.CreateCheckout(context.Background(), CheckoutRequest{
		AmountCents: 4900, Currency: "usd", Description: "Algebra I",
		SuccessURL: "https://app/ok", CancelURL: "https://app/no", Reference: "p-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_live", session.ID)
}
