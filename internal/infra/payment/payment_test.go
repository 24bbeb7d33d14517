package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testURLs = config.PaymentURLs{
	SuccessURL: "http://shop.test/payment/success",
	FailureURL: "http://shop.test/payment/failure",
	WebsiteURL: "http://shop.test",
}

// =====================
// eSewa
// =====================

func TestSign_KnownVector(t *testing.T) {
	// eSewa の開発者ドキュメントにある例
	got := Sign("8gBm/:&EnhH.1/q", "total_amount=100,transaction_uuid=11-201-13,product_code=EPAYTEST")
	assert.Equal(t, "4Ov7pCI1zIOdwtV2BRMUNjz1upIlT/COTxfLhWvVurE=", got)
}

func TestESewa_Initiate(t *testing.T) {
	gw := NewESewa(config.ESewaConfig{
		ProductCode: "EPAYTEST",
		SecretKey:   "8gBm/:&EnhH.1/q",
		FormURL:     "https://rc-epay.esewa.com.np/api/epay/main/v2/form",
	}, testURLs)

	init, err := gw.Initiate(context.Background(), usecase.PaymentRequest{
		OrderID:       1,
		Amount:        model.NewMoney(100),
		TransactionID: "11-201-13",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentESewa, init.Gateway)
	assert.Equal(t, "11-201-13", init.Reference)
	assert.Equal(t, "https://rc-epay.esewa.com.np/api/epay/main/v2/form", init.FormURL)
	assert.Equal(t, "100", init.FormFields["total_amount"])
	assert.Equal(t, "total_amount,transaction_uuid,product_code", init.FormFields["signed_field_names"])
	assert.Equal(t, "4Ov7pCI1zIOdwtV2BRMUNjz1upIlT/COTxfLhWvVurE=", init.FormFields["signature"])
	assert.Equal(t, testURLs.FailureURL, init.FormFields["failure_url"])
}

func TestESewa_Initiate_NotConfigured(t *testing.T) {
	gw := NewESewa(config.ESewaConfig{ProductCode: "EPAYTEST"}, testURLs)

	_, err := gw.Initiate(context.Background(), usecase.PaymentRequest{Amount: model.NewMoney(1), TransactionID: "x"})
	assert.Error(t, err)
}

// =====================
// Khalti
// =====================

func TestKhalti_Initiate(t *testing.T) {
	var got khaltiInitiateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/epayment/initiate/", r.URL.Path)
		assert.Equal(t, "Key live_secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pidx":"bZQLD9wRVWo4CdESSfuSsB","payment_url":"https://test-pay.khalti.com/?pidx=bZQLD9wRVWo4CdESSfuSsB"}`))
	}))
	defer srv.Close()

	gw := NewKhalti(config.KhaltiConfig{SecretKey: "live_secret", BaseURL: srv.URL}, testURLs)
	amount, _ := decimal.NewFromString("1999.50")

	init, err := gw.Initiate(context.Background(), usecase.PaymentRequest{
		OrderID:   42,
		Amount:    amount,
		OrderName: "Order #42",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentKhalti, init.Gateway)
	assert.Equal(t, "bZQLD9wRVWo4CdESSfuSsB", init.Reference)
	assert.Equal(t, "https://test-pay.khalti.com/?pidx=bZQLD9wRVWo4CdESSfuSsB", init.RedirectURL)

	assert.Equal(t, int64(199950), got.Amount)
	assert.Equal(t, "42", got.PurchaseOrderID)
	assert.Equal(t, "Order #42", got.PurchaseOrderName)
	assert.Equal(t, testURLs.SuccessURL, got.ReturnURL)
	assert.Equal(t, testURLs.WebsiteURL, got.WebsiteURL)
}

func TestKhalti_Initiate_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
	}))
	defer srv.Close()

	gw := NewKhalti(config.KhaltiConfig{SecretKey: "bad", BaseURL: srv.URL}, testURLs)
	_, err := gw.Initiate(context.Background(), usecase.PaymentRequest{OrderID: 1, Amount: model.NewMoney(10)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

// =====================
// Breaker
// =====================

type flakyGateway struct {
	calls int
	err   error
}

func (g *flakyGateway) Initiate(ctx context.Context, req usecase.PaymentRequest) (usecase.PaymentInitiation, error) {
	g.calls++
	if g.err != nil {
		return usecase.PaymentInitiation{}, g.err
	}
	return usecase.PaymentInitiation{Gateway: model.PaymentKhalti, Reference: "ok"}, nil
}

func TestBreakerGateway_PassThrough(t *testing.T) {
	next := &flakyGateway{}
	gw := WithBreaker("khalti-pass", next)

	init, err := gw.Initiate(context.Background(), usecase.PaymentRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", init.Reference)
	assert.Equal(t, gobreaker.StateClosed, gw.State())
}

func TestBreakerGateway_OpensAfterFailures(t *testing.T) {
	next := &flakyGateway{err: errors.New("connection refused")}
	gw := WithBreaker("khalti-open", next)

	for i := 0; i < 3; i++ {
		_, err := gw.Initiate(context.Background(), usecase.PaymentRequest{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, gw.State())

	// open 中は下流を呼ばない
	_, err := gw.Initiate(context.Background(), usecase.PaymentRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, next.calls)
}
