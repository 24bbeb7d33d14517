package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const khaltiTimeout = 10 * time.Second

type Khalti struct {
	client     *resty.Client
	secret     string
	returnURL  string
	websiteURL string
}

var _ usecase.PaymentGateway = (*Khalti)(nil)

type khaltiInitiateRequest struct {
	ReturnURL         string `json:"return_url"`
	WebsiteURL        string `json:"website_url"`
	Amount            int64  `json:"amount"`
	PurchaseOrderID   string `json:"purchase_order_id"`
	PurchaseOrderName string `json:"purchase_order_name"`
}

type khaltiInitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
}

// リトライは breaker 側の判断に任せるので 0
func NewKhalti(cfg config.KhaltiConfig, urls config.PaymentURLs) *Khalti {
	return &Khalti{
		client: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(khaltiTimeout).
			SetRetryCount(0),
		secret:     cfg.SecretKey,
		returnURL:  urls.SuccessURL,
		websiteURL: urls.WebsiteURL,
	}
}

func (k *Khalti) Initiate(ctx context.Context, req usecase.PaymentRequest) (usecase.PaymentInitiation, error) {
	if k.secret == "" {
		return usecase.PaymentInitiation{}, errors.New("khalti: secret key not configured")
	}

	var out khaltiInitiateResponse
	resp, err := k.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Key "+k.secret).
		SetBody(khaltiInitiateRequest{
			ReturnURL:         k.returnURL,
			WebsiteURL:        k.websiteURL,
			Amount:            toPaisa(req.Amount),
			PurchaseOrderID:   strconv.FormatInt(req.OrderID, 10),
			PurchaseOrderName: req.OrderName,
		}).
		SetResult(&out).
		Post("/epayment/initiate/")
	if err != nil {
		return usecase.PaymentInitiation{}, fmt.Errorf("khalti initiate: %w", err)
	}
	if resp.IsError() {
		return usecase.PaymentInitiation{}, fmt.Errorf("khalti initiate: status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.Pidx == "" || out.PaymentURL == "" {
		return usecase.PaymentInitiation{}, errors.New("khalti initiate: empty pidx or payment_url")
	}

	return usecase.PaymentInitiation{
		Gateway:     model.PaymentKhalti,
		Reference:   out.Pidx,
		RedirectURL: out.PaymentURL,
	}, nil
}

// Khalti は paisa（1/100 NPR）の整数
func toPaisa(m model.Money) int64 {
	return m.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
