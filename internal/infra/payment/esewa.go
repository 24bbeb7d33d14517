package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/usecase"
)

// 署名対象のフィールド（この順で "k=v" を "," でつなぐ）
const esewaSignedFields = "total_amount,transaction_uuid,product_code"

type ESewa struct {
	productCode string
	secret      string
	formURL     string
	successURL  string
	failureURL  string
}

var _ usecase.PaymentGateway = (*ESewa)(nil)

func NewESewa(cfg config.ESewaConfig, urls config.PaymentURLs) *ESewa {
	return &ESewa{
		productCode: cfg.ProductCode,
		secret:      cfg.SecretKey,
		formURL:     cfg.FormURL,
		successURL:  urls.SuccessURL,
		failureURL:  urls.FailureURL,
	}
}

// eSewa はフォームPOSTでリダイレクトする。ここでは署名済みのフィールドを返すだけ
func (e *ESewa) Initiate(ctx context.Context, req usecase.PaymentRequest) (usecase.PaymentInitiation, error) {
	if e.secret == "" {
		return usecase.PaymentInitiation{}, errors.New("esewa: secret key not configured")
	}
	if req.TransactionID == "" {
		return usecase.PaymentInitiation{}, errors.New("esewa: transaction id required")
	}

	total := req.Amount.String()
	message := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s", total, req.TransactionID, e.productCode)

	return usecase.PaymentInitiation{
		Gateway:   model.PaymentESewa,
		Reference: req.TransactionID,
		FormURL:   e.formURL,
		FormFields: map[string]string{
			"amount":                  total,
			"tax_amount":              "0",
			"total_amount":            total,
			"transaction_uuid":        req.TransactionID,
			"product_code":            e.productCode,
			"product_service_charge":  "0",
			"product_delivery_charge": "0",
			"success_url":             e.successURL,
			"failure_url":             e.failureURL,
			"signed_field_names":      esewaSignedFields,
			"signature":               Sign(e.secret, message),
		},
	}, nil
}

// base64(HMAC-SHA256(secret, message))
func Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
