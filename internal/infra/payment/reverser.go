package payment

import (
	"context"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	log "github.com/sirupsen/logrus"
)

// 返金APIは未連携。返金対象をログに残して運用で処理する
type LoggingReverser struct{}

var _ usecase.PaymentReverser = LoggingReverser{}

func (LoggingReverser) Reverse(ctx context.Context, order model.Order, ret model.ReturnRequest) error {
	log.WithFields(log.Fields{
		"order_id":          order.ID,
		"return_id":         ret.ID,
		"payment_method":    order.PaymentMethod,
		"payment_reference": order.PaymentReference,
		"is_paid":           order.IsPaid,
	}).Info("refund requested")
	return nil
}
