package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/usecase"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ゲートウェイ呼び出しを circuit breaker で包み、結果をメトリクスに残す
type BreakerGateway struct {
	name string
	next usecase.PaymentGateway
	cb   *gobreaker.CircuitBreaker
}

var _ usecase.PaymentGateway = (*BreakerGateway)(nil)

func WithBreaker(name string, next usecase.PaymentGateway) *BreakerGateway {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		// 3回以上かつ失敗率60%以上で open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && ratio >= 0.6
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(stateValue(to))
			log.WithFields(log.Fields{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("circuit breaker state changed")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &BreakerGateway{name: name, next: next, cb: cb}
}

func (b *BreakerGateway) Initiate(ctx context.Context, req usecase.PaymentRequest) (usecase.PaymentInitiation, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Initiate(ctx, req)
	})
	if err != nil {
		metrics.CircuitBreakerFailures.WithLabelValues(b.name).Inc()
		metrics.PaymentInitiations.WithLabelValues(b.name, "failure").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return usecase.PaymentInitiation{}, fmt.Errorf("%s: circuit open: %w", b.name, err)
		}
		return usecase.PaymentInitiation{}, err
	}

	metrics.PaymentInitiations.WithLabelValues(b.name, "success").Inc()
	return res.(usecase.PaymentInitiation), nil
}

func (b *BreakerGateway) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	}
	return 0
}
