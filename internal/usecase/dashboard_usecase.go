package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSalesDays  = 30
	maxSalesDays      = 365
	topProductsLimit  = 5
	lowStockThreshold = 5
)

type DashboardUsecase struct {
	analytics repo.AnalyticsRepository
	clock     Clock
}

func NewDashboardUsecase(analytics repo.AnalyticsRepository, clock Clock) *DashboardUsecase {
	return &DashboardUsecase{analytics: analytics, clock: clock}
}

type Dashboard struct {
	Orders         repo.OrderSummary      `json:"orders"`
	OrdersByStatus map[string]int64       `json:"orders_by_status"`
	SalesByDay     []repo.DailySales      `json:"sales_by_day"`
	TopProducts    []repo.TopProduct      `json:"top_products"`
	LowStock       []repo.LowStockVariant `json:"low_stock"`
	Users          int64                  `json:"users"`
	PendingReturns int64                  `json:"pending_returns"`
	ActiveCoupons  int64                  `json:"active_coupons"`
}

// 集計クエリは並列に投げる。どれか失敗したら全体を失敗にする
func (u *DashboardUsecase) Get(ctx context.Context, days int) (Dashboard, error) {
	if days < 1 {
		days = defaultSalesDays
	}
	if days > maxSalesDays {
		days = maxSalesDays
	}
	now := u.clock.Now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.Orders, err = u.analytics.OrderSummary(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.OrdersByStatus, err = u.analytics.OrdersByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.SalesByDay, err = u.analytics.SalesByDay(gctx, since)
		return err
	})
	g.Go(func() (err error) {
		d.TopProducts, err = u.analytics.TopProducts(gctx, topProductsLimit)
		return err
	})
	g.Go(func() (err error) {
		d.LowStock, err = u.analytics.LowStockVariants(gctx, lowStockThreshold)
		return err
	})
	g.Go(func() (err error) {
		d.Users, err = u.analytics.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.PendingReturns, err = u.analytics.CountReturnsByStatus(gctx, model.ReturnStatusPending)
		return err
	})
	g.Go(func() (err error) {
		d.ActiveCoupons, err = u.analytics.CountActiveCoupons(gctx, now)
		return err
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("dashboard query failed")
		return Dashboard{}, dbError()
	}
	return d, nil
}
