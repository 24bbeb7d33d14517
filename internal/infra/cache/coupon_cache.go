package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const couponTTL = 5 * time.Minute

// 検証用の読み取りキャッシュ。引き当て（Tx 内）は必ずDBを見る
type RedisCouponCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ usecase.CouponCache = (*RedisCouponCache)(nil)

func NewRedisCouponCache(rdb *redis.Client) *RedisCouponCache {
	return &RedisCouponCache{rdb: rdb, ttl: couponTTL}
}

func couponKey(code string) string {
	return "coupon:" + strings.ToUpper(code)
}

func (c *RedisCouponCache) Get(ctx context.Context, code string) (model.Coupon, bool) {
	b, err := c.rdb.Get(ctx, couponKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Coupon{}, false
	}
	if err != nil {
		log.WithError(err).WithField("code", code).Warn("coupon cache get failed")
		return model.Coupon{}, false
	}
	var cp model.Coupon
	if err := json.Unmarshal(b, &cp); err != nil {
		return model.Coupon{}, false
	}
	return cp, true
}

func (c *RedisCouponCache) Set(ctx context.Context, cp model.Coupon) {
	b, err := json.Marshal(cp)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, couponKey(cp.Code), b, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("code", cp.Code).Warn("coupon cache set failed")
	}
}

func (c *RedisCouponCache) Invalidate(ctx context.Context, code string) {
	if err := c.rdb.Del(ctx, couponKey(code)).Err(); err != nil {
		log.WithError(err).WithField("code", code).Warn("coupon cache invalidate failed")
	}
}

// Redis が無いとき
type NopCouponCache struct{}

var _ usecase.CouponCache = NopCouponCache{}

func (NopCouponCache) Get(ctx context.Context, code string) (model.Coupon, bool) {
	return model.Coupon{}, false
}
func (NopCouponCache) Set(ctx context.Context, cp model.Coupon)     {}
func (NopCouponCache) Invalidate(ctx context.Context, code string) {}
