package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/repository"

	"github.com/redis/go-redis/v9"
)

// 最後の更新から30日で消える
const cartTTL = 30 * 24 * time.Hour

type RedisCartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ repository.CartStore = (*RedisCartStore)(nil)

func NewRedisCartStore(rdb *redis.Client) *RedisCartStore {
	return &RedisCartStore{rdb: rdb, ttl: cartTTL}
}

func cartKey(userID int64) string {
	return fmt.Sprintf("cart:%d", userID)
}

func (s *RedisCartStore) Get(ctx context.Context, userID int64) (*cart.Cart, error) {
	b, err := s.rdb.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(userID), nil
	}
	if err != nil {
		return nil, err
	}
	var c cart.Cart
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode cart %d: %w", userID, err)
	}
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	c.UserID = userID
	return &c, nil
}

func (s *RedisCartStore) Save(ctx context.Context, c *cart.Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, cartKey(c.UserID), b, s.ttl).Err()
}

func (s *RedisCartStore) Delete(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, cartKey(userID)).Err()
}

// Redis 未設定時。プロセス内だけで保持する
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[int64][]byte
}

var _ repository.CartStore = (*MemoryCartStore)(nil)

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: map[int64][]byte{}}
}

// 呼び出し側とスライスを共有しない
func (s *MemoryCartStore) Get(ctx context.Context, userID int64) (*cart.Cart, error) {
	s.mu.Lock()
	b, ok := s.carts[userID]
	s.mu.Unlock()
	if !ok {
		return cart.New(userID), nil
	}
	var c cart.Cart
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	return &c, nil
}

func (s *MemoryCartStore) Save(ctx context.Context, c *cart.Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[c.UserID] = b
	return nil
}

func (s *MemoryCartStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}
