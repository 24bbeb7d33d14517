package usecase

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// /cart の業務ロジック。カートは CartStore（Redis かメモリ）に置く
type CartUsecase struct {
	store       repo.CartStore
	productRepo repo.ProductRepository
	clock       Clock
}

func NewCartUsecase(store repo.CartStore, productRepo repo.ProductRepository, clock Clock) *CartUsecase {
	return &CartUsecase{store: store, productRepo: productRepo, clock: clock}
}

type CartResponse struct {
	Items    []cart.Item `json:"items"`
	Subtotal model.Money `json:"subtotal"`
	Count    int64       `json:"count"`
}

type AddCartInput struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int64  `json:"quantity"`
}

type UpdateCartItemInput struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int64  `json:"quantity"`
}

func toCartResponse(c *cart.Cart) CartResponse {
	return CartResponse{Items: c.Items, Subtotal: c.Subtotal(), Count: c.Count()}
}

// 表示価格は現在の実効価格に合わせる。非公開・削除済みの商品は外す
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	c, err := u.load(ctx, userID)
	if err != nil {
		return CartResponse{}, err
	}
	if c.IsEmpty() {
		return toCartResponse(c), nil
	}

	ids := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := u.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return CartResponse{}, dbError()
	}
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	changed := false
	kept := make([]cart.Item, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := byID[it.ProductID]
		if !ok || !p.IsActive {
			changed = true
			continue
		}
		if !it.Price.Equal(p.UnitPrice()) || it.Name != p.Name || it.Image != p.Image {
			it.Price, it.Name, it.Image = p.UnitPrice(), p.Name, p.Image
			changed = true
		}
		kept = append(kept, it)
	}
	c.Items = kept

	if changed {
		if err := u.save(ctx, c); err != nil {
			return CartResponse{}, err
		}
	}
	return toCartResponse(c), nil
}

// 同一キーは数量加算。在庫を超える数量は入れられない
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, badRequest("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, badRequest("invalid quantity")
	}

	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return CartResponse{}, dbError()
	}
	v, ok := p.FindVariant(in.Size, in.Color)
	if !ok {
		return CartResponse{}, badRequest("variant not available")
	}

	c, err := u.load(ctx, userID)
	if err != nil {
		return CartResponse{}, err
	}
	key := cart.Key{ProductID: p.ID, Size: v.Size, Color: v.Color}
	current, _ := c.Get(key)
	if current.Quantity+in.Quantity > v.Stock {
		return CartResponse{}, badRequest("insufficient stock")
	}

	if err := c.Add(cart.Item{
		Key:      key,
		Name:     p.Name,
		Image:    p.Image,
		Price:    p.UnitPrice(),
		Quantity: in.Quantity,
	}); err != nil {
		return CartResponse{}, badRequest(err.Error())
	}
	if err := u.save(ctx, c); err != nil {
		return CartResponse{}, err
	}
	return toCartResponse(c), nil
}

// 0 は削除
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	c, err := u.load(ctx, userID)
	if err != nil {
		return CartResponse{}, err
	}

	key := cart.Key{ProductID: in.ProductID, Size: in.Size, Color: in.Color}
	if in.Quantity > 0 {
		p, err := u.productRepo.FindByID(ctx, in.ProductID)
		if err == nil {
			if v, ok := p.FindVariant(in.Size, in.Color); ok && in.Quantity > v.Stock {
				return CartResponse{}, badRequest("insufficient stock")
			}
		} else if !errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, dbError()
		}
	}

	switch err := c.UpdateQuantity(key, in.Quantity); {
	case errors.Is(err, cart.ErrItemNotFound):
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, cart.ErrInvalidQuantity):
		return CartResponse{}, badRequest("invalid quantity")
	}
	if err := u.save(ctx, c); err != nil {
		return CartResponse{}, err
	}
	return toCartResponse(c), nil
}

func (u *CartUsecase) RemoveCartItem(ctx context.Context, userID int64, key cart.Key) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	c, err := u.load(ctx, userID)
	if err != nil {
		return CartResponse{}, err
	}
	if !c.Remove(key) {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err := u.save(ctx, c); err != nil {
		return CartResponse{}, err
	}
	return toCartResponse(c), nil
}

func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.store.Delete(ctx, userID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "cart error")
	}
	return nil
}

func (u *CartUsecase) load(ctx context.Context, userID int64) (*cart.Cart, error) {
	c, err := u.store.Get(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "cart error")
	}
	return c, nil
}

func (u *CartUsecase) save(ctx context.Context, c *cart.Cart) error {
	c.UpdatedAt = u.clock.Now()
	if err := u.store.Save(ctx, c); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "cart error")
	}
	return nil
}
