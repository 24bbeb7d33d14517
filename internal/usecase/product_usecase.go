package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type ProductUsecase struct {
	productRepo repo.ProductRepository
	tx          repo.TransactionManager
	clock       Clock
}

// DI
func NewProductUsecase(productRepo repo.ProductRepository, tx repo.TransactionManager, clock Clock) *ProductUsecase {
	return &ProductUsecase{productRepo: productRepo, tx: tx, clock: clock}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	Gender   string
	MinPrice *model.Money
	MaxPrice *model.Money
	Featured *bool
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type VariantInput struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	Stock int64  `json:"stock"`
}

type ProductInput struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Price         model.Money    `json:"price"`
	DiscountPrice *model.Money   `json:"discount_price"`
	Category      string         `json:"category"`
	Gender        model.Gender   `json:"gender"`
	Image         string         `json:"image"`
	IsFeatured    bool           `json:"is_featured"`
	IsActive      bool           `json:"is_active"`
	Variants      []VariantInput `json:"variants"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	return u.list(ctx, in, false)
}

// 非公開も含む
func (u *ProductUsecase) AdminListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	return u.list(ctx, in, true)
}

func (u *ProductUsecase) list(ctx context.Context, in ListProductsInput, includeInactive bool) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, badRequest("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, badRequest("invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, badRequest("q too long")
	}
	if in.Gender != "" && !model.Gender(in.Gender).IsValid() {
		return ProductListOutput{}, badRequest("invalid gender")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, badRequest("min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, badRequest("max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, badRequest("min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, badRequest("invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:            in.Page,
		Limit:           in.Limit,
		Q:               strings.TrimSpace(in.Q),
		Category:        in.Category,
		Gender:          in.Gender,
		MinPrice:        in.MinPrice,
		MaxPrice:        in.MaxPrice,
		Featured:        in.Featured,
		Sort:            in.Sort,
		IncludeInactive: includeInactive,
	})
	if err != nil {
		return ProductListOutput{}, dbError()
	}

	return ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// 数字ならID、それ以外はslug
func (u *ProductUsecase) GetProductDetail(ctx context.Context, idOrSlug string) (model.Product, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return model.Product{}, badRequest("invalid product id")
	}

	var (
		p   model.Product
		err error
	)
	if id, convErr := strconv.ParseInt(idOrSlug, 10, 64); convErr == nil {
		if id <= 0 {
			return model.Product{}, badRequest("invalid product id")
		}
		p, err = u.productRepo.FindByID(ctx, id)
	} else {
		p, err = u.productRepo.FindBySlug(ctx, idOrSlug)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, dbError()
	}

	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return p, nil
}

func validateProductInput(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return badRequest("name required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return badRequest("category required")
	}
	if !in.Gender.IsValid() {
		return badRequest("invalid gender")
	}
	if in.Price.IsNegative() {
		return badRequest("price must be >= 0")
	}
	if in.DiscountPrice != nil {
		if in.DiscountPrice.IsNegative() {
			return badRequest("discount_price must be >= 0")
		}
		if !in.DiscountPrice.LessThan(in.Price) {
			return badRequest("discount_price must be less than price")
		}
	}
	seen := map[[2]string]bool{}
	for _, v := range in.Variants {
		if err := validateVariantInput(v); err != nil {
			return err
		}
		k := [2]string{v.Size, v.Color}
		if seen[k] {
			return badRequest("duplicate variant: " + v.Size + "/" + v.Color)
		}
		seen[k] = true
	}
	return nil
}

func validateVariantInput(v VariantInput) error {
	if strings.TrimSpace(v.Size) == "" || strings.TrimSpace(v.Color) == "" {
		return badRequest("variant size and color required")
	}
	if v.Stock < 0 {
		return badRequest("stock must be >= 0")
	}
	return nil
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in ProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}

	slug, err := uniqueSlug(ctx, u.productRepo, in.Name, 0)
	if err != nil {
		return model.Product{}, dbError()
	}

	p := model.Product{
		Name:          strings.TrimSpace(in.Name),
		Slug:          slug,
		Description:   in.Description,
		Price:         in.Price,
		DiscountPrice: in.DiscountPrice,
		Category:      strings.TrimSpace(in.Category),
		Gender:        in.Gender,
		Image:         in.Image,
		IsFeatured:    in.IsFeatured,
		IsActive:      in.IsActive,
	}
	for _, v := range in.Variants {
		p.Variants = append(p.Variants, model.ProductVariant{
			Size:  strings.TrimSpace(v.Size),
			Color: strings.TrimSpace(v.Color),
			Stock: v.Stock,
		})
	}

	created, err := u.productRepo.Create(ctx, p)
	if errors.Is(err, repo.ErrConflict) {
		return model.Product{}, NewHTTPError(http.StatusConflict, "product already exists")
	}
	if err != nil {
		return model.Product{}, dbError()
	}
	return created, nil
}

// variants は upsert（指定がないものは消さない）
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in ProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, badRequest("invalid product id")
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		current, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}

		slug := current.Slug
		if strings.TrimSpace(in.Name) != current.Name {
			if slug, err = uniqueSlug(ctx, r.Products(), in.Name, productID); err != nil {
				return dbError()
			}
		}

		if err := r.Products().Update(ctx, model.Product{
			ID:            productID,
			Name:          strings.TrimSpace(in.Name),
			Slug:          slug,
			Description:   in.Description,
			Price:         in.Price,
			DiscountPrice: in.DiscountPrice,
			Category:      strings.TrimSpace(in.Category),
			Gender:        in.Gender,
			Image:         in.Image,
			IsFeatured:    in.IsFeatured,
			IsActive:      in.IsActive,
		}); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return dbError()
		}

		for _, v := range in.Variants {
			if _, err := r.Inventory().UpsertVariant(ctx, model.ProductVariant{
				ProductID: productID,
				Size:      strings.TrimSpace(v.Size),
				Color:     strings.TrimSpace(v.Color),
				Stock:     v.Stock,
			}); err != nil {
				return dbError()
			}
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return model.Product{}, dbError()
	}
	return p, nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return badRequest("invalid product id")
	}

	err := u.productRepo.SoftDelete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return dbError()
	}
	return nil
}

func (u *ProductUsecase) AdminUpsertVariant(ctx context.Context, adminUserID, productID int64, in VariantInput) (model.ProductVariant, error) {
	if adminUserID <= 0 {
		return model.ProductVariant{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateVariantInput(in); err != nil {
		return model.ProductVariant{}, err
	}

	var out model.ProductVariant
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().FindByID(ctx, productID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return dbError()
		}
		v, err := r.Inventory().UpsertVariant(ctx, model.ProductVariant{
			ProductID: productID,
			Size:      strings.TrimSpace(in.Size),
			Color:     strings.TrimSpace(in.Color),
			Stock:     in.Stock,
		})
		if err != nil {
			return dbError()
		}
		out = v
		return nil
	})
	return out, err
}

func (u *ProductUsecase) AdminDeleteVariant(ctx context.Context, adminUserID, productID, variantID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		err := r.Inventory().DeleteVariant(ctx, productID, variantID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}
		return nil
	})
}

// 在庫の現在値を設定し、調整履歴と監査ログを残す
func (u *ProductUsecase) AdminUpdateInventory(ctx context.Context, adminUserID int64, variantID int64, newStock int64, reason string) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if variantID <= 0 {
		return badRequest("invalid variant id")
	}
	if newStock < 0 {
		return badRequest("stock must be >= 0")
	}
	if strings.TrimSpace(reason) == "" {
		return badRequest("reason required")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		v, err := r.Inventory().FindVariantByID(ctx, variantID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}

		if err := r.Inventory().SetStock(ctx, variantID, newStock); err != nil {
			return dbError()
		}

		now := u.clock.Now()
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   v.ProductID,
			VariantID:   variantID,
			AdminUserID: adminUserID,
			Delta:       newStock - v.Stock,
			Reason:      strings.TrimSpace(reason),
			CreatedAt:   now,
		}); err != nil {
			return dbError()
		}

		//「誰が」「何を」「どの対象に」「どう変えたか」を残す
		return writeAudit(ctx, r.AuditLogs(), model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   v.ProductID,
			CreatedAt:    now,
		}, map[string]interface{}{"variant_id": variantID, "stock": v.Stock},
			map[string]interface{}{"variant_id": variantID, "stock": newStock})
	})
}

// before/after はJSON文字列で保存する
func writeAudit(ctx context.Context, logs repo.AuditLogRepository, log model.AuditLog, before, after interface{}) error {
	if before != nil {
		b, err := json.Marshal(before)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		log.BeforeJSON = string(b)
	}
	if after != nil {
		b, err := json.Marshal(after)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		log.AfterJSON = string(b)
	}
	if err := logs.Create(ctx, log); err != nil {
		return dbError()
	}
	return nil
}
