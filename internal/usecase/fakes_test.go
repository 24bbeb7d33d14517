package usecase_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// =====================
// インメモリのストア（Tx は並行に動き、失敗時は自分の書き込みだけ戻す）
// =====================

type memState struct {
	products    map[int64]model.Product
	variants    map[int64]model.ProductVariant
	coupons     map[int64]model.Coupon
	redemptions []model.CouponRedemption
	orders      map[int64]model.Order
	returns     map[int64]model.ReturnRequest
	audits      []model.AuditLog
	adjustments []model.InventoryAdjustment
	nextID      int64
}

type memStore struct {
	mu sync.Mutex
	st memState

	// LockByCode で読んだ直後に呼ばれる
	afterCouponLock func()
}

var _ repo.TxRepos = (*memStore)(nil)
var _ repo.TxRepos = (*memTx)(nil)
var _ repo.TransactionManager = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{st: memState{
		products: map[int64]model.Product{},
		variants: map[int64]model.ProductVariant{},
		coupons:  map[int64]model.Coupon{},
		orders:   map[int64]model.Order{},
		returns:  map[int64]model.ReturnRequest{},
		nextID:   100,
	}}
}

func (s *memStore) id() int64 {
	s.st.nextID++
	return s.st.nextID
}

// 1つの Tx の取り消し操作。s.mu を持った状態で逆順に実行する
type memTx struct {
	s    *memStore
	undo []func()
}

func (t *memTx) onRollback(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

func (s *memStore) Orders() repo.OrderRepository         { return fakeOrders{s: s} }
func (s *memStore) OrderItems() repo.OrderItemRepository { return fakeOrderItems{s: s} }
func (s *memStore) Inventory() repo.InventoryRepository  { return fakeInventory{s: s} }
func (s *memStore) Products() repo.ProductRepository     { return fakeProducts{s: s} }
func (s *memStore) Coupons() repo.CouponRepository       { return fakeCoupons{s: s} }
func (s *memStore) Returns() repo.ReturnRepository       { return fakeReturns{s: s} }
func (s *memStore) AuditLogs() repo.AuditLogRepository   { return fakeAudits{s: s} }

func (t *memTx) Orders() repo.OrderRepository         { return fakeOrders{s: t.s, tx: t} }
func (t *memTx) OrderItems() repo.OrderItemRepository { return fakeOrderItems{s: t.s, tx: t} }
func (t *memTx) Inventory() repo.InventoryRepository  { return fakeInventory{s: t.s, tx: t} }
func (t *memTx) Products() repo.ProductRepository     { return fakeProducts{s: t.s, tx: t} }
func (t *memTx) Coupons() repo.CouponRepository       { return fakeCoupons{s: t.s, tx: t} }
func (t *memTx) Returns() repo.ReturnRepository       { return fakeReturns{s: t.s, tx: t} }
func (t *memTx) AuditLogs() repo.AuditLogRepository   { return fakeAudits{s: t.s, tx: t} }

// テスト用の初期データ投入
func (s *memStore) addProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addProductLocked(p)
}

func (s *memStore) addProductLocked(p model.Product) model.Product {
	if p.ID == 0 {
		p.ID = s.id()
	}
	for i := range p.Variants {
		if p.Variants[i].ID == 0 {
			p.Variants[i].ID = s.id()
		}
		p.Variants[i].ProductID = p.ID
		s.st.variants[p.Variants[i].ID] = p.Variants[i]
	}
	p.Variants = nil
	s.st.products[p.ID] = p
	return s.productLocked(p.ID)
}

func (s *memStore) addCoupon(c model.Coupon) model.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.st.coupons[c.ID] = c
	return c
}

func (s *memStore) putOrder(o model.Order) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.id()
	}
	s.st.orders[o.ID] = o
	return o
}

func (s *memStore) stock(variantID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.variants[variantID].Stock
}

func (s *memStore) coupon(id int64) model.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.coupons[id]
}

func (s *memStore) order(id int64) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.orders[id]
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *memStore) auditActions() []model.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AuditAction, 0, len(s.st.audits))
	for _, a := range s.st.audits {
		out = append(out, a.Action)
	}
	return out
}

func (s *memStore) redemptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.redemptions)
}

func (s *memStore) productLocked(id int64) model.Product {
	p := s.st.products[id]
	p.Variants = nil
	for _, v := range s.st.variants {
		if v.ProductID == id {
			p.Variants = append(p.Variants, v)
		}
	}
	sort.Slice(p.Variants, func(i, j int) bool { return p.Variants[i].ID < p.Variants[j].ID })
	return p
}

// =====================
// products
// =====================

type fakeProducts struct {
	s  *memStore
	tx *memTx
}

func (f fakeProducts) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []model.Product{}
	for id, p := range f.s.st.products {
		if p.IsActive || q.IncludeInactive {
			out = append(out, f.s.productLocked(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f fakeProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.st.products[id]; !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return f.s.productLocked(id), nil
}

func (f fakeProducts) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, p := range f.s.st.products {
		if p.Slug == slug {
			return f.s.productLocked(id), nil
		}
	}
	return model.Product{}, repo.ErrNotFound
}

func (f fakeProducts) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []model.Product{}
	for _, id := range ids {
		if _, ok := f.s.st.products[id]; ok {
			out = append(out, f.s.productLocked(id))
		}
	}
	return out, nil
}

func (f fakeProducts) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, p := range f.s.st.products {
		if p.Slug == slug && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := f.s.addProductLocked(p)
	f.tx.onRollback(func() {
		delete(f.s.st.products, out.ID)
		for _, v := range out.Variants {
			delete(f.s.st.variants, v.ID)
		}
	})
	return out, nil
}

func (f fakeProducts) Update(ctx context.Context, p model.Product) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	prev, ok := f.s.st.products[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Variants = nil
	f.s.st.products[p.ID] = p
	f.tx.onRollback(func() { f.s.st.products[p.ID] = prev })
	return nil
}

func (f fakeProducts) SoftDelete(ctx context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	prev, ok := f.s.st.products[id]
	if !ok {
		return repo.ErrNotFound
	}
	delete(f.s.st.products, id)
	f.tx.onRollback(func() { f.s.st.products[id] = prev })
	return nil
}

// =====================
// inventory
// =====================

type fakeInventory struct {
	s  *memStore
	tx *memTx
}

func (f fakeInventory) FindVariantByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	v, ok := f.s.st.variants[variantID]
	if !ok {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	return v, nil
}

func (f fakeInventory) UpsertVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, cur := range f.s.st.variants {
		if cur.ProductID == v.ProductID && cur.Size == v.Size && cur.Color == v.Color {
			prev := cur
			cur.Stock = v.Stock
			f.s.st.variants[id] = cur
			f.tx.onRollback(func() { f.s.st.variants[id] = prev })
			return cur, nil
		}
	}
	v.ID = f.s.id()
	f.s.st.variants[v.ID] = v
	f.tx.onRollback(func() { delete(f.s.st.variants, v.ID) })
	return v, nil
}

func (f fakeInventory) DeleteVariant(ctx context.Context, productID, variantID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	v, ok := f.s.st.variants[variantID]
	if !ok || v.ProductID != productID {
		return repo.ErrNotFound
	}
	delete(f.s.st.variants, variantID)
	f.tx.onRollback(func() { f.s.st.variants[variantID] = v })
	return nil
}

func (f fakeInventory) SetStock(ctx context.Context, variantID int64, newStock int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	v, ok := f.s.st.variants[variantID]
	if !ok {
		return repo.ErrNotFound
	}
	prev := v.Stock
	v.Stock = newStock
	f.s.st.variants[variantID] = v
	f.tx.onRollback(func() { f.s.addStockLocked(variantID, prev-newStock) })
	return nil
}

// stock >= qty のときだけ減らす
func (f fakeInventory) DecreaseStockIfEnough(ctx context.Context, variantID int64, qty int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	v, ok := f.s.st.variants[variantID]
	if !ok || v.Stock < qty {
		return false, nil
	}
	f.s.addStockLocked(variantID, -qty)
	f.tx.onRollback(func() { f.s.addStockLocked(variantID, qty) })
	return true, nil
}

func (f fakeInventory) IncreaseStock(ctx context.Context, variantID int64, qty int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.st.variants[variantID]; !ok {
		return repo.ErrNotFound
	}
	f.s.addStockLocked(variantID, qty)
	f.tx.onRollback(func() { f.s.addStockLocked(variantID, -qty) })
	return nil
}

func (f fakeInventory) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	adj.ID = f.s.id()
	f.s.st.adjustments = append(f.s.st.adjustments, adj)
	f.tx.onRollback(func() {
		out := f.s.st.adjustments[:0]
		for _, a := range f.s.st.adjustments {
			if a.ID != adj.ID {
				out = append(out, a)
			}
		}
		f.s.st.adjustments = out
	})
	return nil
}

func (s *memStore) addStockLocked(variantID, delta int64) {
	v, ok := s.st.variants[variantID]
	if !ok {
		return
	}
	v.Stock += delta
	s.st.variants[variantID] = v
}

// =====================
// coupons
// =====================

type fakeCoupons struct {
	s  *memStore
	tx *memTx
}

func (f fakeCoupons) Create(ctx context.Context, c model.Coupon) (model.Coupon, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, cur := range f.s.st.coupons {
		if cur.Code == c.Code {
			return model.Coupon{}, repo.ErrConflict
		}
	}
	c.ID = f.s.id()
	f.s.st.coupons[c.ID] = c
	f.tx.onRollback(func() { delete(f.s.st.coupons, c.ID) })
	return c, nil
}

func (f fakeCoupons) Update(ctx context.Context, c model.Coupon) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	prev, ok := f.s.st.coupons[c.ID]
	if !ok {
		return repo.ErrNotFound
	}
	f.s.st.coupons[c.ID] = c
	f.tx.onRollback(func() { f.s.st.coupons[c.ID] = prev })
	return nil
}

func (f fakeCoupons) Delete(ctx context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	prev, ok := f.s.st.coupons[id]
	delete(f.s.st.coupons, id)
	if ok {
		f.tx.onRollback(func() { f.s.st.coupons[id] = prev })
	}
	return nil
}

func (f fakeCoupons) FindByID(ctx context.Context, id int64) (model.Coupon, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.st.coupons[id]
	if !ok {
		return model.Coupon{}, repo.ErrNotFound
	}
	return c, nil
}

func (f fakeCoupons) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.st.coupons {
		if c.Code == strings.ToUpper(code) {
			return c, nil
		}
	}
	return model.Coupon{}, repo.ErrNotFound
}

func (f fakeCoupons) List(ctx context.Context, filter repo.CouponListFilter) ([]model.Coupon, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []model.Coupon{}
	for _, c := range f.s.st.coupons {
		if filter.IsActive == nil || c.IsActive == *filter.IsActive {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

// 行ロックはしないので、読んだ値は他の Tx の加算で古くなりうる
func (f fakeCoupons) LockByCode(ctx context.Context, code string) (model.Coupon, error) {
	c, err := f.FindByCode(ctx, code)
	if err == nil && f.s.afterCouponLock != nil {
		f.s.afterCouponLock()
	}
	return c, err
}

func (f fakeCoupons) CountRedemptionsByUser(ctx context.Context, couponID, userID int64) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for _, r := range f.s.st.redemptions {
		if r.CouponID == couponID && r.UserID == userID {
			n++
		}
	}
	return n, nil
}

// 判定と加算を1回のロックで行う
func (f fakeCoupons) IncrementUsageIfBelowLimit(ctx context.Context, couponID int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.st.coupons[couponID]
	if !ok || (c.MaxUses != nil && c.UsedCount >= *c.MaxUses) {
		return false, nil
	}
	f.s.addUsageLocked(couponID, 1)
	f.tx.onRollback(func() { f.s.addUsageLocked(couponID, -1) })
	return true, nil
}

func (f fakeCoupons) CreateRedemption(ctx context.Context, r model.CouponRedemption) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r.ID = f.s.id()
	f.s.st.redemptions = append(f.s.st.redemptions, r)
	f.tx.onRollback(func() { f.s.removeRedemptionLocked(r.ID) })
	return nil
}

func (f fakeCoupons) ReleaseForOrder(ctx context.Context, orderID int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.st.redemptions {
		if r.OrderID != orderID {
			continue
		}
		r := r
		f.s.removeRedemptionLocked(r.ID)
		decremented := false
		if c, ok := f.s.st.coupons[r.CouponID]; ok && c.UsedCount > 0 {
			f.s.addUsageLocked(r.CouponID, -1)
			decremented = true
		}
		f.tx.onRollback(func() {
			f.s.st.redemptions = append(f.s.st.redemptions, r)
			if decremented {
				f.s.addUsageLocked(r.CouponID, 1)
			}
		})
		return true, nil
	}
	return false, nil
}

func (s *memStore) addUsageLocked(couponID, delta int64) {
	c, ok := s.st.coupons[couponID]
	if !ok {
		return
	}
	c.UsedCount += delta
	s.st.coupons[couponID] = c
}

func (s *memStore) removeRedemptionLocked(id int64) {
	out := s.st.redemptions[:0]
	for _, r := range s.st.redemptions {
		if r.ID != id {
			out = append(out, r)
		}
	}
	s.st.redemptions = out
}

// =====================
// orders
// =====================

type fakeOrders struct {
	s  *memStore
	tx *memTx
}

func (f fakeOrders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (f fakeOrders) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return f.FindByID(ctx, orderID)
}

func (f fakeOrders) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []model.Order{}
	for _, o := range f.s.st.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (f fakeOrders) Create(ctx context.Context, order model.Order) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, o := range f.s.st.orders {
		if o.UserID == order.UserID && o.IdempotencyKey == order.IdempotencyKey {
			return 0, repo.ErrConflict
		}
	}
	order.ID = f.s.id()
	order.Items = nil
	f.s.st.orders[order.ID] = order
	f.tx.onRollback(func() { delete(f.s.st.orders, order.ID) })
	return order.ID, nil
}

// 注文1件への書き込み。戻すときは書き込み前の行に戻す
func (f fakeOrders) mutate(orderID int64, fn func(o *model.Order) bool) bool {
	o, ok := f.s.st.orders[orderID]
	if !ok {
		return false
	}
	prev := o
	prev.Items = append([]model.OrderItem(nil), o.Items...)
	if !fn(&o) {
		return false
	}
	f.s.st.orders[orderID] = o
	f.tx.onRollback(func() { f.s.st.orders[orderID] = prev })
	return true
}

func (f fakeOrders) UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, at time.Time) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.mutate(orderID, func(o *model.Order) bool {
		if o.Status != from {
			return false
		}
		o.Status = to
		if to == model.OrderStatusDelivered {
			o.DeliveredAt = &at
		}
		return true
	}), nil
}

func (f fakeOrders) MarkPaid(ctx context.Context, orderID int64, reference string, paidAt time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ok := f.mutate(orderID, func(o *model.Order) bool {
		o.IsPaid = true
		o.PaidAt = &paidAt
		if reference != "" {
			o.PaymentReference = reference
		}
		return true
	})
	if !ok {
		return repo.ErrNotFound
	}
	return nil
}

func (f fakeOrders) SetPaymentReference(ctx context.Context, orderID int64, reference string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ok := f.mutate(orderID, func(o *model.Order) bool {
		o.PaymentReference = reference
		return true
	})
	if !ok {
		return repo.ErrNotFound
	}
	return nil
}

func (f fakeOrders) UpdateShipping(ctx context.Context, orderID int64, info repo.ShippingInfo) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ok := f.mutate(orderID, func(o *model.Order) bool {
		o.TrackingNumber = info.TrackingNumber
		o.Carrier = info.Carrier
		o.ShippingLabelURL = info.ShippingLabelURL
		return true
	})
	if !ok {
		return repo.ErrNotFound
	}
	return nil
}

func (f fakeOrders) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, o := range f.s.st.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (f fakeOrders) ListAdmin(ctx context.Context, filter repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []model.Order{}
	for _, o := range f.s.st.orders {
		if filter.Status != "" && string(o.Status) != filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

type fakeOrderItems struct {
	s  *memStore
	tx *memTx
}

func (f fakeOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ok := fakeOrders{s: f.s, tx: f.tx}.mutate(orderID, func(o *model.Order) bool {
		for _, it := range items {
			it.ID = f.s.id()
			it.OrderID = orderID
			o.Items = append(o.Items, it)
		}
		return true
	})
	if !ok {
		return repo.ErrNotFound
	}
	return nil
}

// =====================
// returns / audit
// =====================

type fakeReturns struct {
	s  *memStore
	tx *memTx
}

// 注文ごとに Rejected 以外は1件まで
func (f fakeReturns) Create(ctx context.Context, r model.ReturnRequest) (model.ReturnRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, cur := range f.s.st.returns {
		if cur.OrderID == r.OrderID && cur.Status != model.ReturnStatusRejected {
			return model.ReturnRequest{}, repo.ErrConflict
		}
	}
	r.ID = f.s.id()
	f.s.st.returns[r.ID] = r
	f.tx.onRollback(func() { delete(f.s.st.returns, r.ID) })
	return r, nil
}

func (f fakeReturns) FindByID(ctx context.Context, id int64) (model.ReturnRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.st.returns[id]
	if !ok {
		return model.ReturnRequest{}, repo.ErrNotFound
	}
	return r, nil
}

func (f fakeReturns) HasOpenForOrder(ctx context.Context, orderID int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.st.returns {
		if r.OrderID == orderID && r.Status != model.ReturnStatusRejected {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeReturns) List(ctx context.Context, filter repo.ReturnListFilter) ([]model.ReturnRequest, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []model.ReturnRequest{}
	for _, r := range f.s.st.returns {
		if filter.UserID != nil && r.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && string(r.Status) != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f fakeReturns) UpdateStatus(ctx context.Context, id int64, from, to model.ReturnStatus, note string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.st.returns[id]
	if !ok || r.Status != from {
		return false, nil
	}
	prev := r
	r.Status = to
	if note != "" {
		r.AdminNote = note
	}
	f.s.st.returns[id] = r
	f.tx.onRollback(func() { f.s.st.returns[id] = prev })
	return true, nil
}

type fakeAudits struct {
	s  *memStore
	tx *memTx
}

func (f fakeAudits) Create(ctx context.Context, log model.AuditLog) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	log.ID = f.s.id()
	f.s.st.audits = append(f.s.st.audits, log)
	f.tx.onRollback(func() {
		out := f.s.st.audits[:0]
		for _, a := range f.s.st.audits {
			if a.ID != log.ID {
				out = append(out, a)
			}
		}
		f.s.st.audits = out
	})
	return nil
}

func (f fakeAudits) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return append([]model.AuditLog(nil), f.s.st.audits...), int64(len(f.s.st.audits)), nil
}

// =====================
// Tx 外で使うもの
// =====================

type memUsers struct {
	mu    sync.Mutex
	users map[int64]model.User
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{users: map[int64]model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repo.ErrConflict
		}
	}
	user.ID = int64(len(m.users) + 1)
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) Update(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) IncrementTokenVersion(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	u.TokenVersion++
	m.users[userID] = u
	return nil
}

func (m *memUsers) UpdateRole(ctx context.Context, userID int64, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	u.Role = role
	m.users[userID] = u
	return nil
}

func (m *memUsers) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

type memAddresses struct {
	mu     sync.Mutex
	list   map[int64]model.Address
	nextID int64
}

func newMemAddresses() *memAddresses {
	return &memAddresses{list: map[int64]model.Address{}}
}

func (m *memAddresses) Create(ctx context.Context, a model.Address) (model.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.list[a.ID] = a
	return a, nil
}

func (m *memAddresses) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Address{}
	for _, a := range m.list {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memAddresses) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	list, _ := m.ListByUserID(ctx, userID)
	return int64(len(list)), nil
}

func (m *memAddresses) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.list[addressID]
	if !ok {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

func (m *memAddresses) Update(ctx context.Context, a model.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.list[a.ID]
	if !ok {
		return repo.ErrNotFound
	}
	a.IsDefault = cur.IsDefault
	m.list[a.ID] = a
	return nil
}

func (m *memAddresses) Delete(ctx context.Context, addressID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.list[addressID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.list, addressID)
	return nil
}

func (m *memAddresses) SetDefault(ctx context.Context, userID, addressID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.list[addressID]; !ok || a.UserID != userID {
		return repo.ErrNotFound
	}
	for id, a := range m.list {
		if a.UserID == userID {
			a.IsDefault = id == addressID
			m.list[id] = a
		}
	}
	return nil
}

type memCarts struct {
	mu    sync.Mutex
	carts map[int64]cart.Cart
}

func newMemCarts() *memCarts {
	return &memCarts{carts: map[int64]cart.Cart{}}
}

func (m *memCarts) Get(ctx context.Context, userID int64) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return cart.New(userID), nil
	}
	c.Items = append([]cart.Item{}, c.Items...)
	return &c, nil
}

func (m *memCarts) Save(ctx context.Context, c *cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Items = append([]cart.Item{}, c.Items...)
	m.carts[c.UserID] = cp
	return nil
}

func (m *memCarts) Delete(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type noopEvents struct{}

func (noopEvents) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	return nil
}

type nopCouponCache struct{}

func (nopCouponCache) Get(ctx context.Context, code string) (model.Coupon, bool) {
	return model.Coupon{}, false
}
func (nopCouponCache) Set(ctx context.Context, c model.Coupon)     {}
func (nopCouponCache) Invalidate(ctx context.Context, code string) {}
