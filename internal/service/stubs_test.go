package service_test

// In-memory repository stubs. DB() returns nil so the services run their
// transactional closures directly, without a database.

import (
	"context"
	"sync"
	"time"

	"aurumpos/internal/dto"
	"aurumpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── ProductRepository ────────────────────────────────────────────────────────

type stubProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) add(p *model.Product) *model.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return p
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	r.add(p)
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) ListActive(_ context.Context) ([]model.Product, error) {
	var result []model.Product
	for _, p := range r.products {
		if p.Active {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *stubProductRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubProductRepo) LockByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubProductRepo) SetStockCachedTx(_ *gorm.DB, id uuid.UUID, balance int) error {
	if p, ok := r.products[id]; ok {
		p.StockCached = balance
	}
	return nil
}

func (r *stubProductRepo) SetStockCached(_ context.Context, id uuid.UUID, balance int) error {
	return r.SetStockCachedTx(nil, id, balance)
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

// ── LedgerRepository ─────────────────────────────────────────────────────────

type stubLedgerRepo struct {
	mu      sync.Mutex
	entries []model.StockLedgerEntry
}

func newStubLedgerRepo() *stubLedgerRepo { return &stubLedgerRepo{} }

func (r *stubLedgerRepo) CreateTx(_ *gorm.DB, e *model.StockLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *stubLedgerRepo) sum(productID uuid.UUID, branchID *uuid.UUID) int {
	total := 0
	for _, e := range r.entries {
		if e.ProductID != productID {
			continue
		}
		if branchID != nil && (e.BranchID == nil || *e.BranchID != *branchID) {
			continue
		}
		total += e.Quantity
	}
	return total
}

func (r *stubLedgerRepo) Balance(_ context.Context, productID uuid.UUID, branchID *uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sum(productID, branchID), nil
}

func (r *stubLedgerRepo) BalanceTx(_ *gorm.DB, productID uuid.UUID, branchID *uuid.UUID) (int, error) {
	return r.Balance(context.Background(), productID, branchID)
}

func (r *stubLedgerRepo) List(_ context.Context, filter dto.LedgerFilter) ([]model.StockLedgerEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.StockLedgerEntry
	for _, e := range r.entries {
		if filter.ProductID != "" && e.ProductID.String() != filter.ProductID {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		result = append(result, e)
	}
	return result, int64(len(result)), nil
}

func (r *stubLedgerRepo) DB() *gorm.DB { return nil }

func (r *stubLedgerRepo) entriesOf(productID uuid.UUID, entryType string) []model.StockLedgerEntry {
	var result []model.StockLedgerEntry
	for _, e := range r.entries {
		if e.ProductID == productID && e.Type == entryType {
			result = append(result, e)
		}
	}
	return result
}

// ── IdempotencyRepository ────────────────────────────────────────────────────

type idemKey struct{ key, op string }

type stubIdempotencyRepo struct {
	mu      sync.Mutex
	records map[idemKey]*model.IdempotencyRecord
}

func newStubIdempotencyRepo() *stubIdempotencyRepo {
	return &stubIdempotencyRepo{records: make(map[idemKey]*model.IdempotencyRecord)}
}

func (r *stubIdempotencyRepo) Find(_ context.Context, key, operationType string) (*model.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[idemKey{key, operationType}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rec, nil
}

func (r *stubIdempotencyRepo) CreateTx(_ *gorm.DB, rec *model.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := idemKey{rec.Key, rec.OperationType}
	if _, exists := r.records[k]; exists {
		return gorm.ErrDuplicatedKey
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r.records[k] = rec
	return nil
}

func (r *stubIdempotencyRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(r.records, k)
			n++
		}
	}
	return n, nil
}

func (r *stubIdempotencyRepo) DB() *gorm.DB { return nil }

// ── ReservationRepository ────────────────────────────────────────────────────

type stubReservationRepo struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*model.StockReservation
}

func newStubReservationRepo() *stubReservationRepo {
	return &stubReservationRepo{reservations: make(map[uuid.UUID]*model.StockReservation)}
}

func (r *stubReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.StockReservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return res, nil
}

func (r *stubReservationRepo) CreateTx(_ *gorm.DB, res *model.StockReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}
	r.reservations[res.ID] = res
	return nil
}

func (r *stubReservationRepo) UpdateStatusTx(_ *gorm.DB, id uuid.UUID, status string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	res.Status = status
	switch status {
	case model.ReservationConsumed:
		res.ConsumedAt = &at
	case model.ReservationReleased:
		res.ReleasedAt = &at
	}
	return nil
}

func (r *stubReservationRepo) ActiveReservedQty(_ context.Context, productID uuid.UUID, now time.Time, excludeID *uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, res := range r.reservations {
		if res.Status != model.ReservationActive || !res.ExpiresAt.After(now) {
			continue
		}
		if excludeID != nil && res.ID == *excludeID {
			continue
		}
		for _, item := range res.Items {
			if item.ProductID == productID {
				total += item.Quantity
			}
		}
	}
	return total, nil
}

func (r *stubReservationRepo) ActiveReservedQtyTx(_ *gorm.DB, productID uuid.UUID, now time.Time, excludeID *uuid.UUID) (int, error) {
	return r.ActiveReservedQty(context.Background(), productID, now, excludeID)
}

func (r *stubReservationRepo) MarkExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, res := range r.reservations {
		if res.Status == model.ReservationActive && !res.ExpiresAt.After(now) {
			res.Status = model.ReservationExpired
			n++
		}
	}
	return n, nil
}

func (r *stubReservationRepo) DB() *gorm.DB { return nil }

// ── TransferRepository ───────────────────────────────────────────────────────

type stubTransferRepo struct {
	mu        sync.Mutex
	transfers map[uuid.UUID]*model.StockTransfer
}

func newStubTransferRepo() *stubTransferRepo {
	return &stubTransferRepo{transfers: make(map[uuid.UUID]*model.StockTransfer)}
}

func (r *stubTransferRepo) all() []*model.StockTransfer {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.StockTransfer, 0, len(r.transfers))
	for _, t := range r.transfers {
		result = append(result, t)
	}
	return result
}

func (r *stubTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*model.StockTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *stubTransferRepo) CreateTx(_ *gorm.DB, t *model.StockTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.transfers[t.ID] = t
	return nil
}

func (r *stubTransferRepo) LockByIDTx(_ *gorm.DB, id uuid.UUID) (*model.StockTransfer, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubTransferRepo) SaveTx(_ *gorm.DB, t *model.StockTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers[t.ID] = t
	return nil
}

func (r *stubTransferRepo) DB() *gorm.DB { return nil }

// ── CycleCountRepository ─────────────────────────────────────────────────────

type stubCycleCountRepo struct {
	mu     sync.Mutex
	counts map[uuid.UUID]*model.CycleCount
	items  map[uuid.UUID]*model.CycleCountItem
}

func newStubCycleCountRepo() *stubCycleCountRepo {
	return &stubCycleCountRepo{
		counts: make(map[uuid.UUID]*model.CycleCount),
		items:  make(map[uuid.UUID]*model.CycleCountItem),
	}
}

func (r *stubCycleCountRepo) Create(_ context.Context, c *model.CycleCount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.counts[c.ID] = c
	return nil
}

func (r *stubCycleCountRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CycleCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c.Items = c.Items[:0]
	for _, item := range r.items {
		if item.CycleCountID == id {
			c.Items = append(c.Items, *item)
		}
	}
	return c, nil
}

func (r *stubCycleCountRepo) LockByIDTx(_ *gorm.DB, id uuid.UUID) (*model.CycleCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *stubCycleCountRepo) SaveTx(_ *gorm.DB, c *model.CycleCount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[c.ID] = c
	return nil
}

func (r *stubCycleCountRepo) Save(_ context.Context, c *model.CycleCount) error {
	return r.SaveTx(nil, c)
}

func (r *stubCycleCountRepo) CreateItemsTx(_ *gorm.DB, items []model.CycleCountItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = time.Now()
		}
		item := items[i]
		r.items[item.ID] = &item
	}
	return nil
}

func (r *stubCycleCountRepo) ItemsTx(_ *gorm.DB, countID uuid.UUID) ([]model.CycleCountItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.CycleCountItem
	for _, item := range r.items {
		if item.CycleCountID == countID {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (r *stubCycleCountRepo) FindItem(_ context.Context, countID, itemID uuid.UUID) (*model.CycleCountItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok || item.CycleCountID != countID {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (r *stubCycleCountRepo) SaveItem(_ context.Context, item *model.CycleCountItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	return nil
}

func (r *stubCycleCountRepo) UncountedItems(_ context.Context, countID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if item.CycleCountID == countID && item.CountedQty == nil {
			n++
		}
	}
	return n, nil
}

func (r *stubCycleCountRepo) DB() *gorm.DB { return nil }

// ── SaleRepository ───────────────────────────────────────────────────────────

type stubSaleRepo struct {
	mu         sync.Mutex
	sales      map[uuid.UUID]*model.Sale
	nextTicket int
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{sales: make(map[uuid.UUID]*model.Sale)}
}

func (r *stubSaleRepo) CreateTx(_ *gorm.DB, s *model.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	r.sales[s.ID] = s
	return nil
}

func (r *stubSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSaleRepo) NextTicketNumberTx(_ context.Context, _ *gorm.DB) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextTicket++
	return r.nextTicket, nil
}

func (r *stubSaleRepo) DB() *gorm.DB { return nil }

// ── BranchRepository ─────────────────────────────────────────────────────────

type stubBranchRepo struct {
	branches map[uuid.UUID]*model.Branch
}

func newStubBranchRepo() *stubBranchRepo {
	return &stubBranchRepo{branches: make(map[uuid.UUID]*model.Branch)}
}

func (r *stubBranchRepo) add() uuid.UUID {
	id := uuid.New()
	r.branches[id] = &model.Branch{ID: id, Active: true}
	return id
}

func (r *stubBranchRepo) Create(_ context.Context, b *model.Branch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.branches[b.ID] = b
	return nil
}

func (r *stubBranchRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Branch, error) {
	b, ok := r.branches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (r *stubBranchRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	b, ok := r.branches[id]
	return ok && b.Active, nil
}

func (r *stubBranchRepo) ListActive(_ context.Context) ([]model.Branch, error) {
	var result []model.Branch
	for _, b := range r.branches {
		if b.Active {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (r *stubBranchRepo) DB() *gorm.DB { return nil }
