package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-apotek-pos/internal/events"
	"go-apotek-pos/internal/model"
	"go-apotek-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memoryStore backs every fake repository. Sale transactions are serialized
// on txMu, which stands in for the row locks a real database would take.
type memoryStore struct {
	mu         sync.Mutex
	txMu       sync.Mutex
	products   map[uuid.UUID]model.Product
	categories map[uuid.UUID]model.Category
	suppliers  map[uuid.UUID]model.Supplier
	users      map[uuid.UUID]model.User
	sales      []model.Sale

	categoryFinds   int
	categoryCreates int
	supplierCreates int
	activeReads     int

	// hooks
	conflictOn       map[uuid.UUID]bool
	categoryRace     bool
	productCreateErr func(p *model.Product) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		products:   make(map[uuid.UUID]model.Product),
		categories: make(map[uuid.UUID]model.Category),
		suppliers:  make(map[uuid.UUID]model.Supplier),
		users:      make(map[uuid.UUID]model.User),
		conflictOn: make(map[uuid.UUID]bool),
	}
}

func (s *memoryStore) addCategory(name string) model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := model.Category{Name: name}
	c.ID = uuid.New()
	s.categories[c.ID] = c
	return c
}

func (s *memoryStore) addProduct(name string, stock int, price int64, categoryID uuid.UUID) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := model.Product{
		Name:       name,
		Stock:      stock,
		SellPrice:  decimal.NewFromInt(price),
		Unit:       "pcs",
		IsActive:   true,
		CategoryID: categoryID,
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	s.products[p.ID] = p
	return p
}

func (s *memoryStore) product(id uuid.UUID) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memoryStore) saleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales)
}

func (s *memoryStore) categoriesNamed(name string) []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Category
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	return out
}

// ---- products

type memoryProductRepo struct{ s *memoryStore }

func (r memoryProductRepo) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.productCreateErr != nil {
		if err := r.s.productCreateErr(p); err != nil {
			return err
		}
	}
	if _, ok := r.s.categories[p.CategoryID]; !ok {
		return repository.ErrReferenced
	}
	if p.SupplierID != nil {
		if _, ok := r.s.suppliers[*p.SupplierID]; !ok {
			return repository.ErrReferenced
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	r.s.products[p.ID] = *p
	return nil
}

func (r memoryProductRepo) FindAll(context.Context) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if !p.DeletedAt.Valid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memoryProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memoryProductRepo) FindActive(context.Context) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.activeReads++
	out := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if p.IsActive && !p.DeletedAt.Valid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memoryProductRepo) Update(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.categories[p.CategoryID]; !ok {
		return repository.ErrReferenced
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r memoryProductRepo) Delete(_ context.Context, id uuid.UUID, deletedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	p.DeletedBy = deletedBy
	p.DeletedAt.Time, p.DeletedAt.Valid = time.Now(), true
	r.s.products[id] = p
	return nil
}

func (r memoryProductRepo) CountByCategory(_ context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.products {
		if p.CategoryID == id && !p.DeletedAt.Valid {
			n++
		}
	}
	return n, nil
}

func (r memoryProductRepo) CountBySupplier(_ context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.products {
		if p.SupplierID != nil && *p.SupplierID == id && !p.DeletedAt.Valid {
			n++
		}
	}
	return n, nil
}

func (r memoryProductRepo) HasSaleItems(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sale := range r.s.sales {
		for _, it := range sale.Items {
			if it.ProductID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

// ---- categories and suppliers

type memoryCategoryRepo struct{ s *memoryStore }

func (r memoryCategoryRepo) Create(_ context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.categoryRace {
		return repository.ErrDuplicate
	}
	for _, existing := range r.s.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return repository.ErrDuplicate
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.s.categoryCreates++
	r.s.categories[c.ID] = *c
	return nil
}

func (r memoryCategoryRepo) FindAll(context.Context) ([]model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	return out, nil
}

func (r memoryCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r memoryCategoryRepo) FindByName(_ context.Context, name string) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.categoryFinds++
	for _, c := range r.s.categories {
		if strings.EqualFold(c.Name, name) {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memoryCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.categories, id)
	return nil
}

type memorySupplierRepo struct{ s *memoryStore }

func (r memorySupplierRepo) Create(_ context.Context, sup *model.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.suppliers {
		if strings.EqualFold(existing.Name, sup.Name) {
			return repository.ErrDuplicate
		}
	}
	if sup.ID == uuid.Nil {
		sup.ID = uuid.New()
	}
	r.s.supplierCreates++
	r.s.suppliers[sup.ID] = *sup
	return nil
}

func (r memorySupplierRepo) FindAll(context.Context) ([]model.Supplier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Supplier, 0, len(r.s.suppliers))
	for _, sup := range r.s.suppliers {
		out = append(out, sup)
	}
	return out, nil
}

func (r memorySupplierRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sup, ok := r.s.suppliers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sup, nil
}

func (r memorySupplierRepo) FindByName(_ context.Context, name string) (*model.Supplier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sup := range r.s.suppliers {
		if strings.EqualFold(sup.Name, name) {
			return &sup, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memorySupplierRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.suppliers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.suppliers, id)
	return nil
}

// ---- sales

type memorySaleRepo struct{ s *memoryStore }

type memorySaleTx struct {
	s          *memoryStore
	products   map[uuid.UUID]model.Product
	decrements map[uuid.UUID]int
	sales      []model.Sale
}

func (r memorySaleRepo) WithTx(ctx context.Context, fn func(tx repository.SaleTx) error) error {
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	r.s.mu.Lock()
	working := make(map[uuid.UUID]model.Product, len(r.s.products))
	for id, p := range r.s.products {
		working[id] = p
	}
	r.s.mu.Unlock()

	tx := &memorySaleTx{s: r.s, products: working, decrements: make(map[uuid.UUID]int)}
	if err := fn(tx); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, qty := range tx.decrements {
		p := r.s.products[id]
		p.Stock -= qty
		r.s.products[id] = p
	}
	r.s.sales = append(r.s.sales, tx.sales...)
	return nil
}

func (t *memorySaleTx) LockProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	out := make(map[uuid.UUID]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.products[id]; ok && !p.DeletedAt.Valid {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memorySaleTx) InsertSale(_ context.Context, sale *model.Sale) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, existing := range t.s.sales {
		if existing.TransactionNo == sale.TransactionNo {
			return repository.ErrDuplicate
		}
	}
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	sale.CreatedAt = time.Now()
	stored := *sale
	stored.Items = make([]model.SaleItem, len(sale.Items))
	for i := range sale.Items {
		sale.Items[i].ID = uuid.New()
		sale.Items[i].SaleID = sale.ID
		stored.Items[i] = sale.Items[i]
		stored.Items[i].Product = nil
	}
	t.sales = append(t.sales, stored)
	return nil
}

func (t *memorySaleTx) DecrementStock(_ context.Context, id uuid.UUID, qty int, updatedBy string) error {
	if t.s.conflictOn[id] {
		return repository.ErrStockConflict
	}
	p, ok := t.products[id]
	if !ok || p.Stock < qty {
		return repository.ErrStockConflict
	}
	p.Stock -= qty
	p.UpdatedBy = updatedBy
	t.products[id] = p
	t.decrements[id] += qty
	return nil
}

func (r memorySaleRepo) FindAll(_ context.Context, filter repository.SaleFilter) ([]model.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Sale, 0, len(r.s.sales))
	for _, sale := range r.s.sales {
		if filter.Start != nil && sale.CreatedAt.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && sale.CreatedAt.After(*filter.End) {
			continue
		}
		out = append(out, sale)
	}
	return out, nil
}

func (r memorySaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sale := range r.s.sales {
		if sale.ID == id {
			return &sale, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memorySaleRepo) Summary(ctx context.Context, filter repository.SaleFilter) (*repository.SaleSummary, error) {
	sales, _ := r.FindAll(ctx, filter)
	summary := &repository.SaleSummary{TotalSales: decimal.Zero}
	for _, sale := range sales {
		summary.TotalTransactions++
		summary.TotalSales = summary.TotalSales.Add(sale.TotalPrice)
	}
	return summary, nil
}

// ---- users

type memoryUserRepo struct{ s *memoryStore }

func (r memoryUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memoryUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memoryUserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r memoryUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hashed string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hashed
	r.s.users[id] = u
	return nil
}

func (r memoryUserRepo) UpdateLastSeen(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	u.LastSeenAt = &now
	r.s.users[id] = u
	return nil
}

// ---- events

type recordedEvent struct {
	Topic string
	Event events.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Topic: topic, Event: evt})
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Topic)
	}
	return out
}

var testActor = events.Actor{ID: uuid.NewString(), Name: "Admin"}
