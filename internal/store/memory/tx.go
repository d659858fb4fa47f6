package memory

import (
	"context"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/store"
	"github.com/hiddenpay/backend/pkg/address"
	"github.com/hiddenpay/backend/pkg/payment"
)

// memTx stages all writes made during one Atomic call. Reads see staged
// writes first, then the base maps. Records cross the boundary as copies,
// so a caller mutating a returned record cannot bypass Save.
type memTx struct {
	s *Store

	platforms     map[address.Address]*domain.Platform
	merchants     map[address.Address]*domain.Merchant
	products      map[address.Address]*domain.Product
	subscriptions map[address.Address]*domain.Subscription
	accounts      map[address.Address]*payment.Account
}

func newTx(s *Store) *memTx {
	return &memTx{
		s:             s,
		platforms:     make(map[address.Address]*domain.Platform),
		merchants:     make(map[address.Address]*domain.Merchant),
		products:      make(map[address.Address]*domain.Product),
		subscriptions: make(map[address.Address]*domain.Subscription),
		accounts:      make(map[address.Address]*payment.Account),
	}
}

func (t *memTx) apply() {
	merge(t.platforms, t.s.platforms)
	merge(t.merchants, t.s.merchants)
	merge(t.products, t.s.products)
	merge(t.subscriptions, t.s.subscriptions)
	merge(t.accounts, t.s.accounts)
}

func (t *memTx) CreatePlatform(ctx context.Context, p *domain.Platform) error {
	return txCreate(t.platforms, t.s.platforms, p.Address, p)
}

func (t *memTx) GetPlatform(ctx context.Context) (*domain.Platform, error) {
	return txGet(t.platforms, t.s.platforms, address.Platform())
}

func (t *memTx) SavePlatform(ctx context.Context, p *domain.Platform) error {
	return txSave(t.platforms, t.s.platforms, p.Address, p)
}

func (t *memTx) CreateMerchant(ctx context.Context, m *domain.Merchant) error {
	return txCreate(t.merchants, t.s.merchants, m.Address, m)
}

func (t *memTx) GetMerchant(ctx context.Context, addr address.Address) (*domain.Merchant, error) {
	return txGet(t.merchants, t.s.merchants, addr)
}

func (t *memTx) SaveMerchant(ctx context.Context, m *domain.Merchant) error {
	return txSave(t.merchants, t.s.merchants, m.Address, m)
}

func (t *memTx) CreateProduct(ctx context.Context, p *domain.Product) error {
	return txCreate(t.products, t.s.products, p.Address, p)
}

func (t *memTx) GetProduct(ctx context.Context, addr address.Address) (*domain.Product, error) {
	return txGet(t.products, t.s.products, addr)
}

func (t *memTx) SaveProduct(ctx context.Context, p *domain.Product) error {
	return txSave(t.products, t.s.products, p.Address, p)
}

func (t *memTx) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	return txCreate(t.subscriptions, t.s.subscriptions, sub.Address, sub)
}

func (t *memTx) GetSubscription(ctx context.Context, addr address.Address) (*domain.Subscription, error) {
	return txGet(t.subscriptions, t.s.subscriptions, addr)
}

func (t *memTx) SaveSubscription(ctx context.Context, sub *domain.Subscription) error {
	return txSave(t.subscriptions, t.s.subscriptions, sub.Address, sub)
}

func (t *memTx) CreateAccount(ctx context.Context, a *payment.Account) error {
	return txCreate(t.accounts, t.s.accounts, a.Address, a)
}

func (t *memTx) GetAccount(ctx context.Context, addr address.Address) (*payment.Account, error) {
	return txGet(t.accounts, t.s.accounts, addr)
}

func (t *memTx) SaveAccount(ctx context.Context, a *payment.Account) error {
	return txSave(t.accounts, t.s.accounts, a.Address, a)
}

func txCreate[T any](staged, base map[address.Address]*T, addr address.Address, rec *T) error {
	if _, ok := staged[addr]; ok {
		return store.ErrAlreadyExists
	}
	if _, ok := base[addr]; ok {
		return store.ErrAlreadyExists
	}
	cp := *rec
	staged[addr] = &cp
	return nil
}

func txGet[T any](staged, base map[address.Address]*T, addr address.Address) (*T, error) {
	if rec, ok := staged[addr]; ok {
		cp := *rec
		return &cp, nil
	}
	if rec, ok := base[addr]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func txSave[T any](staged, base map[address.Address]*T, addr address.Address, rec *T) error {
	if _, ok := staged[addr]; !ok {
		if _, ok := base[addr]; !ok {
			return store.ErrNotFound
		}
	}
	cp := *rec
	staged[addr] = &cp
	return nil
}

func merge[T any](staged, base map[address.Address]*T) {
	for addr, rec := range staged {
		base[addr] = rec
	}
}
