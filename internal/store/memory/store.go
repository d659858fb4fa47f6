// Package memory provides an in-process Store backend. It backs the test
// suite and the STORE_DRIVER=memory development mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/store"
	"github.com/hiddenpay/backend/pkg/address"
	"github.com/hiddenpay/backend/pkg/payment"
)

// Store keeps all records in maps keyed by derived address. A single mutex
// is held for the whole of each Atomic call, which gives the serializable
// unit-of-work guarantee the ledger relies on.
type Store struct {
	mu sync.Mutex

	platforms     map[address.Address]*domain.Platform
	merchants     map[address.Address]*domain.Merchant
	products      map[address.Address]*domain.Product
	subscriptions map[address.Address]*domain.Subscription
	accounts      map[address.Address]*payment.Account

	users        map[string]*domain.User
	usersByEmail map[string]string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		platforms:     make(map[address.Address]*domain.Platform),
		merchants:     make(map[address.Address]*domain.Merchant),
		products:      make(map[address.Address]*domain.Product),
		subscriptions: make(map[address.Address]*domain.Subscription),
		accounts:      make(map[address.Address]*payment.Account),
		users:         make(map[string]*domain.User),
		usersByEmail:  make(map[string]string),
	}
}

// Atomic runs fn under the store lock with all writes staged. Writes reach
// the base maps only if fn returns nil; an error discards every staged
// write, including those made by the payment gateway.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

func (s *Store) GetPlatform(ctx context.Context) (*domain.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getCopy(s.platforms, address.Platform())
}

func (s *Store) GetMerchant(ctx context.Context, addr address.Address) (*domain.Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getCopy(s.merchants, addr)
}

func (s *Store) GetProduct(ctx context.Context, addr address.Address) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getCopy(s.products, addr)
}

func (s *Store) GetSubscription(ctx context.Context, addr address.Address) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getCopy(s.subscriptions, addr)
}

func (s *Store) GetAccount(ctx context.Context, addr address.Address) (*payment.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getCopy(s.accounts, addr)
}

func (s *Store) ListProductsByMerchant(ctx context.Context, merchant address.Address) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Product, 0)
	for _, p := range s.products {
		if p.Merchant == merchant {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) ListSubscriptionsByUser(ctx context.Context, user string) ([]*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.User == user {
			cp := *sub
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime > result[j].StartTime })
	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return store.ErrAlreadyExists
	}
	if _, ok := s.usersByEmail[u.Email]; ok {
		return store.ErrAlreadyExists
	}
	cp := *u
	s.users[u.ID] = &cp
	s.usersByEmail[u.Email] = u.ID
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}

func getCopy[T any](base map[address.Address]*T, addr address.Address) (*T, error) {
	rec, ok := base[addr]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}
