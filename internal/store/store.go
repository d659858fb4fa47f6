package store

import (
	"context"
	"errors"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/pkg/address"
	"github.com/hiddenpay/backend/pkg/payment"
)

// Sentinel errors shared by all backends.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// Tx is the set of record operations available inside one atomic unit.
// Create fails ErrAlreadyExists when the address is occupied; Get fails
// ErrNotFound; Save updates a record read earlier in the same unit.
// Tx also satisfies payment.Accounts, so a gateway transfer executes
// inside the same unit of work as the caller's record mutations.
type Tx interface {
	CreatePlatform(ctx context.Context, p *domain.Platform) error
	GetPlatform(ctx context.Context) (*domain.Platform, error)
	SavePlatform(ctx context.Context, p *domain.Platform) error

	CreateMerchant(ctx context.Context, m *domain.Merchant) error
	GetMerchant(ctx context.Context, addr address.Address) (*domain.Merchant, error)
	SaveMerchant(ctx context.Context, m *domain.Merchant) error

	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, addr address.Address) (*domain.Product, error)
	SaveProduct(ctx context.Context, p *domain.Product) error

	CreateSubscription(ctx context.Context, s *domain.Subscription) error
	GetSubscription(ctx context.Context, addr address.Address) (*domain.Subscription, error)
	SaveSubscription(ctx context.Context, s *domain.Subscription) error

	CreateAccount(ctx context.Context, a *payment.Account) error
	GetAccount(ctx context.Context, addr address.Address) (*payment.Account, error)
	SaveAccount(ctx context.Context, a *payment.Account) error
}

// Store is the durable keyed backend. Atomic runs fn as one serializable
// unit of work: either every mutation made through the Tx commits, or none
// do, and two concurrent creates of the same address resolve so exactly one
// succeeds.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	// Single-record reads outside any transaction.
	GetPlatform(ctx context.Context) (*domain.Platform, error)
	GetMerchant(ctx context.Context, addr address.Address) (*domain.Merchant, error)
	GetProduct(ctx context.Context, addr address.Address) (*domain.Product, error)
	GetSubscription(ctx context.Context, addr address.Address) (*domain.Subscription, error)
	GetAccount(ctx context.Context, addr address.Address) (*payment.Account, error)

	ListProductsByMerchant(ctx context.Context, merchant address.Address) ([]*domain.Product, error)
	ListSubscriptionsByUser(ctx context.Context, user string) ([]*domain.Subscription, error)

	// User records for authentication. GetUserByEmail and GetUser return
	// (nil, nil) when no user matches.
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)

	Ping(ctx context.Context) error
	Close()
}
