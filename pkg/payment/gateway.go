package payment

import (
	"context"
	"errors"
	"time"

	"github.com/hiddenpay/backend/pkg/address"
)

// Gateway errors. Any of these aborts the enclosing ledger operation.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("authority does not own the payer account")
	ErrAssetMismatch     = errors.New("payer and payee accounts hold different assets")
)

// Account is a funding account holding a balance of a single asset.
// Its address is derived from (owner, asset), so there is exactly one
// account per owner per asset.
type Account struct {
	Address   address.Address `json:"address"`
	Owner     string          `json:"owner"`
	Asset     string          `json:"asset"`
	Balance   uint64          `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Accounts is the account view of the caller's unit of work. Mutations made
// through it commit or roll back together with the caller's other writes,
// which is what makes a transfer part of the enclosing atomic operation.
type Accounts interface {
	GetAccount(ctx context.Context, addr address.Address) (*Account, error)
	SaveAccount(ctx context.Context, acct *Account) error
}

// Gateway moves funds between two accounts on behalf of an authority.
type Gateway interface {
	Transfer(ctx context.Context, book Accounts, from, to address.Address, authority string, amount uint64) error
}

// TokenGateway is the ledger-backed Gateway implementation: it debits the
// payer and credits the payee inside the caller's unit of work.
type TokenGateway struct{}

// NewTokenGateway creates a new TokenGateway.
func NewTokenGateway() *TokenGateway {
	return &TokenGateway{}
}

// Transfer moves amount from the payer to the payee account. The authority
// must own the payer account and the payer balance must cover the amount.
func (g *TokenGateway) Transfer(ctx context.Context, book Accounts, from, to address.Address, authority string, amount uint64) error {
	payer, err := book.GetAccount(ctx, from)
	if err != nil {
		return err
	}
	if payer.Owner != authority {
		return ErrUnauthorized
	}
	if payer.Balance < amount {
		return ErrInsufficientFunds
	}

	// Self-transfer is a funds no-op but still goes through the full
	// authorization and balance checks above.
	if from == to {
		return nil
	}

	payee, err := book.GetAccount(ctx, to)
	if err != nil {
		return err
	}
	if payer.Asset != payee.Asset {
		return ErrAssetMismatch
	}

	payer.Balance -= amount
	payee.Balance += amount

	if err := book.SaveAccount(ctx, payer); err != nil {
		return err
	}
	return book.SaveAccount(ctx, payee)
}
