package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/store"
	"github.com/hiddenpay/backend/pkg/address"
	"github.com/hiddenpay/backend/pkg/payment"
)

// AccountService manages funding accounts: the payer and payee sides of
// every subscription purchase.
type AccountService struct {
	store    store.Store
	validate *validator.Validate
	now      func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(st store.Store) *AccountService {
	return &AccountService{
		store:    st,
		validate: validator.New(),
		now:      time.Now,
	}
}

// OpenAccount creates the caller's funding account for an asset with a zero
// balance. The address derives from (owner, asset), so reopening fails.
func (s *AccountService) OpenAccount(ctx context.Context, owner string, req *domain.OpenAccountRequest) (*payment.Account, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation("asset is required")
	}

	account := &payment.Account{
		Address:   address.Account(owner, req.Asset),
		Owner:     owner,
		Asset:     req.Asset,
		CreatedAt: s.now(),
	}

	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.ErrConflict("account already exists for this asset")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, opError(err, "failed to open account")
	}
	return account, nil
}

// Deposit credits an account. Admin-gated in the router; this stands in for
// the external on-ramp the ledger does not model.
func (s *AccountService) Deposit(ctx context.Context, addr address.Address, req *domain.DepositRequest) (*payment.Account, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation("amount must be greater than zero")
	}

	var account *payment.Account
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		account, err = tx.GetAccount(ctx, addr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotFound("account not found")
			}
			return err
		}

		account.Balance += req.Amount
		return tx.SaveAccount(ctx, account)
	})
	if err != nil {
		return nil, opError(err, "failed to deposit")
	}
	return account, nil
}

// GetAccount returns a funding account to its owner.
func (s *AccountService) GetAccount(ctx context.Context, owner string, addr address.Address) (*payment.Account, error) {
	account, err := s.store.GetAccount(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotFound("account not found")
		}
		return nil, domain.ErrInternal("failed to read account", err)
	}
	if account.Owner != owner {
		return nil, domain.ErrForbidden("caller does not own this account")
	}
	return account, nil
}
