package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/store"
	"github.com/hiddenpay/backend/pkg/address"
	"github.com/hiddenpay/backend/pkg/payment"
)

func testMerchant(authority string) *domain.Merchant {
	return &domain.Merchant{
		Address:   address.Merchant(authority),
		Authority: authority,
		Name:      "Test",
		CreatedAt: time.Now(),
	}
}

func TestCreateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := testMerchant("auth-1")

	err := s.Atomic(ctx, func(tx store.Tx) error {
		return tx.CreateMerchant(ctx, m)
	})
	require.NoError(t, err)

	got, err := s.GetMerchant(ctx, m.Address)
	require.NoError(t, err)
	assert.Equal(t, "Test", got.Name)

	_, err = s.GetMerchant(ctx, address.Merchant("other"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateDuplicateFails(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := testMerchant("auth-1")

	require.NoError(t, s.Atomic(ctx, func(tx store.Tx) error {
		return tx.CreateMerchant(ctx, m)
	}))

	err := s.Atomic(ctx, func(tx store.Tx) error {
		return tx.CreateMerchant(ctx, testMerchant("auth-1"))
	})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestAtomicRollback(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.CreateMerchant(ctx, testMerchant("auth-1")); err != nil {
			return err
		}
		acct := &payment.Account{Address: address.Account("u", "usdc"), Owner: "u", Asset: "usdc"}
		if err := tx.CreateAccount(ctx, acct); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetMerchant(ctx, address.Merchant("auth-1"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetAccount(ctx, address.Account("u", "usdc"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStagedWritesVisibleInTx(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.CreateMerchant(ctx, testMerchant("auth-1")); err != nil {
			return err
		}
		m, err := tx.GetMerchant(ctx, address.Merchant("auth-1"))
		if err != nil {
			return err
		}
		m.TotalProducts = 3
		return tx.SaveMerchant(ctx, m)
	})
	require.NoError(t, err)

	got, err := s.GetMerchant(ctx, address.Merchant("auth-1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.TotalProducts)
}

func TestSaveUnknownRecordFails(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Atomic(ctx, func(tx store.Tx) error {
		return tx.SaveMerchant(ctx, testMerchant("auth-1"))
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Atomic(ctx, func(tx store.Tx) error {
		return tx.CreateMerchant(ctx, testMerchant("auth-1"))
	}))

	got, err := s.GetMerchant(ctx, address.Merchant("auth-1"))
	require.NoError(t, err)
	got.TotalRevenue = 999

	again, err := s.GetMerchant(ctx, address.Merchant("auth-1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), again.TotalRevenue)
}

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &domain.User{ID: "u-1", Email: "a@b.c", Password: "x", Role: "user"}
	require.NoError(t, s.CreateUser(ctx, u))

	err := s.CreateUser(ctx, &domain.User{ID: "u-2", Email: "a@b.c"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := s.GetUserByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	missing, err := s.GetUser(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListProductsByMerchant(t *testing.T) {
	s := New()
	ctx := context.Background()
	merchant := address.Merchant("auth-1")

	require.NoError(t, s.Atomic(ctx, func(tx store.Tx) error {
		for _, name := range []string{"beta", "alpha"} {
			p := &domain.Product{
				Address:  address.Product(merchant, name),
				Merchant: merchant,
				Name:     name,
				IsActive: true,
			}
			if err := tx.CreateProduct(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}))

	products, err := s.ListProductsByMerchant(ctx, merchant)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "alpha", products[0].Name)

	none, err := s.ListProductsByMerchant(ctx, address.Merchant("other"))
	require.NoError(t, err)
	assert.Empty(t, none)
}
