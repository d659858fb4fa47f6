package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiddenpay/backend/pkg/address"
)

var errNoAccount = errors.New("no such account")

// fakeBook is a minimal Accounts implementation for gateway tests.
type fakeBook map[address.Address]*Account

func (b fakeBook) GetAccount(_ context.Context, addr address.Address) (*Account, error) {
	a, ok := b[addr]
	if !ok {
		return nil, errNoAccount
	}
	cp := *a
	return &cp, nil
}

func (b fakeBook) SaveAccount(_ context.Context, a *Account) error {
	cp := *a
	b[a.Address] = &cp
	return nil
}

func newBook() (fakeBook, address.Address, address.Address) {
	from := address.Account("alice", "usdc")
	to := address.Account("bob", "usdc")
	book := fakeBook{
		from: {Address: from, Owner: "alice", Asset: "usdc", Balance: 1000},
		to:   {Address: to, Owner: "bob", Asset: "usdc", Balance: 50},
	}
	return book, from, to
}

func TestTransfer(t *testing.T) {
	book, from, to := newBook()
	g := NewTokenGateway()

	err := g.Transfer(context.Background(), book, from, to, "alice", 300)
	require.NoError(t, err)
	assert.Equal(t, uint64(700), book[from].Balance)
	assert.Equal(t, uint64(350), book[to].Balance)
}

func TestTransferInsufficientFunds(t *testing.T) {
	book, from, to := newBook()
	g := NewTokenGateway()

	err := g.Transfer(context.Background(), book, from, to, "alice", 1001)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(1000), book[from].Balance)
	assert.Equal(t, uint64(50), book[to].Balance)
}

func TestTransferUnauthorized(t *testing.T) {
	book, from, to := newBook()
	g := NewTokenGateway()

	err := g.Transfer(context.Background(), book, from, to, "mallory", 10)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, uint64(1000), book[from].Balance)
}

func TestTransferAssetMismatch(t *testing.T) {
	book, from, _ := newBook()
	g := NewTokenGateway()

	other := address.Account("bob", "eurc")
	book[other] = &Account{Address: other, Owner: "bob", Asset: "eurc"}

	err := g.Transfer(context.Background(), book, from, other, "alice", 10)
	require.ErrorIs(t, err, ErrAssetMismatch)
}

func TestTransferToSelf(t *testing.T) {
	book, from, _ := newBook()
	g := NewTokenGateway()

	require.NoError(t, g.Transfer(context.Background(), book, from, from, "alice", 10))
	assert.Equal(t, uint64(1000), book[from].Balance)

	err := g.Transfer(context.Background(), book, from, from, "alice", 5000)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestTransferMissingAccount(t *testing.T) {
	book, from, _ := newBook()
	g := NewTokenGateway()

	err := g.Transfer(context.Background(), book, from, address.Account("ghost", "usdc"), "alice", 10)
	require.ErrorIs(t, err, errNoAccount)
}
