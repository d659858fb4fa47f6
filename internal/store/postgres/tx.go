package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/store"
	"github.com/hiddenpay/backend/pkg/address"
	"github.com/hiddenpay/backend/pkg/payment"
)

const (
	platformColumns     = `SELECT address, authority, total_subscriptions, total_merchants, created_at FROM platform`
	merchantColumns     = `SELECT address, authority, name, total_products, total_revenue, is_verified, created_at FROM merchants`
	productColumns      = `SELECT address, merchant_address, name, description, price, duration_days, asset, total_subscribers, is_active, created_at FROM products`
	subscriptionColumns = `SELECT address, user_id, product_address, merchant_address, start_time, end_time, is_active, proof_hash FROM subscriptions`
	accountColumns      = `SELECT address, owner, asset, balance, created_at FROM accounts`
)

// pgTx adapts one pgx transaction to store.Tx.
type pgTx struct {
	q querier
}

func (t *pgTx) CreatePlatform(ctx context.Context, p *domain.Platform) error {
	query := `
		INSERT INTO platform (address, authority, total_subscriptions, total_merchants, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := t.q.Exec(ctx, query,
		string(p.Address), p.Authority, int64(p.TotalSubscriptions), int64(p.TotalMerchants), p.CreatedAt,
	)
	return createErr(err, "platform")
}

func (t *pgTx) GetPlatform(ctx context.Context) (*domain.Platform, error) {
	return getPlatform(ctx, t.q)
}

func (t *pgTx) SavePlatform(ctx context.Context, p *domain.Platform) error {
	query := `UPDATE platform SET total_subscriptions = $2, total_merchants = $3 WHERE address = $1`
	return saveErr(t.q.Exec(ctx, query, string(p.Address), int64(p.TotalSubscriptions), int64(p.TotalMerchants)))
}

func (t *pgTx) CreateMerchant(ctx context.Context, m *domain.Merchant) error {
	query := `
		INSERT INTO merchants (address, authority, name, total_products, total_revenue, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := t.q.Exec(ctx, query,
		string(m.Address), m.Authority, m.Name, int64(m.TotalProducts), int64(m.TotalRevenue), m.IsVerified, m.CreatedAt,
	)
	return createErr(err, "merchant")
}

func (t *pgTx) GetMerchant(ctx context.Context, addr address.Address) (*domain.Merchant, error) {
	return getMerchant(ctx, t.q, addr)
}

func (t *pgTx) SaveMerchant(ctx context.Context, m *domain.Merchant) error {
	query := `UPDATE merchants SET total_products = $2, total_revenue = $3, is_verified = $4 WHERE address = $1`
	return saveErr(t.q.Exec(ctx, query, string(m.Address), int64(m.TotalProducts), int64(m.TotalRevenue), m.IsVerified))
}

func (t *pgTx) CreateProduct(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (address, merchant_address, name, description, price, duration_days, asset, total_subscribers, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := t.q.Exec(ctx, query,
		string(p.Address), string(p.Merchant), p.Name, p.Description, int64(p.Price),
		int32(p.DurationDays), p.Asset, int64(p.TotalSubscribers), p.IsActive, p.CreatedAt,
	)
	return createErr(err, "product")
}

func (t *pgTx) GetProduct(ctx context.Context, addr address.Address) (*domain.Product, error) {
	return getProduct(ctx, t.q, addr)
}

func (t *pgTx) SaveProduct(ctx context.Context, p *domain.Product) error {
	query := `UPDATE products SET total_subscribers = $2, is_active = $3 WHERE address = $1`
	return saveErr(t.q.Exec(ctx, query, string(p.Address), int64(p.TotalSubscribers), p.IsActive))
}

func (t *pgTx) CreateSubscription(ctx context.Context, s *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (address, user_id, product_address, merchant_address, start_time, end_time, is_active, proof_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := t.q.Exec(ctx, query,
		string(s.Address), s.User, string(s.Product), string(s.Merchant),
		s.StartTime, s.EndTime, s.IsActive, s.ProofHash[:],
	)
	return createErr(err, "subscription")
}

func (t *pgTx) GetSubscription(ctx context.Context, addr address.Address) (*domain.Subscription, error) {
	return getSubscription(ctx, t.q, addr)
}

func (t *pgTx) SaveSubscription(ctx context.Context, s *domain.Subscription) error {
	query := `UPDATE subscriptions SET is_active = $2, proof_hash = $3 WHERE address = $1`
	return saveErr(t.q.Exec(ctx, query, string(s.Address), s.IsActive, s.ProofHash[:]))
}

func (t *pgTx) CreateAccount(ctx context.Context, a *payment.Account) error {
	query := `
		INSERT INTO accounts (address, owner, asset, balance, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := t.q.Exec(ctx, query, string(a.Address), a.Owner, a.Asset, int64(a.Balance), a.CreatedAt)
	return createErr(err, "account")
}

func (t *pgTx) GetAccount(ctx context.Context, addr address.Address) (*payment.Account, error) {
	return getAccount(ctx, t.q, addr)
}

func (t *pgTx) SaveAccount(ctx context.Context, a *payment.Account) error {
	query := `UPDATE accounts SET balance = $2 WHERE address = $1`
	return saveErr(t.q.Exec(ctx, query, string(a.Address), int64(a.Balance)))
}

// Shared query helpers used by both the transaction and the read side.

func getPlatform(ctx context.Context, q querier) (*domain.Platform, error) {
	var p domain.Platform
	err := q.QueryRow(ctx, platformColumns+` WHERE address = $1`, string(address.Platform())).Scan(
		&p.Address, &p.Authority, &p.TotalSubscriptions, &p.TotalMerchants, &p.CreatedAt,
	)
	if err != nil {
		return nil, readErr(err, "platform")
	}
	return &p, nil
}

func getMerchant(ctx context.Context, q querier, addr address.Address) (*domain.Merchant, error) {
	var m domain.Merchant
	err := q.QueryRow(ctx, merchantColumns+` WHERE address = $1`, string(addr)).Scan(
		&m.Address, &m.Authority, &m.Name, &m.TotalProducts, &m.TotalRevenue, &m.IsVerified, &m.CreatedAt,
	)
	if err != nil {
		return nil, readErr(err, "merchant")
	}
	return &m, nil
}

func getProduct(ctx context.Context, q querier, addr address.Address) (*domain.Product, error) {
	return scanProductRow(q.QueryRow(ctx, productColumns+` WHERE address = $1`, string(addr)))
}

func getSubscription(ctx context.Context, q querier, addr address.Address) (*domain.Subscription, error) {
	return scanSubscriptionRow(q.QueryRow(ctx, subscriptionColumns+` WHERE address = $1`, string(addr)))
}

func getAccount(ctx context.Context, q querier, addr address.Address) (*payment.Account, error) {
	var a payment.Account
	err := q.QueryRow(ctx, accountColumns+` WHERE address = $1`, string(addr)).Scan(
		&a.Address, &a.Owner, &a.Asset, &a.Balance, &a.CreatedAt,
	)
	if err != nil {
		return nil, readErr(err, "account")
	}
	return &a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.Address, &p.Merchant, &p.Name, &p.Description, &p.Price,
		&p.DurationDays, &p.Asset, &p.TotalSubscribers, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return &p, nil
}

func scanProductRow(row pgx.Row) (*domain.Product, error) {
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func scanSubscription(row rowScanner) (*domain.Subscription, error) {
	var s domain.Subscription
	var proof []byte
	err := row.Scan(
		&s.Address, &s.User, &s.Product, &s.Merchant,
		&s.StartTime, &s.EndTime, &s.IsActive, &proof,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	copy(s.ProofHash[:], proof)
	return &s, nil
}

func scanSubscriptionRow(row pgx.Row) (*domain.Subscription, error) {
	s, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func createErr(err error, kind string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return fmt.Errorf("failed to create %s: %w", kind, err)
}

func saveErr(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func readErr(err error, kind string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("failed to read %s: %w", kind, err)
}
