package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/events"
	"github.com/hiddenpay/backend/internal/store"
	"github.com/hiddenpay/backend/pkg/address"
	"github.com/hiddenpay/backend/pkg/payment"
)

// LedgerService implements the ledger operations. Every mutating operation
// runs as one Store.Atomic unit in strict order: validate, transfer (where
// payment is due), mutate records, update counters. A failure anywhere
// leaves no partial state behind.
type LedgerService struct {
	store    store.Store
	gateway  payment.Gateway
	bus      *events.Bus
	validate *validator.Validate
	now      func() time.Time
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(st store.Store, gateway payment.Gateway, bus *events.Bus) *LedgerService {
	return &LedgerService{
		store:    st,
		gateway:  gateway,
		bus:      bus,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithClock overrides the time source. The default is the host wall clock;
// tests pin it.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// Initialize creates the platform singleton with zeroed counters. A second
// call fails because the platform address is already occupied.
func (s *LedgerService) Initialize(ctx context.Context, authority string) (*domain.Platform, error) {
	platform := &domain.Platform{
		Address:   address.Platform(),
		Authority: authority,
		CreatedAt: s.now(),
	}

	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.CreatePlatform(ctx, platform); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.ErrConflict("platform already initialized")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, opError(err, "failed to initialize platform")
	}

	log.Printf("platform initialized by %s", authority)
	return platform, nil
}

// CreateMerchant registers a merchant for the calling authority and bumps
// the platform merchant counter. One merchant per authority: the address
// derives from the authority alone.
func (s *LedgerService) CreateMerchant(ctx context.Context, authority string, req *domain.CreateMerchantRequest) (*domain.Merchant, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	merchant := &domain.Merchant{
		Address:   address.Merchant(authority),
		Authority: authority,
		Name:      req.Name,
		CreatedAt: s.now(),
	}

	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		platform, err := tx.GetPlatform(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotFound("platform not initialized")
			}
			return err
		}

		if err := tx.CreateMerchant(ctx, merchant); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.ErrConflict("a merchant already exists for this authority")
			}
			return err
		}

		platform.TotalMerchants++
		return tx.SavePlatform(ctx, platform)
	})
	if err != nil {
		return nil, opError(err, "failed to create merchant")
	}

	s.bus.Publish(events.MerchantCreated, merchant.Address)
	return merchant, nil
}

// CreateProduct publishes a subscription product under the caller's
// merchant and bumps the merchant product counter.
func (s *LedgerService) CreateProduct(ctx context.Context, authority string, req *domain.CreateProductRequest) (*domain.Product, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	merchantAddr := address.Address(req.Merchant)
	product := &domain.Product{
		Address:      address.Product(merchantAddr, req.Name),
		Merchant:     merchantAddr,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Asset:        req.Asset,
		IsActive:     true,
		CreatedAt:    s.now(),
	}

	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		merchant, err := tx.GetMerchant(ctx, merchantAddr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotFound("merchant not found")
			}
			return err
		}
		if merchant.Authority != authority {
			return domain.ErrForbidden("caller is not the merchant authority")
		}

		if err := tx.CreateProduct(ctx, product); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.ErrConflict("a product with this name already exists for the merchant")
			}
			return err
		}

		merchant.TotalProducts++
		return tx.SaveMerchant(ctx, merchant)
	})
	if err != nil {
		return nil, opError(err, "failed to create product")
	}

	s.bus.Publish(events.ProductCreated, product.Address)
	return product, nil
}

// SetProductActive opens or closes a product for new subscriptions.
// Existing subscriptions are unaffected.
func (s *LedgerService) SetProductActive(ctx context.Context, authority string, addr address.Address, active bool) (*domain.Product, error) {
	var product *domain.Product
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		product, err = tx.GetProduct(ctx, addr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotFound("product not found")
			}
			return err
		}

		merchant, err := tx.GetMerchant(ctx, product.Merchant)
		if err != nil {
			return err
		}
		if merchant.Authority != authority {
			return domain.ErrForbidden("caller is not the merchant authority")
		}

		product.IsActive = active
		return tx.SaveProduct(ctx, product)
	})
	if err != nil {
		return nil, opError(err, "failed to update product")
	}
	return product, nil
}

// Subscribe purchases a time-boxed pass for a product. The payment transfer
// and every record mutation commit together: a gateway failure leaves no
// subscription and no counter change behind.
func (s *LedgerService) Subscribe(ctx context.Context, user string, req *domain.SubscribeRequest) (*domain.Subscription, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	productAddr := address.Address(req.Product)
	var subscription *domain.Subscription

	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		product, err := tx.GetProduct(ctx, productAddr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotFound("product not found")
			}
			return err
		}
		if !product.IsActive {
			return domain.ErrValidation("product is inactive")
		}

		merchant, err := tx.GetMerchant(ctx, product.Merchant)
		if err != nil {
			return err
		}
		platform, err := tx.GetPlatform(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotFound("platform not initialized")
			}
			return err
		}

		from := address.Account(user, product.Asset)
		to := address.Account(merchant.Authority, product.Asset)
		if err := s.gateway.Transfer(ctx, tx, from, to, user, product.Price); err != nil {
			return transferError(err)
		}

		start := s.now().Unix()
		subscription = &domain.Subscription{
			Address:   address.Subscription(user, productAddr),
			User:      user,
			Product:   productAddr,
			Merchant:  product.Merchant,
			StartTime: start,
			EndTime:   start + int64(product.DurationDays)*domain.SecondsPerDay,
			IsActive:  true,
		}
		if err := tx.CreateSubscription(ctx, subscription); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.ErrConflict("already subscribed to this product")
			}
			return err
		}

		product.TotalSubscribers++
		if err := tx.SaveProduct(ctx, product); err != nil {
			return err
		}
		merchant.TotalRevenue += product.Price
		if err := tx.SaveMerchant(ctx, merchant); err != nil {
			return err
		}
		platform.TotalSubscriptions++
		return tx.SavePlatform(ctx, platform)
	})
	if err != nil {
		return nil, opError(err, "failed to subscribe")
	}

	s.bus.Publish(events.SubscriptionCreated, subscription.Address)
	return subscription, nil
}

// VerifySubscription reports whether a pass is currently valid: active and
// not yet past its end time. Pure read, no mutation; expiry is derived at
// verification time and never written back.
func (s *LedgerService) VerifySubscription(ctx context.Context, addr address.Address) (bool, error) {
	sub, err := s.store.GetSubscription(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, domain.ErrNotFound("subscription not found")
		}
		return false, domain.ErrInternal("failed to read subscription", err)
	}
	return sub.IsActive && s.now().Unix() <= sub.EndTime, nil
}

// UpdateProof overwrites the subscription's proof blob. Owner-only; the
// blob content is opaque to the ledger and stored as-is.
func (s *LedgerService) UpdateProof(ctx context.Context, user string, addr address.Address, proof domain.Proof) (*domain.Subscription, error) {
	var sub *domain.Subscription
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		sub, err = tx.GetSubscription(ctx, addr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotFound("subscription not found")
			}
			return err
		}
		if sub.User != user {
			return domain.ErrForbidden("caller does not own this subscription")
		}

		sub.ProofHash = proof
		return tx.SaveSubscription(ctx, sub)
	})
	if err != nil {
		return nil, opError(err, "failed to update proof")
	}
	return sub, nil
}

// CancelSubscription deactivates a pass. Owner-only and irreversible; the
// record stays in the store.
func (s *LedgerService) CancelSubscription(ctx context.Context, user string, addr address.Address) error {
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		sub, err := tx.GetSubscription(ctx, addr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotFound("subscription not found")
			}
			return err
		}
		if sub.User != user {
			return domain.ErrForbidden("caller does not own this subscription")
		}

		sub.IsActive = false
		return tx.SaveSubscription(ctx, sub)
	})
	if err != nil {
		return opError(err, "failed to cancel subscription")
	}

	s.bus.Publish(events.SubscriptionCancelled, addr)
	return nil
}

// VerifyMerchant marks a merchant as verified. Admin-gated in the router.
func (s *LedgerService) VerifyMerchant(ctx context.Context, addr address.Address) (*domain.Merchant, error) {
	var merchant *domain.Merchant
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		merchant, err = tx.GetMerchant(ctx, addr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotFound("merchant not found")
			}
			return err
		}

		merchant.IsVerified = true
		return tx.SaveMerchant(ctx, merchant)
	})
	if err != nil {
		return nil, opError(err, "failed to verify merchant")
	}

	s.bus.Publish(events.MerchantVerified, addr)
	return merchant, nil
}

// Read surface.

func (s *LedgerService) GetPlatform(ctx context.Context) (*domain.Platform, error) {
	platform, err := s.store.GetPlatform(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotFound("platform not initialized")
		}
		return nil, domain.ErrInternal("failed to read platform", err)
	}
	return platform, nil
}

func (s *LedgerService) GetMerchant(ctx context.Context, addr address.Address) (*domain.Merchant, error) {
	merchant, err := s.store.GetMerchant(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotFound("merchant not found")
		}
		return nil, domain.ErrInternal("failed to read merchant", err)
	}
	return merchant, nil
}

func (s *LedgerService) ListMerchantProducts(ctx context.Context, merchant address.Address) ([]*domain.Product, error) {
	products, err := s.store.ListProductsByMerchant(ctx, merchant)
	if err != nil {
		return nil, domain.ErrInternal("failed to list products", err)
	}
	return products, nil
}

// GetSubscription returns a subscription to its owning user.
func (s *LedgerService) GetSubscription(ctx context.Context, user string, addr address.Address) (*domain.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotFound("subscription not found")
		}
		return nil, domain.ErrInternal("failed to read subscription", err)
	}
	if sub.User != user {
		return nil, domain.ErrForbidden("caller does not own this subscription")
	}
	return sub, nil
}

func (s *LedgerService) ListUserSubscriptions(ctx context.Context, user string) ([]*domain.Subscription, error) {
	subs, err := s.store.ListSubscriptionsByUser(ctx, user)
	if err != nil {
		return nil, domain.ErrInternal("failed to list subscriptions", err)
	}
	return subs, nil
}

// validateRequest runs struct validation and maps the first failure to a
// field-specific message.
func (s *LedgerService) validateRequest(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return domain.ErrValidation(fieldMessage(fields[0]))
	}
	return domain.ErrBadRequest("invalid request")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		if fe.Tag() == "max" {
			return "name too long"
		}
		return "name is required"
	case "Description":
		return "description too long"
	case "Price":
		return "price must be greater than zero"
	case "DurationDays":
		return "duration must be greater than zero"
	case "Amount":
		return "amount must be greater than zero"
	}
	return fmt.Sprintf("invalid %s", strings.ToLower(fe.Field()))
}

// transferError maps gateway failures onto the API error taxonomy.
func transferError(err error) error {
	switch {
	case errors.Is(err, payment.ErrInsufficientFunds):
		return domain.ErrPaymentRequired("insufficient funds")
	case errors.Is(err, payment.ErrUnauthorized):
		return domain.ErrForbidden("caller does not own the funding account")
	case errors.Is(err, payment.ErrAssetMismatch):
		return domain.ErrValidation("funding account asset does not match the product")
	case errors.Is(err, store.ErrNotFound):
		return domain.ErrNotFound("funding account not found")
	}
	return err
}

// opError passes structured errors through and wraps everything else.
func opError(err error, msg string) error {
	if app, ok := domain.AsAppError(err); ok {
		return app
	}
	return domain.ErrInternal(msg, err)
}
