package domain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hiddenpay/backend/pkg/address"
)

// Field limits enforced at record creation.
const (
	MaxNameLen        = 50
	MaxDescriptionLen = 200
	SecondsPerDay     = 86400
)

// Proof is an opaque 32-byte blob attached to a subscription. The ledger
// stores and overwrites it, never interprets it. JSON-encoded as hex.
type Proof [32]byte

func (p Proof) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(p[:]))
}

func (p *Proof) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("proof must be hex-encoded: %w", err)
	}
	if len(raw) != len(p) {
		return fmt.Errorf("proof must be exactly %d bytes, got %d", len(p), len(raw))
	}
	copy(p[:], raw)
	return nil
}

// ProofFromHex parses a 64-character hex string into a Proof.
func ProofFromHex(s string) (Proof, error) {
	var p Proof
	raw, err := hex.DecodeString(s)
	if err != nil {
		return p, fmt.Errorf("proof must be hex-encoded: %w", err)
	}
	if len(raw) != len(p) {
		return p, fmt.Errorf("proof must be exactly %d bytes, got %d", len(p), len(raw))
	}
	copy(p[:], raw)
	return p, nil
}

// Platform is the process-wide singleton carrying global counters.
type Platform struct {
	Address            address.Address `json:"address"`
	Authority          string          `json:"authority"`
	TotalSubscriptions uint64          `json:"totalSubscriptions"`
	TotalMerchants     uint64          `json:"totalMerchants"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// Merchant is a registered seller. Its address derives from the authority
// alone, so one authority owns at most one merchant.
type Merchant struct {
	Address       address.Address `json:"address"`
	Authority     string          `json:"authority"`
	Name          string          `json:"name"`
	TotalProducts uint64          `json:"totalProducts"`
	TotalRevenue  uint64          `json:"totalRevenue"`
	IsVerified    bool            `json:"isVerified"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Product is a subscription offering published by a merchant.
type Product struct {
	Address          address.Address `json:"address"`
	Merchant         address.Address `json:"merchant"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            uint64          `json:"price"`
	DurationDays     uint32          `json:"durationDays"`
	Asset            string          `json:"asset"`
	TotalSubscribers uint64          `json:"totalSubscribers"`
	IsActive         bool            `json:"isActive"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Subscription is a time-boxed access pass. User, product, merchant and the
// validity window are fixed at creation; only IsActive and ProofHash change
// afterwards. Start and end are unix seconds.
type Subscription struct {
	Address   address.Address `json:"address"`
	User      string          `json:"user"`
	Product   address.Address `json:"product"`
	Merchant  address.Address `json:"merchant"`
	StartTime int64           `json:"startTime"`
	EndTime   int64           `json:"endTime"`
	IsActive  bool            `json:"isActive"`
	ProofHash Proof           `json:"proofHash"`
}

// Request types for the ledger operations.

type CreateMerchantRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type CreateProductRequest struct {
	Merchant     string `json:"merchant" validate:"required"`
	Name         string `json:"name" validate:"required,max=50"`
	Description  string `json:"description" validate:"max=200"`
	Price        uint64 `json:"price" validate:"required,gt=0"`
	DurationDays uint32 `json:"durationDays" validate:"required,gt=0"`
	Asset        string `json:"asset" validate:"required"`
}

type SetProductActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type SubscribeRequest struct {
	Product string `json:"product" validate:"required"`
}

type UpdateProofRequest struct {
	ProofHash string `json:"proofHash" validate:"required,len=64,hexadecimal"`
}

type OpenAccountRequest struct {
	Asset string `json:"asset" validate:"required"`
}

type DepositRequest struct {
	Amount uint64 `json:"amount" validate:"required,gt=0"`
}
