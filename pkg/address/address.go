package address

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Address is a deterministic identifier for a ledger record. It doubles as
// the storage key and as the ownership anchor: because it is a hash over a
// namespace tag plus the record's defining fields, no caller can pick an
// address that collides with someone else's record.
type Address string

// Namespace tags, one per record type.
const (
	TagPlatform     = "platform"
	TagMerchant     = "merchant"
	TagProduct      = "product"
	TagSubscription = "subscription"
	TagAccount      = "account"
)

// Derive computes the address for a (tag, seeds) tuple as a SHA-256 digest.
// Every seed is length-prefixed so that distinct seed lists can never
// produce the same digest input.
func Derive(tag string, seeds ...[]byte) Address {
	h := sha256.New()
	h.Write([]byte(tag))
	var prefix [4]byte
	for _, seed := range seeds {
		binary.BigEndian.PutUint32(prefix[:], uint32(len(seed)))
		h.Write(prefix[:])
		h.Write(seed)
	}
	return Address(hex.EncodeToString(h.Sum(nil)))
}

// Platform returns the address of the process-wide platform singleton.
func Platform() Address {
	return Derive(TagPlatform)
}

// Merchant returns the merchant address for an authority. The derivation
// uses the authority alone, so one authority can own at most one merchant.
func Merchant(authority string) Address {
	return Derive(TagMerchant, []byte(authority))
}

// Product returns the product address for a merchant and product name.
func Product(merchant Address, name string) Address {
	return Derive(TagProduct, []byte(merchant), []byte(name))
}

// Subscription returns the subscription address for a user and product.
func Subscription(user string, product Address) Address {
	return Derive(TagSubscription, []byte(user), []byte(product))
}

// Account returns the funding account address for an owner and asset.
func Account(owner, asset string) Address {
	return Derive(TagAccount, []byte(owner), []byte(asset))
}

func (a Address) String() string {
	return string(a)
}
