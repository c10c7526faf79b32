package idempotency

import (
	"crypto/sha256"
	"encoding/hex"

	bitpay "github.com/bitpay/bitpay-go"
)

// KeyGenerator derives the deduplication key of a notification
type KeyGenerator = bitpay.KeyFunc

// DefaultKeyGenerator keys a notification by invoice id and status
func DefaultKeyGenerator(n *bitpay.Notification) string {
	return bitpay.NotificationKey(n)
}

// PayloadKeyGenerator additionally hashes the merchant payload, for
// integrations that reuse an invoice id across orders.
func PayloadKeyGenerator(n *bitpay.Notification) string {
	hash := sha256.Sum256(append([]byte(bitpay.NotificationKey(n)+"|"), n.PosData...))
	return hex.EncodeToString(hash[:])
}
