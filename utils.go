package bitpay

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultOrderIDPrefix is used by GenerateOrderID when no prefix is given
const DefaultOrderIDPrefix = "ord_"

// GenerateOrderID returns prefix followed by 32 hex characters.
// Result: ord_7d5d747be160e280504c099d984bcfe0
func GenerateOrderID(prefix string) string {
	if prefix == "" {
		prefix = DefaultOrderIDPrefix
	}
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// IsValidOrderID reports whether id is non-empty and within MaxOrderIDLength
func IsValidOrderID(id string) bool {
	return strings.TrimSpace(id) != "" && len([]rune(id)) <= MaxOrderIDLength
}
