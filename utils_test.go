package bitpay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderID(t *testing.T) {
	t.Parallel()

	id := GenerateOrderID("")
	assert.True(t, strings.HasPrefix(id, DefaultOrderIDPrefix))
	assert.Len(t, id, len(DefaultOrderIDPrefix)+32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, GenerateOrderID(""))

	assert.True(t, strings.HasPrefix(GenerateOrderID("shop_"), "shop_"))
	assert.True(t, IsValidOrderID(id))
}

func TestIsValidOrderID(t *testing.T) {
	t.Parallel()

	assert.False(t, IsValidOrderID(""))
	assert.False(t, IsValidOrderID("   "))
	assert.True(t, IsValidOrderID(strings.Repeat("é", MaxOrderIDLength)))
	assert.False(t, IsValidOrderID(strings.Repeat("a", MaxOrderIDLength+1)))
}
