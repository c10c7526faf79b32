package bitpay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	t.Parallel()

	decoded, err := DecodeResponse([]byte(`{"test": "response", "price": 5}`))
	require.NoError(t, err)
	assert.Equal(t, "response", decoded["test"])
	assert.Equal(t, json.Number("5"), decoded["price"])

	_, err = DecodeResponse(nil)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Contains(t, err.Error(), "non-empty")

	_, err = DecodeResponse([]byte("testing invalid json"))
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.True(t, IsKind(err, KindDecode))

	for _, raw := range []string{`{"id":"x","status":"new"} }{`, `{"id":"x"}{"id":"y"}`, `{"id":"x"} 5`} {
		_, err = DecodeResponse([]byte(raw))
		require.ErrorIs(t, err, ErrInvalidResponse, raw)
		assert.Contains(t, err.Error(), "trailing data", raw)
	}

	decoded, err = DecodeResponse([]byte("{\"id\":\"x\"}\n\t "))
	require.NoError(t, err)
	assert.Equal(t, "x", decoded["id"])
}

// notificationFixture builds a notification the way BitPay delivers it,
// with posData as a JSON encoded string using loose spacing.
func notificationFixture(t *testing.T, posData string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":       1,
		"url":      "http://example.com/example_invoice1",
		"posData":  posData,
		"status":   "complete",
		"price":    5,
		"currency": "USD",
		"btcPrice": 0.00001,
	})
	require.NoError(t, err)
	return body
}

func TestVerifyNotificationValid(t *testing.T) {
	t.Parallel()

	body := notificationFixture(t, `{"posData": {"customer_id": 1000000}, "hash": "P5Hpmwt2fUhuz7VtVMsVBXs7teDImeaovmw71B0586Q="}`)

	n, err := VerifyNotification(body, testKey, VerifyModeRequired)
	require.NoError(t, err)
	assert.Equal(t, InvoiceID("1"), n.ID)
	assert.Equal(t, StatusComplete, n.Status)
	assert.Equal(t, json.Number("5"), n.Price)
	assert.Equal(t, "USD", n.Currency)
	assert.Equal(t, json.Number("0.00001"), n.BTCPrice)
	assert.Equal(t, `{"customer_id":1000000}`, string(n.PosData))
	assert.True(t, n.Verified)
	assert.True(t, n.Status.Paid())
}

func TestVerifyNotificationInvalidHash(t *testing.T) {
	t.Parallel()

	bad := ComputeDigest([]byte("invalid!"), []byte(testKey))
	body := notificationFixture(t, `{"posData": {"customer_id": 1000000}, "hash": "`+string(bad)+`"}`)

	n, err := VerifyNotification(body, testKey, VerifyModeRequired)
	assert.Nil(t, n)
	assert.ErrorIs(t, err, ErrDigestMismatch)
	assert.Equal(t, "digest_mismatch: authentication failed (bad hash)", err.Error())
}

func TestVerifyNotificationWrongKey(t *testing.T) {
	t.Parallel()

	sealed, err := SealPosData(map[string]any{"customer_id": 1000000}, testKey, VerifyModeRequired)
	require.NoError(t, err)

	_, err = VerifyNotification(notificationFixture(t, sealed), otherTestKey, VerifyModeRequired)
	assert.ErrorIs(t, err, ErrDigestMismatch)
	assert.True(t, IsKind(err, KindAuthentication))
}

func TestVerifyNotificationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantErr  error
		wantKind ErrorKind
	}{
		{"empty", "", ErrEmptyNotification, KindValidation},
		{"whitespace", "  \n", ErrEmptyNotification, KindValidation},
		{"not json", "id=1&status=paid", ErrInvalidResponse, KindDecode},
		{"missing posData", `{"id":"abc","status":"paid"}`, ErrMissingPosData, KindAuthentication},
		{"empty posData", `{"id":"abc","status":"paid","posData":""}`, ErrMissingPosData, KindAuthentication},
		{"non-string status", `{"id":"abc","status":7,"posData":"{}"}`, ErrInvalidNotification, KindValidation},
		{"trailing data", `{"id":"abc","status":"paid","posData":"{}"} }{`, ErrInvalidResponse, KindDecode},
		{"missing id", `{"status":"paid","posData":"{}"}`, ErrInvalidNotification, KindValidation},
		{"posData object", `{"id":"abc","status":"paid","posData":{"customer_id":1}}`, ErrInvalidNotification, KindValidation},
		{"bare posData", `{"id":"abc","status":"paid","posData":"{\"posData\":1}"}`, ErrMissingDigest, KindAuthentication},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := VerifyNotification([]byte(tt.body), testKey, VerifyModeRequired)
			assert.Nil(t, n)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsKind(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestVerifyNotificationStatusIsOpen(t *testing.T) {
	t.Parallel()

	posData := `{"posData":{"customer_id":1000000},"hash":"P5Hpmwt2fUhuz7VtVMsVBXs7teDImeaovmw71B0586Q="}`

	refunded, err := json.Marshal(map[string]any{"id": "inv1", "status": "refunded", "posData": posData})
	require.NoError(t, err)
	n, err := VerifyNotification(refunded, testKey, VerifyModeRequired)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatus("refunded"), n.Status)
	assert.True(t, n.Verified)

	noStatus, err := json.Marshal(map[string]any{"id": "inv1", "posData": posData})
	require.NoError(t, err)
	n, err = VerifyNotification(noStatus, testKey, VerifyModeRequired)
	require.NoError(t, err)
	assert.Empty(t, n.Status)
	assert.Equal(t, `{"customer_id":1000000}`, string(n.PosData))
}

func TestVerifyNotificationDisabled(t *testing.T) {
	t.Parallel()

	body := notificationFixture(t, `{"posData": {"customer_id": 1000000}}`)
	n, err := VerifyNotification(body, "", VerifyModeDisabled)
	require.NoError(t, err)
	assert.False(t, n.Verified)
	assert.Equal(t, `{"customer_id":1000000}`, string(n.PosData))
}

func TestInvoiceIDUnmarshal(t *testing.T) {
	t.Parallel()

	var v struct {
		ID InvoiceID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"Wk3Yb7X"}`), &v))
	assert.Equal(t, InvoiceID("Wk3Yb7X"), v.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":42}`), &v))
	assert.Equal(t, InvoiceID("42"), v.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id":true}`), &v))
}
