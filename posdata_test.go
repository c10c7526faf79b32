package bitpay

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey      = "test-key-123"
	otherTestKey = "test-key-456"
)

func TestComputeDigest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		key     string
		want    Digest
	}{
		{"object", `{"customer_id":1000000}`, testKey, "P5Hpmwt2fUhuz7VtVMsVBXs7teDImeaovmw71B0586Q="},
		{"other key", `{"customer_id":1000000}`, otherTestKey, "7/FN+c6icSKS6FrMPm5duIuMDDhs+nYM9MnnBo7d4x4="},
		{"bare word", `valid`, testKey, "u/K+K7ut4pTpVrI6VoSWrOgv8gTEikKPZN9Zr0EdwDY="},
		{"json string", `"valid"`, testKey, "GxxkKLyYSo8h8osPH6KLt+ZkH3wvKiWAj0cyAfErkFg="},
		{"empty payload", ``, "k", "i7mQxAp9YcuXWXqUISUCW+UKyL63RDbjc1uYiTp/ZiA="},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComputeDigest([]byte(tt.payload), []byte(tt.key))
			assert.Equal(t, tt.want, got)
			assert.Len(t, string(got), 44)
		})
	}
}

func TestComputeDigestDeterministic(t *testing.T) {
	t.Parallel()
	a := ComputeDigest([]byte("payload"), []byte(testKey))
	b := ComputeDigest([]byte("payload"), []byte(testKey))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, ComputeDigest([]byte("payload"), []byte(otherTestKey)))
	assert.NotEqual(t, a, ComputeDigest([]byte("payload2"), []byte(testKey)))
}

func TestVerifyDigest(t *testing.T) {
	t.Parallel()
	payload := []byte(`{"customer_id":1000000}`)
	digest := ComputeDigest(payload, []byte(testKey))

	assert.True(t, VerifyDigest(payload, []byte(testKey), digest))
	assert.False(t, VerifyDigest(payload, []byte(otherTestKey), digest))
	assert.False(t, VerifyDigest([]byte(`{"customer_id":1000001}`), []byte(testKey), digest))
	assert.False(t, VerifyDigest(payload, []byte(testKey), ""))
	assert.False(t, VerifyDigest(payload, []byte(testKey), "not base64!"))
	assert.False(t, VerifyDigest(payload, []byte(testKey), digest[:43]))
}

func TestCanonicalizePayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"map keys sorted", map[string]any{"b": 1, "a": 2}, `{"a":2,"b":1}`},
		{"raw message reordered", json.RawMessage(`{ "b" : 1, "a" : 2 }`), `{"a":2,"b":1}`},
		{"large integer kept", json.RawMessage(`{"id":12345678901234567890}`), `{"id":12345678901234567890}`},
		{"no html escaping", map[string]any{"q": "<a&b>"}, `{"q":"<a&b>"}`},
		{"string", "valid", `"valid"`},
		{"struct", struct {
			Customer int `json:"customer_id"`
		}{1000000}, `{"customer_id":1000000}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CanonicalizePayload(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestCanonicalizePayloadInvalid(t *testing.T) {
	t.Parallel()
	_, err := CanonicalizePayload(json.RawMessage(`{"a":1} {"b":2}`))
	assert.Error(t, err)
	_, err = CanonicalizePayload(json.RawMessage(`{"a":1} }`))
	assert.Error(t, err)
	_, err = CanonicalizePayload(make(chan int))
	assert.Error(t, err)
}

func TestSealPosData(t *testing.T) {
	t.Parallel()

	sealed, err := SealPosData(map[string]any{"customer_id": 1000000}, testKey, VerifyModeRequired)
	require.NoError(t, err)
	assert.Equal(t, `{"posData":{"customer_id":1000000},"hash":"P5Hpmwt2fUhuz7VtVMsVBXs7teDImeaovmw71B0586Q="}`, sealed)
	assert.Len(t, sealed, 89)

	bare, err := SealPosData(map[string]any{"customer_id": 1000000}, testKey, VerifyModeDisabled)
	require.NoError(t, err)
	assert.Equal(t, `{"posData":{"customer_id":1000000}}`, bare)
}

func TestSealPosDataLengthLimit(t *testing.T) {
	t.Parallel()

	// 32 characters seal to exactly 100
	sealed, err := SealPosData(strings.Repeat("a", 32), "k", VerifyModeRequired)
	require.NoError(t, err)
	assert.Len(t, sealed, MaxPosDataLength)

	_, err = SealPosData(strings.Repeat("a", 33), "k", VerifyModeRequired)
	assert.ErrorIs(t, err, ErrPosDataTooLong)
	assert.True(t, IsKind(err, KindValidation))
	assert.Contains(t, err.Error(), "101")
}

func TestSealPosDataCountsCharacters(t *testing.T) {
	t.Parallel()

	// multi-byte characters count once each
	sealed, err := SealPosData(strings.Repeat("é", 32), "k", VerifyModeRequired)
	require.NoError(t, err)
	assert.Greater(t, len(sealed), MaxPosDataLength)
	assert.Equal(t, MaxPosDataLength, len([]rune(sealed)))
}

func TestOpenPosDataRoundTrip(t *testing.T) {
	t.Parallel()

	payloads := []any{
		map[string]any{"customer_id": 1000000},
		"valid",
		[]any{1, "two", true},
	}

	for _, payload := range payloads {
		sealed, err := SealPosData(payload, testKey, VerifyModeRequired)
		require.NoError(t, err)

		got, verified, err := OpenPosData(sealed, testKey, VerifyModeRequired)
		require.NoError(t, err)
		assert.True(t, verified)

		want, err := CanonicalizePayload(payload)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
}

func TestOpenPosDataRejects(t *testing.T) {
	t.Parallel()

	sealed, err := SealPosData(map[string]any{"customer_id": 1000000}, testKey, VerifyModeRequired)
	require.NoError(t, err)

	tests := []struct {
		name    string
		raw     string
		key     string
		wantErr error
	}{
		{"empty", "", testKey, ErrMissingPosData},
		{"not json", "customer=1", testKey, ErrInvalidPosData},
		{"no inner posData", `{"hash":"abc"}`, testKey, ErrInvalidPosData},
		{"no hash", `{"posData":{"customer_id":1000000}}`, testKey, ErrMissingDigest},
		{"wrong key", sealed, otherTestKey, ErrDigestMismatch},
		{"tampered", strings.Replace(sealed, "1000000", "1000001", 1), testKey, ErrDigestMismatch},
		{"forged hash", `{"posData":{"customer_id":1000000},"hash":"7/FN+c6icSKS6FrMPm5duIuMDDhs+nYM9MnnBo7d4x4="}`, testKey, ErrDigestMismatch},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			payload, verified, err := OpenPosData(tt.raw, tt.key, VerifyModeRequired)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, payload)
			assert.False(t, verified)
		})
	}
}

func TestOpenPosDataReorderedEnvelope(t *testing.T) {
	t.Parallel()
	// a sender that reorders keys or adds whitespace still verifies
	raw := `{"hash": "P5Hpmwt2fUhuz7VtVMsVBXs7teDImeaovmw71B0586Q=", "posData": { "customer_id": 1000000 }}`
	payload, verified, err := OpenPosData(raw, testKey, VerifyModeRequired)
	require.NoError(t, err)
	assert.True(t, verified)
	assert.Equal(t, `{"customer_id":1000000}`, string(payload))
}

func TestOpenPosDataDisabled(t *testing.T) {
	t.Parallel()

	payload, verified, err := OpenPosData(`{"posData":{"customer_id":1000000}}`, "", VerifyModeDisabled)
	require.NoError(t, err)
	assert.False(t, verified)
	assert.Equal(t, `{"customer_id":1000000}`, string(payload))

	// a bad hash is ignored, not checked
	_, _, err = OpenPosData(`{"posData":1,"hash":"bogus"}`, "", VerifyModeDisabled)
	assert.NoError(t, err)
}

func TestOpenPosDataUnsetModeVerifies(t *testing.T) {
	t.Parallel()
	_, _, err := OpenPosData(`{"posData":{"customer_id":1000000}}`, testKey, VerifyModeUnset)
	assert.ErrorIs(t, err, ErrMissingDigest)
}
