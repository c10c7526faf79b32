package bitpay

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// MaxPosDataLength is the BitPay limit on the posData field, envelope and
// digest included.
const MaxPosDataLength = 100

// Digest is a base64 HMAC-SHA256 tag over a serialized payload
type Digest string

// PosEnvelope is the posData wire object. Hash is omitted when
// verification is disabled.
type PosEnvelope struct {
	PosData json.RawMessage `json:"posData"`
	Hash    Digest          `json:"hash,omitempty"`
}

// ComputeDigest returns base64(HMAC-SHA256(key, serializedPayload)).
// It is deterministic and has no side effects.
func ComputeDigest(serializedPayload, key []byte) Digest {
	return Digest(base64.StdEncoding.EncodeToString(mac(serializedPayload, key)))
}

// VerifyDigest recomputes the digest and compares it with candidate in
// constant time. It returns false for an empty or malformed candidate.
func VerifyDigest(serializedPayload, key []byte, candidate Digest) bool {
	if candidate == "" {
		return false
	}
	got, err := base64.StdEncoding.Strict().DecodeString(string(candidate))
	if err != nil {
		return false
	}
	return hmac.Equal(mac(serializedPayload, key), got)
}

func mac(data, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// CanonicalizePayload serializes v the same way on both ends: compact JSON,
// object keys sorted, numbers kept as written, no HTML escaping.
// A json.RawMessage is parsed and re-encoded rather than trusted as is.
func CanonicalizePayload(v any) (json.RawMessage, error) {
	var raw []byte
	switch p := v.(type) {
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal posData: %w", err)
		}
		raw = b
	}
	return canonicalJSON(raw)
}

func canonicalJSON(raw []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to decode posData: %w", err)
	}
	if !atEOF(dec) {
		return nil, fmt.Errorf("failed to decode posData: trailing data")
	}

	return encodeCompact(generic)
}

func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// SealPosData builds the posData string sent at invoice creation. With
// VerifyModeDisabled the envelope carries no hash. An envelope longer than
// MaxPosDataLength is rejected, never truncated.
func SealPosData(payload any, key string, mode VerifyMode) (string, error) {
	canonical, err := CanonicalizePayload(payload)
	if err != nil {
		return "", wrapErr(ErrInvalidPosData, "", err)
	}

	envelope := PosEnvelope{PosData: canonical}
	if mode.hashes() {
		envelope.Hash = ComputeDigest(canonical, []byte(key))
	}

	sealed, err := encodeCompact(envelope)
	if err != nil {
		return "", wrapErr(ErrInvalidPosData, "", err)
	}

	if n := utf8.RuneCount(sealed); n > MaxPosDataLength {
		return "", wrapErr(ErrPosDataTooLong,
			fmt.Sprintf("posData is %d characters, over the %d character limit (the hash adds %d)",
				n, MaxPosDataLength, len(envelope.Hash)), nil)
	}

	return string(sealed), nil
}

// OpenPosData parses a posData string from BitPay and returns the merchant
// payload. Unless mode is VerifyModeDisabled the digest must be present and
// match; on any error no payload is returned. The bool reports whether a
// digest was checked.
func OpenPosData(raw string, key string, mode VerifyMode) (json.RawMessage, bool, error) {
	if raw == "" {
		return nil, false, ErrMissingPosData
	}

	var envelope PosEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, false, wrapErr(ErrInvalidPosData, "", err)
	}
	if len(envelope.PosData) == 0 {
		return nil, false, wrapErr(ErrInvalidPosData, "posData envelope has no posData field", nil)
	}

	canonical, err := canonicalJSON(envelope.PosData)
	if err != nil {
		return nil, false, wrapErr(ErrInvalidPosData, "", err)
	}

	if !mode.hashes() {
		return canonical, false, nil
	}

	if envelope.Hash == "" {
		return nil, false, ErrMissingDigest
	}
	if !VerifyDigest(canonical, []byte(key), envelope.Hash) {
		return nil, false, ErrDigestMismatch
	}

	return canonical, true, nil
}
