package bitpay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// notificationSchema describes the fields this package relies on. Unknown
// fields are allowed since BitPay adds to the payload over time.
const notificationSchema = `{
	"type": "object",
	"required": ["id", "posData"],
	"properties": {
		"id": {"type": ["string", "integer"]},
		"url": {"type": "string"},
		"status": {"type": "string"},
		"posData": {"type": "string"},
		"price": {"type": ["number", "string"]},
		"currency": {"type": "string"},
		"btcPrice": {"type": ["number", "string"]},
		"orderID": {"type": "string"}
	}
}`

var loadNotificationSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(notificationSchema))
})

// DecodeResponse parses a raw API or notification body
func DecodeResponse(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, wrapErr(ErrInvalidResponse, "decodeResponse expects a non-empty body", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var decoded map[string]any
	if err := dec.Decode(&decoded); err != nil {
		return nil, wrapErr(ErrInvalidResponse, "", err)
	}
	if !atEOF(dec) {
		return nil, wrapErr(ErrInvalidResponse, "trailing data after JSON body", nil)
	}
	return decoded, nil
}

// atEOF reports whether dec has nothing but whitespace left
func atEOF(dec *json.Decoder) bool {
	_, err := dec.Token()
	return err == io.EOF
}

// validateNotification checks body against notificationSchema. A missing
// posData is reported as ErrMissingPosData rather than a schema error.
func validateNotification(body []byte) error {
	schema, err := loadNotificationSchema()
	if err != nil {
		return fmt.Errorf("failed to compile notification schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return wrapErr(ErrInvalidNotification, "", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		if desc.Type() == "required" && desc.Details()["property"] == "posData" {
			return ErrMissingPosData
		}
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
	}
	return wrapErr(ErrInvalidNotification, strings.Join(problems, "; "), nil)
}

// VerifyNotification converts a notification POST body into a Notification.
// The posData digest is checked with key unless mode is VerifyModeDisabled;
// on failure the payload is not returned.
func VerifyNotification(body []byte, key string, mode VerifyMode) (*Notification, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyNotification
	}
	if _, err := DecodeResponse(body); err != nil {
		return nil, err
	}
	if err := validateNotification(body); err != nil {
		return nil, err
	}

	var wire wireInvoice
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, wrapErr(ErrInvalidNotification, "", err)
	}

	payload, verified, err := OpenPosData(wire.PosData, key, mode)
	if err != nil {
		return nil, err
	}

	n := &Notification{Invoice: wire.Invoice, Verified: verified}
	n.PosData = payload
	return n, nil
}
