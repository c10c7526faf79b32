package bitpay

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// InvoiceID identifies an invoice. BitPay sends it as a string, older
// notification fixtures carry a number; both decode.
type InvoiceID string

// UnmarshalJSON accepts a JSON string or number
func (id *InvoiceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = InvoiceID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invoice id must be a string or number: %w", err)
	}
	*id = InvoiceID(n.String())
	return nil
}

// InvoiceStatus is the lifecycle state reported by BitPay
type InvoiceStatus string

const (
	StatusNew       InvoiceStatus = "new"
	StatusPaid      InvoiceStatus = "paid"
	StatusConfirmed InvoiceStatus = "confirmed"
	StatusComplete  InvoiceStatus = "complete"
	StatusExpired   InvoiceStatus = "expired"
	StatusInvalid   InvoiceStatus = "invalid"
)

// Paid reports whether the buyer has paid, regardless of confirmation depth
func (s InvoiceStatus) Paid() bool {
	switch s {
	case StatusPaid, StatusConfirmed, StatusComplete:
		return true
	default:
		return false
	}
}

// Invoice is a server-side record representing a requested payment
type Invoice struct {
	ID             InvoiceID       `json:"id"`
	URL            string          `json:"url,omitempty"`
	Status         InvoiceStatus   `json:"status"`
	Price          json.Number     `json:"price,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	BTCPrice       json.Number     `json:"btcPrice,omitempty"`
	InvoiceTime    int64           `json:"invoiceTime,omitempty"`
	ExpirationTime int64           `json:"expirationTime,omitempty"`
	CurrentTime    int64           `json:"currentTime,omitempty"`
	OrderID        string          `json:"orderID,omitempty"`
	PosData        json.RawMessage `json:"posData,omitempty"`
}

// Notification is an invoice pushed to the notificationURL.
// PosData holds the merchant payload with the envelope removed.
type Notification struct {
	Invoice
	// Verified is true when the posData digest was checked
	Verified bool `json:"verified"`
}

// wireInvoice mirrors the JSON BitPay sends, where posData is a JSON
// encoded string rather than a nested object.
type wireInvoice struct {
	Invoice
	PosData string `json:"posData"`
}

// InvoiceRequest is the input to CreateInvoice
type InvoiceRequest struct {
	// OrderID is shown to the buyer and identifies the ledger entry.
	// Maximum length is 100 characters.
	OrderID string
	// Price is expressed in the effective currency
	Price float64
	// PosData is any JSON-marshalable value echoed back verbatim in
	// notifications. The sealed envelope must fit in 100 characters.
	PosData any
	// Options override the client's invoice defaults for this call
	Options InvoiceOptions
}

// invoiceBody is the whitelisted POST body for invoice creation
type invoiceBody struct {
	OrderID           string  `json:"orderID,omitempty"`
	Price             float64 `json:"price"`
	Currency          string  `json:"currency,omitempty"`
	PosData           string  `json:"posData,omitempty"`
	ItemDesc          string  `json:"itemDesc,omitempty"`
	ItemCode          string  `json:"itemCode,omitempty"`
	NotificationEmail string  `json:"notificationEmail,omitempty"`
	NotificationURL   string  `json:"notificationURL,omitempty"`
	RedirectURL       string  `json:"redirectURL,omitempty"`
	Physical          *bool   `json:"physical,omitempty"`
	FullNotifications *bool   `json:"fullNotifications,omitempty"`
	TransactionSpeed  string  `json:"transactionSpeed,omitempty"`
	BuyerName         string  `json:"buyerName,omitempty"`
	BuyerAddress1     string  `json:"buyerAddress1,omitempty"`
	BuyerAddress2     string  `json:"buyerAddress2,omitempty"`
	BuyerCity         string  `json:"buyerCity,omitempty"`
	BuyerState        string  `json:"buyerState,omitempty"`
	BuyerZip          string  `json:"buyerZip,omitempty"`
	BuyerEmail        string  `json:"buyerEmail,omitempty"`
	BuyerPhone        string  `json:"buyerPhone,omitempty"`
}

func newInvoiceBody(req InvoiceRequest, opts InvoiceOptions, posData string) invoiceBody {
	return invoiceBody{
		OrderID:           req.OrderID,
		Price:             req.Price,
		Currency:          opts.Currency,
		PosData:           posData,
		ItemDesc:          opts.ItemDesc,
		ItemCode:          opts.ItemCode,
		NotificationEmail: opts.NotificationEmail,
		NotificationURL:   opts.NotificationURL,
		RedirectURL:       opts.RedirectURL,
		Physical:          opts.Physical,
		FullNotifications: opts.FullNotifications,
		TransactionSpeed:  opts.TransactionSpeed,
		BuyerName:         opts.BuyerName,
		BuyerAddress1:     opts.BuyerAddress1,
		BuyerAddress2:     opts.BuyerAddress2,
		BuyerCity:         opts.BuyerCity,
		BuyerState:        opts.BuyerState,
		BuyerZip:          opts.BuyerZip,
		BuyerEmail:        opts.BuyerEmail,
		BuyerPhone:        opts.BuyerPhone,
	}
}

// Request is a single call handed to a Transport
type Request struct {
	Method string
	URL    string
	APIKey string
	// Body is nil for GET requests
	Body []byte
}

// Response is the raw answer from a Transport
type Response struct {
	StatusCode int
	Body       []byte
}
