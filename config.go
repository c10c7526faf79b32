package bitpay

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultBaseURL is the BitPay legacy API root
const DefaultBaseURL = "https://bitpay.com/api"

// DefaultCurrency is used when neither the config nor the call sets one
const DefaultCurrency = "BTC"

// DefaultTimeout bounds a single HTTP exchange
const DefaultTimeout = 30 * time.Second

// MaxOrderIDLength is the BitPay limit on orderID
const MaxOrderIDLength = 100

// Config validation errors
var (
	ErrMissingAPIKey   = errors.New("bitpay: api key is required")
	ErrMissingBaseURL  = errors.New("bitpay: base url is required")
	ErrVerifyModeUnset = errors.New("bitpay: verify mode must be set explicitly (required or disabled)")
)

// VerifyMode selects whether posData digests are minted and checked.
// The zero value is rejected by Config.Validate.
type VerifyMode int

const (
	VerifyModeUnset VerifyMode = iota
	// VerifyModeRequired hashes posData on creation and rejects
	// notifications whose digest does not match
	VerifyModeRequired
	// VerifyModeDisabled sends bare posData and accepts it unverified
	VerifyModeDisabled
)

func (m VerifyMode) String() string {
	switch m {
	case VerifyModeRequired:
		return "required"
	case VerifyModeDisabled:
		return "disabled"
	default:
		return "unset"
	}
}

// MarshalText implements encoding.TextMarshaler
func (m VerifyMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so the mode can be set
// from YAML and environment variables.
func (m *VerifyMode) UnmarshalText(text []byte) error {
	mode, err := ParseVerifyMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ParseVerifyMode parses "required"/"disabled" and their boolean spellings
func ParseVerifyMode(s string) (VerifyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "required", "true", "on", "yes":
		return VerifyModeRequired, nil
	case "disabled", "false", "off", "no":
		return VerifyModeDisabled, nil
	default:
		return VerifyModeUnset, fmt.Errorf("invalid verify mode %q", s)
	}
}

// hashes reports whether digests are minted and checked. Anything other
// than an explicit Disabled is treated as Required.
func (m VerifyMode) hashes() bool {
	return m != VerifyModeDisabled
}

// Transaction speeds accepted by BitPay
const (
	SpeedHigh   = "high"
	SpeedMedium = "medium"
	SpeedLow    = "low"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// InvoiceOptions are the optional invoice fields. A zero field means
// "not set"; in Merge the call-site value wins over the default.
type InvoiceOptions struct {
	Currency          string `yaml:"currency" env:"CURRENCY"`
	ItemDesc          string `yaml:"item_desc" env:"ITEM_DESC"`
	ItemCode          string `yaml:"item_code" env:"ITEM_CODE"`
	NotificationEmail string `yaml:"notification_email" env:"NOTIFICATION_EMAIL"`
	NotificationURL   string `yaml:"notification_url" env:"NOTIFICATION_URL"`
	RedirectURL       string `yaml:"redirect_url" env:"REDIRECT_URL"`
	Physical          *bool  `yaml:"physical" env:"PHYSICAL"`
	FullNotifications *bool  `yaml:"full_notifications" env:"FULL_NOTIFICATIONS"`
	TransactionSpeed  string `yaml:"transaction_speed" env:"TRANSACTION_SPEED"`
	BuyerName         string `yaml:"buyer_name" env:"BUYER_NAME"`
	BuyerAddress1     string `yaml:"buyer_address1" env:"BUYER_ADDRESS1"`
	BuyerAddress2     string `yaml:"buyer_address2" env:"BUYER_ADDRESS2"`
	BuyerCity         string `yaml:"buyer_city" env:"BUYER_CITY"`
	BuyerState        string `yaml:"buyer_state" env:"BUYER_STATE"`
	BuyerZip          string `yaml:"buyer_zip" env:"BUYER_ZIP"`
	BuyerEmail        string `yaml:"buyer_email" env:"BUYER_EMAIL"`
	BuyerPhone        string `yaml:"buyer_phone" env:"BUYER_PHONE"`
}

// Merge returns o with every non-zero field of override applied on top
func (o InvoiceOptions) Merge(override InvoiceOptions) InvoiceOptions {
	merged := o
	setString(&merged.Currency, override.Currency)
	setString(&merged.ItemDesc, override.ItemDesc)
	setString(&merged.ItemCode, override.ItemCode)
	setString(&merged.NotificationEmail, override.NotificationEmail)
	setString(&merged.NotificationURL, override.NotificationURL)
	setString(&merged.RedirectURL, override.RedirectURL)
	setString(&merged.TransactionSpeed, override.TransactionSpeed)
	setString(&merged.BuyerName, override.BuyerName)
	setString(&merged.BuyerAddress1, override.BuyerAddress1)
	setString(&merged.BuyerAddress2, override.BuyerAddress2)
	setString(&merged.BuyerCity, override.BuyerCity)
	setString(&merged.BuyerState, override.BuyerState)
	setString(&merged.BuyerZip, override.BuyerZip)
	setString(&merged.BuyerEmail, override.BuyerEmail)
	setString(&merged.BuyerPhone, override.BuyerPhone)
	if override.Physical != nil {
		merged.Physical = override.Physical
	}
	if override.FullNotifications != nil {
		merged.FullNotifications = override.FullNotifications
	}
	return merged
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks the fields BitPay constrains
func (o InvoiceOptions) Validate() error {
	if o.Currency != "" && !currencyPattern.MatchString(o.Currency) {
		return fmt.Errorf("currency must be a 3 letter ISO code, got %q", o.Currency)
	}
	switch o.TransactionSpeed {
	case "", SpeedHigh, SpeedMedium, SpeedLow:
	default:
		return fmt.Errorf("transactionSpeed must be high, medium or low, got %q", o.TransactionSpeed)
	}
	return nil
}

// Config carries the client defaults. It is passed and stored by value;
// per-call options override it without mutating it.
type Config struct {
	// APIKey authenticates API calls and keys the posData digest
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// BaseURL defaults to DefaultBaseURL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Currency defaults to DefaultCurrency
	Currency string `yaml:"currency" env:"CURRENCY"`
	// VerifyMode has no default, see VerifyMode
	VerifyMode VerifyMode `yaml:"verify_mode" env:"VERIFY_MODE"`
	// Logging enables the append-only request log
	Logging bool `yaml:"logging" env:"LOGGING"`
	// LogFile is the log destination, see bplog.DefaultFile
	LogFile string `yaml:"log_file" env:"LOG_FILE"`
	// Timeout for a single request, defaults to DefaultTimeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Invoice holds default invoice options
	Invoice InvoiceOptions `yaml:"invoice" envPrefix:"INVOICE_"`
}

// WithDefaults fills unset optional fields
func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks if the config has all required fields
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if c.VerifyMode != VerifyModeRequired && c.VerifyMode != VerifyModeDisabled {
		return ErrVerifyModeUnset
	}
	if err := c.Invoice.Validate(); err != nil {
		return fmt.Errorf("bitpay: invoice defaults: %w", err)
	}
	return nil
}

// effectiveOptions resolves call-site options over config defaults
func (c Config) effectiveOptions(override InvoiceOptions) InvoiceOptions {
	defaults := c.Invoice
	if defaults.Currency == "" {
		defaults.Currency = c.Currency
	}
	return defaults.Merge(override)
}

func validateInvoiceRequest(req InvoiceRequest, opts InvoiceOptions) error {
	if utf8.RuneCountInString(req.OrderID) > MaxOrderIDLength {
		return fmt.Errorf("orderID exceeds %d characters", MaxOrderIDLength)
	}
	if req.Price <= 0 {
		return fmt.Errorf("price must be greater than zero")
	}
	return opts.Validate()
}
