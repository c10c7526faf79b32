package bitpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bitpay/bitpay-go/pkg/bplog"
)

// Transport performs one HTTP exchange with BitPay. Implementations must
// not retry; a network failure is returned as an error.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Client creates and retrieves invoices and verifies notifications.
// It is immutable after construction and safe for concurrent use.
type Client struct {
	config    Config
	transport Transport
	logger    zerolog.Logger
	loggerSet bool
	logFile   io.Closer

	beforeCreateHooks  []BeforeCreateInvoiceHook
	afterCreateHooks   []AfterCreateInvoiceHook
	createFailureHooks []OnCreateInvoiceFailureHook
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithTransport sets the HTTP transport
func WithTransport(t Transport) ClientOption {
	return func(c *Client) {
		c.transport = t
	}
}

// WithLogger sets the request logger. Without it the client logs to
// Config.LogFile when Config.Logging is set, and nowhere otherwise.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
		c.loggerSet = true
	}
}

// NewClient validates config and creates a client.
// A transport is required, see the http package for the default one.
func NewClient(config Config, opts ...ClientOption) (*Client, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		return nil, errors.New("bitpay: transport is required")
	}

	if config.Logging && !c.loggerSet {
		logger, closer, err := bplog.Open(config.LogFile)
		if err != nil {
			return nil, fmt.Errorf("bitpay: %w", err)
		}
		c.logger = logger
		c.logFile = closer
	}

	if config.VerifyMode == VerifyModeDisabled {
		c.logger.Warn().Msg("posData verification is disabled; notifications will be accepted without a digest check")
	}

	return c, nil
}

// Close releases the log file opened for Config.Logging. It is a no-op
// when the client was given a logger or logging is off.
func (c *Client) Close() error {
	if c.logFile == nil {
		return nil
	}
	return c.logFile.Close()
}

// Config returns a copy of the client configuration
func (c *Client) Config() Config {
	return c.config
}

// callConfig holds the values a single call may override
type callConfig struct {
	apiKey     string
	verifyMode VerifyMode
}

// CallOption overrides a client default for one call
type CallOption func(*callConfig)

// WithAPIKey uses key instead of Config.APIKey. An empty key keeps the
// default.
func WithAPIKey(key string) CallOption {
	return func(cc *callConfig) {
		if strings.TrimSpace(key) != "" {
			cc.apiKey = key
		}
	}
}

// WithVerifyMode overrides Config.VerifyMode for one call
func WithVerifyMode(mode VerifyMode) CallOption {
	return func(cc *callConfig) {
		if mode != VerifyModeUnset {
			cc.verifyMode = mode
		}
	}
}

func (c *Client) resolve(opts []CallOption) callConfig {
	cc := callConfig{
		apiKey:     c.config.APIKey,
		verifyMode: c.config.VerifyMode,
	}
	for _, opt := range opts {
		opt(&cc)
	}
	return cc
}

// CreateInvoice creates a BitPay invoice. The posData envelope is sealed
// and its length checked before anything is sent.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest, opts ...CallOption) (*Invoice, error) {
	cc := c.resolve(opts)

	options := c.config.effectiveOptions(req.Options)
	if err := validateInvoiceRequest(req, options); err != nil {
		return nil, wrapErr(ErrInvalidRequest, err.Error(), nil)
	}

	var posData string
	if req.PosData != nil {
		if !cc.verifyMode.hashes() {
			c.logger.Warn().Msg("sending posData without a hash")
		}
		sealed, err := SealPosData(req.PosData, cc.apiKey, cc.verifyMode)
		if err != nil {
			return nil, err
		}
		posData = sealed
	}

	body, err := json.Marshal(newInvoiceBody(req, options, posData))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice request: %w", err)
	}

	requestID := uuid.NewString()
	hookCtx := CreateInvoiceContext{
		Ctx:       ctx,
		RequestID: requestID,
		Request:   req,
		Timestamp: time.Now(),
	}
	if err := c.runBeforeCreate(hookCtx); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("request_id", requestID).
		RawJSON("request", body).
		Msg("create invoice")

	invoice, err := c.call(ctx, requestID, Request{
		Method: http.MethodPost,
		URL:    c.config.BaseURL + "/invoice/",
		APIKey: cc.apiKey,
		Body:   body,
	}, cc)
	if err != nil {
		c.runCreateFailure(hookCtx, err)
		return nil, err
	}

	c.runAfterCreate(hookCtx, invoice)
	return invoice, nil
}

// GetInvoice retrieves an invoice by id
func (c *Client) GetInvoice(ctx context.Context, id string, opts ...CallOption) (*Invoice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, wrapErr(ErrInvalidRequest, "invoice id is required", nil)
	}
	cc := c.resolve(opts)

	requestID := uuid.NewString()
	c.logger.Info().
		Str("request_id", requestID).
		Str("invoice_id", id).
		Msg("get invoice")

	return c.call(ctx, requestID, Request{
		Method: http.MethodGet,
		URL:    c.config.BaseURL + "/invoice/" + url.PathEscape(id),
		APIKey: cc.apiKey,
	}, cc)
}

// VerifyNotification checks a notification body with the client's key and
// verify mode, see the package level VerifyNotification.
func (c *Client) VerifyNotification(body []byte, opts ...CallOption) (*Notification, error) {
	cc := c.resolve(opts)

	if cc.verifyMode == VerifyModeDisabled {
		c.logger.Warn().Msg("skipping posData verification")
	}

	n, err := VerifyNotification(body, cc.apiKey, cc.verifyMode)
	if err != nil {
		event := c.logger.Warn().Err(err)
		if IsKind(err, KindDecode) {
			event = event.Str("body", string(body))
		}
		event.Msg("rejected notification")
		return nil, err
	}

	c.logger.Info().
		Str("invoice_id", string(n.ID)).
		Str("status", string(n.Status)).
		Bool("verified", n.Verified).
		Msg("notification accepted")
	return n, nil
}

// call sends req and decodes the invoice in the response
func (c *Client) call(ctx context.Context, requestID string, req Request, cc callConfig) (*Invoice, error) {
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.APIKey) == "" {
		return nil, ErrMissingCredentials
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		c.logger.Error().Str("request_id", requestID).Err(err).Msg("request failed")
		return nil, wrapErr(ErrRequestFailed, fmt.Sprintf("%s %s failed", req.Method, req.URL), err)
	}

	decoded, err := DecodeResponse(resp.Body)
	if err != nil {
		c.logger.Error().
			Str("request_id", requestID).
			Int("status", resp.StatusCode).
			Str("body", string(resp.Body)).
			Msg("Error: response is not JSON")
		return nil, err
	}

	c.logger.Info().
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		RawJSON("response", resp.Body).
		Msg("response")

	if remote, ok := decoded["error"]; ok {
		return nil, remoteError(resp.StatusCode, remote)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, wrapErr(ErrRemote, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var wire wireInvoice
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, wrapErr(ErrInvalidResponse, "failed to decode invoice", err)
	}

	invoice := wire.Invoice
	if wire.PosData != "" {
		if !cc.verifyMode.hashes() {
			c.logger.Warn().Str("request_id", requestID).Msg("skipping posData verification")
		}
		payload, _, err := OpenPosData(wire.PosData, cc.apiKey, cc.verifyMode)
		if err != nil {
			return nil, err
		}
		invoice.PosData = payload
	}

	return &invoice, nil
}

// remoteError converts {"error": ...} documents. BitPay sends either a
// string or an object with type and message.
func remoteError(status int, remote any) error {
	message := fmt.Sprint(remote)
	switch v := remote.(type) {
	case string:
		message = v
	case map[string]any:
		if m, ok := v["message"].(string); ok && m != "" {
			message = m
			if t, ok := v["type"].(string); ok && t != "" {
				message = t + ": " + m
			}
		}
	}
	return wrapErr(ErrRemote, fmt.Sprintf("bitpay returned an error (%d): %s", status, message), nil)
}
