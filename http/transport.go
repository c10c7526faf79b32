package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	bitpay "github.com/bitpay/bitpay-go"
)

// PluginInfo is sent in the X-BitPay-Plugin-Info header
const PluginInfo = "golib1.0"

// DefaultMaxResponseBytes caps how much of a response body is read
const DefaultMaxResponseBytes = 1 << 20

// TransportConfig configures the HTTP transport
type TransportConfig struct {
	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to bitpay.DefaultTimeout)
	Timeout time.Duration

	// PluginInfo overrides the X-BitPay-Plugin-Info header (optional)
	PluginInfo string

	// MaxResponseBytes caps the response body (optional)
	MaxResponseBytes int64
}

// HTTPTransport performs BitPay API calls over net/http.
// It does not retry.
type HTTPTransport struct {
	httpClient       *http.Client
	pluginInfo       string
	maxResponseBytes int64
}

// NewHTTPTransport creates a transport, config may be nil
func NewHTTPTransport(config *TransportConfig) *HTTPTransport {
	if config == nil {
		config = &TransportConfig{}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = bitpay.DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	pluginInfo := config.PluginInfo
	if pluginInfo == "" {
		pluginInfo = PluginInfo
	}

	maxBytes := config.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}

	return &HTTPTransport{
		httpClient:       httpClient,
		pluginInfo:       pluginInfo,
		maxResponseBytes: maxBytes,
	}
}

// BasicAuth returns the Authorization header value for apiKey. BitPay
// expects the key as the user name with no password and no colon.
func BasicAuth(apiKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey))
}

// Do sends req. A nil body is sent as GET, anything else as POST unless
// req.Method says otherwise. Non-2xx responses are returned, not errors.
func (t *HTTPTransport) Do(ctx context.Context, req bitpay.Request) (*bitpay.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
		if req.Body == nil {
			method = http.MethodGet
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", BasicAuth(req.APIKey))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-BitPay-Plugin-Info", t.pluginInfo)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, t.maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &bitpay.Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}

var _ bitpay.Transport = (*HTTPTransport)(nil)
