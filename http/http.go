// Package http provides the net/http transport for the bitpay client.
package http

import (
	bitpay "github.com/bitpay/bitpay-go"
)

// NewClient creates a bitpay client backed by an HTTPTransport built from
// config. Options given here are applied after the transport is set, so
// WithTransport can still replace it.
func NewClient(config bitpay.Config, opts ...bitpay.ClientOption) (*bitpay.Client, error) {
	transport := NewHTTPTransport(&TransportConfig{
		Timeout: config.Timeout,
	})
	return bitpay.NewClient(config, append([]bitpay.ClientOption{bitpay.WithTransport(transport)}, opts...)...)
}
