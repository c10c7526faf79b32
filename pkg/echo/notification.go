// Package echo serves BitPay notifications with Echo.
package echo

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	bitpay "github.com/bitpay/bitpay-go"
)

// NotificationHandlerOptions is the options for the NotificationHandler.
type NotificationHandlerOptions struct {
	MaxBodyBytes int64
	Store        bitpay.NotificationStore
}

// Options is the type for the options for the NotificationHandler.
type Options func(*NotificationHandlerOptions)

// WithMaxBodyBytes is an option for the NotificationHandler to limit the request body.
func WithMaxBodyBytes(n int64) Options {
	return func(options *NotificationHandlerOptions) {
		options.MaxBodyBytes = n
	}
}

// WithStore is an option for the NotificationHandler to deduplicate deliveries.
func WithStore(store bitpay.NotificationStore) Options {
	return func(options *NotificationHandlerOptions) {
		options.Store = store
	}
}

// NotificationHandler is the Echo handler for the BitPay notificationURL.
// Errors are answered directly rather than returned to Echo's error handler.
func NotificationHandler(client *bitpay.Client, fn bitpay.NotificationFunc, opts ...Options) echo.HandlerFunc {
	options := &NotificationHandlerOptions{
		MaxBodyBytes: bitpay.MaxNotificationBytes,
	}
	for _, opt := range opts {
		opt(options)
	}

	var receiverOpts []bitpay.ReceiverOption
	if options.Store != nil {
		receiverOpts = append(receiverOpts, bitpay.WithStore(options.Store))
	}
	receiver := bitpay.NewReceiver(client, fn, receiverOpts...)

	return func(c echo.Context) error {
		req := c.Request()
		body, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, options.MaxBodyBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return c.JSON(http.StatusRequestEntityTooLarge, bitpay.NotificationResponse{Status: "error", Error: "notification too large"})
			}
			return c.JSON(http.StatusBadRequest, bitpay.NewNotificationResponse(err))
		}

		code, err := receiver.Handle(req.Context(), body)
		return c.JSON(code, bitpay.NewNotificationResponse(err))
	}
}
