// Package gin serves BitPay notifications with Gin.
package gin

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

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

// NotificationHandler is the Gin handler for the BitPay notificationURL.
// Mount it on a POST route.
func NotificationHandler(client *bitpay.Client, fn bitpay.NotificationFunc, opts ...Options) gin.HandlerFunc {
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

	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, options.MaxBodyBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, bitpay.NotificationResponse{Status: "error", Error: "notification too large"})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, bitpay.NewNotificationResponse(err))
			return
		}

		code, err := receiver.Handle(c.Request.Context(), body)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(code, bitpay.NewNotificationResponse(err))
			return
		}
		c.JSON(code, bitpay.NewNotificationResponse(nil))
	}
}
