// Package stdlib serves BitPay notifications with net/http.
package stdlib

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

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

// NotificationHandler verifies BitPay notifications posted to it and passes
// them to fn. See bitpay.Receiver.Handle for the status codes.
func NotificationHandler(client *bitpay.Client, fn bitpay.NotificationFunc, opts ...Options) http.Handler {
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

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, bitpay.NotificationResponse{Status: "error", Error: "method not allowed"})
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, options.MaxBodyBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeJSON(w, http.StatusRequestEntityTooLarge, bitpay.NotificationResponse{Status: "error", Error: "notification too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, bitpay.NewNotificationResponse(err))
			return
		}

		code, err := receiver.Handle(r.Context(), body)
		writeJSON(w, code, bitpay.NewNotificationResponse(err))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
