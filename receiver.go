package bitpay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// NotificationFunc handles a verified notification. A returned error makes
// the receiver answer 500 so BitPay retries the delivery.
type NotificationFunc func(ctx context.Context, n *Notification) error

// DeliveryStatus is the result of checking a NotificationStore
type DeliveryStatus int

const (
	// DeliveryNew means the notification has not been handled and is now
	// marked in-flight for the caller
	DeliveryNew DeliveryStatus = iota
	// DeliveryHandled means the notification was already handled
	DeliveryHandled
	// DeliveryInFlight means another request is handling it right now
	DeliveryInFlight
)

// NotificationStore deduplicates notification deliveries.
// Implementations must be safe for concurrent use.
type NotificationStore interface {
	// CheckAndMark atomically checks key and marks it in-flight when new.
	// The returned channel is closed when the in-flight delivery finishes
	// and must be handed to Complete or Fail.
	CheckAndMark(key string) (DeliveryStatus, chan struct{})

	// WaitForResult blocks until done is closed or ctx ends. It reports
	// whether the other delivery completed successfully.
	WaitForResult(ctx context.Context, key string, done chan struct{}) (bool, error)

	// Complete records key as handled and releases waiters
	Complete(key string, done chan struct{})

	// Fail clears the in-flight marker so the delivery can be retried
	Fail(key string, done chan struct{})
}

// KeyFunc derives the deduplication key of a notification
type KeyFunc func(n *Notification) string

// NotificationKey is the default KeyFunc. BitPay sends one notification
// per status change, so id and status together identify a delivery.
func NotificationKey(n *Notification) string {
	return fmt.Sprintf("%s:%s", n.ID, n.Status)
}

// Receiver turns raw notification bodies into NotificationFunc calls and
// HTTP status codes. The framework adapters in pkg/ wrap it.
type Receiver struct {
	client  *Client
	handler NotificationFunc
	store   NotificationStore
	keyFunc KeyFunc
}

// ReceiverOption configures a Receiver
type ReceiverOption func(*Receiver)

// WithStore enables deduplication of repeated deliveries
func WithStore(store NotificationStore) ReceiverOption {
	return func(r *Receiver) {
		r.store = store
	}
}

// WithKeyFunc replaces NotificationKey
func WithKeyFunc(fn KeyFunc) ReceiverOption {
	return func(r *Receiver) {
		if fn != nil {
			r.keyFunc = fn
		}
	}
}

// NewReceiver creates a receiver verifying with client's key and mode
func NewReceiver(client *Client, handler NotificationFunc, opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		client:  client,
		handler: handler,
		keyFunc: NotificationKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle verifies body and runs the handler. The status code is
// 401 for authentication failures, 400 for malformed bodies, 500 when the
// handler fails and 200 otherwise, duplicates included.
func (r *Receiver) Handle(ctx context.Context, body []byte) (int, error) {
	n, err := r.client.VerifyNotification(body)
	if err != nil {
		return StatusCode(err), err
	}

	if r.store == nil {
		return r.run(ctx, n)
	}

	key := r.keyFunc(n)
	for {
		status, done := r.store.CheckAndMark(key)
		switch status {
		case DeliveryHandled:
			r.client.logger.Debug().Str("key", key).Msg("duplicate notification")
			return http.StatusOK, nil

		case DeliveryInFlight:
			handled, err := r.store.WaitForResult(ctx, key, done)
			if err != nil {
				return http.StatusServiceUnavailable, err
			}
			if handled {
				return http.StatusOK, nil
			}
			// the other delivery failed, try to take over
			continue
		}

		code, err := r.run(ctx, n)
		if err != nil {
			r.store.Fail(key, done)
			return code, err
		}
		r.store.Complete(key, done)
		return code, nil
	}
}

func (r *Receiver) run(ctx context.Context, n *Notification) (int, error) {
	if r.handler == nil {
		return http.StatusOK, nil
	}
	if err := r.handler(ctx, n); err != nil {
		r.client.logger.Error().Err(err).Str("invoice_id", string(n.ID)).Msg("notification handler failed")
		return http.StatusInternalServerError, err
	}
	return http.StatusOK, nil
}

// StatusCode maps an error from VerifyNotification to an HTTP status
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsKind(err, KindAuthentication):
		return http.StatusUnauthorized
	case IsKind(err, KindValidation), IsKind(err, KindDecode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// MaxNotificationBytes bounds the notification body read by the adapters
const MaxNotificationBytes = 1 << 20

// NotificationResponse is the JSON body the adapters answer with
type NotificationResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

// NewNotificationResponse describes the outcome of Handle
func NewNotificationResponse(err error) NotificationResponse {
	if err == nil {
		return NotificationResponse{Status: "ok"}
	}
	resp := NotificationResponse{Status: "error", Error: err.Error()}
	var bpErr *Error
	if errors.As(err, &bpErr) {
		resp.Error = bpErr.Message
		resp.Code = bpErr.Code
	}
	return resp
}
