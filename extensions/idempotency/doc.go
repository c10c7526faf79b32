// Package idempotency deduplicates BitPay notification deliveries as an
// opt-in extension for notification receivers.
//
// # Overview
//
// BitPay retries a notification until the receiver answers 200, and with
// fullNotifications enabled it sends one request per status change. A slow
// handler can therefore see the same invoice status twice, sometimes
// concurrently. This package wraps a bitpay.Receiver so each id:status pair
// reaches the handler once within the TTL window.
//
// # Usage
//
// Basic usage with the default in-memory store:
//
//	client, _ := bphttp.NewClient(cfg)
//	receiver := idempotency.Wrap(client, handleNotification)
//
// Custom TTL:
//
//	receiver := idempotency.Wrap(client, handleNotification,
//	    idempotency.WithTTL(time.Hour),
//	)
//
// # Implementing Custom Stores
//
// Load-balanced receivers need a shared backend. Implement
// bitpay.NotificationStore and pass it with WithStore:
//   - CheckAndMark: atomic check-and-mark for deduplication
//   - WaitForResult: wait for an in-flight delivery to finish
//   - Complete: remember a handled delivery
//   - Fail: clear the in-flight marker so BitPay's retry gets through
//
// Failed deliveries are NOT remembered.
package idempotency
