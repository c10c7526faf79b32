package bitpay

import (
	"context"
	"time"
)

// CreateInvoiceContext is passed to invoice creation hooks
type CreateInvoiceContext struct {
	Ctx       context.Context
	RequestID string
	Request   InvoiceRequest
	Timestamp time.Time
}

// CreateInvoiceResultContext carries a created invoice
type CreateInvoiceResultContext struct {
	CreateInvoiceContext
	Invoice  *Invoice
	Duration time.Duration
}

// CreateInvoiceFailureContext carries a failed creation
type CreateInvoiceFailureContext struct {
	CreateInvoiceContext
	Error    error
	Duration time.Duration
}

// BeforeHookResult aborts the operation with Reason when Abort is true
type BeforeHookResult struct {
	Abort  bool
	Reason string
}

// BeforeCreateInvoiceHook runs after validation, before the request is sent.
// Returning Abort=true fails the call with ErrAborted.
type BeforeCreateInvoiceHook func(CreateInvoiceContext) (*BeforeHookResult, error)

// AfterCreateInvoiceHook runs after a successful creation.
// Errors are logged and do not affect the result.
type AfterCreateInvoiceHook func(CreateInvoiceResultContext) error

// OnCreateInvoiceFailureHook runs when creation fails. Errors are logged.
type OnCreateInvoiceFailureHook func(CreateInvoiceFailureContext) error

// WithBeforeCreateInvoiceHook registers a hook to execute before invoice creation
func WithBeforeCreateInvoiceHook(hook BeforeCreateInvoiceHook) ClientOption {
	return func(c *Client) {
		c.beforeCreateHooks = append(c.beforeCreateHooks, hook)
	}
}

// WithAfterCreateInvoiceHook registers a hook to execute after invoice creation
func WithAfterCreateInvoiceHook(hook AfterCreateInvoiceHook) ClientOption {
	return func(c *Client) {
		c.afterCreateHooks = append(c.afterCreateHooks, hook)
	}
}

// WithOnCreateInvoiceFailureHook registers a hook to execute when invoice creation fails
func WithOnCreateInvoiceFailureHook(hook OnCreateInvoiceFailureHook) ClientOption {
	return func(c *Client) {
		c.createFailureHooks = append(c.createFailureHooks, hook)
	}
}

func (c *Client) runBeforeCreate(hookCtx CreateInvoiceContext) error {
	for _, hook := range c.beforeCreateHooks {
		result, err := hook(hookCtx)
		if err != nil {
			c.logger.Warn().Str("request_id", hookCtx.RequestID).Err(err).Msg("before create invoice hook failed")
		}
		if result != nil && result.Abort {
			return wrapErr(ErrAborted, result.Reason, nil)
		}
	}
	return nil
}

func (c *Client) runAfterCreate(hookCtx CreateInvoiceContext, invoice *Invoice) {
	resultCtx := CreateInvoiceResultContext{
		CreateInvoiceContext: hookCtx,
		Invoice:              invoice,
		Duration:             time.Since(hookCtx.Timestamp),
	}
	for _, hook := range c.afterCreateHooks {
		if err := hook(resultCtx); err != nil {
			c.logger.Warn().Str("request_id", hookCtx.RequestID).Err(err).Msg("after create invoice hook failed")
		}
	}
}

func (c *Client) runCreateFailure(hookCtx CreateInvoiceContext, failure error) {
	failureCtx := CreateInvoiceFailureContext{
		CreateInvoiceContext: hookCtx,
		Error:                failure,
		Duration:             time.Since(hookCtx.Timestamp),
	}
	for _, hook := range c.createFailureHooks {
		if err := hook(failureCtx); err != nil {
			c.logger.Warn().Str("request_id", hookCtx.RequestID).Err(err).Msg("create invoice failure hook failed")
		}
	}
}
