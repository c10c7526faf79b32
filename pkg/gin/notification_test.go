package gin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bitpay "github.com/bitpay/bitpay-go"
)

const testKey = "test-key-123"

type noopTransport struct{}

func (noopTransport) Do(ctx context.Context, req bitpay.Request) (*bitpay.Response, error) {
	return nil, errors.New("unused")
}

func setupRouter(t *testing.T, fn bitpay.NotificationFunc, opts ...Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client, err := bitpay.NewClient(bitpay.Config{
		APIKey:     testKey,
		VerifyMode: bitpay.VerifyModeRequired,
	}, bitpay.WithTransport(noopTransport{}))
	require.NoError(t, err)

	router := gin.New()
	router.POST("/bitpay/notify", NotificationHandler(client, fn, opts...))
	return router
}

func notificationBody(t *testing.T, key string) string {
	t.Helper()
	posData, err := bitpay.SealPosData(map[string]any{"customer_id": 1000000}, key, bitpay.VerifyModeRequired)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"id":      1,
		"status":  "complete",
		"price":   5,
		"posData": posData,
	})
	require.NoError(t, err)
	return string(body)
}

func post(router *gin.Engine, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bitpay/notify", strings.NewReader(body)))
	return rec
}

func TestNotificationHandlerVerified(t *testing.T) {
	var got *bitpay.Notification
	router := setupRouter(t, func(ctx context.Context, n *bitpay.Notification) error {
		got = n
		return nil
	})

	rec := post(router, notificationBody(t, testKey))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.NotNil(t, got)
	assert.Equal(t, bitpay.InvoiceID("1"), got.ID)
	assert.True(t, got.Verified)
	assert.JSONEq(t, `{"customer_id":1000000}`, string(got.PosData))
}

func TestNotificationHandlerBadHash(t *testing.T) {
	called := false
	router := setupRouter(t, func(ctx context.Context, n *bitpay.Notification) error {
		called = true
		return nil
	})

	rec := post(router, notificationBody(t, "test-key-456"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	var resp bitpay.NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, bitpay.ErrCodeDigestMismatch, resp.Code)
	assert.Equal(t, "authentication failed (bad hash)", resp.Error)
}

func TestNotificationHandlerMissingPosData(t *testing.T) {
	router := setupRouter(t, nil)
	rec := post(router, `{"id":"inv1","status":"paid"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotificationHandlerMalformed(t *testing.T) {
	router := setupRouter(t, nil)
	assert.Equal(t, http.StatusBadRequest, post(router, "").Code)
	assert.Equal(t, http.StatusBadRequest, post(router, "{not json").Code)
	assert.Equal(t, http.StatusBadRequest, post(router, `{"id":"inv1","status":7,"posData":"{}"}`).Code)
}

func TestNotificationHandlerCallbackError(t *testing.T) {
	router := setupRouter(t, func(ctx context.Context, n *bitpay.Notification) error {
		return errors.New("ledger unavailable")
	})
	assert.Equal(t, http.StatusInternalServerError, post(router, notificationBody(t, testKey)).Code)
}

func TestNotificationHandlerBodyLimit(t *testing.T) {
	router := setupRouter(t, nil, WithMaxBodyBytes(8))
	assert.Equal(t, http.StatusRequestEntityTooLarge, post(router, notificationBody(t, testKey)).Code)
}
