package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliasbr/fanvoice/internal/config"
	"github.com/eliasbr/fanvoice/internal/webhook"
)

func testRouter() (http.Handler, *fakeQueue) {
	cfg := config.Config{
		Webhook: config.WebhookConfig{
			SigningSecret:    testSecret,
			SignatureHeaders: []string{"x-fanvue-signature"},
			RequireSignature: true,
			MaxBodySize:      256 * 1024,
		},
	}
	verifier := webhook.NewVerifier(testSecret, cfg.Webhook.SignatureHeaders, nil)
	queue := &fakeQueue{}
	s := NewServer(cfg, verifier, queue, newFakeStore(), zerolog.Nop())
	return s.router, queue
}

func TestServerHealthRoute(t *testing.T) {
	r, _ := testRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServerWebhookRoute(t *testing.T) {
	r, queue := testRouter()

	body := `{"type":"message.created","message":{"chatId":"c1","text":"hi"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/fanvue", strings.NewReader(body))
	req.Header.Set("x-fanvue-signature", webhook.HexHMACSHA256{}.Sign(testSecret, []byte(body)))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, queue.enqueued, 1)
}

func TestRecoverMiddlewareWritesJSONError(t *testing.T) {
	h := RecoverMiddleware(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/fanvue", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
