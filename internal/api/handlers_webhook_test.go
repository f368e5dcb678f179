package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliasbr/fanvoice/internal/config"
	"github.com/eliasbr/fanvoice/internal/models"
	"github.com/eliasbr/fanvoice/internal/webhook"
)

const testSecret = "whsec_test"

type fakeQueue struct {
	enqueued []models.InboundMessage
	full     bool
}

func (q *fakeQueue) Enqueue(msg models.InboundMessage) bool {
	if q.full {
		return false
	}
	q.enqueued = append(q.enqueued, msg)
	return true
}

func newTestHandler(requireSignature bool) (*WebhookHandler, *fakeQueue) {
	cfg := config.WebhookConfig{
		SigningSecret:    testSecret,
		SignatureHeaders: []string{"x-fanvue-signature", "x-signature"},
		RequireSignature: requireSignature,
		MaxBodySize:      256 * 1024,
	}
	verifier := webhook.NewVerifier(testSecret, cfg.SignatureHeaders, nil)
	queue := &fakeQueue{}
	return NewWebhookHandler(cfg, verifier, queue, zerolog.Nop()), queue
}

func post(t *testing.T, h *WebhookHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/fanvue", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Receive(rec, req)
	return rec
}

func signed(body string) map[string]string {
	sig := webhook.HexHMACSHA256{}.Sign(testSecret, []byte(body))
	return map[string]string{"x-fanvue-signature": sig}
}

func TestReceiveValidMessageTriggersQueueOnce(t *testing.T) {
	h, queue := newTestHandler(true)

	body := `{"type":"message.created","message":{"chatId":"c1","text":"hi"}}`
	rec := post(t, h, body, signed(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "c1", queue.enqueued[0].ChatID)
	assert.Equal(t, "unknown", queue.enqueued[0].UserID)
	assert.Equal(t, "hi", queue.enqueued[0].Text)
}

func TestReceiveAlternateFieldNames(t *testing.T) {
	h, queue := newTestHandler(true)

	body := `{"event":"message.received","data":{"chat_id":"c2","sender":{"uuid":"u9"},"text":"yo"}}`
	rec := post(t, h, body, signed(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "c2", queue.enqueued[0].ChatID)
	assert.Equal(t, "u9", queue.enqueued[0].UserID)
}

func TestReceiveMissingChatIDAcksWithoutQueueing(t *testing.T) {
	h, queue := newTestHandler(true)

	body := `{"type":"message.created","message":{"text":"hi"}}`
	rec := post(t, h, body, signed(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Empty(t, queue.enqueued)
}

func TestReceiveUnrecognizedEventAcksWithoutQueueing(t *testing.T) {
	h, queue := newTestHandler(true)

	body := `{"type":"other.thing","message":{"chatId":"c1","text":"hi"}}`
	rec := post(t, h, body, signed(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, queue.enqueued)
}

func TestReceiveMalformedJSON(t *testing.T) {
	h, queue := newTestHandler(true)

	body := `{not json`
	rec := post(t, h, body, signed(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
	assert.Empty(t, queue.enqueued)
}

func TestReceiveSignatureMismatch(t *testing.T) {
	h, queue := newTestHandler(true)

	body := `{"type":"message.created","message":{"chatId":"c1","text":"hi"}}`
	rec := post(t, h, body, map[string]string{"x-fanvue-signature": "deadbeef"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, queue.enqueued)
}

func TestReceiveSignatureOverDifferentBodyRejected(t *testing.T) {
	h, queue := newTestHandler(true)

	other := webhook.HexHMACSHA256{}.Sign(testSecret, []byte(`{"type":"message.created"}`))
	body := `{"type":"message.created","message":{"chatId":"c1","text":"hi"}}`
	rec := post(t, h, body, map[string]string{"x-fanvue-signature": other})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, queue.enqueued)
}

func TestReceiveMissingSignatureRequired(t *testing.T) {
	h, queue := newTestHandler(true)

	rec := post(t, h, `{"type":"message.created","message":{"chatId":"c1","text":"hi"}}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, queue.enqueued)
}

func TestReceiveMissingSignatureTolerated(t *testing.T) {
	h, queue := newTestHandler(false)

	rec := post(t, h, `{"type":"message.created","message":{"chatId":"c1","text":"hi"}}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, queue.enqueued, 1)
}

func TestReceiveSecondaryHeaderAccepted(t *testing.T) {
	h, queue := newTestHandler(true)

	body := `{"type":"message.created","message":{"chatId":"c1","text":"hi"}}`
	sig := webhook.HexHMACSHA256{}.Sign(testSecret, []byte(body))
	rec := post(t, h, body, map[string]string{"x-signature": sig})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, queue.enqueued, 1)
}

func TestReceiveFullQueueStillAcks(t *testing.T) {
	h, queue := newTestHandler(true)
	queue.full = true

	body := `{"type":"message.created","message":{"chatId":"c1","text":"hi"}}`
	rec := post(t, h, body, signed(body))

	// Backpressure is invisible to the sender: the drop is dead-lettered,
	// the webhook is still acknowledged.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
}
