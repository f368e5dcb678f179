package api

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/eliasbr/fanvoice/internal/config"
	"github.com/eliasbr/fanvoice/internal/models"
	"github.com/eliasbr/fanvoice/internal/webhook"
)

// Queue accepts a normalized message for asynchronous processing.
type Queue interface {
	Enqueue(msg models.InboundMessage) bool
}

// WebhookHandler is the ingestion gate: it authenticates the raw payload,
// classifies the event, and hands recognized fan messages to the reply queue.
// The HTTP response never waits on the queue or the pipeline.
type WebhookHandler struct {
	cfg      config.WebhookConfig
	verifier *webhook.Verifier
	queue    Queue
	log      zerolog.Logger
}

func NewWebhookHandler(cfg config.WebhookConfig, verifier *webhook.Verifier, queue Queue, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:      cfg,
		verifier: verifier,
		queue:    queue,
		log:      log,
	}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	// The exact bytes as sent are needed for signature verification, so the
	// body is read in full before any decoding.
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	signature, found := h.verifier.Signature(r.Header)
	switch {
	case !found && h.cfg.RequireSignature:
		h.log.Warn().Msg("webhook missing signature header")
		writeError(w, http.StatusBadRequest, "missing signature")
		return
	case !found:
		h.log.Warn().Msg("webhook missing signature header, proceeding unverified")
	case !h.verifier.Verify(body, signature):
		h.log.Warn().Msg("webhook signature mismatch")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	payload, err := webhook.ParsePayload(body)
	if err != nil {
		h.log.Warn().Err(err).Msg("webhook payload is not valid JSON")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	eventType := payload.EventType()
	if !payload.IsMessageEvent() {
		// Unknown events are acknowledged, not rejected: the sender should
		// never be pushed into retries for events we choose to ignore.
		h.log.Debug().Str("event_type", eventType).Msg("ignoring event")
		writeReceived(w)
		return
	}

	msg := payload.Message()
	if !msg.Valid() {
		h.log.Debug().
			Str("event_type", eventType).
			Str("chat_id", msg.ChatID).
			Msg("message event missing chat id or text, ignoring")
		writeReceived(w)
		return
	}

	h.log.Info().
		Str("event_type", eventType).
		Str("chat_id", msg.ChatID).
		Str("user_id", msg.UserID).
		Int("text_length", len(msg.Text)).
		Msg("fan message received")

	h.queue.Enqueue(msg)
	writeReceived(w)
}
