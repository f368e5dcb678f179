package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/eliasbr/fanvoice/internal/llm"
	"github.com/eliasbr/fanvoice/internal/models"
	"github.com/eliasbr/fanvoice/internal/storage"
	"github.com/eliasbr/fanvoice/internal/tts"
)

// MediaSender delivers synthesized audio back into the originating chat.
type MediaSender interface {
	SendVoiceReply(ctx context.Context, chatID string, audio []byte) error
}

// Responder executes one reply job: persona completion, speech synthesis,
// then delivery. Each step's failure is terminal for the job; it is logged
// and dead-lettered, never surfaced to the webhook sender.
type Responder struct {
	completer llm.Completer
	synth     tts.Synthesizer
	sender    MediaSender
	store     storage.Storage
	log       zerolog.Logger
}

// NewResponder wires the pipeline steps. sender may be nil, in which case
// jobs stop after synthesis (audio is logged, not delivered).
func NewResponder(completer llm.Completer, synth tts.Synthesizer, sender MediaSender, store storage.Storage, log zerolog.Logger) *Responder {
	return &Responder{
		completer: completer,
		synth:     synth,
		sender:    sender,
		store:     store,
		log:       log,
	}
}

func (r *Responder) Respond(ctx context.Context, job Job) {
	msg := job.Message
	log := r.log.With().
		Str("job_id", job.ID).
		Str("chat_id", msg.ChatID).
		Str("user_id", msg.UserID).
		Logger()

	start := time.Now()

	reply, err := r.completer.Reply(ctx, msg.Text)
	if err != nil {
		log.Error().Err(err).Msg("completion failed")
		r.recordDeadLetter(ctx, msg, models.StageCompletion, err.Error())
		return
	}
	log.Debug().Int("reply_length", len(reply)).Msg("reply generated")

	audio, err := r.synth.Synthesize(ctx, reply)
	if err != nil {
		log.Error().Err(err).Msg("speech synthesis failed")
		r.recordDeadLetter(ctx, msg, models.StageSynthesis, err.Error())
		return
	}

	if r.sender == nil {
		log.Info().
			Int("audio_bytes", len(audio)).
			Dur("duration", time.Since(start)).
			Msg("voice reply synthesized, sending disabled")
		return
	}

	if err := r.sender.SendVoiceReply(ctx, msg.ChatID, audio); err != nil {
		log.Error().Err(err).Msg("voice reply delivery failed")
		r.recordDeadLetter(ctx, msg, models.StageSend, err.Error())
		return
	}

	log.Info().
		Int("audio_bytes", len(audio)).
		Dur("duration", time.Since(start)).
		Msg("voice reply sent")
}

// recordDeadLetter persists the failed job. Uses a detached context so the
// record survives job cancellation during shutdown.
func (r *Responder) recordDeadLetter(ctx context.Context, msg models.InboundMessage, stage models.Stage, errMsg string) {
	if r.store == nil {
		return
	}

	dlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	d := &models.DeadLetter{
		ID:        models.NewID("dlq"),
		ChatID:    msg.ChatID,
		UserID:    msg.UserID,
		Text:      msg.Text,
		Stage:     stage,
		Error:     errMsg,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.CreateDeadLetter(dlCtx, d); err != nil {
		r.log.Error().Err(err).Str("chat_id", msg.ChatID).Msg("failed to record dead letter")
	}
}
