package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eliasbr/fanvoice/internal/config"
	"github.com/eliasbr/fanvoice/internal/models"
)

// Job is one queued reply task.
type Job struct {
	ID      string
	Message models.InboundMessage
}

// Pool runs reply jobs on a fixed set of workers behind a bounded queue. The
// webhook handler enqueues without blocking; a full queue drops the job and
// dead-letters it rather than stalling or failing the HTTP response.
type Pool struct {
	responder *Responder
	workers   int
	jobs      chan Job
	log       zerolog.Logger
	quit      chan struct{}
	wg        sync.WaitGroup
}

func NewPool(cfg config.PipelineConfig, responder *Responder, log zerolog.Logger) *Pool {
	return &Pool{
		responder: responder,
		workers:   cfg.Workers,
		jobs:      make(chan Job, cfg.QueueSize),
		log:       log,
		quit:      make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.log.Info().Int("workers", p.workers).Int("queue_size", cap(p.jobs)).Msg("starting reply worker pool")

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.workLoop(ctx)
		}()
	}
}

func (p *Pool) Stop() {
	p.log.Info().Msg("stopping reply worker pool")
	close(p.quit)
	p.wg.Wait()
	p.log.Info().Msg("reply worker pool stopped")
}

// Enqueue hands a message to the pool without blocking. Returns false when
// the queue is full; the message is dead-lettered so it can be replayed.
func (p *Pool) Enqueue(msg models.InboundMessage) bool {
	job := Job{ID: models.NewID("job"), Message: msg}

	select {
	case p.jobs <- job:
		p.log.Debug().Str("job_id", job.ID).Str("chat_id", msg.ChatID).Msg("reply job enqueued")
		return true
	default:
		p.log.Warn().Str("chat_id", msg.ChatID).Msg("reply queue full, dropping job")
		p.responder.recordDeadLetter(context.Background(), msg, models.StageQueue, "queue full")
		return false
	}
}

func (p *Pool) workLoop(ctx context.Context) {
	for {
		select {
		case <-p.quit:
			return
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			p.run(ctx, job)
		}
	}
}

// run executes one job behind its own error boundary. A panicking job must
// never take a worker down.
func (p *Pool) run(ctx context.Context, job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Str("job_id", job.ID).Interface("panic", rec).Msg("reply job panicked")
		}
	}()
	p.responder.Respond(ctx, job)
}
