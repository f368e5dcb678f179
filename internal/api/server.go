package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/eliasbr/fanvoice/internal/config"
	"github.com/eliasbr/fanvoice/internal/storage"
	"github.com/eliasbr/fanvoice/internal/webhook"
)

type Server struct {
	cfg    config.ServerConfig
	router *chi.Mux
	log    zerolog.Logger
	http   *http.Server
}

func NewServer(cfg config.Config, verifier *webhook.Verifier, queue Queue, store storage.Storage, log zerolog.Logger) *Server {
	s := &Server{
		cfg: cfg.Server,
		log: log,
	}
	s.router = s.buildRouter(cfg.Webhook, verifier, queue, store)
	return s
}

func (s *Server) buildRouter(whCfg config.WebhookConfig, verifier *webhook.Verifier, queue Queue, store storage.Storage) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RecoverMiddleware(s.log))
	r.Use(LoggingMiddleware(s.log))

	whHandler := NewWebhookHandler(whCfg, verifier, queue, s.log)
	dlqHandler := NewDeadLetterHandler(store, queue)

	r.Get("/health", dlqHandler.Health)

	r.Post("/webhook/fanvue", whHandler.Receive)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/deadletters", dlqHandler.List)
		r.Post("/deadletters/{id}/replay", dlqHandler.Replay)
		r.Delete("/deadletters/{id}", dlqHandler.Delete)
		r.Get("/stats", dlqHandler.Stats)
	})

	return r
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
