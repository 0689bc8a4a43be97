package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/config"
	"padel-telegram-notifier/internal/infra/metrics"
	"padel-telegram-notifier/internal/usecase"
)

const defaultWebhookPath = "/api/telegram/webhook"

type Server struct {
	cfg      config.HTTPConfig
	webhook  http.Handler
	hookPath string
	handlers *messageHandlers
	log      *zerolog.Logger
	srv      *http.Server
}

// NewServer wires the HTTP surface. webhookPath falls back to /api/telegram/webhook.
func NewServer(
	cfg config.HTTPConfig,
	webhook *WebhookHandler,
	webhookPath string,
	messages usecase.MessageUseCase,
	sync usecase.SyncUseCase,
	logger *zerolog.Logger,
) *Server {
	if webhookPath == "" {
		webhookPath = defaultWebhookPath
	}
	return &Server{
		cfg:      cfg,
		webhook:  webhook,
		hookPath: webhookPath,
		handlers: &messageHandlers{messages: messages, sync: sync, log: logger},
		log:      logger,
	}
}

// Router returns the fully wrapped handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Telegram authenticates with its own secret token.
	r.With(Timeout(s.cfg.RequestTimeout)).Method(http.MethodPost, s.hookPath, s.webhook)

	r.Group(func(r chi.Router) {
		r.Use(Timeout(s.cfg.RequestTimeout), RequireJWT(s.cfg.JWTSecret, s.log))
		r.Post("/api/messages/update", s.handlers.updateMessage)
		r.Post("/api/messages/delete", s.handlers.deleteMessage)
		r.Post("/api/bookings/{bookingID}/sync", s.handlers.syncBooking)
	})

	if len(s.cfg.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", traceHeader},
		ExposedHeaders: []string{traceHeader},
	}).Handler(r)
}

func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Port).Str("webhook_path", s.hookPath).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
