package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tailored-api/apiserver/config"
	"github.com/tailored-api/apiserver/internal/auth"
	"github.com/tailored-api/apiserver/internal/events"
	"github.com/tailored-api/apiserver/internal/handlers"
	"github.com/tailored-api/apiserver/internal/logging"
	"github.com/tailored-api/apiserver/internal/metrics"
	"github.com/tailored-api/apiserver/internal/mq"
	"github.com/tailored-api/apiserver/internal/services"
	"github.com/tailored-api/apiserver/internal/storage"
	"github.com/tailored-api/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger
	queue      *mq.MQ
	users      *store.UserRepository
}

// Option customises server construction.
type Option func(*options)

type options struct {
	logger *slog.Logger
	clock  func() time.Time
}

// WithLogger overrides the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the clock used for token timestamps and records.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		o.clock = fn
	}
}

// New wires the credential store, token service, tier services and the
// optional storage and messaging backends behind a chi router. A missing
// signing secret fails here with auth.ErrConfiguration.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Server, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.New(cfg.LogLevel, cfg.AppName, cfg.Env)
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:    cfg.Auth.JWTSecret,
		Algorithm: cfg.Auth.JWTAlgorithm,
		TTL:       cfg.Auth.TokenTTL(),
	}, auth.WithClock(o.clock))
	if err != nil {
		return nil, err
	}

	hasher := auth.NewPasswordHasher(cfg.Auth.PasswordIterations)
	userRepo := store.NewUserRepository(hasher, store.WithClock(o.clock))

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	logger := o.logger
	queue, err := mq.Open(ctx, cfg.MQ, mq.WithErrorHandler(func(channel string, msg mq.Message, err error) {
		logger.Warn("message not delivered",
			slog.String("channel", channel),
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
	}))
	if err != nil {
		return nil, fmt.Errorf("open mq: %w", err)
	}
	var broker events.Broker
	if queue != nil {
		broker = queue
	}
	publisher := events.NewPublisher(broker, cfg.MQ.EventsChannel)

	userService := services.NewUserService(userRepo, tokens)
	sessions := services.NewSessionResolver(tokens, userRepo)
	exportService := services.NewExportService(objects)

	httpMetrics := metrics.NewHTTP()

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(o.logger),
		middleware.Recoverer,
		httpMetrics.Instrument,
		handlers.CORS(cfg.CORS.AllowedOrigins()),
		handlers.MaxBodyBytes(handlers.MaxRequestBytes),
		middleware.Timeout(60*time.Second),
	)

	health := handlers.Health(cfg.AppName)
	router.Get("/", health)
	router.Get("/healthz", health)
	router.Method(http.MethodGet, "/metrics", httpMetrics.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, publisher, o.logger)
	})
	handlers.AccountRouter(router,
		handlers.NewAccountHandler(userService, exportService, publisher, o.logger),
		handlers.RequireSession(sessions),
	)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	o.logger.Info("server configured",
		slog.Int("port", port),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("mq_backend", cfg.MQ.Backend),
		slog.Bool("events_enabled", publisher.Enabled()),
	)

	return &Server{
		httpServer: httpServer,
		router:     router,
		logger:     o.logger,
		queue:      queue,
		users:      userRepo,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx is done, then releases the
// message queue.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		if qerr := s.queue.Close(); qerr != nil {
			s.logger.Warn("close mq failed", slog.Any("error", qerr))
		}
	}
	s.logger.Info("http server stopped", slog.Int("users", s.users.Count()))
	return err
}
