// Package api wires the API server: stores, services, middleware and routes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/internal/metrics"
	accountsvc "github.com/CETANGZHI/crypto-monitor-backend/pkg/account/service"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/accountstore"
	apphttp "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/http"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/auth"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/collector"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/config"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/identity"
	notificationsvc "github.com/CETANGZHI/crypto-monitor-backend/pkg/notification/service"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/notificationstore"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/oauth"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/pgutil"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/verification"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/wallet"
)

// Server is the API server runner.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Run wires all components and serves until a shutdown signal arrives.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgutil.ConnectDB(&s.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	s.logger.Info("Connected to database",
		zap.String("host", s.cfg.Database.Host),
		zap.String("database", s.cfg.Database.Database),
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
		PoolSize: s.cfg.Redis.PoolSize,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.logger.Info("Connected to redis", zap.String("addr", s.cfg.Redis.Addr))

	accounts := accountstore.NewStore(db)
	notifications := notificationstore.NewStore(db)

	codec := auth.NewTokenCodec(&s.cfg.Auth)
	codes := verification.NewCodeStore(rdb, s.cfg.Verification.CodeTTL)
	limiter := verification.NewSendLimiter(
		float64(s.cfg.Verification.SendRatePerMin),
		s.cfg.Verification.SendBurst,
	)

	identities := identity.NewLog(
		identity.NewService(accounts, codes, codec, limiter, s.cfg.Trial, s.logger),
		s.logger,
	)
	accountService := accountsvc.NewLog(accountsvc.NewService(accounts, s.logger), s.logger)
	notificationService := notificationsvc.NewLog(
		notificationsvc.NewService(notifications, s.logger),
		s.logger,
	)

	collectors, err := collector.NewService(&s.cfg.Collector, s.logger)
	if err != nil {
		return fmt.Errorf("failed to build collector: %w", err)
	}
	wallets := wallet.NewService(s.logger)

	verifiers := make(map[string]oauth.Verifier)
	if s.cfg.OAuth.Google.ClientID != "" {
		verifiers["google"] = oauth.NewTokenInfoVerifier("google", &s.cfg.OAuth.Google)
	}
	if s.cfg.OAuth.Apple.ClientID != "" {
		verifiers["apple"] = oauth.NewJWKSVerifier("apple", "https://appleid.apple.com", &s.cfg.OAuth.Apple)
	}

	guard := auth.NewMiddleware(codec, accounts)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.cfg.Server.WriteTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.Server.WriteTimeout))
	}
	r.Use(requestMetrics)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// public surface
	r.Group(func(r chi.Router) {
		identity.RegisterRoutes(r, identities, s.logger)
		oauth.RegisterRoutes(r, identities, verifiers, s.logger)
	})

	// authenticated surface
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAccount)
		accountsvc.RegisterRoutes(r, accountService, s.logger)
		notificationsvc.RegisterRoutes(r, notificationService, s.logger)
	})

	// subscription-gated aggregation surface
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireActiveSubscription)
		collector.RegisterRoutes(r, collectors, s.logger)
		wallet.RegisterRoutes(r, wallets, s.logger)
	})

	return apphttp.ServeAndWait(ctx, r, s.logger, &s.cfg.Server)
}

func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
