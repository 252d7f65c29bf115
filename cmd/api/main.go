package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oyeong/noteapi/internal/account"
	"github.com/oyeong/noteapi/internal/api"
	"github.com/oyeong/noteapi/internal/audit"
	"github.com/oyeong/noteapi/internal/auth"
	"github.com/oyeong/noteapi/internal/bankaccount"
	"github.com/oyeong/noteapi/internal/cipher"
	"github.com/oyeong/noteapi/internal/config"
	"github.com/oyeong/noteapi/internal/guestbook"
	"github.com/oyeong/noteapi/internal/health"
	"github.com/oyeong/noteapi/internal/lotto"
	"github.com/oyeong/noteapi/internal/middleware"
	"github.com/oyeong/noteapi/internal/note"
	"github.com/oyeong/noteapi/internal/serial"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	showHelp := flag.Bool("help", false, "show usage and exit")
	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	fieldCipher, err := cipher.NewWithLogger(cfg.AESKey, cfg.AESKeyIV, logger)
	if err != nil {
		logger.Error("failed to initialize field cipher", "error", err)
		os.Exit(1)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret)

	metrics := middleware.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	auditRepo := audit.NewPostgresRepository(db)
	recorder := audit.NewRecorder(auditRepo, logger)

	users := account.NewPostgresRepository(db)
	bankAccounts := bankaccount.NewPostgresRepository(db)
	notes := note.NewPostgresRepository(db)
	serials := serial.NewPostgresRepository(db)
	guests := guestbook.NewPostgresRepository(db)

	// The login limiter survives restarts and is shared across instances when
	// Redis is configured; without it each instance counts on its own.
	var limitStore middleware.RateLimitStore = middleware.NewInMemoryRateLimitStore()
	checkers := map[string]health.Checker{
		"database": health.NewDBChecker(db),
	}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		limitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(metrics)
		checkers["redis"] = health.NewRedisChecker(redisClient)
	}

	pages := api.PageConfig{Default: cfg.PageSize, Max: cfg.MaxPageSize}

	handlers := &api.Handlers{
		Auth:         api.NewAuthHandlers(users, tokens, recorder),
		BankAccounts: api.NewBankAccountHandlers(bankAccounts, fieldCipher, recorder, pages),
		Notes:        api.NewNoteHandlers(notes, fieldCipher, recorder, pages),
		Serials:      api.NewSerialHandlers(serials, fieldCipher, recorder, pages),
		GuestBook:    api.NewGuestBookHandlers(guests, recorder, pages),
		Users:        api.NewUserHandlers(users, recorder, pages),
		Audit:        api.NewAuditHandlers(auditRepo, pages),
		Dashboard:    api.NewDashboardHandlers(bankAccounts, notes, serials, guests),
		Lotto:        api.NewLottoHandlers(lotto.NewClient(nil, ""), nil),
		LoginLimiter: middleware.RateLimiter(limitStore, middleware.DefaultLoginLimit(), middleware.IPKeyFunc(), metrics),
	}

	mux := http.NewServeMux()
	handlers.Register(mux)
	mux.HandleFunc("GET /health", health.Handler(checkers))
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.Authenticate(tokens)(handler)
	if cfg.CORSAllowedOrigins != "" {
		handler = middleware.CORS(middleware.CORSConfig{
			AllowedOrigins:   strings.Split(cfg.CORSAllowedOrigins, ","),
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           600,
		})(handler)
	}
	handler = middleware.Logging(logger)(handler)
	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
