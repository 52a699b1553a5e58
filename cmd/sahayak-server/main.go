package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"github.com/krishisetu/sahayak/internal/api"
	"github.com/krishisetu/sahayak/internal/audit"
	"github.com/krishisetu/sahayak/internal/guardrail"
	"github.com/krishisetu/sahayak/internal/intent"
	"github.com/krishisetu/sahayak/internal/language"
	"github.com/krishisetu/sahayak/internal/llm"
	"github.com/krishisetu/sahayak/internal/orchestrator"
	"github.com/krishisetu/sahayak/internal/outputguard"
	"github.com/krishisetu/sahayak/internal/pipeline"
	"github.com/krishisetu/sahayak/internal/policy"
	"github.com/krishisetu/sahayak/internal/ratelimit"
	"github.com/krishisetu/sahayak/internal/tools"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("SAHAYAK_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	httpPort := envOrDefault("SAHAYAK_HTTP_PORT", "8080")
	maxInputLen := envOrDefaultInt("SAHAYAK_MAX_INPUT_LEN", guardrail.DefaultMaxInputLength)
	maxOutputLen := envOrDefaultInt("SAHAYAK_MAX_OUTPUT_LEN", outputguard.DefaultMaxOutputLength)
	cacheTTL := envOrDefaultInt("SAHAYAK_AUTH_CACHE_TTL_S", 30)
	toolTimeoutMs := envOrDefaultInt("SAHAYAK_TOOL_TIMEOUT_MS", 8000)
	keyHash := os.Getenv("SAHAYAK_API_KEY_HASH")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	geminiModel := envOrDefault("GEMINI_MODEL", "gemini-1.5-flash")
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	postgresDSN := os.Getenv("POSTGRES_DSN")
	languageURL := os.Getenv("LANGUAGE_SERVICE_URL")
	pubsubProject := os.Getenv("PUBSUB_PROJECT_ID")
	pubsubTopic := envOrDefault("PUBSUB_TOPIC", "advisory-events")

	if keyHash == "" {
		logger.Fatal("SAHAYAK_API_KEY_HASH is required")
	}
	if geminiKey == "" {
		logger.Fatal("GEMINI_API_KEY is required")
	}

	logger.Info("starting sahayak server",
		zap.String("http_port", httpPort),
		zap.Int("max_input_len", maxInputLen),
		zap.String("gemini_model", geminiModel),
	)

	ctx := context.Background()

	// Audit sinks — log writer is always on, ClickHouse and Pub/Sub attach
	// when configured.
	writers := []audit.Writer{audit.NewLogWriter(logger)}
	if clickhouseDSN != "" {
		chWriter, err := audit.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, log writer only", zap.Error(err))
		} else {
			writers = append(writers, chWriter)
			logger.Info("clickhouse writer connected")
		}
	}
	if pubsubProject != "" {
		psWriter, err := audit.NewPubSubWriter(ctx, pubsubProject, pubsubTopic, logger)
		if err != nil {
			logger.Warn("pubsub connection failed, skipping", zap.Error(err))
		} else {
			writers = append(writers, psWriter)
			logger.Info("pubsub writer connected", zap.String("topic", pubsubTopic))
		}
	}
	sink := audit.NewMultiWriter(writers...)
	defer sink.Close()

	// Rate-limit counters — Postgres when configured, in-process otherwise.
	var counters ratelimit.CounterStore
	if postgresDSN != "" {
		db, err := sql.Open("pgx", postgresDSN)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		pgStore := ratelimit.NewPostgresStore(db, logger)
		defer pgStore.Close()
		counters = pgStore
		logger.Info("postgres counter store connected")
	} else {
		counters = ratelimit.NewMemoryStore()
		logger.Info("no POSTGRES_DSN set, using in-process rate counters")
	}

	// Language collaborator — passthrough keeps everything in English when no
	// service is deployed.
	var langSvc language.Service
	if languageURL != "" {
		langSvc = language.NewHTTPService(languageURL, 10*time.Second)
		logger.Info("language service configured", zap.String("url", languageURL))
	} else {
		langSvc = language.Passthrough{}
		logger.Info("no LANGUAGE_SERVICE_URL set, using passthrough")
	}

	// Model runtime
	model, err := llm.NewGemini(ctx, geminiKey, geminiModel)
	if err != nil {
		logger.Fatal("gemini client failed", zap.Error(err))
	}
	defer func() { _ = model.Close() }()

	// Tool executors from env endpoints; unset tools stay unregistered and
	// calls to them return a typed unknown-tool error.
	registry := tools.NewRegistry()
	toolTimeout := time.Duration(toolTimeoutMs) * time.Millisecond
	for _, tc := range []struct {
		kind tools.Kind
		env  string
	}{
		{tools.KindWeather, "TOOL_WEATHER_URL"},
		{tools.KindCropAdvisory, "TOOL_CROP_ADVISORY_URL"},
		{tools.KindPestAlert, "TOOL_PEST_ALERT_URL"},
		{tools.KindSchemesSearch, "TOOL_SCHEMES_SEARCH_URL"},
		{tools.KindProfileLookup, "TOOL_PROFILE_LOOKUP_URL"},
	} {
		if url := os.Getenv(tc.env); url != "" {
			registry.Register(tc.kind, tools.NewHTTPExecutor(url, toolTimeout))
			logger.Info("tool registered", zap.String("tool", tc.kind.String()))
		} else {
			logger.Warn("tool endpoint not set", zap.String("env", tc.env))
		}
	}

	orch := orchestrator.New(
		guardrail.NewChecker(maxInputLen, logger),
		ratelimit.NewLimiter(counters, ratelimit.DefaultCeilings(), logger),
		langSvc,
		intent.NewRouter(logger),
		pipeline.New(model, registry, logger),
		policy.NewEnforcer(logger),
		outputguard.NewScrubber(maxOutputLen, logger),
		sink,
		logger,
	)

	deps := &api.Dependencies{
		Advisor:  orch,
		KeyHash:  keyHash,
		Logger:   logger,
		CacheTTL: time.Duration(cacheTTL) * time.Second,
	}
	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("sahayak server stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
