package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/hyperdxio/opentelemetry-logs-go/exporters/otlp/otlplogs"
	sdk "github.com/hyperdxio/opentelemetry-logs-go/sdk/logs"
	"github.com/hyperdxio/otel-config-go/otelconfig"

	"vocabtextdev/config"
	"vocabtextdev/conversation"
	"vocabtextdev/database/postgres"
	"vocabtextdev/generator"
	"vocabtextdev/logger"
	"vocabtextdev/modelapi/deepgramapi"
	"vocabtextdev/modelapi/deepseekapi"
	"vocabtextdev/modelapi/geminiapi"
	"vocabtextdev/modelapi/googletts"
	"vocabtextdev/modelapi/langdetect"
	"vocabtextdev/presentation"
	"vocabtextdev/session"
	"vocabtextdev/telegram"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config - %v", err)
	}

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		log.Fatalf("Error setting up OTel SDK - %v", err)
	}
	defer otelShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logExporter, _ := otlplogs.NewExporter(ctx)
	loggerProvider := sdk.NewLoggerProvider(sdk.WithBatcher(logExporter))
	defer loggerProvider.Shutdown(context.Background())

	LogMiddleware := logger.Connect(logger.LoggerConnectProps{Production: cfg.Production, LoggerProvider: loggerProvider})
	defer LogMiddleware.Sync()
	Logger := LogMiddleware.Logger(ctx)

	backend, err := connectTextBackend(ctx, cfg, LogMiddleware)
	if err != nil {
		Logger.Fatal("[Server] Could not configure text backend", zap.Error(err))
	}
	contentGenerator := generator.New(generator.GeneratorConnectProps{
		Logger:  LogMiddleware,
		Backend: backend,
		Timeout: cfg.GenerationTimeout,
	})

	tts, err := googletts.Connect(ctx, googletts.GoogleTTSConnectProps{Logger: LogMiddleware, CredentialsFile: cfg.GoogleCredsPath})
	if err != nil {
		Logger.Fatal("[Server] Could not configure Google TTS", zap.Error(err))
	}
	narrator := presentation.NewNarrator(presentation.NarratorConnectProps{Logger: LogMiddleware, Synthesizer: tts})

	var recorder conversation.Recorder
	if cfg.Postgres.Enabled() {
		db, err := postgres.Connect(ctx, postgres.DatabaseConnectProps{Logger: LogMiddleware, Config: cfg.Postgres})
		if err != nil {
			Logger.Fatal("[Server] Could not connect to history database", zap.Error(err))
		}
		defer db.Close()
		recorder = db
	}

	machine := conversation.New(conversation.MachineConnectProps{
		Logger:            LogMiddleware,
		Store:             session.NewStore(session.StoreProps{IdleTTL: cfg.SessionIdleTTL}),
		Detector:          langdetect.New(whatlanggo.Eng, whatlanggo.Spa, whatlanggo.Cmn),
		Generator:         contentGenerator,
		Narrator:          narrator,
		Recorder:          recorder,
		AffirmativeTokens: cfg.AffirmativeTokens,
	})

	var transcriber telegram.Transcriber
	if cfg.DeepgramAPIKey != "" {
		transcriber = deepgramapi.Connect(deepgramapi.DeepgramConnectProps{Logger: LogMiddleware, APIKey: cfg.DeepgramAPIKey})
	}

	telegramBot, err := telegram.Connect(ctx, telegram.TelegramConnectProps{
		Logger:               LogMiddleware,
		Handler:              machine,
		Transcriber:          transcriber,
		Token:                cfg.TelegramBotToken,
		Debug:                cfg.TelegramDebug,
		MaxConcurrentUpdates: cfg.MaxConcurrentUpdates,
	})
	if err != nil {
		Logger.Fatal("[Server] Could not connect Telegram bot", zap.Error(err))
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: newRouter(LogMiddleware)}
	go func() {
		Logger.Info("[Server] Health endpoint listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("[Server] Health endpoint stopped", zap.Error(err))
		}
	}()

	if cfg.Production {
		Logger.Info("[Telegram] Bot starting in production mode", zap.String("text_provider", cfg.TextProvider))
	} else {
		Logger.Info("[Telegram] Bot starting in development mode", zap.String("text_provider", cfg.TextProvider))
	}

	// Blocks until a shutdown signal arrives.
	telegramBot.Listen(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func connectTextBackend(ctx context.Context, cfg *config.Config, logMiddleware *logger.LogMiddleware) (generator.TextGenerator, error) {
	if cfg.TextProvider == config.TextProviderGemini {
		return geminiapi.Connect(ctx, geminiapi.GeminiConnectProps{
			Logger: logMiddleware,
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
	}

	return deepseekapi.Connect(ctx, deepseekapi.DeepSeekConnectProps{
		Logger:  logMiddleware,
		APIKey:  cfg.DeepSeekAPIKey,
		BaseURL: cfg.DeepSeekBaseURL,
		Model:   cfg.DeepSeekModel,
	}), nil
}

func newRouter(logMiddleware *logger.LogMiddleware) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLoggerMiddleware(logMiddleware))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return otelhttp.NewHandler(r, "server")
}

func requestLoggerMiddleware(logger *logger.LogMiddleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger.Logger(ctx).Info("Request Received", zap.String("url", r.URL.Path), zap.String("method", r.Method))
			next.ServeHTTP(w, r)
			logger.Logger(ctx).Info("Request Completed", zap.String("path", r.URL.Path), zap.String("method", r.Method))
		})
	}
}
