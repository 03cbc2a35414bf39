// Command luminary serves the biography and portrait generation API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"luminary/internal/adapters/api"
	"luminary/internal/blob"
	"luminary/internal/core"
	"luminary/internal/generate"

	env "github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type config struct {
	Addr             string        `env:"LUMINARY_ADDR" envDefault:":8080"`
	LogLevel         string        `env:"LUMINARY_LOG_LEVEL" envDefault:"info"`
	OpenAIModel      string        `env:"LUMINARY_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	PortraitWebhook  string        `env:"LUMINARY_PORTRAIT_WEBHOOK_URL"`
	PlaceholderURL   string        `env:"LUMINARY_PORTRAIT_PLACEHOLDER" envDefault:"/static/portrait-placeholder.svg"`
	BiographyTimeout time.Duration `env:"LUMINARY_BIOGRAPHY_TIMEOUT" envDefault:"30s"`
	PortraitTimeout  time.Duration `env:"LUMINARY_PORTRAIT_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout  time.Duration `env:"LUMINARY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal("parse config", "err", err)
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := core.OpenPersistentStore(ctx)
	if err != nil {
		logger.Fatal("open artifact store", "err", err)
	}
	blobStore, err := blob.Open(ctx)
	if err != nil {
		logger.Fatal("open blob store", "err", err)
	}

	var text core.TextGenerator
	model := generate.OpenAIModelFromEnv(cfg.OpenAIModel)
	if model != nil {
		text = generate.NewBiographyWriter(model)
	} else {
		logger.Warn("OPENAI_API_KEY not set, serving fallback biographies")
	}
	var image core.ImageGenerator
	if cfg.PortraitWebhook != "" {
		image = generate.NewWebhookPortraitClient(cfg.PortraitWebhook, generate.DefaultWebhookHTTPClient())
	} else {
		logger.Warn("LUMINARY_PORTRAIT_WEBHOOK_URL not set, portrait generation disabled")
	}

	metrics, err := core.NewPrometheusRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("register metrics", "err", err)
	}

	service := core.NewService(store, text, image,
		core.WithLogger(logger),
		core.WithMetrics(metrics),
		core.WithBiographyTimeout(cfg.BiographyTimeout),
		core.WithPortraitTimeout(cfg.PortraitTimeout),
		core.WithPlaceholderURL(cfg.PlaceholderURL),
	)

	proxy := api.NewImageProxy(&http.Client{Timeout: 30 * time.Second}, blobStore, logger)
	handler := api.NewHandler(service, generate.NewSuggester(model), proxy, logger)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", handler)
	mux.Handle("/healthz", handler)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.Addr, "blob", blobStore.Driver())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	// Let in-flight portrait generations persist their results.
	service.Close()
}
