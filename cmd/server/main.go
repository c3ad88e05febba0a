package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vigilops/vigil-core/internal/api"
	ws "github.com/vigilops/vigil-core/internal/api/websocket"
	"github.com/vigilops/vigil-core/internal/channels"
	"github.com/vigilops/vigil-core/internal/clients"
	"github.com/vigilops/vigil-core/internal/config"
	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/services"
	"github.com/vigilops/vigil-core/internal/storage"
	"github.com/vigilops/vigil-core/internal/tracing"
	"github.com/vigilops/vigil-core/pkg/cache"
	"github.com/vigilops/vigil-core/pkg/logger"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	coreLog := logger.New(cfg.LogLevel)
	coreLog.Info("Starting VIGIL-CORE", "version", version, "environment", cfg.Environment)
	svcLog := logging.FromCoreLogger(coreLog)

	// Valkey cache backs the rate-limit windows; without a node the engine
	// runs on the in-memory fallback.
	var valkeyCache cache.Valkey
	if cfg.Cache.Addr != "" {
		valkeyCache, err = cache.NewValkeySingle(cfg.Cache.Addr, cfg.Cache.DB, cfg.Cache.Password,
			time.Duration(cfg.Cache.TTL)*time.Second)
		if err != nil {
			coreLog.Fatal("Failed to initialize Valkey cache", "error", err)
		}
		coreLog.Info("Valkey cache initialized", "addr", cfg.Cache.Addr)
	} else {
		valkeyCache = cache.NewNoopValkeyCache(coreLog)
	}

	// Tracing is opt-in.
	var tracerProvider *tracing.TracerProvider
	if cfg.Tracing.Enabled {
		tracerProvider, err = tracing.NewTracerProvider("vigil-core", version, cfg.Tracing.Endpoint)
		if err != nil {
			coreLog.Fatal("Failed to initialize tracing", "error", err)
		}
		coreLog.Info("OTLP tracing initialized", "endpoint", cfg.Tracing.Endpoint)
	}

	store := storage.NewMemoryStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Engine services.
	hub := ws.NewHub(coreLog)
	go hub.Run(ctx)

	audit := services.NewAuditService(store, svcLog, hub)
	dedup := services.NewDeduplicator(store, audit, svcLog)
	limiter := services.NewRateLimiter(valkeyCache, svcLog)
	directory := services.NewStaticDirectory()
	dispatcher := services.NewDispatcher(store, store, directory, limiter, audit,
		time.Duration(cfg.Dispatch.SendTimeoutSeconds)*time.Second, svcLog)
	dispatcher.RegisterAdapter(channels.NewWebhookAdapter(svcLog))
	if tracerProvider != nil {
		dispatcher.SetTracer(tracing.NewDispatchTracer("vigil-core"))
	}
	lifecycle := services.NewEscalationService(store, audit, svcLog)
	scheduler := services.NewScheduler(store, dispatcher, lifecycle,
		time.Duration(cfg.Scheduler.PollIntervalSeconds)*time.Second, svcLog)
	matcher := services.NewRuleMatcher(store, store, audit, scheduler, svcLog)
	ingest := services.NewIngestor(dedup, matcher, scheduler, svcLog)

	// Rules, channels and directory bootstrap with hot reload.
	bootstrap := services.NewRulesBootstrap(cfg.Rules, store, directory, svcLog)
	if cfg.Rules.Path != "" {
		if err := bootstrap.Load(ctx); err != nil {
			coreLog.Fatal("Failed to load rules file", "path", cfg.Rules.Path, "error", err)
		}
		if cfg.Rules.Watch {
			watcher := config.NewRulesWatcher(cfg.Rules.Path, coreLog)
			watcher.RegisterWatcher(func(f *config.RulesFile) {
				if err := bootstrap.Apply(ctx, f); err != nil {
					coreLog.Error("Rules reload failed, previous set stays active", "error", err)
				}
			})
			if err := watcher.Start(ctx); err != nil {
				coreLog.Fatal("Failed to watch rules file", "error", err)
			}
			defer watcher.Stop()
		}
	}

	go scheduler.Run(ctx)

	// Detection adapters over the claims read-model. Without an endpoint
	// only API-emitted candidates flow.
	if cfg.ClaimsAPI.Endpoint != "" {
		reader := clients.NewClaimsReader(cfg.ClaimsAPI, svcLog)
		runner := services.NewDetectorRunner(ingest, store, svcLog)
		var scorer services.RiskScorer
		if cfg.RiskEngine.Enabled {
			scorer = clients.NewRiskClient(cfg.RiskEngine, svcLog)
			coreLog.Info("Risk-prediction client enabled", "endpoint", cfg.RiskEngine.Endpoint)
		}
		if cfg.Detection.SLA.Enabled {
			runner.Register(services.NewSLADetector(reader, scorer, cfg.Detection.SLA, svcLog))
		}
		if cfg.Detection.Workload.Enabled {
			runner.Register(services.NewWorkloadDetector(reader, cfg.Detection.Workload))
		}
		if cfg.Detection.BatchAge.Enabled {
			runner.Register(services.NewBatchAgeDetector(reader, cfg.Detection.BatchAge))
		}
		go runner.Run(ctx)
	}

	apiServer := api.NewServer(cfg, coreLog, valkeyCache, api.Deps{
		Store:     store,
		Ingest:    ingest,
		Lifecycle: lifecycle,
		Matcher:   matcher,
		Audit:     audit,
		Hub:       hub,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		coreLog.Info("Shutdown signal received")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		coreLog.Fatal("Server failed to start", "error", err)
	}

	if tracerProvider != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			coreLog.Error("Tracer shutdown failed", "error", err)
		}
		shutdownCancel()
	}

	coreLog.Info("VIGIL-CORE shutdown complete")
}
