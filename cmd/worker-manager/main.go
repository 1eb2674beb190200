// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"mangastream-workers/internal/common/auth"
	"mangastream-workers/internal/common/aws"
	"mangastream-workers/internal/common/camunda"
	"mangastream-workers/internal/common/config"
	"mangastream-workers/internal/common/database"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/common/observability"
	"mangastream-workers/internal/common/validation"
	"mangastream-workers/internal/store"
	"mangastream-workers/pkg/registry"

	// Access Workers (3)
	as "mangastream-workers/internal/workers/access/activate-subscription"
	ea "mangastream-workers/internal/workers/access/evaluate-access"
	vs "mangastream-workers/internal/workers/access/validate-subscription"

	// Catalog Workers (3)
	cea "mangastream-workers/internal/workers/catalog/check-episode-availability"
	pe "mangastream-workers/internal/workers/catalog/publish-episodes"
	sc "mangastream-workers/internal/workers/catalog/search-catalog"

	// Donations, Communication & Community Workers (3)
	sn "mangastream-workers/internal/workers/communication/send-notification"
	crl "mangastream-workers/internal/workers/community/check-rate-limit"
	rp "mangastream-workers/internal/workers/donations/record-payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog, err := logger.Build(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	defer func() { _ = zapLog.Sync() }()

	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})
	log.Info("starting worker manager", nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	reg, err := loadRegistry(cfg.App.RegistryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	deps := camunda.Dependencies{
		Validator:     validation.NewValidator(reg),
		Observability: obs,
		Logger:        log,
	}

	// --- Zeebe ---
	zeebe, err := camunda.NewClient(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	log.Info("zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	// --- Stores ---
	storeRetry := &camunda.RetryConfig{MaxRetries: 15, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}

	var pg *database.PostgresClient
	err = camunda.RetryWithBackoff(ctx, storeRetry, log, "postgres connection", func(ctx context.Context) error {
		if pg == nil {
			c, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			pg = c
		}
		return pg.Ping(ctx)
	})
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	var es *database.ElasticsearchClient
	err = camunda.RetryWithBackoff(ctx, storeRetry, log, "elasticsearch connection", func(ctx context.Context) error {
		if es == nil {
			c, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			es = c
		}
		return es.Ping(ctx)
	})
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}

	var rdb *database.RedisClient
	err = camunda.RetryWithBackoff(ctx, storeRetry, log, "redis connection", func(ctx context.Context) error {
		if rdb == nil {
			c, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			rdb = c
		}
		return rdb.Ping(ctx)
	})
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	log.Info("stores connected", nil)

	st := store.New(pg.DB, rdb.Client, time.Duration(cfg.Catalog.CacheTTL)*time.Second, log)

	// --- External services ---
	var introspector auth.Introspector
	if cfg.Auth.Keycloak.Configured() {
		introspector = auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
		)
	} else {
		log.Warn("keycloak not configured, a viewer id alone counts as authenticated", nil)
	}

	var (
		emailSender sn.EmailSender
		smsSender   sn.SMSSender
	)
	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		sdkCfg, err := aws.LoadConfig(ctx, awsCfg.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		if awsCfg.SES.Enabled {
			emailSender = aws.NewEmailSender(aws.NewSESClient(sdkCfg), awsCfg.SES.FromEmail)
		}
		if awsCfg.SNS.Enabled {
			smsSender = aws.NewSMSSender(aws.NewSNSClient(sdkCfg), awsCfg.SNS.DefaultSMSSenderID)
		}
	}

	// --- Workers ---
	client := zeebe.GetClient()
	var workers []worker.JobWorker
	start := func(taskType string, handler camunda.JobHandlerFunc) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			return
		}
		if w := camunda.StartWorker(client, taskType, config.GetWorkerConfig(cfg, taskType), handler, deps); w != nil {
			workers = append(workers, w)
		}
	}
	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}

	// --- 1. Access ---
	start(ea.TaskType, ea.NewHandler(&ea.Config{Timeout: timeout(ea.TaskType)}, st, introspector, log).Handle)
	start(vs.TaskType, vs.NewHandler(&vs.Config{Timeout: timeout(vs.TaskType)}, st, log).Handle)

	asCfg := as.LoadConfig()
	asCfg.Timeout = timeout(as.TaskType)
	start(as.TaskType, as.NewHandler(asCfg, st, log).Handle)

	// --- 2. Catalog ---
	start(cea.TaskType, cea.NewHandler(&cea.Config{Timeout: timeout(cea.TaskType)}, st, log).Handle)
	start(pe.TaskType, pe.NewHandler(&pe.Config{Timeout: timeout(pe.TaskType)}, st, log).Handle)
	start(sc.TaskType, sc.NewHandler(&sc.Config{
		Timeout:     timeout(sc.TaskType),
		IndexName:   cfg.Catalog.IndexName,
		DefaultSize: cfg.Catalog.SearchDefaultSize,
		MaxSize:     cfg.Catalog.SearchMaxSize,
	}, es.Client, log).Handle)

	// --- 3. Donations ---
	rpCfg := rp.LoadConfig()
	rpCfg.Timeout = timeout(rp.TaskType)
	start(rp.TaskType, rp.NewHandler(rpCfg, store.NewPaymentLedger(st), log).Handle)

	// --- 4. Communication ---
	start(sn.TaskType, sn.NewHandler(&sn.Config{
		EmailEnabled: awsCfg.SES.Enabled,
		SMSEnabled:   awsCfg.SNS.Enabled,
		Timeout:      timeout(sn.TaskType),
	}, st, emailSender, smsSender, log).Handle)

	// --- 5. Community ---
	start(crl.TaskType, crl.NewHandler(&crl.Config{
		Timeout: timeout(crl.TaskType),
		Limits:  cfg.Community.RateLimits,
	}, rdb.Client, log).Handle)

	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.App.HTTPPort),
		Handler: newMux(map[string]readinessCheck{
			"zeebe":         zeebe.HealthCheck,
			"postgres":      pg.Ping,
			"elasticsearch": es.Ping,
			"redis":         rdb.Ping,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("health/metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped", nil)
}

func loadRegistry(path string) (*registry.ActivityRegistry, error) {
	if path == "" {
		return registry.Default()
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return reg, nil
}
