package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	departmenthandler "cohort/internal/department/handler"
	departmentservice "cohort/internal/department/service"
	departmentstore "cohort/internal/department/store"
	"cohort/internal/notify"
	"cohort/internal/overview"
	participanthandler "cohort/internal/participant/handler"
	participantmetrics "cohort/internal/participant/metrics"
	participantservice "cohort/internal/participant/service"
	participantstore "cohort/internal/participant/store"
	"cohort/internal/platform/config"
	"cohort/internal/platform/httpserver"
	"cohort/internal/platform/logger"
	"cohort/internal/platform/metrics"
	"cohort/internal/platform/postgres"
	redisplatform "cohort/internal/platform/redis"
	"cohort/internal/platform/token"
	programhandler "cohort/internal/program/handler"
	programmetrics "cohort/internal/program/metrics"
	programservice "cohort/internal/program/service"
	programstore "cohort/internal/program/store"
	registrationhandler "cohort/internal/registration/handler"
	registrationmetrics "cohort/internal/registration/metrics"
	registrationservice "cohort/internal/registration/service"
	httptransport "cohort/internal/transport/http"
	"cohort/pkg/platform/audit"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	// Stores: postgres when configured, in-memory otherwise (development
	// and tests run without infrastructure).
	var (
		programs     programstore.Store
		participants participantstore.Store
		departments  departmentstore.Store
	)
	if db != nil {
		programs = programstore.NewPostgres(db)
		participants = participantstore.NewPostgres(db)
		departments = departmentstore.NewPostgres(db)
		log.Info("using postgres-backed stores")
	} else {
		programs = programstore.NewInMemoryStore()
		participants = participantstore.NewInMemoryStore()
		departments = departmentstore.NewInMemoryStore()
		log.Warn("no postgres configured, using in-memory stores")
	}

	cache, err := redisplatform.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier, err := notify.NewKafkaNotifier(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	// Audit pipeline: services emit into a buffered inbox, a worker drains
	// it into the store.
	auditInbox := make(chan audit.Event, 256)
	auditStore := audit.NewInMemoryStore()
	auditPublisher := audit.NewPublisher(auditInbox)
	auditWorker := audit.NewWorker(auditStore, auditInbox)

	procMetrics := metrics.New()
	programManager := programservice.NewManager(programs,
		programservice.WithLogger(log),
		programservice.WithAuditPublisher(auditPublisher),
		programservice.WithMetrics(programmetrics.New()),
	)
	resolver := participantservice.NewResolver(participants, programs,
		participantservice.WithLogger(log),
		participantservice.WithAuditPublisher(auditPublisher),
		participantservice.WithMetrics(participantmetrics.New()),
	)
	registration := registrationservice.New(programs, resolver,
		registrationservice.WithLogger(log),
		registrationservice.WithNotifier(notifier),
		registrationservice.WithAuditPublisher(auditPublisher),
		registrationservice.WithMetrics(registrationmetrics.New()),
	)
	departmentSvc := departmentservice.New(departments, departmentservice.WithLogger(log))
	engine := overview.NewEngine(programs, departments,
		overview.WithLogger(log),
		overview.WithCache(cache, config.OverviewCacheTTL),
	)

	health := map[string]httptransport.HealthChecker{}
	if db != nil {
		health["postgres"] = db.PingContext
	}
	if cache != nil {
		health["redis"] = cache.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Metrics:      procMetrics,
		Validator:    token.NewValidator(cfg.JWTSigningKey),
		Programs:     programhandler.New(programManager, auditStore, log),
		Participants: participanthandler.New(resolver, log),
		Registration: registrationhandler.New(registration, programs, log),
		Departments:  departmenthandler.New(departmentSvc, engine, log),
		Health:       health,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := auditWorker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return httpserver.Shutdown(srv)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
