package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	authzsvc "xftledger/internal/authz"
	authzhandler "xftledger/internal/authz/handler"
	intakesvc "xftledger/internal/intake"
	intakehandler "xftledger/internal/intake/handler"
	intakestore "xftledger/internal/intake/store"
	ledgersvc "xftledger/internal/ledger"
	ledgerhandler "xftledger/internal/ledger/handler"
	ledgermetrics "xftledger/internal/ledger/metrics"
	ledgerstore "xftledger/internal/ledger/store"
	lifecyclesvc "xftledger/internal/lifecycle"
	lifecyclehandler "xftledger/internal/lifecycle/handler"
	lifecyclemodels "xftledger/internal/lifecycle/models"
	permitsvc "xftledger/internal/permit"
	permithandler "xftledger/internal/permit/handler"
	permitstore "xftledger/internal/permit/store"
	"xftledger/internal/platform/config"
	"xftledger/internal/platform/httpserver"
	"xftledger/internal/platform/kafka"
	"xftledger/internal/platform/logger"
	"xftledger/internal/platform/metrics"
	"xftledger/internal/platform/middleware"
	"xftledger/internal/platform/postgres"
	platformredis "xftledger/internal/platform/redis"
	"xftledger/internal/registry"
	settlementsvc "xftledger/internal/settlement"
	settlementhandler "xftledger/internal/settlement/handler"
	settlementmetrics "xftledger/internal/settlement/metrics"
	id "xftledger/pkg/domain"
	audit "xftledger/pkg/platform/audit"
	kafkapublisher "xftledger/pkg/platform/audit/publishers/kafka"
	auditmemory "xftledger/pkg/platform/audit/store/memory"
	auditworker "xftledger/pkg/platform/audit/worker"
)

// main wires stores, services and transport together. Business logic lives
// in the internal services packages; main only assembles and supervises.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	// Stores default to in-memory; Postgres and Redis are opt-in per env.
	var (
		ledgerStore ledgerstore.Store = ledgerstore.NewInMemory()
		intakeStore intakestore.Store = intakestore.NewInMemory()
		nonceStore                    = permitstore.NonceStore(permitstore.NewInMemoryNonceStore())
		intakeTx    intakesvc.TxRunner
	)
	if cfg.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		db, err := postgres.OpenSQL(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		ledgerStore = ledgerstore.NewPostgres(pool)
		intakeStore = intakestore.NewPostgres(db)
		intakeTx = newIntakePostgresTx(db)
	}

	rdb, err := platformredis.New(cfg.RedisAddr)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		nonceStore = permitstore.NewRedisNonceStore(rdb.Client)
	}

	kafkaClient, err := kafka.Connect(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
	if err != nil {
		return err
	}
	if kafkaClient != nil {
		defer kafkaClient.Close()
	}

	auditStore := auditmemory.NewInMemoryStore()
	sinks := []audit.Sink{auditStore}
	if kafkaClient != nil {
		sinks = append(sinks, kafkapublisher.NewPublisher(kafkaClient, cfg.AuditTopic))
	}
	recorder := audit.NewRecorder(cfg.AuditQueueSize, sinks...)
	worker := auditworker.NewWorker(recorder.Inbox(), log, sinks...)

	var admins []id.Address
	if cfg.AdminAddress != "" {
		admin, err := id.ParseAddress(cfg.AdminAddress)
		if err != nil {
			return err
		}
		admins = append(admins, admin)
	}
	roles := authzsvc.NewService(admins, authzsvc.WithLogger(log))

	ledger, err := ledgersvc.New(ledgerStore, roles,
		ledgersvc.WithLogger(log),
		ledgersvc.WithMetrics(ledgermetrics.New()),
	)
	if err != nil {
		return err
	}
	// A process swap over persisted storage must see the same holder set.
	if err := ledger.RebuildHolderIndex(ctx); err != nil {
		return err
	}

	instrument := lifecyclemodels.Instrument{
		Name:         cfg.InstrumentName,
		Symbol:       id.InstrumentSymbol(cfg.InstrumentSymbol),
		Kind:         lifecyclemodels.Kind(cfg.InstrumentKind),
		MaturityDate: cfg.MaturityDate,
		CouponRate:   cfg.CouponRateBps,
	}
	lifecycleOpts := []lifecyclesvc.Option{lifecyclesvc.WithLogger(log)}
	if rdb != nil {
		lifecycleOpts = append(lifecycleOpts, lifecyclesvc.WithPriceCache(lifecyclesvc.NewRedisPriceCache(rdb.Client)))
	}
	lifecycle := lifecyclesvc.New(roles, ledger, instrument, lifecycleOpts...)
	ledger.BindLifecycle(lifecycle)

	intakeOpts := []intakesvc.Option{
		intakesvc.WithLogger(log),
		intakesvc.WithSelfServiceEnabled(cfg.SelfServiceEnabled),
	}
	if intakeTx != nil {
		intakeOpts = append(intakeOpts, intakesvc.WithTxRunner(intakeTx))
	}
	intake := intakesvc.New(intakeStore, roles, roles, ledger, lifecycle, intakeOpts...)
	settlement := settlementsvc.New(roles, ledger, intake,
		settlementsvc.WithLogger(log),
		settlementsvc.WithMetrics(settlementmetrics.New()),
		settlementsvc.WithAuditor(recorder),
	)
	permit := permitsvc.New(instrument.Symbol, nonceStore, ledger, permitsvc.WithLogger(log))

	modules := registry.NewModuleRegistry()
	tokens := registry.NewTokenRegistry()
	for _, admin := range admins {
		// The deployer address stands in for module addresses until real
		// module deployments register themselves.
		_ = modules.RegisterModule(ctx, id.ModuleAuthorization, admin)
		_ = modules.RegisterModule(ctx, id.ModuleTransactional, admin)
		_ = modules.RegisterModule(ctx, id.ModuleTransferAgent, admin)
		_ = tokens.RegisterToken(ctx, instrument.Symbol, admin)
	}

	ledgerH := ledgerhandler.New(ledger, log)
	lifecycleH := lifecyclehandler.New(lifecycle, log, recorder)
	intakeH := intakehandler.New(intake, log, recorder)
	settlementH := settlementhandler.New(settlement, log)
	apiKeys := authzsvc.NewAPIKeyStore()
	authzH := authzhandler.New(roles, apiKeys, log, recorder)
	permitH := permithandler.New(permit, log)

	httpMetrics := metrics.New()
	validator := middleware.NewJWTValidator(cfg.JWTSigningKey)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Observe(httpMetrics))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	ledgerH.Register(router)
	lifecycleH.Register(router)
	permitH.Register(router)

	intakeLimiter := middleware.NewLimiter(cfg.IntakeRateLimit, cfg.IntakeRateWindow)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, apiKeys, log))
		ledgerH.RegisterAuthenticated(r)
		lifecycleH.RegisterAuthenticated(r)
		settlementH.RegisterAuthenticated(r)
		authzH.RegisterAuthenticated(r)
		permitH.RegisterAuthenticated(r)

		// Customer-facing intake routes carry a per-caller rate limit.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(intakeLimiter, log))
			intakeH.RegisterAuthenticated(r)
		})
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := worker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starting ledger server",
			"addr", cfg.Addr,
			"instrument", cfg.InstrumentSymbol,
			"kind", cfg.InstrumentKind,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
