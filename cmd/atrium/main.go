package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/openlearnhq/atrium/pkg/access"
	"github.com/openlearnhq/atrium/pkg/api"
	"github.com/openlearnhq/atrium/pkg/audit"
	"github.com/openlearnhq/atrium/pkg/auth"
	"github.com/openlearnhq/atrium/pkg/billing"
	"github.com/openlearnhq/atrium/pkg/config"
	"github.com/openlearnhq/atrium/pkg/content"
	"github.com/openlearnhq/atrium/pkg/guard"
	"github.com/openlearnhq/atrium/pkg/observability"
	"github.com/openlearnhq/atrium/pkg/scope"
	"github.com/openlearnhq/atrium/pkg/sso"
	"github.com/openlearnhq/atrium/pkg/storage/postgres"
	"github.com/openlearnhq/atrium/pkg/workspaces"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	fatal := func(message string, err error) {
		logger.WithError(err).Error(message)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage.
	db, err := postgres.Connect(cfg.Storage)
	if err != nil {
		fatal("failed to connect to postgres", err)
	}
	defer db.Close()

	sessionStore := postgres.NewSessionStore(db)
	accountStore := postgres.NewAccountStore(db)
	workspaceService := workspaces.NewPostgresService(db)
	contentRepo := content.NewPostgresRepository(db)

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	var sessionSource auth.SessionStore = sessionStore
	var sessionCache *postgres.CachedSessionStore
	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = postgres.NewRedisClient(cfg.Storage)
		if err != nil {
			fatal("failed to connect to redis", err)
		}
		defer redisClient.Close()
		sessionCache = postgres.NewCachedSessionStore(sessionStore, redisClient, cfg.Storage, metrics)
		sessionSource = sessionCache
	}

	// Authorization rules: a file-backed table when one is configured,
	// the built-in table otherwise.
	var table *access.Table
	if cfg.Access.RulesPath != "" {
		table, err = access.NewTable(cfg.Access.RulesPath, logger)
		if err != nil {
			fatal("failed to load authorization rules", err)
		}
	} else {
		rs, err := access.Compile(api.DefaultRules())
		if err != nil {
			fatal("built-in authorization rules are invalid", err)
		}
		table = access.NewStaticTable(rs)
	}

	cookies := auth.DefaultCookies(cfg.Session.TTL)
	if cfg.Session.CookieName != "" {
		cookies.Session.Name = cfg.Session.CookieName
	}
	cookies.Session.Domain = cfg.Session.CookieDomain
	cookies.Session.Secure = cfg.Session.CookieSecure

	extractor := auth.NewExtractor(cookies.Session.Name)
	resolver := auth.NewResolver(sessionSource)

	g := guard.New(guard.Options{
		Extractor: extractor,
		Sessions:  resolver,
		Roles:     workspaces.NewRoleResolver(workspaceService),
		Table:     table,
		Engine:    access.NewEngine(cfg.Access.LoginPath, cfg.Access.ForbiddenPath),
		Scopes:    scope.NewBuilder(contentRepo),
		Recorder:  audit.NewPostgresRecorder(db, logger),
		Metrics:   metrics,
		Logger:    logger,
	})

	// Single sign-on.
	var ssoHandlers *sso.Handlers
	if cfg.OIDC.Enabled {
		provider, err := sso.NewOIDCProvider(ctx, sso.ProviderConfig{
			IssuerURL:    cfg.OIDC.IssuerURL,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.Server.BaseURL + "/auth/callback",
			Scopes:       cfg.OIDC.Scopes,
		})
		if err != nil {
			fatal("failed to configure OIDC provider", err)
		}
		opts := sso.HandlerOptions{
			Provider:  provider,
			Accounts:  accountStore,
			Sessions:  sessionStore,
			Resolver:  resolver,
			Extractor: extractor,
			Cookies:   cookies,
			TTL:       cfg.Session.TTL,
			Logger:    logger,
		}
		if sessionCache != nil {
			opts.Cache = sessionCache
		}
		ssoHandlers = sso.NewHandlers(opts)
	}

	// Billing.
	var billingService *billing.Service
	if cfg.Billing.Enabled {
		gateway := billing.NewStripeGateway(cfg.Billing.APIBase, cfg.Billing.SecretKey, cfg.Billing.Timeout)
		billingService = billing.NewService(db, gateway)
	}

	server := api.NewServer(api.ServerOptions{
		Guard:          g,
		Workspaces:     workspaceService,
		Accounts:       accountStore,
		Sessions:       sessionStore,
		Billing:        billingService,
		SSO:            ssoHandlers,
		Logger:         logger,
		Metrics:        metrics,
		BaseURL:        cfg.Server.BaseURL,
		Tracing:        cfg.Observability.OTelEnabled,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := newHealthServer(cfg, db, redisClient, metrics)

	// Tracing.
	if cfg.Observability.OTelEnabled {
		tp, err := observability.InitTracing(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			fatal("failed to initialize tracing", err)
		}
		defer func() {
			if tp != nil {
				_ = tp.Shutdown(context.Background())
			}
		}()
	}

	// Expired-session sweep.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Session.SweepSchedule, func() {
		defer observability.RecoverPanic(logger, "session sweep")
		deleted, err := sessionStore.DeleteExpired(context.Background())
		if err != nil {
			logger.WithError(err).Error("session sweep failed")
			return
		}
		if deleted > 0 {
			logger.WithField("deleted", deleted).Info("swept expired sessions")
		}
	}); err != nil {
		fatal("invalid session sweep schedule", err)
	}
	sweeper.Start()

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Access.RulesPath != "" && cfg.Access.WatchRules {
		group.Go(func() error {
			if err := table.Watch(groupCtx); err != nil && groupCtx.Err() == nil {
				logger.WithError(err).Error("rule watcher stopped")
			}
			return nil
		})
	}
	group.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("starting server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("starting health server")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
			os.Exit(1)
		}
		return nil
	})

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		cancel()
		sweeper.Stop()
		return nil
	})

	if err := shutdown.WaitForShutdown(); err != nil {
		fatal("shutdown failed", err)
	}
	_ = group.Wait()
	logger.Info("shutdown complete")
}
