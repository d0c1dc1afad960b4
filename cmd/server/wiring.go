package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	badgehandler "badgepass/internal/badge/handler"
	badgemetrics "badgepass/internal/badge/metrics"
	"badgepass/internal/badge/ports"
	"badgepass/internal/badge/service"
	"badgepass/internal/badge/store"
	"badgepass/internal/directory"
	jwttoken "badgepass/internal/jwt_token"
	"badgepass/internal/platform/config"
	"badgepass/internal/platform/database"
	"badgepass/internal/platform/metrics"
	platformredis "badgepass/internal/platform/redis"
	"badgepass/internal/ratelimit"
	httptransport "badgepass/internal/transport/http"
	"badgepass/pkg/platform/audit"
	"badgepass/pkg/platform/audit/publisher"
	auditkafka "badgepass/pkg/platform/audit/store/kafka"
	auditmemory "badgepass/pkg/platform/audit/store/memory"
	auditrouter "badgepass/pkg/platform/audit/store/router"
	"badgepass/pkg/platform/audit/store/sqlstore"
	"badgepass/pkg/platform/circuit"
)

// directoryCooldown is how long scans fail fast after the registration
// service trips the breaker.
const directoryCooldown = 10 * time.Second

func drainTimeout(shutdown time.Duration) time.Duration {
	if shutdown <= 0 {
		return 10 * time.Second
	}
	return shutdown
}

type application struct {
	router  http.Handler
	closers []func() error
	// redis is set when the badge store runs on redis; the scan limiter shares it.
	redis *platformredis.Client
	// ledger is set for the postgres and sqlite stores; audit history lives
	// beside the badges and check-ins write their audit row in the same transaction.
	ledger *sqlstore.Store
}

func (a *application) close(log *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("close failed", "error", err)
		}
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*application, error) {
	app := &application{}
	fail := func(err error) (*application, error) {
		app.close(log)
		return nil, err
	}

	badgeStore, health, err := openStore(ctx, cfg, app)
	if err != nil {
		return fail(err)
	}
	dir, err := openDirectory(ctx, cfg, log, app)
	if err != nil {
		return fail(err)
	}
	auditPublisher, history, err := openAudit(cfg, log, app)
	if err != nil {
		return fail(err)
	}

	svc, err := service.New(badgeStore, dir,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(badgemetrics.New()),
		service.WithStoreTimeout(cfg.Store.Timeout),
	)
	if err != nil {
		return fail(err)
	}

	jwtService := jwttoken.NewJWTService(cfg.Scanner.JWTKey, cfg.Scanner.Issuer, cfg.Scanner.Audience)
	app.router = httptransport.NewRouter(httptransport.Deps{
		Badges:         badgehandler.New(svc, log, badgehandler.WithAuditReader(history)),
		AdminTokenHash: []byte(cfg.AdminTokenHash),
		ScannerTokens:  jwttoken.NewJWTServiceAdapter(jwtService),
		ScannerScope:   jwttoken.ScopeScan,
		ScanLimit:      scanLimiter(cfg, log, app),
		Metrics:        metrics.New(prometheus.DefaultRegisterer),
		Health:         health,
		Logger:         log,
	})
	return app, nil
}

func openStore(ctx context.Context, cfg config.Server, app *application) (service.BadgeStore, func(context.Context) error, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return store.NewInMemoryStore(), nil, nil

	case config.StorePostgres:
		db, err := database.OpenPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, db.Close)
		app.ledger = sqlstore.New(db)
		return migrated(ctx, store.NewSQLStore(db, store.DialectPostgres, store.WithCheckInAudit(app.ledger)), app.ledger, db.PingContext)

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, db.Close)
		app.ledger = sqlstore.New(db)
		return migrated(ctx, store.NewSQLStore(db, store.DialectSQLite, store.WithCheckInAudit(app.ledger)), app.ledger, db.PingContext)

	case config.StoreRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, client.Close)
		app.redis = client
		return store.NewRedisStore(client.Client), client.Health, nil

	case config.StoreMongo:
		client, err := database.OpenMongo(ctx, cfg.Store.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, func() error { return client.Disconnect(context.Background()) })
		st := store.NewMongoStore(client.Database(cfg.Store.MongoDatabase))
		if err := st.EnsureIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return st, func(ctx context.Context) error { return client.Ping(ctx, nil) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func migrated(ctx context.Context, st *store.SQLStore, ledger *sqlstore.Store, health func(context.Context) error) (service.BadgeStore, func(context.Context) error, error) {
	if err := st.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrate badge store: %w", err)
	}
	if err := ledger.Migrate(ctx); err != nil {
		return nil, nil, err
	}
	return st, health, nil
}

func scanLimiter(cfg config.Server, log *slog.Logger, app *application) *ratelimit.Middleware {
	if cfg.Scanner.RateLimit == 0 {
		return nil
	}
	var limiter ratelimit.Limiter = ratelimit.NewInMemoryLimiter()
	if app.redis != nil {
		limiter = ratelimit.NewRedisLimiter(app.redis.Client)
	}
	return ratelimit.NewMiddleware(limiter, cfg.Scanner.RateLimit, cfg.Scanner.RateWindow, log)
}

func openDirectory(ctx context.Context, cfg config.Server, log *slog.Logger, app *application) (ports.ParticipantDirectory, error) {
	switch cfg.Directory.Backend {
	case config.DirectoryMemory:
		seed, err := directory.ParseSeed(cfg.Directory.SeedJSON)
		if err != nil {
			return nil, err
		}
		return directory.NewInMemory(seed...), nil

	case config.DirectoryHTTP:
		return directory.NewHTTPDirectory(cfg.Directory.URL,
			directory.WithHTTPClient(&http.Client{Timeout: cfg.Directory.HTTPTimeout}),
			directory.WithBreaker(circuit.New("participant-directory", circuit.WithCooldown(directoryCooldown))),
			directory.WithLogger(log),
		)

	case config.DirectoryPostgres:
		pool, err := directory.NewPool(ctx, cfg.Directory.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() error { pool.Close(); return nil })
		return directory.NewPostgresDirectory(pool), nil
	}
	return nil, fmt.Errorf("unknown directory backend %q", cfg.Directory.Backend)
}

// openAudit keeps a local, readable audit trail in the badge database when
// there is one, or in memory. With Kafka brokers configured, compliance and
// security events are streamed as well.
func openAudit(cfg config.Server, log *slog.Logger, app *application) (*publisher.Publisher, audit.Reader, error) {
	var (
		local  audit.Store
		reader audit.Reader
	)
	if app.ledger != nil {
		local, reader = app.ledger, app.ledger
	} else {
		st := auditmemory.NewInMemoryStore()
		local, reader = st, st
	}

	sink := auditrouter.New(local, log)
	if app.ledger != nil {
		// The badge store already wrote this row inside the attendance transaction.
		sink.SkipLocal(audit.EventCheckInRecorded)
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		client, err := auditkafka.NewClient(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, func() error { client.Close(); return nil })
		stream := auditkafka.NewStore(client, cfg.Audit.KafkaTopic)
		sink.Register(audit.CategoryCompliance, stream)
		sink.Register(audit.CategorySecurity, stream)
		if cfg.Audit.StreamOperations {
			sink.Register(audit.CategoryOperations, stream)
		}
	}

	pub := publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(cfg.Audit.Buffer),
		publisher.WithAppendTimeout(cfg.Audit.AppendTimeout),
		publisher.WithLogger(log),
	)
	// Registered after the sinks' connections so buffered events flush before they close.
	app.closers = append(app.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout(cfg.ShutdownTimeout))
		defer cancel()
		return pub.Shutdown(ctx)
	})
	return pub, reader, nil
}
