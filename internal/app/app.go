package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/auth"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/config"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/event"
	handler "github.com/abuzarkhan1/Ecommerce-Hoc/internal/handler/http"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/notification"
	mongorepo "github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository/mongo"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository/postgres"
	redisrepo "github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository/redis"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/service"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/database"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/health"
	pkgkafka "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/kafka"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/middleware"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/tracing"
)

const serviceName = "storefront-api"

// App wires together all dependencies and runs the storefront API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	mongo          *mongo.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	dispatcher     *notification.Dispatcher
	sender         notification.Sender
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	// stop ends background work tied to the app, such as the rate limiter sweep.
	stop context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// Anything opened before a failure is closed again.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	if err := a.initPostgres(ctx); err != nil {
		return nil, err
	}

	a.redis, err = database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	mongoDB, err := database.NewMongoDatabase(ctx, database.MongoConfig{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	a.mongo = mongoDB.Client()
	enquiryRepo := mongorepo.NewEnquiryRepository(mongoDB)
	if err := enquiryRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure enquiry indexes: %w", err)
	}
	logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDatabase))

	// Kafka producer. Without brokers events are dropped.
	var publisher pkgkafka.Publisher = pkgkafka.NopPublisher{}
	if cfg.KafkaEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("no kafka brokers configured, domain events are disabled")
	}
	eventProducer := event.NewProducer(publisher, logger)

	engine, esPinger, err := newSearchEngine(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.sender, err = newSender(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.dispatcher = notification.NewDispatcher(a.sender, logger)
	logger.Info("notification sender initialized", slog.String("transport", a.sender.Name()))

	if cfg.ConsumersEnabled {
		a.initConsumers(engine)
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	productRepo := postgres.NewProductRepository(a.pool)
	cartRepo := redisrepo.NewCartRepository(a.redis, cfg.CartTTL)

	services := handler.Services{
		Products: service.NewProductService(
			productRepo,
			postgres.NewColorRepository(a.pool),
			postgres.NewWishlistRepository(a.pool),
			eventProducer,
			engine,
			!cfg.ConsumersEnabled,
			logger,
		),
		Carts:  service.NewCartService(cartRepo, productRepo, logger),
		Orders: service.NewOrderService(postgres.NewOrderRepository(a.pool), productRepo, cartRepo, eventProducer, a.dispatcher, logger),
		Users: service.NewUserService(
			postgres.NewUserRepository(a.pool),
			postgres.NewRefreshTokenRepository(a.pool),
			jwtManager,
			eventProducer,
			a.dispatcher,
			service.UserConfig{
				RefreshTTL: cfg.RefreshTTL,
				ResetTTL:   cfg.PasswordReset,
				ResetURL:   cfg.ResetURL,
			},
			logger,
		),
		Enquiry: service.NewEnquiryService(enquiryRepo, logger),
	}

	healthHandler := a.healthChecks(esPinger)

	bgCtx, stop := context.WithCancel(context.Background())
	a.stop = stop
	router := handler.NewRouter(bgCtx, services, handler.RouterConfig{
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			ExposedHeaders:   []string{"X-Correlation-ID"},
			AllowCredentials: true,
		},
		RateLimitRPS: cfg.RateLimitRPS,
		RateBurst:    cfg.RateLimitBurst,
		PprofCIDRs:   cfg.PprofAllowedCIDRs,
		Cookie: handler.CookieConfig{
			Secure: cfg.SecureCookies(),
			Domain: cfg.CookieDomain,
		},
		Validate: jwtManager.Validator(),
	}, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) initPostgres(ctx context.Context) error {
	cfg := a.cfg
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), a.logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
	}
	return nil
}

// initConsumers subscribes the search indexer to product events. Each event
// id is handled once per group, and poison messages go to the dead-letter topic.
func (a *App) initConsumers(engine searchEngine) {
	indexer := event.NewSearchIndexer(engine, a.logger)
	store := pkgkafka.NewRedisIdempotencyStore(a.redis, a.cfg.ConsumerGroup, 24*time.Hour)
	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)

	c := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  a.cfg.KafkaBrokers,
		GroupID:  a.cfg.ConsumerGroup,
		Topic:    event.TopicProducts,
		MinBytes: 1,
		MaxBytes: 10e6, // 10 MB
	}, pkgkafka.IdempotentHandler(store, indexer.Handle, a.logger), a.dlq, a.logger)
	a.consumers = append(a.consumers, c)

	a.logger.Info("kafka consumers initialized",
		slog.String("group", a.cfg.ConsumerGroup),
		slog.String("topic", event.TopicProducts),
	)
}

func (a *App) healthChecks(es pinger) *health.Handler {
	h := health.NewHandler()
	h.Register("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	h.Register("redis", func(ctx context.Context) error {
		return a.redis.Ping(ctx).Err()
	})
	h.Register("mongo", func(ctx context.Context) error {
		return a.mongo.Ping(ctx, nil)
	})
	if a.producer != nil {
		h.Register("kafka", a.producer.Ping)
	}
	if es != nil {
		h.Register("elasticsearch", es.Ping)
	}
	return h
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	consumerCtx, cancelConsumers := context.WithCancel(ctx)
	defer cancelConsumers()
	for _, c := range a.consumers {
		go func() {
			if err := c.Start(consumerCtx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed, shutting down", slog.String("error", runErr.Error()))
	}

	cancelConsumers()
	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Notification dispatcher (wait for queued emails)
// 3. Tracer (flush pending spans)
// 4. Kafka consumers and producers, then the stores
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.dispatcher != nil {
		a.dispatcher.Close()
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases every connection that was opened. It is safe on a
// partially initialized App.
func (a *App) closeResources() error {
	var errs []error
	closeLogged := func(name string, c io.Closer) {
		if err := c.Close(); err != nil {
			a.logger.Error(name+" close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.stop != nil {
		a.stop()
	}
	for _, c := range a.consumers {
		closeLogged("kafka consumer", c)
	}
	if a.dlq != nil {
		closeLogged("kafka dlq producer", a.dlq)
	}
	if a.producer != nil {
		closeLogged("kafka producer", a.producer)
	}
	if c, ok := a.sender.(io.Closer); ok {
		closeLogged("notification sender", c)
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.logger.Error("mongo disconnect error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		closeLogged("redis", a.redis)
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
