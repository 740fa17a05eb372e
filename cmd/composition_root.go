package cmd

import (
	"context"
	"log/slog"
	"net/http"

	httpin "relay/internal/adapters/in/http"
	"relay/internal/adapters/in/pgnotify"
	"relay/internal/adapters/in/ws"
	"relay/internal/adapters/out/postgres/orderrepo"
	"relay/internal/auth"
	"relay/internal/cartsync"
	"relay/internal/core/application/router"
	"relay/internal/core/application/usecases/queries"
	"relay/internal/core/domain/services"
	"relay/internal/core/ports"
	"relay/internal/hub"
	"relay/internal/jobs"
	"relay/internal/observability"
	"relay/internal/tracking"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// CompositionRoot owns the relay's shared state and builds its entry points.
type CompositionRoot struct {
	config Config
	logger *slog.Logger

	orderRepo *orderrepo.GormOrderRepository

	metrics    *observability.Metrics
	registry   *hub.Registry
	orders     *services.OrderStateMachine
	aggregator *tracking.Aggregator
	router     *router.Router
}

// NewCompositionRoot wires the relay. gormDB may be nil, in which case cache
// misses are reported as unknown orders.
func NewCompositionRoot(config Config, gormDB *gorm.DB, logger *slog.Logger) CompositionRoot {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	registry := hub.NewRegistry(hub.NewDirectory(metrics), metrics, logger)

	var (
		reader    ports.OrderReader
		orderRepo *orderrepo.GormOrderRepository
	)
	if gormDB != nil {
		orderRepo = orderrepo.NewGormOrderRepository(gormDB)
		reader = orderRepo
	}

	orders := services.NewOrderStateMachine(reader)
	broadcaster := router.NewBroadcaster(registry.Rooms(), nil, metrics, logger)
	aggregator := tracking.NewAggregator(orders, broadcaster, config.LocationMinInterval, metrics, logger)
	capabilities := auth.NewCapabilityService(config.JoinTokenSecret, config.JoinTokenTTL)

	deps := router.Dependencies{
		Registry:    registry,
		Orders:      orders,
		Tracker:     aggregator,
		Carts:       cartsync.NewService(registry, nil, logger),
		Broadcaster: broadcaster,
		Observer:    metrics,
		Logger:      logger,
	}
	if capabilities.Enabled() {
		deps.Verifier = capabilities
	}

	return CompositionRoot{
		config:     config,
		logger:     logger,
		orderRepo:  orderRepo,
		metrics:    metrics,
		registry:   registry,
		orders:     orders,
		aggregator: aggregator,
		router:     router.New(deps),
	}
}

// WarmOrderCache loads every active order so that the first events after a
// restart do not each pay for a database read.
func (c *CompositionRoot) WarmOrderCache(ctx context.Context) (int, error) {
	if c.orderRepo == nil {
		return 0, nil
	}
	active, err := c.orderRepo.GetActive(ctx)
	if err != nil {
		return 0, err
	}
	for _, o := range active {
		c.orders.Register(o)
	}
	return len(active), nil
}

func (c *CompositionRoot) Metrics() *observability.Metrics {
	return c.metrics
}

func (c *CompositionRoot) CreateWebSocketHandler() http.Handler {
	return ws.NewHandler(c.registry, c.router, ws.Config{
		OutboundBuffer: c.config.OutboundBuffer,
		MalformedLimit: c.config.MalformedLimit,
		PongWait:       c.config.LivenessTimeout,
	}, c.logger)
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.orders, c.aggregator)
}

func (c *CompositionRoot) CreateHTTPServer() (*httpin.Server, error) {
	return httpin.NewServer(c.router, c.registry.Rooms(), c.CreateGetOrderQueryHandler())
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(
		jobs.NewLivenessSweepJob(
			c.registry, c.orders, c.config.SweepSchedule, c.config.LivenessTimeout, c.config.OrderRetention, c.logger,
		),
		jobs.NewLocationFlushJob(c.aggregator, c.logger),
	)
}

// CreateOrderChangeListener subscribes to the configured notify channel. It
// returns nil when no database or channel is configured.
func (c *CompositionRoot) CreateOrderChangeListener() (*pgnotify.Listener, *pgnotify.PQSource, error) {
	if !c.config.DatabaseEnabled() || c.config.DBNotifyChannel == "" {
		return nil, nil, nil
	}
	source, err := pgnotify.NewPQSource(c.config.Database().DSN(), c.config.DBNotifyChannel, c.logger)
	if err != nil {
		return nil, nil, err
	}
	return pgnotify.NewListener(source, c.router, c.logger), source, nil
}
