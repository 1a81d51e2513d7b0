package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"restoboost/internal/api"
	"restoboost/internal/auth"
	"restoboost/internal/availability"
	"restoboost/internal/booking"
	"restoboost/internal/config"
	"restoboost/internal/discount"
	"restoboost/internal/events"
	"restoboost/internal/report"
	"restoboost/internal/repository"
	"restoboost/internal/restaurant"
	"restoboost/internal/slotcache"
	"restoboost/internal/store"
	"restoboost/internal/store/sqlstore"
)

// app holds the wired process dependencies.
type app struct {
	cfg    *config.Config
	logger *zerolog.Logger

	rest *store.RESTClient
	sql  *sqlstore.Store
	rdb  *redis.Client

	repo        *repository.Repository
	bus         *events.Bus
	engine      *availability.Engine
	bookings    *booking.Service
	rules       *discount.Service
	restaurants *restaurant.Service
	reports     *report.Exporter

	closers []func() error
}

func newApp(cfg *config.Config, logger *zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	a.repo = repository.New(s)

	cache, err := a.openCache()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.engine = availability.New(a.repo, cache, logger, availability.WithBookingLimit(cfg.Slots.BookingFetchLimit))
	a.bus = events.NewBus(logger)
	a.bus.Subscribe(events.InvalidationSubscriber(a.engine, logger))

	var photos restaurant.PhotoStorage
	if cfg.Store.BaseURL != "" {
		photos = store.NewObjectStorage(cfg.Store.BaseURL, cfg.StorageKey(), cfg.StorageTimeout(), logger)
	}

	a.bookings = booking.NewService(a.repo, a.bus, logger)
	a.rules = discount.NewService(a.repo, a.bus, logger)
	a.restaurants = restaurant.NewService(a.repo, photos, cfg.Storage.Bucket, cfg.MaxImageSize(), a.bus, logger)
	a.reports = report.NewExporter(a.repo, logger)
	return a, nil
}

func (a *app) openStore() (store.Store, error) {
	switch a.cfg.Store.Driver {
	case config.DriverREST:
		a.rest = store.NewRESTClient(store.RESTConfig{
			BaseURL:   a.cfg.Store.BaseURL,
			APIKey:    a.cfg.Store.APIKey,
			Timeout:   a.cfg.StoreTimeout(),
			RateLimit: a.cfg.Store.RateLimitRPS,
			Burst:     a.cfg.Store.RateLimitBurst,
		}, a.logger)
		return a.rest, nil
	case config.DriverSQLite, config.DriverPostgres:
		s, err := sqlstore.Open(a.cfg.Store.Driver, a.cfg.Store.DSN, a.logger)
		if err != nil {
			return nil, err
		}
		a.sql = s
		a.closers = append(a.closers, s.Close)
		if a.cfg.Store.Driver == config.DriverSQLite {
			if err := s.Migrate(context.Background()); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrate sqlite store: %w", err)
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func (a *app) openCache() (slotcache.Cache, error) {
	ttl := a.cfg.SlotCacheTTL()
	if ttl == 0 {
		return slotcache.Nop{}, nil
	}
	switch a.cfg.Slots.CacheBackend {
	case config.CacheMemory:
		return slotcache.NewMemory(ttl), nil
	case config.CacheRedis:
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Address,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.closers = append(a.closers, a.rdb.Close)
		return slotcache.NewRedis(a.rdb, ttl, a.logger), nil
	default:
		return slotcache.Nop{}, nil
	}
}

// startEvents bridges the local bus to Kafka when enabled.
func (a *app) startEvents(ctx context.Context) {
	if !a.cfg.Kafka.Enabled {
		return
	}
	k := a.cfg.Kafka

	pub := events.NewKafkaPublisher(k.Brokers, k.Topic, a.bus.Origin(), a.logger)
	a.bus.Subscribe(pub.Handle)
	a.closers = append(a.closers, pub.Close)

	consumer := events.NewKafkaConsumer(k.Brokers, a.consumerGroup(), k.Topic, a.logger)
	a.closers = append(a.closers, consumer.Close)
	go func() {
		if err := consumer.Run(ctx, a.bus); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error().Err(err).Msg("kafka consumer stopped")
		}
	}()
	a.logger.Info().Strs("brokers", k.Brokers).Str("topic", k.Topic).Str("group", a.consumerGroup()).
		Msg("cross-instance invalidation enabled")
}

// consumerGroup is unique per process; kafka.group_id is only its prefix.
func (a *app) consumerGroup() string {
	return events.ConsumerGroup(a.cfg.Kafka.GroupID, a.bus.Origin())
}

// adminMiddleware returns nil when auth is disabled.
func (a *app) adminMiddleware() (func(http.Handler) http.Handler, error) {
	if !a.cfg.Auth.Enabled {
		a.logger.Warn().Msg("auth disabled, admin routes are open")
		return nil, nil
	}
	validator, err := auth.NewJWTValidator(a.cfg.Auth.JWTSecret, a.cfg.Auth.JWTPublicKey, a.cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}
	var remote auth.Verifier
	if a.cfg.Store.BaseURL != "" {
		remote = auth.NewIdentityClient(a.cfg.Store.BaseURL, a.cfg.Store.APIKey, a.cfg.StoreTimeout(), a.logger)
	}
	return auth.Middleware(validator, remote, a.logger), nil
}

func (a *app) services() api.Services {
	return api.Services{
		Slots:       a.engine,
		Bookings:    a.bookings,
		Rules:       a.rules,
		Restaurants: a.restaurants,
		Reports:     a.reports,
	}
}

// ping checks the store and, when configured, redis.
func (a *app) ping(ctx context.Context) error {
	switch {
	case a.sql != nil:
		if err := a.sql.Ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
	case a.rest != nil:
		if err := a.rest.Ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
