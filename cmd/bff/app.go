package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/togobus-bff/internal/admin"
	adminApp "github.com/mateusmacedo/togobus-bff/internal/admin/application"
	adminDomain "github.com/mateusmacedo/togobus-bff/internal/admin/domain"
	"github.com/mateusmacedo/togobus-bff/internal/auth"
	authApp "github.com/mateusmacedo/togobus-bff/internal/auth/application"
	authDomain "github.com/mateusmacedo/togobus-bff/internal/auth/domain"
	authInfra "github.com/mateusmacedo/togobus-bff/internal/auth/infrastructure"
	"github.com/mateusmacedo/togobus-bff/internal/booking"
	bookingApp "github.com/mateusmacedo/togobus-bff/internal/booking/application"
	bookingDomain "github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	bookingInfra "github.com/mateusmacedo/togobus-bff/internal/booking/infrastructure"
	"github.com/mateusmacedo/togobus-bff/internal/config"
	"github.com/mateusmacedo/togobus-bff/internal/upstream"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
	pkgInfra "github.com/mateusmacedo/togobus-bff/pkg/infrastructure"
	kafkaAdapter "github.com/mateusmacedo/togobus-bff/pkg/infrastructure/kafka/adapter"
	"github.com/mateusmacedo/togobus-bff/pkg/infrastructure/metrics"
	redisAdapter "github.com/mateusmacedo/togobus-bff/pkg/infrastructure/redis/adapter"
	watermillAdapter "github.com/mateusmacedo/togobus-bff/pkg/infrastructure/watermill/adapter"
	"github.com/mateusmacedo/togobus-bff/pkg/infrastructure/web"
)

// App is the wired HTTP handler plus the resources it holds open.
type App struct {
	Handler http.Handler
	closers []func() error
	logger  pkgApp.AppLogger
}

func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			pkgApp.LogWarn(ctx, a.logger, "failed to release resource", err, nil)
		}
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger pkgApp.AppLogger) (_ *App, err error) {
	app := &App{logger: logger}
	defer func() {
		if err != nil {
			app.Close(ctx)
		}
	}()

	idGenerator := pkgInfra.UUIDGenerator()
	recorder := metrics.NewRecorder()

	client, err := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, logger, upstream.WithObserver(recorder.ObserveUpstream))
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Store.Driver == "redis" || cfg.Events.Driver == "redis" {
		redisClient = redisAdapter.NewRedisClient(redisAdapter.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.closers = append(app.closers, redisClient.Close)
		if err := redisAdapter.Ping(ctx, redisClient); err != nil {
			return nil, err
		}
	}

	flowStore, sessionStore := newStores(cfg, redisClient, logger)

	eventBus, closeBus, err := newTicketEventBus(cfg, redisClient, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeBus)

	tickets, err := newTicketLedger(cfg, logger)
	if err != nil {
		return nil, err
	}

	var payments bookingDomain.PaymentGateway = bookingInfra.NewSimulatedPaymentGateway(logger)
	if cfg.Payment.Driver == "http" {
		payments = bookingInfra.NewHTTPPaymentGateway(cfg.Payment.BaseURL, cfg.Payment.Timeout, logger)
	}

	codec, err := authInfra.NewJWTCodec(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}
	manager := authApp.NewManager(client, sessionStore, codec, idGenerator, logger, cfg.Auth.SessionTTL)
	authSlice := auth.NewAuthSlice(manager, logger)

	bookingOpts := []bookingApp.ServiceOption{
		bookingApp.WithAuthoritativeSeats(cfg.Seats.RequireAuthoritative),
		bookingApp.WithMetrics(recorder),
	}
	if cfg.Store.Driver == "redis" {
		bookingOpts = append(bookingOpts, bookingApp.WithFlowLocker(redisAdapter.NewLocker(redisClient, "togobus:flow-")))
	}

	bookingSlice := booking.NewBookingSlice(
		pkgInfra.NewSimpleCommandBus[pkgDomain.Command[bookingApp.FlowCommand], bookingApp.FlowCommand](logger),
		pkgInfra.NewSimpleQueryBus[pkgDomain.Query[bookingApp.GetFlowData], bookingApp.GetFlowData, bookingApp.FlowView](logger),
		pkgInfra.NewSimpleQueryBus[pkgDomain.Query[bookingApp.FindTicketsData], bookingApp.FindTicketsData, []bookingDomain.Ticket](logger),
		eventBus,
		flowStore,
		client,
		payments,
		tickets,
		idGenerator,
		logger,
		bookingOpts...,
	)

	saga := adminApp.NewDeletionSaga(client, idGenerator, logger,
		adminApp.WithAttempts(cfg.Admin.DeleteMaxAttempts),
		adminApp.WithBaseDelay(cfg.Admin.DeleteBaseDelay),
		adminApp.WithMetrics(recorder),
	)
	adminSlice := admin.NewAdminSlice(
		pkgInfra.NewSimpleCommandBus[pkgDomain.Command[adminApp.DeleteCompanyData], adminApp.DeleteCompanyData](logger),
		pkgInfra.NewSimpleQueryBus[pkgDomain.Query[adminApp.WorkspaceData], adminApp.WorkspaceData, []adminDomain.Company](logger),
		pkgInfra.NewSimpleQueryBus[pkgDomain.Query[adminApp.WorkspaceData], adminApp.WorkspaceData, []adminDomain.Notification](logger),
		client,
		saga,
		cfg.Admin.NotificationLimit,
		authSlice.RequireRole(authDomain.RoleAdmin),
		logger,
		adminDomain.WithIdleExpiry(cfg.Auth.SessionTTL),
	)
	manager.OnLogout(adminSlice.DropWorkspace)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(authSlice.Middleware())

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		web.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", recorder.Handler())

	authSlice.RegisterRoutes(router)
	bookingSlice.RegisterRoutes(router)
	adminSlice.RegisterRoutes(router)

	app.Handler = router
	return app, nil
}

func newStores(cfg config.Config, client *redis.Client, logger pkgApp.AppLogger) (pkgApp.StateStore[bookingDomain.Flow], pkgApp.StateStore[authDomain.Session]) {
	if cfg.Store.Driver == "redis" {
		return redisAdapter.NewStateStore[bookingDomain.Flow](client, "togobus:flow:", redisAdapter.WithTTL(cfg.Store.FlowTTL)),
			redisAdapter.NewStateStore[authDomain.Session](client, "togobus:session:", redisAdapter.WithTTL(cfg.Auth.SessionTTL))
	}
	return pkgInfra.NewInMemoryStateStore[bookingDomain.Flow](logger, pkgInfra.WithExpiry(cfg.Store.FlowTTL)),
		pkgInfra.NewInMemoryStateStore[authDomain.Session](logger, pkgInfra.WithExpiry(cfg.Auth.SessionTTL))
}

func newTicketEventBus(cfg config.Config, client *redis.Client, logger pkgApp.AppLogger) (bookingApp.TicketEventBus, func() error, error) {
	wmLogger := watermillAdapter.NewWatermillLoggerAdapter(logger)

	switch cfg.Events.Driver {
	case "memory":
		return pkgInfra.NewSimpleEventBus[pkgDomain.Event[bookingDomain.Ticket], bookingDomain.Ticket](logger), func() error { return nil }, nil
	case "gochannel":
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		bus := watermillAdapter.NewEventBus[pkgDomain.Event[bookingDomain.Ticket], bookingDomain.Ticket](pubSub, pubSub, logger)
		return bus, bus.Close, nil
	case "redis":
		consumer, _ := os.Hostname()
		if consumer == "" {
			consumer = "togobus-bff"
		}
		publisher, subscriber, err := redisAdapter.NewStreamPubSub(client, cfg.Events.ConsumerGroup, consumer, wmLogger)
		if err != nil {
			return nil, nil, err
		}
		bus := watermillAdapter.NewEventBus[pkgDomain.Event[bookingDomain.Ticket], bookingDomain.Ticket](publisher, subscriber, logger)
		return bus, func() error { return errors.Join(bus.Close(), publisher.Close()) }, nil
	case "kafka":
		publisher, subscriber, err := kafkaAdapter.NewPubSub(kafkaAdapter.Options{
			Brokers:       cfg.Kafka.Brokers,
			ConsumerGroup: cfg.Events.ConsumerGroup,
		}, wmLogger)
		if err != nil {
			return nil, nil, err
		}
		if err := kafkaAdapter.InitializeTopics(subscriber, bookingApp.TicketIssuedEvent); err != nil {
			return nil, nil, errors.Join(err, subscriber.Close(), publisher.Close())
		}
		bus := watermillAdapter.NewEventBus[pkgDomain.Event[bookingDomain.Ticket], bookingDomain.Ticket](publisher, subscriber, logger)
		return bus, func() error { return errors.Join(bus.Close(), publisher.Close()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
	}
}

func newTicketLedger(cfg config.Config, logger pkgApp.AppLogger) (bookingDomain.TicketRepository, error) {
	if cfg.Database.DSN == "" {
		return bookingInfra.NewInMemoryTicketRepository(logger), nil
	}
	return bookingInfra.OpenTicketLedger(cfg.Database.DSN, logger)
}
