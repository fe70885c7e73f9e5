package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fjod/go_restaurant/internal/auth"
	"github.com/fjod/go_restaurant/internal/cart"
	"github.com/fjod/go_restaurant/internal/config"
	h "github.com/fjod/go_restaurant/internal/http"
	"github.com/fjod/go_restaurant/internal/logger"
	"github.com/fjod/go_restaurant/internal/media"
	"github.com/fjod/go_restaurant/internal/menu"
	"github.com/fjod/go_restaurant/internal/notify"
	"github.com/fjod/go_restaurant/internal/order"
	"github.com/fjod/go_restaurant/internal/payment"
	"github.com/fjod/go_restaurant/internal/reservation"
	"github.com/fjod/go_restaurant/internal/store"
)

// stores are the repositories the services run on. Orders and reservations may
// live in SQL; everything else stays in memory.
type stores struct {
	memory       *store.MemoryStore
	orders       store.OrderRepository
	reservations store.ReservationRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.Log.Level, Env: cfg.Env})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx := context.Background()
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				zl.Warn("close failed", zap.Error(err))
			}
		}
	}()

	st, err := openStores(ctx, cfg, zl, &closers)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := store.Seed(ctx, st.memory, hash); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	var rdb *redis.Client
	if cfg.Cart.Persistence == "redis" || cfg.Auth.Revocation == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, rdb)
	}

	persister, err := newCartPersister(ctx, cfg, rdb, &closers)
	if err != nil {
		return err
	}
	pricing, err := cart.ParsePricing(cfg.Pricing.FreeDeliveryThreshold, cfg.Pricing.DeliveryFee, cfg.Pricing.TaxRate)
	if err != nil {
		return fmt.Errorf("pricing: %w", err)
	}

	var revocations auth.Revocations = auth.NewMemoryRevocations()
	if cfg.Auth.Revocation == "redis" {
		revocations = auth.NewRedisRevocations(rdb)
	}

	hub := notify.NewHub(zl.Named("notify"))
	publisher, err := newPublisher(ctx, cfg, hub, zl, &closers)
	if err != nil {
		return err
	}

	uploads, err := media.NewStore(cfg.Uploads.Dir, cfg.Uploads.MaxSize)
	if err != nil {
		return err
	}

	authSvc := auth.NewService(st.memory, auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL), revocations)
	menuSvc := menu.NewService(st.memory, st.memory, st.memory, publisher, zl.Named("menu"))
	orderSvc := order.NewService(st.orders, menuSvc, publisher, order.Config{
		Pricing:           pricing,
		StrictTransitions: cfg.Orders.StrictTransitions,
	}, zl.Named("order"))
	reservationSvc := reservation.NewService(st.reservations, publisher, zl.Named("reservation"))
	paypal := payment.NewPayPal(payment.Config{
		BaseURL:      cfg.Payment.PayPalBaseURL,
		ClientID:     cfg.Payment.PayPalClientID,
		ClientSecret: cfg.Payment.PayPalClientSecret,
		Timeout:      cfg.Payment.Timeout,
		MaxFailures:  cfg.Payment.BreakerMaxFailures,
		OpenTimeout:  cfg.Payment.BreakerOpenTimeout,
	}, zl.Named("paypal"))

	timeout := cfg.HTTP.RequestTimeout
	handlers := h.Handlers{
		Auth:         h.NewAuthHandler(authSvc, h.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.SecureCookie}, timeout),
		Menu:         h.NewMenuHandler(menuSvc, uploads, cfg.Uploads.MaxSize, timeout),
		Orders:       h.NewOrdersHandler(orderSvc, timeout),
		Reservations: h.NewReservationsHandler(reservationSvc, timeout),
		Cart:         h.NewCartHandler(cart.NewManager(persister, pricing), menuSvc, orderSvc, timeout, zl.Named("http")),
		PayPal:       h.NewPayPalHandler(paypal, timeout),
		WS: h.NewWSHandler(hub, notify.Options{
			IdleTimeout:  cfg.Notify.IdleTimeout,
			WriteTimeout: cfg.Notify.WriteTimeout,
			SendBuffer:   cfg.Notify.SendBuffer,
		}, cfg.Notify.AdminOnly, zl.Named("http")),
	}

	// Multipart uploads need room for the file on top of the regular body limit.
	bodyLimit := max(cfg.HTTP.MaxRequestBodySize, cfg.Uploads.MaxSize+1<<20)
	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     timeout,
		MaxRequestBodySize: bodyLimit,
		SessionCookie:      cfg.Auth.CookieName,
		CartCookie:         cfg.Cart.CookieName,
		SecureCookies:      cfg.Auth.SecureCookie,
		UploadsDir:         uploads.Dir(),
		UploadsPrefix:      media.URLPrefix,
	}, authSvc, handlers, zl.Named("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("restaurant server starting", zap.String("port", cfg.HTTP.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	zl.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	zl.Info("server exited")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, zl *zap.Logger, closers *[]io.Closer) (*stores, error) {
	mem := store.NewMemoryStore()
	st := &stores{memory: mem, orders: mem, reservations: mem}

	var (
		sqlStore *store.SQLStore
		err      error
	)
	switch cfg.Store.Driver {
	case "memory":
		return st, nil
	case "sqlite":
		sqlStore, err = store.OpenSQLite(ctx, cfg.Store.SQLitePath)
	case "postgres":
		sqlStore, err = store.OpenPostgres(ctx, store.Credentials{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
	}
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, sqlStore)

	if err := sqlStore.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	zl.Info("sql store ready", zap.String("driver", cfg.Store.Driver))
	st.orders, st.reservations = sqlStore, sqlStore
	return st, nil
}

func newCartPersister(ctx context.Context, cfg *config.Config, rdb *redis.Client, closers *[]io.Closer) (cart.Persister, error) {
	switch cfg.Cart.Persistence {
	case "file":
		return cart.NewFilePersister(cfg.Cart.Dir)
	case "redis":
		return cart.NewRedisPersister(rdb), nil
	case "mongo":
		db, err := cart.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, closerFunc(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.Client().Disconnect(ctx)
		}))
		return cart.NewMongoPersister(db), nil
	default:
		return cart.NewMemoryPersister(), nil
	}
}

// newPublisher fans events out to the websocket hub and any configured broker relays.
func newPublisher(ctx context.Context, cfg *config.Config, hub *notify.Hub, zl *zap.Logger, closers *[]io.Closer) (notify.Publisher, error) {
	pubs := notify.MultiPublisher{hub}

	if len(cfg.Notify.KafkaBrokers) > 0 {
		kafka := notify.NewKafkaRelay(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic, zl.Named("kafka"))
		*closers = append(*closers, kafka)
		pubs = append(pubs, kafka)
	}
	if cfg.Notify.AMQPURL != "" {
		amqp, err := notify.DialAMQP(ctx, cfg.Notify.AMQPURL, cfg.Notify.AMQPExchange, zl.Named("amqp"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		*closers = append(*closers, amqp)
		pubs = append(pubs, amqp)
	}
	return pubs, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
