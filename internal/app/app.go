// Package app wires the engine's dependencies and runs the HTTP server and
// the expiry sweeper under one lifecycle.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/coupon"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/payment"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/pricing"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/request"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/handler"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/razorpay"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/repository"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/sweeper"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/pkg/health"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the expiry
// sweeper, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := repository.NewCatalogRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)

	// Domain services.
	validator := coupon.NewStoreValidator(couponRepo)
	consumer := coupon.NewStoreConsumer(couponRepo)
	pricer := pricing.NewEngine(validator)
	gateway := razorpay.New(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	reconciler := payment.NewReconciler(gateway, payment.Config{
		Secret:   cfg.Razorpay.KeySecret,
		Currency: cfg.Razorpay.Currency,
		Timeout:  cfg.Razorpay.Timeout,
	})
	svc := request.NewService(catalogRepo, requestRepo, pricer, consumer, reconciler, cfg.Hold.Window)
	sweep := sweeper.New(svc, cfg.Sweep.Interval, lg.Named("sweeper"))

	// HTTP surface: health endpoints + API routes on one server.
	h := handler.New(svc)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	instrumented := otelhttp.NewHandler(mux, "cyclebees-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:       86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.LogRequests(),
		),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sweep.Run(gctx)
	})

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
