package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/kainapp/backend-kain/internal/cart"
	"github.com/kainapp/backend-kain/internal/catalog"
	"github.com/kainapp/backend-kain/internal/checkout"
	"github.com/kainapp/backend-kain/internal/common"
	"github.com/kainapp/backend-kain/internal/config"
	"github.com/kainapp/backend-kain/internal/coupon"
	"github.com/kainapp/backend-kain/internal/currency"
	"github.com/kainapp/backend-kain/internal/gateway"
	"github.com/kainapp/backend-kain/internal/health"
	"github.com/kainapp/backend-kain/internal/obs"
	"github.com/kainapp/backend-kain/internal/payment"
	"github.com/kainapp/backend-kain/internal/ratelimit"
	"github.com/kainapp/backend-kain/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "kain")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "kain-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if envBool("DB_AUTO_MIGRATE", false) {
		dir := envOrDefault("DB_MIGRATIONS_DIR", "db/migrations")
		if err := store.Migrate(cfg.DatabaseURL, dir); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	pool, err := store.NewPool(ctx, cfg.DatabaseURL, "kain-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	converter, err := currency.NewConverter(cfg.CurrencyCode, cfg.CurrencyRates)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise currency converter")
	}

	validate := validator.New()

	catalogStore := &catalog.PgStore{Pool: pool}
	catalogSvc, err := catalog.NewService(catalogStore, catalog.NewCache(redisClient, cfg.CatalogCacheTTL), converter)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc, Validate: validate}

	couponStore := &coupon.PgStore{Pool: pool}
	couponSvc := &coupon.Service{Store: couponStore}
	couponHandler := &coupon.Handler{Store: couponStore, Svc: couponSvc, Validate: validate}

	cartStore := &cart.PgStore{Pool: pool}
	cartSvc := &cart.Service{
		Store:   cartStore,
		Pricer:  catalogSvc,
		Coupons: couponSvc,
		TTL:     cfg.CartTTL,
		GSTBps:  cfg.PricingGSTRateBps,
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Validate: validate}

	orderStore := &checkout.PgStore{Pool: pool}
	checkoutSvc := &checkout.Service{
		Orders:      orderStore,
		Carts:       cartSvc,
		Coupons:     couponSvc,
		Gateway:     cfg.GatewayConfig(),
		APIGateways: cfg.APIGatewaySet(),
		GSTBps:      cfg.PricingGSTRateBps,
		Shipping:    cfg.ShippingFlat,
		Currency:    cfg.CurrencyCode,
		Log:         logger,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: validate}

	providers := map[gateway.Gateway]payment.Provider{}
	if cfg.RazorpayEnabled {
		providers[gateway.Razorpay] = payment.Razorpay{
			KeyID:         cfg.RazorpayKeyID,
			KeySecret:     cfg.RazorpayKeySecret,
			WebhookSecret: cfg.RazorpayWebhookSecret,
			BaseURL:       cfg.RazorpayBaseURL,
		}
	}
	if cfg.StripeEnabled {
		providers[gateway.Stripe] = payment.NewStripe(cfg.StripeAPIKey, cfg.StripeWebhookSecret)
	}
	paymentStore := &payment.PgStore{Pool: pool}
	paymentSvc := &payment.Service{Store: paymentStore, Orders: orderStore, Providers: providers, Log: logger}
	paymentHandler := &payment.Handler{Svc: paymentSvc}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:"},
		Config: ratelimit.Config{
			Key:    ratelimit.KeyByIP,
			Window: time.Duration(envInt("RATE_LIMIT_WINDOW_SEC", 60)) * time.Second,
			Max:    envInt("RATE_LIMIT_MAX", 120),
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("rate limiter") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.List)
		v.Get("/products/{slug}", catalogHandler.Detail)
		v.With(limiter.Middleware).Post("/products/{slug}/quote", catalogHandler.Quote)

		v.Route("/carts", func(c chi.Router) {
			c.Get("/{cartId}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Ensure)
				g.Post("/{cartId}/items", cartHandler.AddItem)
				g.Patch("/{cartId}/items/{itemId}", cartHandler.UpdateQty)
				g.Delete("/{cartId}/items/{itemId}", cartHandler.RemoveItem)
				g.Post("/{cartId}/apply-coupon", cartHandler.ApplyCoupon)
				g.Delete("/{cartId}/coupon", cartHandler.RemoveCoupon)
			})
		})

		v.With(limiter.Middleware).Post("/checkout/quote", checkoutHandler.Quote)
		v.With(idem.Middleware).Post("/checkout", checkoutHandler.Create)
		v.Get("/orders/{orderId}", checkoutHandler.Get)

		v.Route("/payments", func(p chi.Router) {
			p.With(idem.Middleware).Post("/orders/{orderId}/intent", paymentHandler.CreateIntent)
		})
		v.Post("/webhooks/payment/{provider}", paymentHandler.Webhook)

		v.Route("/admin", func(admin chi.Router) {
			admin.Post("/coupons", couponHandler.Create)
			admin.Put("/coupons/{code}", couponHandler.Update)
			admin.Post("/coupons/preview", couponHandler.Preview)
			admin.Post("/products", catalogHandler.Create)
			admin.Put("/products/{id}/slabs", catalogHandler.UpdateSlabs)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
