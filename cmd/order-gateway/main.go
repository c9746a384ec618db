package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"order-gateway/logging"
	"order-gateway/metrics"
	"order-gateway/middleware/ratelimit"
	rlapp "order-gateway/middleware/ratelimit/application"
	rldomain "order-gateway/middleware/ratelimit/domain"
	rlinfra "order-gateway/middleware/ratelimit/infra"
	"order-gateway/order"
	"order-gateway/order/application"
	"order-gateway/order/domain"
	"order-gateway/order/infra"
	"order-gateway/rates"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		bootLog := logging.New(logging.Config{})
		bootLog.Fatal().Err(err).Msg("config error")
	}

	log := logging.New(logging.Config{Level: cfg.logLevel, Format: cfg.logFormat, Component: "order-gateway"})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.rateRedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.rateRedisAddr,
			Password: cfg.rateRedisPassword,
			DB:       cfg.rateRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			log.Fatal().Err(err).Msg("redis ping error")
		}
	}

	m := metrics.New(prometheus.NewRegistry())
	msgs := order.NewMessages(cfg.locale)
	keyFn := ratelimit.DefaultKeyFunc(cfg.rateKeyHeader, cfg.trustXFF)

	stats := newStatsStore(cfg, rdb)

	store, closeStore, err := newOrderStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.storeDriver).Msg("order store error")
	}
	defer closeStore()

	var verifier application.Verifier
	if cfg.recaptchaSecret != "" {
		verifier = infra.NewRecaptchaVerifier(cfg.recaptchaSecret)
	} else {
		log.Warn().Msg("RECAPTCHA_SECRET_KEY not set (development), captcha verification disabled")
	}

	var mailer application.Mailer
	if cfg.smtpUser != "" {
		smtpMailer, err := infra.NewSMTPMailer(infra.SMTPConfig{
			Host:     cfg.smtpHost,
			Port:     cfg.smtpPort,
			Username: cfg.smtpUser,
			Password: cfg.smtpPassword,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("smtp error")
		}
		mailer = smtpMailer
	} else {
		log.Warn().Msg("GMAIL_USER not set, mail dispatch disabled")
	}

	var fanout *application.Fanout
	if cfg.telegramToken != "" {
		fanout = &application.Fanout{
			Sender:       infra.NewTelegramSender(cfg.telegramToken),
			Destinations: application.ParseDestinations(cfg.telegramChatIDs),
			Timeout:      cfg.dispatchTimeout,
			Limiter:      rate.NewLimiter(rate.Limit(cfg.telegramRPS), 1),
			Log:          logging.WithComponent(log, "fanout"),
		}
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, chat dispatch disabled")
	}

	strict := &application.Pipeline{
		Variant: "strict",
		Gate: application.Gate{
			Verifier:      verifier,
			MinScore:      cfg.recaptchaMinScore,
			TokenRequired: true,
			OnError:       cfg.strictCaptchaOnError,
			Timeout:       cfg.captchaTimeout,
			Log:           logging.WithComponent(log, "captcha"),
		},
		Validator: application.StrictValidator{},
		Normalizer: application.Normalizer{
			Defaults:  application.StrictDefaults,
			IntFields: []string{"quantity"},
			NewID:     application.RandomID(cfg.strictOrderIDPrefix, 9),
		},
		Chat:         application.DetailedChat,
		Fanout:       fanout,
		Mailer:       mailer,
		Authority:    application.ChannelChat,
		Store:        store,
		StoreTimeout: cfg.storeTimeout,
		Observer:     m,
		Log:          logging.WithComponent(log, "strict"),
	}

	lenient := &application.Pipeline{
		Variant: "lenient",
		Gate: application.Gate{
			Verifier: verifier,
			MinScore: cfg.recaptchaMinScore,
			OnError:  cfg.lenientCaptchaOnError,
			Timeout:  cfg.captchaTimeout,
			Log:      logging.WithComponent(log, "captcha"),
		},
		Validator: application.DefaultLenientValidator(),
		Normalizer: application.Normalizer{
			NewID: application.RandomID(cfg.orderIDPrefix, 6),
		},
		Chat:         application.SummaryChat,
		Fanout:       fanout,
		Mailer:       mailer,
		Authority:    application.ChannelMail,
		Store:        store,
		StoreTimeout: cfg.storeTimeout,
		Observer:     m,
		Log:          logging.WithComponent(log, "lenient"),
	}

	orderHandler := order.NewHandler(order.Options{
		Pipeline:       strict,
		AllowedOrigins: cfg.allowedOrigins,
		RequireOrigin:  true,
		Limiter:        newWindowLimiter(ctx, cfg, rdb, m, "order"),
		KeyFn:          keyFn,
		Messages:       msgs,
		Stats:          stats,
		Metrics:        m,
		Debug:          cfg.development(),
		Log:            log,
	})
	submitHandler := order.NewHandler(order.Options{
		Pipeline:       lenient,
		AllowedOrigins: cfg.lenientAllowedOrigins,
		CORS:           true,
		Limiter:        newWindowLimiter(ctx, cfg, rdb, m, "submit"),
		KeyFn:          keyFn,
		Messages:       msgs,
		Stats:          stats,
		Metrics:        m,
		Debug:          cfg.development(),
		Log:            log,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/order", m.Instrument("order", orderHandler))
	mux.Handle("/api/submit", m.Instrument("submit", submitHandler))
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", healthz(rdb))

	if cfg.deliveryDataFile != "" {
		table, err := rates.Load(cfg.deliveryDataFile)
		if err != nil {
			log.Fatal().Err(err).Msg("delivery rates error")
		}
		bucket := rlinfra.NewStore(cfg.rateRPS, cfg.rateBurst)
		bucket.StartJanitor(ctx)
		m.TrackedKeys("delivery_rates", bucket.Len)

		h := ratelimit.Middleware(ratelimit.Options{
			Store:               bucket,
			KeyFn:               keyFn,
			AddRateLimitHeaders: true,
		})(rates.Handler(table))
		mux.Handle("/api/delivery-rates", m.Instrument("delivery_rates", h))
		log.Info().Int("wilayas", table.Len()).Msg("delivery rates loaded")
	}

	h := http.Handler(mux)
	if cfg.concurrencyMax > 0 {
		pool := rlinfra.NewChanPool(cfg.concurrencyMax)
		m.InFlight(pool.InUse)
		h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Pool:           pool,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.concurrencyTimeout,
		})(h)
	}
	h = logging.Middleware(log)(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.listenAddr).Str("env", cfg.appEnv).Str("locale", cfg.locale).Msg("order gateway listening")
	log.Info().Int("limit", cfg.rateLimit).Dur("window", cfg.rateWindow).Bool("redis", rdb != nil).Str("key_header", cfg.rateKeyHeader).Bool("trust_xff", cfg.trustXFF).Msg("rate limit")
	log.Info().Int("chats", len(application.ParseDestinations(cfg.telegramChatIDs))).Bool("mail", mailer != nil).Str("store", cfg.storeDriver).Msg("dispatch")
	log.Info().Int("max", cfg.concurrencyMax).Dur("acquire_timeout", cfg.concurrencyTimeout).Msg("concurrency")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}

// newWindowLimiter cria a janela de uma variante: Redis quando configurado,
// senão memória com janitor.
func newWindowLimiter(ctx context.Context, cfg config, rdb *redis.Client, m *metrics.Metrics, name string) rlapp.WindowService {
	var store rldomain.WindowStore
	if rdb != nil {
		store = rlinfra.NewRedisWindowStore(rdb, cfg.rateLimit, cfg.rateWindow, rlinfra.WithWindowPrefix("ratelimit:"+name))
	} else {
		mem := rlinfra.NewWindowStore(cfg.rateLimit, cfg.rateWindow, rlinfra.WithMaxKeys(cfg.rateMaxKeys))
		mem.StartJanitor(ctx)
		m.TrackedKeys(name, mem.Len)
		store = mem
	}
	return rlapp.WindowService{Store: store}
}

func newStatsStore(cfg config, rdb *redis.Client) domain.StatsStore {
	if cfg.statsRedisEnabled && rdb != nil {
		return infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackClients(cfg.statsTrackClients),
		)
	}
	return infra.NewMemoryStatsStore(infra.WithTrackClients(cfg.statsTrackClients))
}

// newOrderStore devolve nil quando STORE_DRIVER está vazio.
func newOrderStore(ctx context.Context, cfg config) (application.OrderStore, func(), error) {
	noop := func() {}
	switch cfg.storeDriver {
	case "":
		return nil, noop, nil
	case "s3":
		s, err := infra.NewS3Store(ctx, infra.S3StoreConfig{
			Bucket: cfg.storeBucket,
			Region: cfg.storeRegion,
			Prefix: "orders",
		})
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	default:
		s, err := infra.OpenSQLStore(ctx, infra.Dialect(cfg.storeDriver), cfg.storeDSN)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}

func healthz(rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rdb != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("healthz: redis unavailable")
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

