package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"order-gateway/order/application"
	"order-gateway/order/infra"
)

type config struct {
	listenAddr string
	appEnv     string
	logLevel   string
	logFormat  string
	locale     string

	allowedOrigins        []string
	lenientAllowedOrigins []string
	rateKeyHeader         string
	trustXFF              bool

	recaptchaSecret       string
	recaptchaMinScore     float64
	captchaTimeout        time.Duration
	strictCaptchaOnError  application.CaptchaErrorPolicy
	lenientCaptchaOnError application.CaptchaErrorPolicy

	telegramToken   string
	telegramChatIDs string
	telegramRPS     float64
	dispatchTimeout time.Duration

	smtpHost     string
	smtpPort     int
	smtpUser     string
	smtpPassword string

	rateLimit         int
	rateWindow        time.Duration
	rateMaxKeys       int
	rateRedisAddr     string
	rateRedisPassword string
	rateRedisDB       int

	// token bucket de /api/delivery-rates
	rateRPS   float64
	rateBurst int

	statsRedisEnabled bool
	statsPrefix       string
	statsTTL          time.Duration
	statsBucket       string
	statsTrackClients bool

	orderIDPrefix       string
	strictOrderIDPrefix string

	storeDriver  string
	storeDSN     string
	storeBucket  string
	storeRegion  string
	storeTimeout time.Duration

	deliveryDataFile string

	concurrencyMax     int
	concurrencyTimeout time.Duration
}

func (c config) development() bool { return strings.EqualFold(c.appEnv, "development") }

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.appEnv = getenvDefault("APP_ENV", "production")
	cfg.logLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.logFormat = getenvDefault("LOG_FORMAT", "json")
	cfg.locale = getenvDefault("LOCALE", "ar")

	cfg.allowedOrigins = getenvListDefault("ALLOWED_ORIGINS", "https://formdz.netlify.app,http://localhost:3000")
	cfg.lenientAllowedOrigins = getenvListDefault("LENIENT_ALLOWED_ORIGINS", "https://formdz.netlify.app,http://localhost:3000,null")
	cfg.rateKeyHeader = getenvDefault("RATE_KEY_HEADER", "Client-Ip")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", true)

	cfg.recaptchaSecret = os.Getenv("RECAPTCHA_SECRET_KEY")
	cfg.recaptchaMinScore = getenvFloatDefault("RECAPTCHA_MIN_SCORE", application.DefaultMinScore)
	cfg.captchaTimeout = getenvDurationDefault("CAPTCHA_TIMEOUT", 5*time.Second)

	var err error
	cfg.strictCaptchaOnError, err = application.ParseCaptchaErrorPolicy(getenvDefault("STRICT_CAPTCHA_ON_ERROR", string(application.CaptchaReject)))
	if err != nil {
		return config{}, fmt.Errorf("STRICT_CAPTCHA_ON_ERROR: %w", err)
	}
	cfg.lenientCaptchaOnError, err = application.ParseCaptchaErrorPolicy(getenvDefault("LENIENT_CAPTCHA_ON_ERROR", string(application.CaptchaProceed)))
	if err != nil {
		return config{}, fmt.Errorf("LENIENT_CAPTCHA_ON_ERROR: %w", err)
	}

	cfg.telegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.telegramChatIDs = os.Getenv("TELEGRAM_CHAT_IDS")
	cfg.telegramRPS = getenvFloatDefault("TELEGRAM_RPS", 25)
	cfg.dispatchTimeout = getenvDurationDefault("DISPATCH_TIMEOUT", 10*time.Second)

	cfg.smtpHost = getenvDefault("SMTP_HOST", "smtp.gmail.com")
	cfg.smtpPort = getenvIntDefault("SMTP_PORT", 0)
	cfg.smtpUser = os.Getenv("GMAIL_USER")
	cfg.smtpPassword = os.Getenv("GMAIL_APP_PASSWORD")

	cfg.rateLimit = getenvIntDefault("RATE_LIMIT", 10)
	cfg.rateWindow = getenvDurationDefault("RATE_WINDOW", time.Hour)
	cfg.rateMaxKeys = getenvIntDefault("RATE_MAX_KEYS", 10000)
	cfg.rateRedisAddr = os.Getenv("RATE_REDIS_ADDR")
	cfg.rateRedisPassword = os.Getenv("RATE_REDIS_PASSWORD")
	cfg.rateRedisDB = getenvIntDefault("RATE_REDIS_DB", 0)

	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 5)
	// IMPORTANTE: o "burst" permite uma rajada inicial de requisições.
	// Com RPS muito baixo (ex: 0.02), o padrão 20 pode dar a impressão de que
	// o limiter não está funcionando, porque as primeiras ~20 passam.
	if burst, ok := getenvInt("RATE_BURST"); ok {
		cfg.rateBurst = burst
	} else {
		cfg.rateBurst = 20
		if getenvIsSet("RATE_RPS") && cfg.rateRPS > 0 && cfg.rateRPS < 1 {
			cfg.rateBurst = 1
		}
	}

	cfg.statsRedisEnabled = getenvBoolDefault("STATS_REDIS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "orders:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 7*24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "hour")
	cfg.statsTrackClients = getenvBoolDefault("STATS_TRACK_CLIENTS", false)

	cfg.orderIDPrefix = getenvDefault("ORDER_ID_PREFIX", "INV")
	cfg.strictOrderIDPrefix = getenvDefault("STRICT_ORDER_ID_PREFIX", "ORD")

	cfg.storeDriver = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	cfg.storeDSN = os.Getenv("STORE_DSN")
	cfg.storeBucket = os.Getenv("STORE_BUCKET")
	cfg.storeRegion = getenvDefault("STORE_REGION", "eu-west-3")
	cfg.storeTimeout = getenvDurationDefault("STORE_TIMEOUT", 5*time.Second)

	cfg.deliveryDataFile = os.Getenv("DELIVERY_DATA_FILE")

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	if cfg.rateLimit <= 0 {
		return config{}, errors.New("RATE_LIMIT must be > 0")
	}
	if cfg.rateWindow <= 0 {
		return config{}, errors.New("RATE_WINDOW must be > 0")
	}
	if cfg.rateRPS <= 0 {
		return config{}, errors.New("RATE_RPS must be > 0")
	}
	if cfg.rateBurst <= 0 {
		return config{}, errors.New("RATE_BURST must be > 0")
	}
	// sem segredo o token do /api/order nunca é conferido
	if cfg.recaptchaSecret == "" && !cfg.development() {
		return config{}, errors.New("RECAPTCHA_SECRET_KEY is required outside development")
	}
	if cfg.recaptchaMinScore < 0 || cfg.recaptchaMinScore > 1 {
		return config{}, errors.New("RECAPTCHA_MIN_SCORE must be between 0 and 1")
	}
	if cfg.statsRedisEnabled && strings.TrimSpace(cfg.rateRedisAddr) == "" {
		return config{}, errors.New("RATE_REDIS_ADDR is required when STATS_REDIS_ENABLED=true")
	}
	if (cfg.smtpUser == "") != (cfg.smtpPassword == "") {
		return config{}, errors.New("GMAIL_USER and GMAIL_APP_PASSWORD must be set together")
	}
	switch cfg.storeDriver {
	case "":
	case string(infra.DialectSQLite), string(infra.DialectPostgres):
		if cfg.storeDSN == "" {
			return config{}, fmt.Errorf("STORE_DSN is required when STORE_DRIVER=%s", cfg.storeDriver)
		}
	case "s3":
		if cfg.storeBucket == "" {
			return config{}, errors.New("STORE_BUCKET is required when STORE_DRIVER=s3")
		}
	default:
		return config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.storeDriver)
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvListDefault lê uma lista separada por vírgulas, descartando itens vazios.
func getenvListDefault(k, def string) []string {
	var out []string
	for _, item := range strings.Split(getenvDefault(k, def), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvInt(k string) (int, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getenvIsSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
