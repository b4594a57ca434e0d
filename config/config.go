package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL"`
	Postgres    Postgres
	Redis       Redis
	API         API
	Cache       Cache
	Jobs        Jobs
	Benchmark   Benchmark
	Dividends   Dividends
	GoogleDrive GoogleDrive
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG"`
	Timeout  time.Duration `env:"API_TIMEOUT"`
	QuoteApi QuoteApi
}

type QuoteApi struct {
	Url string `env:"QUOTE_API_URL"`
}

type Cache struct {
	QuotesExpiration  time.Duration `env:"CACHE_QUOTES_EXPIRATION"`
	HistoryExpiration time.Duration `env:"CACHE_HISTORY_EXPIRATION"`
}

type Jobs struct {
	WarmQuoteCacheInterval time.Duration `env:"WARM_QUOTE_CACHE_JOB_INTERVAL"`
	CheckDividendsInterval time.Duration `env:"CHECK_DIVIDENDS_JOB_INTERVAL"`
	EmitPayoutsInterval    time.Duration `env:"EMIT_PAYOUTS_JOB_INTERVAL"`
	CloudCleanupInterval   time.Duration `env:"CLOUD_CLEANUP_JOB_INTERVAL" envDefault:"24h"`
}

type Benchmark struct {
	Symbol string `env:"BENCHMARK_SYMBOL" envDefault:"IMOEX"`
}

// Dividends.PayDateOffsetDays - сдвиг предполагаемой даты выплаты от даты
// отсечки, когда провайдер не отдаёт дату выплаты. Бизнес-допущение,
// поэтому конфиг, а не константа алгоритма.
type Dividends struct {
	PayDateOffsetDays int `env:"DIVIDEND_PAYDATE_OFFSET_DAYS" envDefault:"15"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE"`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"720h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
