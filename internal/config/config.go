package config

import (
	"flag"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Address   string `env:"RUN_ADDRESS"  envDefault:"localhost:8080"`
	Database  string `env:"DATABASE_URI" envDefault:""`
	LogLvl    string `env:"LOG_LVL"      envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"   envDefault:"console"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"change-me"`

	GatewayAddress        string        `env:"GATEWAY_ADDRESS"         envDefault:"localhost:8090"`
	GatewayClientID       string        `env:"GATEWAY_CLIENT_ID"       envDefault:""`
	GatewayClientSecret   string        `env:"GATEWAY_CLIENT_SECRET"   envDefault:""`
	GatewayCallbackSecret string        `env:"GATEWAY_CALLBACK_SECRET" envDefault:""`
	GatewayTimeout        time.Duration `env:"GATEWAY_TIMEOUT"         envDefault:"15s"`
	GatewayRPS            float64       `env:"GATEWAY_RPS"             envDefault:"10"`
	GatewayMaxRetries     int           `env:"GATEWAY_MAX_RETRIES"     envDefault:"3"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS"      envSeparator:","`
	KafkaOrdersTopic string   `env:"KAFKA_ORDERS_TOPIC" envDefault:"orders.status"`
	KafkaGroupID     string   `env:"KAFKA_GROUP_ID"     envDefault:"payee-ledger"`

	DefaultCommissionPercent decimal.Decimal `env:"DEFAULT_COMMISSION_PERCENT" envDefault:"10"`
	BalanceMaxRetries        int             `env:"BALANCE_MAX_RETRIES"        envDefault:"5"`

	PayoutInterval   time.Duration `env:"PAYOUT_INTERVAL"    envDefault:"5s"`
	PayoutWorkers    int           `env:"PAYOUT_WORKERS"     envDefault:"10"`
	PayoutBatch      int           `env:"PAYOUT_BATCH"       envDefault:"100"`
	PayoutStaleAfter time.Duration `env:"PAYOUT_STALE_AFTER" envDefault:"24h"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1h"`
	ReconcileWorkers  int           `env:"RECONCILE_WORKERS"  envDefault:"4"`
}

func New() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := &Config{}

	env.Parse(cfg)

	flag.StringVar(&cfg.Address, "a", cfg.Address, "address and port to run server")
	flag.StringVar(&cfg.GatewayAddress, "g", cfg.GatewayAddress, "payout gateway address")
	flag.StringVar(&cfg.Database, "d", cfg.Database, "database DSN, empty for in-memory storage")
	flag.StringVar(&cfg.LogLvl, "l", cfg.LogLvl, "log level")
	flag.DurationVar(&cfg.ReconcileInterval, "reconcile-interval", cfg.ReconcileInterval, "reconciliation interval")
	flag.Parse()

	if !strings.HasPrefix(cfg.GatewayAddress, "http://") && !strings.HasPrefix(cfg.GatewayAddress, "https://") {
		cfg.GatewayAddress = "http://" + cfg.GatewayAddress
	}
	cfg.GatewayAddress = strings.TrimRight(cfg.GatewayAddress, "/")

	return cfg
}

func (c *Config) InMemory() bool {
	return c.Database == ""
}
