// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Trading modes.
const (
	ModeSimulation = "simulation"
	ModeLive       = "live"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Market    MarketConfig    `mapstructure:"market"`
	Binance   VenueConfig     `mapstructure:"binance"`
	Bitget    VenueConfig     `mapstructure:"bitget"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	HealthPort  int    `mapstructure:"health_port"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// MarketConfig holds market data feed settings shared by both venues.
type MarketConfig struct {
	Symbol         string        `mapstructure:"symbol"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MaxSnapshotAge time.Duration `mapstructure:"max_snapshot_age"` // 0 disables the staleness gate
}

// VenueConfig holds per-venue endpoints, credentials and fees.
type VenueConfig struct {
	WebSocketURL      string  `mapstructure:"websocket_url"`
	RESTURL           string  `mapstructure:"rest_url"`
	APIKey            string  `mapstructure:"api_key"`
	SecretKey         string  `mapstructure:"secret_key"`
	Passphrase        string  `mapstructure:"passphrase"`     // Bitget only
	ProductSymbol     string  `mapstructure:"product_symbol"` // REST symbol when it differs from market.symbol
	TakerFee          float64 `mapstructure:"taker_fee"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
}

// TakerFeeDecimal returns the taker fee rate as decimal.Decimal.
func (c *VenueConfig) TakerFeeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TakerFee)
}

// HasCredentials reports whether signed endpoints can be used.
func (c *VenueConfig) HasCredentials() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

// StrategyConfig holds spread thresholds.
type StrategyConfig struct {
	OpenThreshold  float64 `mapstructure:"open_threshold"`
	CloseThreshold float64 `mapstructure:"close_threshold"`
}

// OpenThresholdDecimal returns the open threshold as decimal.Decimal.
func (c *StrategyConfig) OpenThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.OpenThreshold)
}

// CloseThresholdDecimal returns the close threshold as decimal.Decimal.
func (c *StrategyConfig) CloseThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.CloseThreshold)
}

// RiskConfig holds sizing and liquidation settings.
type RiskConfig struct {
	OrderSizeRatio        float64 `mapstructure:"order_size_ratio"`
	MaxPositionNotional   float64 `mapstructure:"max_position_notional"`
	Leverage              int     `mapstructure:"leverage"`
	MinOrderSize          float64 `mapstructure:"min_order_size"`
	StopLossPercentage    float64 `mapstructure:"stop_loss_percentage"`
	MaintenanceMarginRate float64 `mapstructure:"maintenance_margin_rate"`
}

// OrderSizeRatioDecimal returns the order size ratio as decimal.Decimal.
func (c *RiskConfig) OrderSizeRatioDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.OrderSizeRatio)
}

// MaxPositionNotionalDecimal returns the notional cap as decimal.Decimal.
func (c *RiskConfig) MaxPositionNotionalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxPositionNotional)
}

// LeverageDecimal returns the leverage as decimal.Decimal.
func (c *RiskConfig) LeverageDecimal() decimal.Decimal {
	return decimal.NewFromInt(int64(c.Leverage))
}

// MinOrderSizeDecimal returns the minimum order size as decimal.Decimal.
func (c *RiskConfig) MinOrderSizeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinOrderSize)
}

// StopLossPercentageDecimal returns the stop-loss fraction as decimal.Decimal.
func (c *RiskConfig) StopLossPercentageDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.StopLossPercentage)
}

// MaintenanceMarginRateDecimal returns the maintenance margin rate as decimal.Decimal.
func (c *RiskConfig) MaintenanceMarginRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaintenanceMarginRate)
}

// ExecutionConfig holds order execution settings.
type ExecutionConfig struct {
	Mode             string        `mapstructure:"mode"` // simulation | live
	LegTimeout       time.Duration `mapstructure:"leg_timeout"`
	SimulatedBalance float64       `mapstructure:"simulated_balance"`
	UnwindOnPartial  bool          `mapstructure:"unwind_on_partial"`
}

// IsLive reports whether real orders are sent.
func (c *ExecutionConfig) IsLive() bool {
	return c.Mode == ModeLive
}

// SimulatedBalanceDecimal returns the paper balance as decimal.Decimal.
func (c *ExecutionConfig) SimulatedBalanceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SimulatedBalance)
}

// JournalConfig holds trade journal sinks. Both sinks are optional.
type JournalConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig holds the Redis trade event bus settings.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
	Stream   string `mapstructure:"stream"`
}

// PostgresConfig holds the Postgres trade journal settings.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceExporter  string `mapstructure:"trace_exporter"` // otlp-grpc | otlp-http | zipkin | stdout | none
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"` // key=value,key2=value2
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Market
	v.BindEnv("market.symbol", "ARB_SYMBOL", "SYMBOL")
	v.BindEnv("market.reconnect_delay", "ARB_RECONNECT_DELAY", "RECONNECT_DELAY")
	v.BindEnv("market.ping_interval", "ARB_PING_INTERVAL", "PING_INTERVAL")

	// Venues
	v.BindEnv("binance.api_key", "ARB_BINANCE_API_KEY", "BINANCE_API_KEY")
	v.BindEnv("binance.secret_key", "ARB_BINANCE_SECRET_KEY", "BINANCE_SECRET_KEY")
	v.BindEnv("binance.taker_fee", "ARB_BINANCE_FEE", "BINANCE_FEE")
	v.BindEnv("bitget.api_key", "ARB_BITGET_API_KEY", "BITGET_API_KEY")
	v.BindEnv("bitget.secret_key", "ARB_BITGET_SECRET_KEY", "BITGET_SECRET_KEY")
	v.BindEnv("bitget.passphrase", "ARB_BITGET_PASSPHRASE", "BITGET_PASSPHRASE")
	v.BindEnv("bitget.taker_fee", "ARB_BITGET_FEE", "BITGET_FEE")

	// Strategy
	v.BindEnv("strategy.open_threshold", "ARB_OPEN_THRESHOLD", "PRICE_THRESHOLD")
	v.BindEnv("strategy.close_threshold", "ARB_CLOSE_THRESHOLD", "CLOSE_THRESHOLD")

	// Risk
	v.BindEnv("risk.order_size_ratio", "ARB_ORDER_SIZE_RATIO", "ORDER_SIZE_RATIO")
	v.BindEnv("risk.max_position_notional", "ARB_MAX_POSITION_NOTIONAL", "MAX_POSITION_AMOUNT")
	v.BindEnv("risk.leverage", "ARB_LEVERAGE", "LEVERAGE")
	v.BindEnv("risk.stop_loss_percentage", "ARB_STOP_LOSS_PERCENTAGE", "STOP_LOSS_PERCENTAGE")

	// Execution
	v.BindEnv("execution.mode", "ARB_TRADING_MODE", "TRADING_MODE")

	// Journal
	v.BindEnv("journal.redis.addr", "ARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("journal.redis.password", "ARB_REDIS_PASSWORD", "REDIS_PASSWORD")
	v.BindEnv("journal.postgres.dsn", "ARB_POSTGRES_DSN", "DATABASE_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "ARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.trace_exporter", "ARB_TRACE_EXPORTER")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "perp-arbitrage")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8081)

	// Market defaults
	v.SetDefault("market.symbol", "ETHUSDT")
	v.SetDefault("market.reconnect_delay", "2s")
	v.SetDefault("market.ping_interval", "18s")
	v.SetDefault("market.read_timeout", "60s")
	v.SetDefault("market.max_snapshot_age", "0s")

	// Binance USDⓈ-M futures defaults
	v.SetDefault("binance.websocket_url", "wss://fstream.binance.com/ws")
	v.SetDefault("binance.rest_url", "https://fapi.binance.com")
	v.SetDefault("binance.taker_fee", 0.0005)
	v.SetDefault("binance.requests_per_minute", 1200)

	// Bitget USDT-FUTURES defaults
	v.SetDefault("bitget.websocket_url", "wss://ws.bitget.com/v2/ws/public")
	v.SetDefault("bitget.rest_url", "https://api.bitget.com")
	v.SetDefault("bitget.product_symbol", "ETHUSDT_UMCBL")
	v.SetDefault("bitget.taker_fee", 0.0005)
	v.SetDefault("bitget.requests_per_minute", 600)

	// Strategy defaults
	v.SetDefault("strategy.open_threshold", 0.0006)
	v.SetDefault("strategy.close_threshold", 0.0002)

	// Risk defaults
	v.SetDefault("risk.order_size_ratio", 0.7)
	v.SetDefault("risk.max_position_notional", 1000)
	v.SetDefault("risk.leverage", 10)
	v.SetDefault("risk.min_order_size", 0.01)
	v.SetDefault("risk.stop_loss_percentage", 0.5)
	v.SetDefault("risk.maintenance_margin_rate", 0.005)

	// Execution defaults
	v.SetDefault("execution.mode", ModeSimulation)
	v.SetDefault("execution.leg_timeout", "5s")
	v.SetDefault("execution.simulated_balance", 10000)
	v.SetDefault("execution.unwind_on_partial", true)

	// Journal defaults
	v.SetDefault("journal.redis.enabled", false)
	v.SetDefault("journal.redis.addr", "localhost:6379")
	v.SetDefault("journal.redis.channel", "arbitrage:trades")
	v.SetDefault("journal.redis.stream", "arbitrage:trades:log")
	v.SetDefault("journal.postgres.enabled", false)
	v.SetDefault("journal.postgres.max_conns", 4)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "perp-arbitrage")
	v.SetDefault("telemetry.trace_exporter", "otlp-grpc")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol is required")
	}
	if c.Market.ReconnectDelay <= 0 {
		return fmt.Errorf("market.reconnect_delay must be positive")
	}
	if c.Binance.WebSocketURL == "" || c.Bitget.WebSocketURL == "" {
		return fmt.Errorf("binance.websocket_url and bitget.websocket_url are required")
	}
	if c.Strategy.OpenThreshold <= 0 {
		return fmt.Errorf("strategy.open_threshold must be positive")
	}
	if c.Strategy.CloseThreshold < 0 {
		return fmt.Errorf("strategy.close_threshold cannot be negative")
	}
	if c.Risk.OrderSizeRatio <= 0 || c.Risk.OrderSizeRatio > 1 {
		return fmt.Errorf("risk.order_size_ratio must be in (0, 1]: %v", c.Risk.OrderSizeRatio)
	}
	if c.Risk.MaxPositionNotional <= 0 {
		return fmt.Errorf("risk.max_position_notional must be positive")
	}
	if c.Risk.Leverage < 1 {
		return fmt.Errorf("risk.leverage must be at least 1")
	}
	if c.Risk.StopLossPercentage < 0 || c.Risk.StopLossPercentage > 1 {
		return fmt.Errorf("risk.stop_loss_percentage must be in [0, 1]: %v", c.Risk.StopLossPercentage)
	}
	if c.Risk.MaintenanceMarginRate <= 0 || c.Risk.MaintenanceMarginRate >= 1 {
		return fmt.Errorf("risk.maintenance_margin_rate must be in (0, 1)")
	}

	switch c.Execution.Mode {
	case ModeSimulation:
	case ModeLive:
		if !c.Binance.HasCredentials() {
			return fmt.Errorf("live mode requires binance.api_key and binance.secret_key")
		}
		if !c.Bitget.HasCredentials() || c.Bitget.Passphrase == "" {
			return fmt.Errorf("live mode requires bitget.api_key, bitget.secret_key and bitget.passphrase")
		}
	default:
		return fmt.Errorf("execution.mode must be %q or %q, got %q", ModeSimulation, ModeLive, c.Execution.Mode)
	}

	if c.Journal.Postgres.Enabled && c.Journal.Postgres.DSN == "" {
		return fmt.Errorf("journal.postgres.dsn is required when the postgres journal is enabled")
	}
	return nil
}
