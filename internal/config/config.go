package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"sentinelwatch/internal/logging"
	"sentinelwatch/internal/model"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Server     ServerConfig     `mapstructure:"server"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Solana     SolanaConfig     `mapstructure:"solana"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Network     string `mapstructure:"network"`
}

// ServerConfig covers the paid price endpoint.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Fee             float64       `mapstructure:"fee"`
	Treasury        string        `mapstructure:"treasury"`
}

// SchedulerConfig governs monitor check cadence.
type SchedulerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	SummarizeEvery int           `mapstructure:"summarize_every"`
	SummaryWindow  int           `mapstructure:"summary_window"`
	AutoPauseAfter int           `mapstructure:"auto_pause_after"`
	DrainTimeout   time.Duration `mapstructure:"drain_timeout"`
}

// OracleConfig wires the price source fallback chain.
type OracleConfig struct {
	Symbol        string          `mapstructure:"symbol"`
	Freshness     time.Duration   `mapstructure:"freshness"`
	SourceTimeout time.Duration   `mapstructure:"source_timeout"`
	Feed          FeedConfig      `mapstructure:"feed"`
	Chainlink     ChainlinkConfig `mapstructure:"chainlink"`
	Public        PublicConfig    `mapstructure:"public"`
	Baseline      float64         `mapstructure:"baseline"`
}

// FeedConfig covers the metered premium feed.
type FeedConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// ChainlinkConfig covers on-chain aggregator reads.
type ChainlinkConfig struct {
	RPCURL      string `mapstructure:"rpc_url"`
	FeedAddress string `mapstructure:"feed_address"`
}

// PublicConfig covers the free public price API.
type PublicConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	CoinID     string `mapstructure:"coin_id"`
	VsCurrency string `mapstructure:"vs_currency"`
}

// PaymentConfig governs the paying client side.
type PaymentConfig struct {
	ProviderURL string        `mapstructure:"provider_url"`
	TickTimeout time.Duration `mapstructure:"tick_timeout"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// SolanaConfig covers settlement verification and the wallet agent.
type SolanaConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	AgentURL       string        `mapstructure:"agent_url"`
	AgentToken     string        `mapstructure:"agent_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	VerifyTimeout  time.Duration `mapstructure:"verify_timeout"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. DSN empty means
// in-memory stores only.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ActivityCap     int           `mapstructure:"activity_cap"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig captures Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// SummarizerConfig covers the optional activity analysis service.
type SummarizerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SENTINELWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sentinelwatch")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.network", string(model.NetworkDevnet))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.addr", ":8402")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.fee", 0.0003)

	v.SetDefault("scheduler.interval", "30s")
	v.SetDefault("scheduler.summarize_every", 3)
	v.SetDefault("scheduler.summary_window", 12)
	v.SetDefault("scheduler.auto_pause_after", 3)
	v.SetDefault("scheduler.drain_timeout", "10s")

	v.SetDefault("oracle.symbol", "SOL")
	v.SetDefault("oracle.freshness", "5m")
	v.SetDefault("oracle.source_timeout", "4s")
	v.SetDefault("oracle.baseline", 150.0)
	v.SetDefault("oracle.public.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("oracle.public.coin_id", "solana")
	v.SetDefault("oracle.public.vs_currency", "usd")

	v.SetDefault("payment.provider_url", "http://localhost:8402")
	v.SetDefault("payment.tick_timeout", "20s")
	v.SetDefault("payment.http_timeout", "10s")
	v.SetDefault("payment.user_agent", "sentinelwatch/1.0")

	v.SetDefault("solana.rpc_url", "https://api.devnet.solana.com")
	v.SetDefault("solana.request_timeout", "10s")
	v.SetDefault("solana.verify_timeout", "10s")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.activity_cap", 1000)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("summarizer.enabled", false)
	v.SetDefault("summarizer.timeout", "8s")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if _, err := model.ParseNetwork(c.App.Network); err != nil {
		return fmt.Errorf("app.network: %w", err)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.AutoPauseAfter <= 0 {
		return fmt.Errorf("scheduler.auto_pause_after must be greater than zero")
	}
	if c.Server.Fee <= 0 {
		return fmt.Errorf("server.fee must be greater than zero")
	}
	if c.Oracle.Baseline <= 0 {
		return fmt.Errorf("oracle.baseline must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if c.Summarizer.Enabled && c.Summarizer.Endpoint == "" {
		return fmt.Errorf("summarizer.endpoint is required when summarizer.enabled")
	}
	return nil
}

// Network returns the parsed settlement network.
func (c *Config) Network() model.Network {
	network, err := model.ParseNetwork(c.App.Network)
	if err != nil {
		return model.NetworkDevnet
	}
	return network
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
