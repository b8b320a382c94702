package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del cliente.
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Price   PriceConfig   `yaml:"price"`
	Betting BettingConfig `yaml:"betting"`
	History HistoryConfig `yaml:"history"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
}

// LedgerConfig apunta al cluster y al programa.
type LedgerConfig struct {
	RPCURL        string  `yaml:"rpc_url"`
	WSURL         string  `yaml:"ws_url"` // derivado de rpc_url si está vacío
	ProgramID     string  `yaml:"program_id"`
	FeeWallet     string  `yaml:"fee_wallet"`
	Commitment    string  `yaml:"commitment"` // processed | confirmed | finalized
	RPCRatePerSec float64 `yaml:"rpc_rate_per_sec"`
}

// WalletConfig dice de dónde sale la clave. El mnemonic sólo se lee del entorno.
type WalletConfig struct {
	KeypairPath  string `yaml:"keypair_path"`
	AccountIndex uint32 `yaml:"account_index"`
	Mnemonic     string `yaml:"-"`
	Passphrase   string `yaml:"-"`
}

// PriceConfig controla el feed de precio.
type PriceConfig struct {
	Enabled            *bool  `yaml:"enabled"`
	HermesWSURL        string `yaml:"hermes_ws_url"`
	FeedID             string `yaml:"feed_id"`
	ThrottleIntervalMS int    `yaml:"throttle_interval_ms"`
	MaxAgeSeconds      int    `yaml:"max_age_seconds"`
}

// BettingConfig es la política local de importes, en SOL.
type BettingConfig struct {
	MinAmount float64 `yaml:"min_amount"`
	MaxAmount float64 `yaml:"max_amount"`
}

// HistoryConfig controla la paginación del historial.
type HistoryConfig struct {
	PageSize  int `yaml:"page_size"`
	ScanLimit int `yaml:"scan_limit"`
}

// HTTPConfig controla la API local.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Un path vacío arranca sólo con entorno y defaults.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate comprueba lo que no tiene default posible.
func (c *Config) Validate() error {
	var errs []error
	if c.Ledger.ProgramID == "" {
		errs = append(errs, errors.New("ledger.program_id is required"))
	}
	if c.Ledger.FeeWallet == "" {
		errs = append(errs, errors.New("ledger.fee_wallet is required"))
	}
	switch c.Ledger.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("ledger.commitment %q must be processed, confirmed or finalized", c.Ledger.Commitment))
	}
	if c.Betting.MinAmount > c.Betting.MaxAmount {
		errs = append(errs, fmt.Errorf("betting.min_amount %v above max_amount %v", c.Betting.MinAmount, c.Betting.MaxAmount))
	}
	return errors.Join(errs...)
}

// PriceEnabled reports whether the price feed should run. Default on.
func (c *Config) PriceEnabled() bool {
	return c.Price.Enabled == nil || *c.Price.Enabled
}

// ThrottleInterval devuelve el intervalo mínimo entre precios emitidos.
func (c *Config) ThrottleInterval() time.Duration {
	return time.Duration(c.Price.ThrottleIntervalMS) * time.Millisecond
}

// PriceMaxAge devuelve la antigüedad máxima aceptada de un tick.
func (c *Config) PriceMaxAge() time.Duration {
	return time.Duration(c.Price.MaxAgeSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ROUNDBET_RPC_URL"); v != "" {
		cfg.Ledger.RPCURL = v
	}
	if v := os.Getenv("ROUNDBET_WS_URL"); v != "" {
		cfg.Ledger.WSURL = v
	}
	if v := os.Getenv("ROUNDBET_PROGRAM_ID"); v != "" {
		cfg.Ledger.ProgramID = v
	}
	if v := os.Getenv("ROUNDBET_FEE_WALLET"); v != "" {
		cfg.Ledger.FeeWallet = v
	}
	if v := os.Getenv("ROUNDBET_KEYPAIR"); v != "" {
		cfg.Wallet.KeypairPath = v
	}
	if v := os.Getenv("ROUNDBET_MNEMONIC"); v != "" {
		cfg.Wallet.Mnemonic = v
	}
	if v := os.Getenv("ROUNDBET_MNEMONIC_PASSPHRASE"); v != "" {
		cfg.Wallet.Passphrase = v
	}
	if v := os.Getenv("ROUNDBET_ACCOUNT_INDEX"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Wallet.AccountIndex = uint32(n)
		}
	}
	if v := os.Getenv("ROUNDBET_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Ledger.RPCURL == "" {
		cfg.Ledger.RPCURL = "https://api.devnet.solana.com"
	}
	if cfg.Ledger.WSURL == "" {
		cfg.Ledger.WSURL = wsFromRPC(cfg.Ledger.RPCURL)
	}
	if cfg.Ledger.Commitment == "" {
		cfg.Ledger.Commitment = "confirmed"
	}
	if cfg.Ledger.RPCRatePerSec <= 0 {
		cfg.Ledger.RPCRatePerSec = 8 // devnet público limita a ~10 req/s
	}
	if cfg.Price.HermesWSURL == "" {
		cfg.Price.HermesWSURL = "wss://hermes.pyth.network/ws"
	}
	if cfg.Price.FeedID == "" {
		cfg.Price.FeedID = "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"
	}
	if cfg.Price.ThrottleIntervalMS <= 0 {
		cfg.Price.ThrottleIntervalMS = 3000
	}
	if cfg.Price.MaxAgeSeconds <= 0 {
		cfg.Price.MaxAgeSeconds = 20
	}
	if cfg.Betting.MinAmount <= 0 {
		cfg.Betting.MinAmount = 0.005
	}
	if cfg.Betting.MaxAmount <= 0 {
		cfg.Betting.MaxAmount = 10
	}
	if cfg.History.PageSize <= 0 {
		cfg.History.PageSize = 10
	}
	if cfg.History.ScanLimit <= 0 {
		cfg.History.ScanLimit = 100
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = "127.0.0.1:8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// wsFromRPC maps http(s):// to ws(s):// on the same host, which is how the
// public clusters expose their pubsub endpoint.
func wsFromRPC(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	default:
		return rpcURL
	}
}
