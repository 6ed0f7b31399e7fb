package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// Vault modes
const (
	VaultModeSPL    = "spl"
	VaultModeLedger = "ledger"
)

// Config holds all configuration parameters for the application
type Config struct {
	HTTPAddr         string        `yaml:"http_addr"`
	DataDir          string        `yaml:"data_dir"`
	DBPath           string        `yaml:"db_path"`
	SolanaRpcURL     string        `yaml:"solana_rpc_url"`
	VaultMode        string        `yaml:"vault_mode"`
	VaultPrivateKey  string        `yaml:"vault_private_key"`
	LedgerBalance    uint64        `yaml:"ledger_balance"` // Initial balance in ledger mode
	TokenMint        string        `yaml:"token_mint"`
	TokenDecimals    int           `yaml:"token_decimals"`
	ProgramID        string        `yaml:"program_id"`
	ConfirmTimeout   time.Duration `yaml:"confirm_timeout"`
	ComputeUnitLimit uint32        `yaml:"compute_unit_limit"`
	ComputeUnitPrice uint64        `yaml:"compute_unit_price"` // micro-lamports per compute unit
	SkipPreflight    bool          `yaml:"skip_preflight"`
	SignatureMaxAge  time.Duration `yaml:"signature_max_age"`
	StatusInterval   time.Duration `yaml:"status_interval"`
	TelegramBotToken string        `yaml:"telegram_bot_token"`
	TelegramChatID   string        `yaml:"telegram_chat_id"`
	EnableTelegram   bool          `yaml:"enable_telegram"`
	EventsDataDir    string        `yaml:"events_data_dir"` // Directory for the claim CSV log
	Debug            bool          `yaml:"debug"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		HTTPAddr:         ":8080",
		DataDir:          "./data",
		SolanaRpcURL:     "https://api.mainnet-beta.solana.com",
		VaultMode:        VaultModeSPL,
		TokenDecimals:    9,
		ConfirmTimeout:   90 * time.Second,
		ComputeUnitLimit: 80_000,
		ComputeUnitPrice: 50_000,
		SignatureMaxAge:  5 * time.Minute,
		StatusInterval:   time.Hour,
	}
}

// NewConfig creates a new configuration with default values or from environment variables
func NewConfig() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// environment variables on top. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	logger := log.New(os.Stdout, "[CONFIG] ", log.LstdFlags)

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		logger.Printf("Loaded configuration from %s", path)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.VaultMode == VaultModeLedger {
		logger.Printf("WARNING: ledger vault mode, no tokens will move on chain")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.SolanaRpcURL = getEnv("SOLANA_RPC_URL", c.SolanaRpcURL)
	c.VaultMode = getEnv("VAULT_MODE", c.VaultMode)
	c.VaultPrivateKey = getEnv("VAULT_PRIVATE_KEY", c.VaultPrivateKey)
	c.LedgerBalance = parseEnvUint("LEDGER_BALANCE", c.LedgerBalance)
	c.TokenMint = getEnv("TOKEN_MINT", c.TokenMint)
	c.TokenDecimals = int(parseEnvUint("TOKEN_DECIMALS", uint64(c.TokenDecimals)))
	c.ProgramID = getEnv("PROGRAM_ID", c.ProgramID)
	c.ConfirmTimeout = parseEnvDuration("CONFIRM_TIMEOUT", c.ConfirmTimeout)
	c.ComputeUnitLimit = uint32(parseEnvUint("COMPUTE_UNIT_LIMIT", uint64(c.ComputeUnitLimit)))
	c.ComputeUnitPrice = parseEnvUint("COMPUTE_UNIT_PRICE", c.ComputeUnitPrice)
	c.SkipPreflight = getEnvBool("SKIP_PREFLIGHT", c.SkipPreflight)
	c.SignatureMaxAge = parseEnvDuration("SIGNATURE_MAX_AGE", c.SignatureMaxAge)
	c.StatusInterval = parseEnvDuration("STATUS_INTERVAL", c.StatusInterval)
	c.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.TelegramChatID)
	c.EnableTelegram = getEnvBool("ENABLE_TELEGRAM", c.EnableTelegram)
	c.EventsDataDir = getEnv("EVENTS_DATA_DIR", c.EventsDataDir)
	c.Debug = getEnvBool("DEBUG", c.Debug)
}

// Validate checks that the settings needed to run the service are present
func (c *Config) Validate() error {
	if _, err := c.Mint(); err != nil {
		return err
	}
	if _, err := c.Program(); err != nil {
		return err
	}
	switch c.VaultMode {
	case VaultModeSPL:
		if _, err := c.VaultKey(); err != nil {
			return err
		}
	case VaultModeLedger:
	default:
		return fmt.Errorf("unknown vault mode %q", c.VaultMode)
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"confirm timeout", c.ConfirmTimeout},
		{"signature max age", c.SignatureMaxAge},
		{"status interval", c.StatusInterval},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	return nil
}

// Mint returns the distributed token mint
func (c *Config) Mint() (solana.PublicKey, error) {
	if c.TokenMint == "" {
		return solana.PublicKey{}, fmt.Errorf("token mint not configured")
	}
	mint, err := solana.PublicKeyFromBase58(c.TokenMint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid token mint: %w", err)
	}
	return mint, nil
}

// Program returns the program id distributors are derived under, nil
// meaning the built-in default
func (c *Config) Program() (*solana.PublicKey, error) {
	if c.ProgramID == "" {
		return nil, nil
	}
	id, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}
	return &id, nil
}

// VaultKey returns the vault authority key
func (c *Config) VaultKey() (solana.PrivateKey, error) {
	if c.VaultPrivateKey == "" {
		return nil, fmt.Errorf("vault private key not configured")
	}
	key, err := solana.PrivateKeyFromBase58(c.VaultPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// DatabasePath returns DBPath, defaulting to a file inside DataDir
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "distributor.db")
}

// EventsDir returns the claim log directory
func (c *Config) EventsDir() string {
	if c.EventsDataDir != "" {
		return c.EventsDataDir
	}
	return filepath.Join(c.DataDir, "claims")
}

// Helper functions for working with environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func parseEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func parseEnvUint(key string, defaultValue uint64) uint64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
