package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the application.
// Note: Password is prompted at runtime and stored in memory - use GetPasswordBytes()
type Config struct {
	Port              string        `envconfig:"PORT" default:"8080"`
	BaseURL           string        `envconfig:"AGENT_BASE_URL" default:"https://api.explorer.provable.com/v1"`
	Network           string        `envconfig:"AGENT_NETWORK" default:"mainnet"`
	KeystorePath      string        `envconfig:"AGENT_KEYSTORE_PATH" required:"true"`
	ProverURL         string        `envconfig:"AGENT_PROVER_URL"`
	PayCooldown       int           `envconfig:"PAY_COOLDOWN_MINUTES" default:"4"`
	RequestsPerSecond int           `envconfig:"AGENT_REQUESTS_PER_SECOND" default:"10"`
	HTTPTimeout       time.Duration `envconfig:"AGENT_HTTP_TIMEOUT" default:"30s"`
	ScanLookahead     int           `envconfig:"AGENT_SCAN_LOOKAHEAD" default:"1"`
	StorePath         string        `envconfig:"AGENT_STORE_PATH"`
	ScryptLogN        uint8         `envconfig:"AGENT_SCRYPT_N" default:"18"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"INFO"`
	LogFile           string        `envconfig:"LOG_FILE"`
	LogMaxSizeMB      int           `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	LogMaxAgeDays     int           `envconfig:"LOG_MAX_AGE_DAYS" default:"28"`
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.PayCooldown < 0 {
		return errors.New("PAY_COOLDOWN_MINUTES must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("AGENT_REQUESTS_PER_SECOND must not be negative")
	}
	if c.ScanLookahead < 1 {
		return errors.New("AGENT_SCAN_LOOKAHEAD must be at least 1")
	}
	if c.ScryptLogN == 0 || c.ScryptLogN > 30 {
		return errors.New("AGENT_SCRYPT_N must be between 1 and 30")
	}
	return nil
}

// cfg is the global configuration instance
var cfg *Config

// Load reads configuration from environment variables without touching the
// global instance.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// Init loads configuration from environment variables.
func Init() error {
	c, err := Load()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetPayCooldown returns cooldown from configuration
func GetPayCooldown() time.Duration {
	return time.Duration(Get().PayCooldown) * time.Minute
}

// GetKeystorePath returns path to the key backup file from configuration
func GetKeystorePath() string {
	return Get().KeystorePath
}

var passwordBytes []byte

// PromptForPassword prompts the user for the backup password in the terminal.
// The password is read without echoing (hidden input) and stored in memory.
// Call this at startup before the server begins handling requests.
func PromptForPassword() error {
	raw, err := ReadPassword("Enter backup password: ")
	if err != nil {
		return err
	}
	SetPassword(raw)
	clear(raw)
	return nil
}

// ReadPassword reads one non-empty password from the terminal without echo.
func ReadPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	return raw, nil
}

// SetPassword stores a copy of password in memory.
func SetPassword(password []byte) {
	clear(passwordBytes)
	passwordBytes = make([]byte, len(password))
	copy(passwordBytes, password)
}

// GetPasswordBytes returns the password stored in memory (from PromptForPassword).
// Returns an error if the password was not set.
// Caller must zero the returned slice after use for security.
func GetPasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}
