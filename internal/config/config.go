package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreFile  = "file"
	StoreOxiDB = "oxidb"
)

// Secret holds a credential. It never prints or serializes its value.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s Secret) GoString() string { return "Secret([REDACTED])" }

// Value returns the raw credential.
func (s Secret) Value() string { return string(s) }

func (s Secret) IsSet() bool { return s != "" }

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

type Config struct {
	Host      string `envconfig:"LODGE_HOST" default:"localhost"`
	Port      int    `envconfig:"LODGE_PORT" default:"8000"`
	StaticDir string `envconfig:"LODGE_STATIC_DIR" default:"."`
	DataDir   string `envconfig:"LODGE_DATA_DIR" default:"data"`
	Store     string `envconfig:"LODGE_STORE" default:"file"`

	OxiDBHost string `envconfig:"OXIDB_HOST" default:"127.0.0.1"`
	OxiDBPort int    `envconfig:"OXIDB_PORT" default:"4444"`
	PoolSize  int    `envconfig:"OXIDB_POOL_SIZE" default:"3"`

	SMTPHost        string        `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort        int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername    string        `envconfig:"SMTP_USERNAME"`
	SMTPPassword    Secret        `envconfig:"SMTP_PASSWORD"`
	SMTPTLS         string        `envconfig:"SMTP_TLS" default:"mandatory"`
	NotifyRecipient string        `envconfig:"NOTIFY_RECIPIENT"`
	NotifyTimeout   time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`
	ConfirmCustomer bool          `envconfig:"NOTIFY_CONFIRM_CUSTOMER" default:"false"`

	AdminUsername     string `envconfig:"ADMIN_USERNAME"`
	AdminPassword     Secret `envconfig:"ADMIN_PASSWORD"`
	AdminPasswordHash Secret `envconfig:"ADMIN_PASSWORD_HASH"`
	JWTSecret         Secret `envconfig:"JWT_SECRET"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	GelfAddr  string `envconfig:"GELF_ADDR"`
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if c.NotifyRecipient == "" {
		c.NotifyRecipient = c.SMTPUsername
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreOxiDB:
	default:
		return fmt.Errorf("LODGE_STORE must be %q or %q, got %q", StoreFile, StoreOxiDB, c.Store)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("LODGE_PORT out of range: %d", c.Port)
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT out of range: %d", c.SMTPPort)
	}
	switch c.SMTPTLS {
	case "mandatory", "opportunistic", "none":
	default:
		return fmt.Errorf("SMTP_TLS must be mandatory, opportunistic or none, got %q", c.SMTPTLS)
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive, got %s", c.NotifyTimeout)
	}
	if c.Store == StoreOxiDB && c.PoolSize <= 0 {
		return fmt.Errorf("OXIDB_POOL_SIZE must be positive, got %d", c.PoolSize)
	}
	if c.AdminEnabled() && !c.JWTSecret.IsSet() {
		return errors.New("JWT_SECRET is required when ADMIN_USERNAME is set")
	}
	if c.AdminEnabled() && !c.AdminPassword.IsSet() && !c.AdminPasswordHash.IsSet() {
		return errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required when ADMIN_USERNAME is set")
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MailEnabled reports whether outbound mail has a sender identity.
func (c *Config) MailEnabled() bool {
	return c.SMTPUsername != ""
}

// AdminEnabled reports whether the collection endpoints require an admin token.
func (c *Config) AdminEnabled() bool {
	return c.AdminUsername != ""
}
