package postgres

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	EnvURL      = "DATABASE_URL"
	EnvHost     = "POSTGRES_HOST"
	EnvPort     = "POSTGRES_PORT"
	EnvUsername = "POSTGRES_USERNAME"
	EnvPassword = "POSTGRES_PASSWORD"
	EnvDBName   = "POSTGRES_DB_NAME"
	EnvSSLMode  = "POSTGRES_SSL_MODE"
)

type Config struct {
	// URL wins over the discrete fields when set.
	URL      string
	Host     string
	Port     string
	Username string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func NewConfigFromEnv() *Config {
	return &Config{
		URL:      os.Getenv(EnvURL),
		Host:     os.Getenv(EnvHost),
		Port:     os.Getenv(EnvPort),
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
		DBName:   os.Getenv(EnvDBName),
		SSLMode:  os.Getenv(EnvSSLMode),
	}
}

func (c *Config) Setup() *Config {
	const (
		defaultHost            = "localhost"
		defaultPort            = "5432"
		defaultUsername        = "postgres"
		defaultPassword        = "postgres"
		defaultDBName          = "hft_sync"
		defaultSSLMode         = "disable"
		defaultMaxOpenConns    = 4
		defaultConnMaxLifetime = 30 * time.Minute
	)

	c.Host = cmp.Or(c.Host, defaultHost)
	c.Port = cmp.Or(c.Port, defaultPort)
	if _, err := strconv.Atoi(c.Port); err != nil {
		c.Port = defaultPort
	}
	c.Username = cmp.Or(c.Username, defaultUsername)
	c.Password = cmp.Or(c.Password, defaultPassword)
	c.DBName = cmp.Or(c.DBName, defaultDBName)
	c.SSLMode = cmp.Or(c.SSLMode, defaultSSLMode)
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = defaultMaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = defaultConnMaxLifetime
	}

	return c
}

// DSN is the connection string handed to lib/pq.
func (c *Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.DBName, c.Password, c.SSLMode,
	)
}

// String is the DSN with the password masked, safe for logs.
func (c *Config) String() string {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return "postgres://<unparsable>"
		}
		return u.Redacted()
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=*** sslmode=%s",
		c.Host, c.Port, c.Username, c.DBName, c.SSLMode,
	)
}

func NewDB(ctx context.Context, cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: can't connect to %s", err, cfg)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}
