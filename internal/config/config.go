// Package config loads application configuration from environment
// variables, reading a .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/database"
)

// Config holds all runtime configuration for the booking server.
type Config struct {
	Env       string // application environment (dev, test, prod)
	Port      string // HTTP port to listen on
	LogLevel  string
	LogFormat string // text or json

	Database database.Options

	Notify NotifyConfig

	// BookingTimeout bounds the storage work of one booking.  Zero
	// disables the bound.
	BookingTimeout time.Duration

	// RabbitURL enables booking confirmations when set.
	RabbitURL      string
	BookingLogPath string
}

// NotifyConfig locates the seat-update relay and sizes the delivery pool.
type NotifyConfig struct {
	Addr         string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Workers      int
	QueueSize    int
}

// Load reads .env (if any) and the environment.  A missing or malformed
// required variable is fatal.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("could not read .env")
	}
	cfg, err := Parse()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	return cfg
}

// Parse builds a Config from the current environment.
func Parse() (Config, error) {
	var r reader
	cfg := Config{
		Env:       r.must("APP_ENV"),
		Port:      r.must("APP_PORT"),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "text"),
		Notify: NotifyConfig{
			Addr:         envStr("NOTIFY_ADDR", "localhost:5000"),
			DialTimeout:  envDur("NOTIFY_DIAL_TIMEOUT", 5*time.Second),
			WriteTimeout: envDur("NOTIFY_WRITE_TIMEOUT", 5*time.Second),
			Workers:      envInt("NOTIFY_WORKERS", 4),
			QueueSize:    envInt("NOTIFY_QUEUE_SIZE", 256),
		},
		BookingTimeout: envDur("BOOKING_TIMEOUT", 10*time.Second),
		RabbitURL:      envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		BookingLogPath: envStr("BOOKING_LOG_PATH", "logs/booking.log"),
	}

	db := database.Options{Driver: strings.ToLower(envStr("DB_DRIVER", database.DriverMySQL))}
	switch db.Driver {
	case database.DriverMySQL:
		db.User = r.must("DB_USER")
		db.Pass = os.Getenv("DB_PASS") // empty allowed
		db.Host = r.must("DB_HOST")
		db.Port = strconv.Itoa(r.mustInt("DB_PORT"))
		db.Name = r.must("DB_NAME")
	case database.DriverSQLite:
		db.Path = r.must("DB_PATH")
	default:
		r.fail(fmt.Errorf("unsupported DB_DRIVER %q", db.Driver))
	}
	cfg.Database = db

	if cfg.Notify.Workers < 1 {
		cfg.Notify.Workers = 1
	}
	if cfg.Notify.QueueSize < 1 {
		cfg.Notify.QueueSize = 1
	}
	return cfg, r.err()
}

// reader collects every problem with required variables so they are
// reported together.
type reader struct {
	errs []error
}

func (r *reader) fail(err error) { r.errs = append(r.errs, err) }

func (r *reader) err() error { return errors.Join(r.errs...) }

// must retrieves a required variable.  Unset and empty are both missing.
func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.fail(fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// mustInt is like must but the value has to be an integer.
func (r *reader) mustInt(key string) int {
	s := r.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.fail(fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}
