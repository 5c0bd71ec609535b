package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Database
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"scheduler"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// RabbitMQ; empty URL disables audit publishing and the holiday feed
	RabbitURL string `envconfig:"RABBIT_URL"`

	// Holiday scope and handling
	OrgCountry        string `envconfig:"ORG_COUNTRY" default:"IN"`
	OrgState          string `envconfig:"ORG_STATE"`
	HolidayPolicy     string `envconfig:"HOLIDAY_POLICY" default:"drop"`
	HolidayWindowDays int    `envconfig:"HOLIDAY_WINDOW_DAYS" default:"365"`

	// Booking policy
	AllowUnpaidNonRegular bool `envconfig:"ALLOW_UNPAID_NON_REGULAR" default:"true"`

	// Retry bounds for transient store failures
	RetryAttempts uint          `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"RETRY_DELAY" default:"100ms"`
}

func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
