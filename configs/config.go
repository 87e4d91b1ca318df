package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	graphHost       = "https://graph.facebook.com"
	DefaultGraphURL = graphHost + "/v20.0"
)

type Instagram struct {
	AccessToken       string
	AccountID         string
	GraphURL          string
	AppAccessToken    string
	HTTPTimeout       time.Duration
	MaxRetries        int
	RequestsPerSecond float64
}

type Database struct {
	Host     string
	Name     string
	User     string
	Password string
	Port     int
	SSLMode  string
}

// DSN renders the connection parameters as a lib/pq keyword string. Values
// are single-quoted so spaces, quotes and backslashes survive.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSN(d.Host), d.Port, quoteDSN(d.User), quoteDSN(d.Password), quoteDSN(d.Name), quoteDSN(d.SSLMode))
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteDSN(v string) string {
	return "'" + dsnEscaper.Replace(v) + "'"
}

type Storage struct {
	BucketName    string
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	PublicBaseURL string
}

type Config struct {
	Instagram          Instagram
	Database           Database
	Storage            Storage
	OptimalPostingHour int
	ServerAddr         string
	APIKey             string
	IngestSchedule     string
	PushgatewayURL     string
	LogLevel           string
	LogFormat          string
}

func LoadConfig() *Config {
	return &Config{
		Instagram: Instagram{
			AccessToken:       getEnv("IG_ACCESS_TOKEN", ""),
			AccountID:         getEnv("IG_ACCOUNT_ID", ""),
			GraphURL:          getEnv("IG_GRAPH_URL", graphURL(getEnv("GRAPH_API_VERSION", ""))),
			AppAccessToken:    getEnv("IG_APP_ACCESS_TOKEN", ""),
			HTTPTimeout:       getEnvDuration("IG_HTTP_TIMEOUT", 15*time.Second),
			MaxRetries:        getEnvInt("IG_HTTP_RETRIES", 2),
			RequestsPerSecond: getEnvFloat("IG_REQUESTS_PER_SECOND", 0),
		},
		Database: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Name:     getEnv("DB_NAME", ""),
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Port:     getEnvInt("DB_PORT", 5432),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Storage: Storage{
			BucketName:    getEnv("S3_BUCKET_NAME", ""),
			Region:        getEnv("S3_REGION", ""),
			AccessKey:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretKey:     getEnv("S3_SECRET_ACCESS_KEY", ""),
			Endpoint:      getEnv("S3_ENDPOINT", ""),
			PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		},
		OptimalPostingHour: getEnvInt("OPTIMAL_POSTING_HOUR", 16),
		ServerAddr:         getEnv("SERVER_ADDR", ":3000"),
		APIKey:             getEnv("API_KEY", ""),
		IngestSchedule:     getEnv("INGEST_SCHEDULE", ""),
		PushgatewayURL:     getEnv("PUSHGATEWAY_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
	}
}

// Validate reports the settings an ingestion run cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Instagram.AccessToken == "" {
		errs = append(errs, errors.New("IG_ACCESS_TOKEN is not set"))
	}
	if c.Instagram.AccountID == "" {
		errs = append(errs, errors.New("IG_ACCOUNT_ID is not set"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("DB_NAME is not set"))
	}
	if c.Instagram.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("IG_HTTP_RETRIES must not be negative, got %d", c.Instagram.MaxRetries))
	}
	if c.OptimalPostingHour < 0 || c.OptimalPostingHour > 23 {
		errs = append(errs, fmt.Errorf("OPTIMAL_POSTING_HOUR must be within 0-23, got %d", c.OptimalPostingHour))
	}
	return errors.Join(errs...)
}

// graphURL pins the public Graph host to an API version such as "v21.0".
func graphURL(version string) string {
	if version == "" {
		return DefaultGraphURL
	}
	return graphHost + "/" + version
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
