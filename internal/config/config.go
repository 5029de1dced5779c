package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service settings read from the environment.
type Config struct {
	Port            string
	GinMode         string
	JWTSecret       string
	CORSOrigins     []string
	ModulesDir      string
	RequestTimeout  time.Duration
	ArchiveBucket   string
	ArchivePrefix   string
	AWSRegion       string
	SESFromEmail    string
	NotifyEmail     string
	FallbackURL     string
	DatabaseEnabled bool
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env files.
func FromEnv() Config {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        os.Getenv("GIN_MODE"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		ModulesDir:     getEnv("MODULES_DIR", "./public/modules"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		ArchiveBucket:  os.Getenv("ESTIMATE_ARCHIVE_BUCKET"),
		ArchivePrefix:  getEnv("ESTIMATE_ARCHIVE_PREFIX", "estimates/"),
		AWSRegion:      awsRegion(),
		SESFromEmail:   os.Getenv("SES_FROM_EMAIL"),
		NotifyEmail:    os.Getenv("ESTIMATE_NOTIFY_EMAIL"),
		FallbackURL:    getEnv("ESTIMATOR_FALLBACK_URL", "/estimator"),
	}
	if origins := strings.TrimSpace(os.Getenv("CORS_ORIGIN")); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	cfg.DatabaseEnabled = os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != ""
	return cfg
}

// ArchiveEnabled reports whether estimate snapshots should be written to S3.
func (c Config) ArchiveEnabled() bool { return c.ArchiveBucket != "" }

// NotifyEnabled reports whether new estimates trigger an SES email.
func (c Config) NotifyEnabled() bool { return c.SESFromEmail != "" && c.NotifyEmail != "" }

func awsRegion() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	if r := os.Getenv("AWS_DEFAULT_REGION"); r != "" {
		return r
	}
	return "eu-central-1"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("Invalid %s value: %s, using default %d", key, raw, defaultValue)
		return defaultValue
	}
	return v
}
