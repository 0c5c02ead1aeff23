package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime setting read from the environment (.env is loaded by main).
type Config struct {
	Production bool
	ListenAddr string
	EntryURL   string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	CookieAuthKey  string
	CookieDuration time.Duration
	AllowedOrigins []string
	BcryptCost     int

	StorageBackend      string // cloudinary | s3
	CloudinaryURL       string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	S3Bucket            string
	S3Region            string
	S3Endpoint          string
	S3AccessKey         string
	S3SecretKey         string
	S3PublicURL         string

	UploadFolder           string
	UploadMaxBytes         int64
	UploadProgressInterval time.Duration
	StoreTimeout           time.Duration
	RecentsSource          string // database | provider

	RedisURL      string
	RateLimitAuth string
	AMQPURL       string

	EmailEnabled  bool
	EmailFrom     string
	EmailHost     string
	EmailPort     int
	EmailUser     string
	EmailPassword string

	MetricsPassword string
}

// Load reads the environment and applies defaults. Malformed numeric or duration
// values are reported as errors rather than silently ignored.
func Load() (*Config, error) {
	cfg := &Config{
		Production: IsProduction(),
		ListenAddr: fmt.Sprintf("%s:%s", os.Getenv("LISTEN_ADDR"), getEnv("LISTEN_PORT", "8080")),
		EntryURL:   getEnv("APP_ENTRY_URL", "/"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "printdock"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		CookieAuthKey:  os.Getenv("COOKIE_AUTH_KEY"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),

		StorageBackend:      strings.ToLower(getEnv("STORAGE_BACKEND", "cloudinary")),
		CloudinaryURL:       os.Getenv("CLOUDINARY_URL"),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		S3Region:            getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:          os.Getenv("S3_ENDPOINT"),
		S3AccessKey:         os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:         os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:         os.Getenv("S3_PUBLIC_URL"),

		UploadFolder:  getEnv("UPLOAD_FOLDER", "Printing"),
		RecentsSource: strings.ToLower(getEnv("RECENTS_SOURCE", "database")),

		RedisURL:      os.Getenv("REDIS_URL"),
		RateLimitAuth: getEnv("RATE_LIMIT_AUTH", "20-M"),
		AMQPURL:       os.Getenv("AMQP_URL"),

		EmailEnabled:  strings.EqualFold(os.Getenv("EMAIL_ENABLED"), "true"),
		EmailFrom:     os.Getenv("EMAIL_ADDRESS"),
		EmailHost:     getEnv("EMAIL_HOST", "localhost"),
		EmailUser:     os.Getenv("EMAIL_USER"),
		EmailPassword: os.Getenv("EMAIL_PASSWORD"),

		MetricsPassword: os.Getenv("METRICS_PASSWORD"),
	}

	var err error
	if cfg.CookieDuration, err = getDuration("COOKIE_DURATION", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.UploadProgressInterval, err = getDuration("UPLOAD_PROGRESS_INTERVAL", 250*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.EmailPort, err = getInt("EMAIL_PORT", 587); err != nil {
		return nil, err
	}
	maxBytes, err := getInt("UPLOAD_MAX_BYTES", 100<<20)
	if err != nil {
		return nil, err
	}
	cfg.UploadMaxBytes = int64(maxBytes)

	if cfg.CookieAuthKey == "" {
		return nil, fmt.Errorf("COOKIE_AUTH_KEY is required")
	}
	switch cfg.StorageBackend {
	case "cloudinary", "s3":
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND '%s'", cfg.StorageBackend)
	}
	switch cfg.RecentsSource {
	case "database", "provider":
	default:
		return nil, fmt.Errorf("invalid RECENTS_SOURCE '%s'", cfg.RecentsSource)
	}
	return cfg, nil
}

// Environment returns ENVIROMENT, falling back to ENVIRONMENT.
func Environment() string {
	return firstNonEmpty(os.Getenv("ENVIROMENT"), os.Getenv("ENVIRONMENT"))
}

func IsProduction() bool {
	return strings.EqualFold(Environment(), "Production")
}

// DSN returns the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", key, v, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
