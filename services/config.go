package services

import (
	"fmt"
	"time"
)

const (
	StorageFirestore = "firestore"
	StoragePostgres  = "postgres"
)

type Config struct {
	Env     string
	Port    string
	Release string

	JWTSecret      string
	GoogleClientID string
	GoogleAPIKey   string
	SentryDSN      string

	StorageBackend string
	BrokerAddress  string
	R2BucketName   string

	SyncDebounce   time.Duration
	RenderDebounce time.Duration
	RenderTimeout  time.Duration
	CallTimeout    time.Duration
	SessionIdle    time.Duration
	RateLimit      int
}

func LoadConfig() Config {
	return Config{
		Env:            GetEnv("ENV", "local"),
		Port:           GetEnv("PORT", "8083"),
		Release:        GetEnv("RELEASE", "wardrobeapi@1.0.0"),
		JWTSecret:      GetEnv("JWT_SECRET", ""),
		GoogleClientID: GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleAPIKey:   GetEnv("GOOGLE_API_KEY", ""),
		SentryDSN:      GetEnv("SENTRY_DSN", ""),
		StorageBackend: GetEnv("STORAGE_BACKEND", StorageFirestore),
		BrokerAddress:  GetEnv("ASYNC_BROKER_ADDRESS", "localhost:6379"),
		R2BucketName:   GetEnv("R2_BUCKET_NAME", ""),
		SyncDebounce:   GetEnvDuration("SYNC_DEBOUNCE", 2000*time.Millisecond),
		RenderDebounce: GetEnvDuration("RENDER_DEBOUNCE", 0),
		RenderTimeout:  GetEnvDuration("RENDER_TIMEOUT", 90*time.Second),
		CallTimeout:    GetEnvDuration("CALL_TIMEOUT", 60*time.Second),
		SessionIdle:    GetEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		RateLimit:      GetEnvInt("RATE_LIMIT", 5),
	}
}

func (c Config) IsLocal() bool {
	return c.Env == "local"
}

// Validate reports settings the api binary cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if c.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
	}
	switch c.StorageBackend {
	case StorageFirestore, StoragePostgres:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}
