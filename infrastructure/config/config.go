package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Screen source configuration
	ScreenDir    string
	ScreenSource string // "file" or "dynamodb"

	// Entity snapshot directory (file-backed provider)
	EntityDir string

	// Queue storage configuration
	QueueStore string // "memory", "sqlite", or "dynamodb"
	SQLitePath string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	IndexName     string // GSI1 - status ordered queue scans
	EventBusName  string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Sync service configuration
	SyncEndpoint string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics     bool
	EnableTracing     bool
	EnableCORS        bool
	EnableScreenWatch bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		// Screen source
		ScreenDir:    getEnv("SCREEN_DIR", "./screens"),
		ScreenSource: getEnv("SCREEN_SOURCE", "file"),

		// Entity snapshots
		EntityDir: getEnv("ENTITY_DIR", "./entities"),

		// Queue storage
		QueueStore: getEnv("QUEUE_STORE", "memory"),
		SQLitePath: getEnv("SQLITE_PATH", "./fieldui.db"),

		// AWS
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "fieldui")),
		IndexName:     getEnv("INDEX_NAME", "StatusIndex"),
		EventBusName:  getEnv("EVENT_BUS_NAME", "fieldui-events"),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		// Sync service
		SyncEndpoint: getEnv("SYNC_ENDPOINT", ""),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "fieldui-sync"),

		// Logging and features
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		EnableMetrics:     getEnvBool("ENABLE_METRICS", false),
		EnableTracing:     getEnvBool("ENABLE_TRACING", false),
		EnableCORS:        getEnvBool("ENABLE_CORS", true),
		EnableScreenWatch: getEnvBool("ENABLE_SCREEN_WATCH", false),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.QueueStore == "dynamodb" && c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}

	switch c.ScreenSource {
	case "file", "dynamodb":
	default:
		return fmt.Errorf("unknown SCREEN_SOURCE %q", c.ScreenSource)
	}

	switch c.QueueStore {
	case "memory", "sqlite", "dynamodb":
	default:
		return fmt.Errorf("unknown QUEUE_STORE %q", c.QueueStore)
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
