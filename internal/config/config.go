package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port          string
	Origin        string
	Environment   string
	LogLevel      string
	JWTSecret     string
	Database      DatabaseConfig
	Responses     ResponsesConfig
	Conversations ConversationsConfig
	Messages      MessagesConfig
	Notifications NotificationsConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	Username   string
	Password   string
	Name       string
	SQLitePath string
	DSN        string
}

// ResponsesConfig tunes the response ledger.
type ResponsesConfig struct {
	// UndoWindow bounds how long after completion an undo is accepted. Zero means no limit.
	UndoWindow time.Duration
}

// ConversationsConfig tunes the conversation bootstrapper.
type ConversationsConfig struct {
	BootstrapOnAccept bool
}

// MessagesConfig tunes the message channel.
type MessagesConfig struct {
	MaxContentLength int
	DefaultPageSize  int
}

// NotificationsConfig tunes the notification fan-out.
type NotificationsConfig struct {
	FanoutBatchSize int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:     getEnv("DB_DRIVER", "mysql"),
		Host:       getEnv("DB_HOST", "localhost"),
		Port:       getEnv("DB_PORT", "3306"),
		Username:   getEnv("DB_USERNAME", "root"),
		Password:   getEnv("DB_PASSWORD", ""),
		Name:       getEnv("DB_NAME", "skillswap"),
		SQLitePath: getEnv("SQLITE_PATH", "skillswap.db"),
	}

	switch dbConfig.Driver {
	case "mysql":
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	case "sqlite":
		dbConfig.DSN = dbConfig.SQLitePath
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: expected mysql or sqlite", dbConfig.Driver)
	}

	undoWindow, err := time.ParseDuration(getEnv("COMPLETION_UNDO_WINDOW", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLETION_UNDO_WINDOW: %w", err)
	}

	bootstrapOnAccept, err := strconv.ParseBool(getEnv("BOOTSTRAP_CONVERSATION_ON_ACCEPT", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOTSTRAP_CONVERSATION_ON_ACCEPT: %w", err)
	}

	maxContentLength, err := strconv.Atoi(getEnv("MESSAGE_MAX_LENGTH", "2000"))
	if err != nil {
		return nil, fmt.Errorf("invalid MESSAGE_MAX_LENGTH: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnv("MESSAGE_PAGE_SIZE", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid MESSAGE_PAGE_SIZE: %w", err)
	}

	batchSize, err := strconv.Atoi(getEnv("FANOUT_BATCH_SIZE", "200"))
	if err != nil {
		return nil, fmt.Errorf("invalid FANOUT_BATCH_SIZE: %w", err)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("invalid FANOUT_BATCH_SIZE: must be positive, got %d", batchSize)
	}

	return &Config{
		Port:          getEnv("PORT", "3001"),
		Origin:        getEnv("ORIGIN", "http://localhost:5173"),
		Environment:   getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		JWTSecret:     getEnv("JWT_SECRET", "default_jwt_secret"),
		Database:      dbConfig,
		Responses:     ResponsesConfig{UndoWindow: undoWindow},
		Conversations: ConversationsConfig{BootstrapOnAccept: bootstrapOnAccept},
		Messages: MessagesConfig{
			MaxContentLength: maxContentLength,
			DefaultPageSize:  pageSize,
		},
		Notifications: NotificationsConfig{FanoutBatchSize: batchSize},
	}, nil
}

// Default returns the configuration used when no environment is present.
func Default() *Config {
	return &Config{
		Port:          "3001",
		Environment:   "development",
		LogLevel:      "info",
		Conversations: ConversationsConfig{BootstrapOnAccept: true},
		Messages:      MessagesConfig{MaxContentLength: 2000, DefaultPageSize: 50},
		Notifications: NotificationsConfig{FanoutBatchSize: 200},
	}
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
