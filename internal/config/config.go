package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	Port        string `mapstructure:"port"`
	PublicURL   string `mapstructure:"public_url"`

	// Identity
	JWTSecret string `mapstructure:"jwt_secret"`

	// Blob storage (signed upload/download URLs)
	Storage StorageConfig `mapstructure:"storage"`

	// WorkspaceCascade controls which optional children a workspace deletion
	// removes. Memberships, access requests, tickets and messages always
	// cascade; kanban tasks and assets are a deployment choice.
	WorkspaceCascade WorkspaceCascadeConfig `mapstructure:"workspace_cascade"`

	// Janitor reconciliation sweep
	JanitorIntervalMinutes int `mapstructure:"janitor_interval_minutes"`
}

type StorageConfig struct {
	S3Endpoint     string `mapstructure:"s3_endpoint"`
	S3Region       string `mapstructure:"s3_region"`
	S3Bucket       string `mapstructure:"s3_bucket"`
	S3AccessKey    string `mapstructure:"s3_access_key"`
	S3SecretKey    string `mapstructure:"s3_secret_key"`
	S3UsePathStyle bool   `mapstructure:"s3_use_path_style"`
	// Presigned URL lifetime in minutes.
	PresignTTLMinutes int `mapstructure:"presign_ttl_minutes"`
}

type WorkspaceCascadeConfig struct {
	KanbanTasks bool `mapstructure:"kanban_tasks"`
	Assets      bool `mapstructure:"assets"`
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present so 'go run' works without manually
	// exporting env vars. Missing .env is fine (Docker/production).
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	v := viper.New()

	// Defaults
	v.SetDefault("port", "8080")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_bucket", "centro-assets")
	v.SetDefault("storage.presign_ttl_minutes", 15)
	v.SetDefault("workspace_cascade.kanban_tasks", true)
	v.SetDefault("workspace_cascade.assets", true)
	v.SetDefault("janitor_interval_minutes", 30)

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("dev.config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("centro")

	// Bind standard environment variables (Docker/deploy compatibility)
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("public_url", "PUBLIC_URL")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")

	_ = v.BindEnv("storage.s3_endpoint", "S3_ENDPOINT")
	_ = v.BindEnv("storage.s3_region", "S3_REGION")
	_ = v.BindEnv("storage.s3_bucket", "S3_BUCKET")
	_ = v.BindEnv("storage.s3_access_key", "S3_ACCESS_KEY")
	_ = v.BindEnv("storage.s3_secret_key", "S3_SECRET_KEY")
	_ = v.BindEnv("storage.s3_use_path_style", "S3_USE_PATH_STYLE")

	_ = v.BindEnv("workspace_cascade.kanban_tasks", "WORKSPACE_CASCADE_KANBAN_TASKS")
	_ = v.BindEnv("workspace_cascade.assets", "WORKSPACE_CASCADE_ASSETS")
	_ = v.BindEnv("janitor_interval_minutes", "JANITOR_INTERVAL_MINUTES")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and environment variables")
		} else {
			return err
		}
	} else {
		log.Printf("Loaded config from: %s", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&App); err != nil {
		return err
	}

	// Backfill env vars for code paths that still read os.Getenv directly
	// (cmd/migrate).
	setEnvIfEmpty("DATABASE_URL", App.DatabaseURL)
	setEnvIfEmpty("REDIS_URL", App.RedisURL)
	setEnvIfEmpty("PORT", App.Port)
	setEnvIfEmpty("JWT_SECRET", App.JWTSecret)

	return nil
}

func setEnvIfEmpty(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}
