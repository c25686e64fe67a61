package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Storage  Storage  `mapstructure:"storage"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Retry    Retry    `mapstructure:"retry"`
	Upload   Upload   `mapstructure:"upload"`
	Analysis Analysis `mapstructure:"analysis"`
	Enhance  Enhance  `mapstructure:"enhance"`
	Pipeline Pipeline `mapstructure:"pipeline"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Storage holds configuration for the object storage backend.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the lifecycle-event publisher.
type Kafka struct {
	Enabled bool     `mapstructure:"enabled"` // publish item events when true
	Topic   string   `mapstructure:"topic"`   // Kafka topic name
	Brokers []string `mapstructure:"brokers"` // List of Kafka broker addresses
}

// Retry defines retry policy configuration for external calls.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Upload holds admission policy configuration.
type Upload struct {
	MaxFileSize int64 `mapstructure:"max_file_size"` // maximum accepted file size in bytes
}

// Analysis holds configuration for the content-analysis collaborator.
type Analysis struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // optional override for the API endpoint
	Model   string `mapstructure:"model"`
}

// Enhance holds timing configuration for the enhancement collaborator.
type Enhance struct {
	BaseDelay time.Duration `mapstructure:"base_delay"` // base processing duration, scaled by factor
	StepDelay time.Duration `mapstructure:"step_delay"` // upload/finalize phase duration
}

// Pipeline holds orchestrator configuration.
type Pipeline struct {
	MaxConcurrent int `mapstructure:"max_concurrent"` // 0 means unbounded
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"storage.access_key": "STORAGE_ACCESS_KEY",
		"storage.secret_key": "STORAGE_SECRET_KEY",
		"analysis.api_key":   "ANALYSIS_API_KEY",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// setDefaults registers fallback values for keys the config file may omit.
func setDefaults() {
	viper.SetDefault("upload.max_file_size", int64(50<<20))
	viper.SetDefault("analysis.model", "gpt-4o-mini")
	viper.SetDefault("enhance.base_delay", 2*time.Second)
	viper.SetDefault("enhance.step_delay", 800*time.Millisecond)
	viper.SetDefault("pipeline.max_concurrent", 0)
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
