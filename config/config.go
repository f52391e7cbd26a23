package config

import (
	"medwatch/internal/logger"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset   int    `mapstructure:"DB_CACHE_RESET"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`

	// Identity provider (OIDC)
	OIDCIssuerURL string `mapstructure:"OIDC_ISSUER_URL"`
	OIDCClientID  string `mapstructure:"OIDC_CLIENT_ID"`

	// SMS gateway (server-side only, never exposed to clients)
	SMSAPIKey   string `mapstructure:"SMS_API_KEY"`
	SMSSenderID string `mapstructure:"SMS_SENDER_ID"`
	SMSBaseURL  string `mapstructure:"SMS_BASE_URL"`

	// Notification queue (asynq over the cache server)
	QueueConcurrency int `mapstructure:"QUEUE_CONCURRENCY"`

	// Evidence object storage
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`
	S3UseSSL    bool   `mapstructure:"S3_USE_SSL"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`

	// Impoundment reminder sweep
	SchedulerEnabled    bool `mapstructure:"SCHEDULER_ENABLED"`
	ReminderAfterDays   int  `mapstructure:"REMINDER_AFTER_DAYS"`
	ReminderSweepAtHour int  `mapstructure:"REMINDER_SWEEP_AT_HOUR"`
}

var ConfigInstance Config

func InitConfig() (Config, error) {
	log := logger.New("config").Function("InitConfig")
	log.Info("Initializing config")

	// Enable automatic environment variable reading first
	viper.AutomaticEnv()

	// Bind environment variables to config keys
	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
		"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
		"CORS_ALLOW_ORIGINS",
		"OIDC_ISSUER_URL", "OIDC_CLIENT_ID",
		"SMS_API_KEY", "SMS_SENDER_ID", "SMS_BASE_URL",
		"QUEUE_CONCURRENCY",
		"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_USE_SSL", "S3_BUCKET",
		"SCHEDULER_ENABLED", "REMINDER_AFTER_DAYS", "REMINDER_SWEEP_AT_HOUR",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	// Check if key environment variables are already set
	envVarsSet := viper.IsSet("SERVER_PORT") && viper.IsSet("DB_HOST")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		// Load base .env file
		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		// Load .env.local overrides if it exists
		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	applyDefaults(&config)

	err := validateConfig(config, log)
	if err != nil {
		return Config{}, err
	}
	return ConfigInstance, nil
}

func GetConfig() Config {
	return ConfigInstance
}

func applyDefaults(config *Config) {
	if config.ReminderAfterDays == 0 {
		config.ReminderAfterDays = 100
	}
	if config.QueueConcurrency == 0 {
		config.QueueConcurrency = 5
	}
	if config.S3Bucket == "" {
		config.S3Bucket = "inspection-evidence"
	}
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Error(
			"Fatal error: invalid server port",
			"port", config.ServerPort,
		)
	}

	// Validate identity provider configuration
	if config.OIDCIssuerURL != "" && config.OIDCClientID == "" {
		return log.Err(
			"Fatal error: OIDC_CLIENT_ID required when OIDC_ISSUER_URL is set",
			nil,
		)
	}

	// The SMS API key must stay server-side; warn loudly when missing so the
	// relay can answer with the misconfiguration error instead of failing late
	if config.SMSAPIKey == "" {
		log.Warn("SMS_API_KEY not set, notification dispatch will be rejected")
	}

	ConfigInstance = config
	return nil
}
