/**
 * @description
 * This file handles the configuration management for the loan service.
 * It uses the Viper library to read settings from environment variables or a .env file.
 *
 * @dependencies
 * - github.com/spf13/viper: For configuration management.
 */
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	ServerPort     string `mapstructure:"SERVER_PORT"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	JWTDuration    string `mapstructure:"JWT_DURATION"`
	AppName        string `mapstructure:"APP_NAME"`
	FrontendURL    string `mapstructure:"FRONTEND_URL"`
	AdminEmail     string `mapstructure:"ADMIN_EMAIL"`
	PlaidClientID  string `mapstructure:"PLAID_CLIENT_ID"`
	PlaidSecret    string `mapstructure:"PLAID_SECRET"`
	PlaidBaseURL   string `mapstructure:"PLAID_BASE_URL"`
	AdminCreateKey string `mapstructure:"ADMIN_CREATION_TOKEN"`

	// AllowMultipleApplications lets a user hold more than one non-terminal
	// application at a time. Off in production deployments.
	AllowMultipleApplications bool `mapstructure:"ALLOW_MULTIPLE_APPLICATIONS"`
	// AllowAdminCreation gates the /auth/admin-create endpoint.
	AllowAdminCreation bool `mapstructure:"ALLOW_ADMIN_CREATION"`

	// ReconcileSweepSchedule is the cron spec for the reconciliation
	// safety-net sweep.
	ReconcileSweepSchedule string `mapstructure:"RECONCILE_SWEEP_SCHEDULE"`
	// VerificationPurgeSchedule is the cron spec for expired-code cleanup.
	VerificationPurgeSchedule string `mapstructure:"VERIFICATION_PURGE_SCHEDULE"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("JWT_DURATION", "30m")
	viper.SetDefault("APP_NAME", "loanapp")
	viper.SetDefault("PLAID_BASE_URL", "https://sandbox.plaid.com")
	viper.SetDefault("ALLOW_MULTIPLE_APPLICATIONS", false)
	viper.SetDefault("ALLOW_ADMIN_CREATION", false)
	viper.SetDefault("RECONCILE_SWEEP_SCHEDULE", "@every 15m")
	viper.SetDefault("VERIFICATION_PURGE_SCHEDULE", "@hourly")

	// Bind envs explicitly so containers pick them up reliably
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_DURATION")
	_ = viper.BindEnv("APP_NAME")
	_ = viper.BindEnv("FRONTEND_URL")
	_ = viper.BindEnv("ADMIN_EMAIL")
	_ = viper.BindEnv("PLAID_CLIENT_ID")
	_ = viper.BindEnv("PLAID_SECRET")
	_ = viper.BindEnv("PLAID_BASE_URL")
	_ = viper.BindEnv("ADMIN_CREATION_TOKEN")
	_ = viper.BindEnv("ALLOW_MULTIPLE_APPLICATIONS")
	_ = viper.BindEnv("ALLOW_ADMIN_CREATION")
	_ = viper.BindEnv("RECONCILE_SWEEP_SCHEDULE")
	_ = viper.BindEnv("VERIFICATION_PURGE_SCHEDULE")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Error reading config file: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
