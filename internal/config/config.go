/**
 * @description
 * This file handles configuration management for the compte service.
 * It loads settings from environment variables, providing defaults for the
 * HTTP port, the archiving job schedule and the sweep time budget.
 */
package config

import (
	"errors"

	"github.com/spf13/viper"
)

// Config holds all configuration for the compte service.
type Config struct {
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	ArchiveDatabaseURL   string `mapstructure:"ARCHIVE_DATABASE_URL"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	ServerPort           string `mapstructure:"SERVER_PORT"`
	ArchivingJobSchedule string `mapstructure:"ARCHIVING_JOB_SCHEDULE"`
	SweepBudgetSeconds   int    `mapstructure:"SWEEP_BUDGET_SECONDS"`
	InternalAPIKey       string `mapstructure:"INTERNAL_API_KEY"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("ARCHIVING_JOB_SCHEDULE", "0 * * * *") // At the start of every hour.
	viper.SetDefault("SWEEP_BUDGET_SECONDS", 300)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("ARCHIVE_DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("ARCHIVING_JOB_SCHEDULE")
	_ = viper.BindEnv("SWEEP_BUDGET_SECONDS")
	_ = viper.BindEnv("INTERNAL_API_KEY")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return &config, nil
}
