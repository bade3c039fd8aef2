package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/tracing"
)

type Config struct {
	AppConfig          *AppConfig
	Logger             *logger.Config
	Tracing            *tracing.JaegerConfig
	MailboxConfig      *MailboxConfig
	DatabaseConfig     *DatabaseConfig
	S3StorageConfig    *S3StorageConfig
	NotificationConfig *NotificationConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:          &AppConfig{},
		Logger:             &logger.Config{},
		Tracing:            &tracing.JaegerConfig{},
		MailboxConfig:      &MailboxConfig{},
		DatabaseConfig:     &DatabaseConfig{},
		S3StorageConfig:    &S3StorageConfig{},
		NotificationConfig: &NotificationConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
