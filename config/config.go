package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

type AppConfig struct {
	StorageConfig *StorageConfig `json:"storage" validate:"required"`
	LoggerConfig  *LoggerConfig  `json:"logger" validate:"required"`
}

func New() *AppConfig {
	return &AppConfig{
		StorageConfig: NewStorageConfig(),
		LoggerConfig:  NewLoggerConfig(),
	}
}

func (c *AppConfig) Validate() error {
	return errors.Wrap(validate.Struct(c), "invalid config")
}
