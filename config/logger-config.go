package config

type LoggerConfig struct {
	Level string `json:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
}

func NewLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level: "info",
	}
}
