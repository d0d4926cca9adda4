package logger

import "github.com/rs/zerolog"

type LoggerConfigJson struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

type LoggerConfig struct {
	LogLevel zerolog.Level
	Pretty   bool
}

// ConvertToDomain falls back to info for an empty or unknown level.
func (lcj LoggerConfigJson) ConvertToDomain() LoggerConfig {
	level, err := zerolog.ParseLevel(lcj.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return LoggerConfig{
		LogLevel: level,
		Pretty:   lcj.Pretty,
	}
}
