package internal

import (
	"fmt"
	"time"

	goenv "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config is the process configuration, read from the environment.
type Config struct {
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	BlugeFilepath   string        `env:"BLUGE_FILEPATH,required=true" validate:"required"`
	LogLevel        string        `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	BufferSize      int           `env:"BUFFER_SIZE,default=1024" validate:"gt=0"`
	SinkTimeout     time.Duration `env:"SINK_TIMEOUT,default=3s" validate:"gt=0"`
	MonitorInterval time.Duration `env:"MONITOR_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	MaskedWordsFile string        `env:"MASKED_WORDS_FILE"`
	MaskCharacter   string        `env:"MASK_CHARACTER,default=*"`
}

// LoadConfig reads and validates the configuration from the environment.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := goenv.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return Config{}, fmt.Errorf("config validation: %w", err)
	}
	return config, nil
}

// MaskRune converts the configured mask character to a single rune.
func (c Config) MaskRune() (rune, error) {
	runes := []rune(c.MaskCharacter)
	if len(runes) != 1 {
		return 0, fmt.Errorf("MASK_CHARACTER must be a single character, got %q", c.MaskCharacter)
	}
	return runes[0], nil
}
