package test

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// DUOCHAT_TEST_WAIT bounds how long scenarios wait for live
	// deliveries to settle before failing.
	Wait time.Duration `envconfig:"DUOCHAT_TEST_WAIT" default:"3s"`
	Poll time.Duration `envconfig:"DUOCHAT_TEST_POLL" default:"20ms"`
	// DUOCHAT_TEST_BUFFER sizes the hub event channel for scenarios.
	BufferSize int `envconfig:"DUOCHAT_TEST_BUFFER" default:"64"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
