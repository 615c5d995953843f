package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("BLUGE_FILEPATH", t.TempDir())
}

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	setRequiredEnv(t)

	config, err := LoadConfig()
	req.NoError(err)
	req.Equal("info", config.LogLevel)
	req.Equal(1024, config.BufferSize)
	req.Equal(3*time.Second, config.SinkTimeout)
	req.Equal(200*time.Millisecond, config.RestartInterval)

	mask, err := config.MaskRune()
	req.NoError(err)
	req.Equal('*', mask)
}

func TestLoadConfig_RejectsUnknownLogLevel(t *testing.T) {
	req := require.New(t)
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "shouting")

	_, err := LoadConfig()
	req.Error(err)
}

func TestConfig_MaskRune_RejectsMultiRune(t *testing.T) {
	req := require.New(t)
	config := Config{MaskCharacter: "**"}

	_, err := config.MaskRune()
	req.Error(err)
}
