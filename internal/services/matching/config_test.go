package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg := ConfigFromEnv()
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("MATCH_AUTO_THRESHOLD", "95")
	t.Setenv("MATCH_DATE_WINDOW_DAYS", "30")
	t.Setenv("MATCH_AMOUNT_TOLERANCE", "0.05")

	cfg := ConfigFromEnv()
	assert.Equal(t, 95, cfg.AutoThreshold)
	assert.Equal(t, 30, cfg.DateWindowDays)
	assert.Equal(t, 0.05, cfg.AmountTolerance)
	assert.Equal(t, DefaultConfig().SuggestionThreshold, cfg.SuggestionThreshold)
}

func TestConfigFromEnvIgnoresMalformed(t *testing.T) {
	t.Setenv("MATCH_AUTO_THRESHOLD", "ninety")

	cfg := ConfigFromEnv()
	assert.Equal(t, DefaultConfig().AutoThreshold, cfg.AutoThreshold)
}
