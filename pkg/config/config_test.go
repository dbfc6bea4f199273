package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "fallback", GetString("missing.key", "fallback"))
	assert.Equal(t, 7, GetInt("missing.int", 7))
	assert.False(t, GetBool("missing.bool"))
}

func TestAddAndLoadConfig(t *testing.T) {
	Add("unittest", func() map[string]interface{} {
		return map[string]interface{}{
			"name":    Env("UNITTEST_APP_NAME", "counter"),
			"timeout": Env("UNITTEST_TIMEOUT", 3),
		}
	})
	t.Setenv("UNITTEST_APP_NAME", "window-7")

	loadConfig()

	assert.Equal(t, "window-7", Get("unittest.name"))
	assert.Equal(t, 3*time.Second, GetDuration("unittest.timeout"))
}

func TestSetOverridesValue(t *testing.T) {
	Set("unittest_override.port", "9000")
	assert.Equal(t, 9000, GetInt("unittest_override.port", 1))
}
