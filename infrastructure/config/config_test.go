package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"feedback_automation/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", mapLookup(nil))
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "user", cfg.Server.Username)
	assert.Equal(t, "password123", cfg.Server.Password)
	assert.Equal(t, 24*time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, entities.DefaultAutomationConfig(), cfg.Automation)
	assert.Equal(t, entities.DriverPlaywright, cfg.Browser.Driver)
	assert.Equal(t, 25*time.Second, cfg.Browser.WaitTimeout)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feedback.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":8080"
automation:
  term_value: "2"
  wait_timeout: 10s
  selectors:
    iframe_name: otherFrame
browser:
  driver: rod
  extra_args: ["lang=en-US"]
log:
  format: json
`), 0o600))

	cfg, err := load("", mapLookup(map[string]string{
		"FEEDBACK_CONFIG":     path,
		"FEEDBACK_TERM":       "3",
		"FEEDBACK_SUBMIT":     "true",
		"FEEDBACK_ROW_DELAY":  "0s",
		"APP_ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"BROWSER_HEADLESS":    "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "3", cfg.Automation.TermValue)
	assert.True(t, cfg.Automation.SubmitForm)
	assert.Equal(t, time.Duration(0), cfg.Automation.RowDelay)
	assert.Equal(t, 10*time.Second, cfg.Automation.WaitTimeout)
	assert.Equal(t, 10*time.Second, cfg.Browser.WaitTimeout)
	assert.Equal(t, "otherFrame", cfg.Automation.Selectors.IframeName)
	assert.Equal(t, "txtId2", cfg.Automation.Selectors.UsernameFieldID)
	assert.Equal(t, entities.DriverRod, cfg.Browser.Driver)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, []string{"lang=en-US"}, cfg.Browser.ExtraArgs)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadReportsBadEnv(t *testing.T) {
	_, err := load("", mapLookup(map[string]string{
		"FEEDBACK_RATING":       "four",
		"FEEDBACK_WAIT_TIMEOUT": "soon",
		"APP_METRICS":           "maybe",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FEEDBACK_RATING")
	assert.Contains(t, err.Error(), "FEEDBACK_WAIT_TIMEOUT")
	assert.Contains(t, err.Error(), "APP_METRICS")
}

func TestLoadValidates(t *testing.T) {
	_, err := load("", mapLookup(map[string]string{
		"BROWSER_DRIVER":  "lynx",
		"APP_SESSION_TTL": "-1h",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser:")
	assert.Contains(t, err.Error(), "server:")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "absent.yaml"), mapLookup(nil))
	assert.Error(t, err)
}

func TestBlankEnvIsIgnored(t *testing.T) {
	cfg, err := load("", mapLookup(map[string]string{"FEEDBACK_TERM": "  "}))
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.Automation.TermValue)
}

func TestLoginLimitFromEnv(t *testing.T) {
	cfg, err := load("", mapLookup(map[string]string{
		"APP_LOGIN_RATE":       "0.5",
		"APP_LOGIN_BURST":      "2",
		"APP_SHUTDOWN_TIMEOUT": "3s",
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Server.LoginRate)
	assert.Equal(t, 2, cfg.Server.LoginBurst)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)

	_, err = load("", mapLookup(map[string]string{"APP_LOGIN_RATE": "fast"}))
	assert.ErrorContains(t, err, "APP_LOGIN_RATE")
}
