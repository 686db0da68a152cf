package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"feedback_automation/domain/entities"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	SecretKey       string        `yaml:"secret_key"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	SecureCookies   bool          `yaml:"secure_cookies"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
	LoginRate       float64       `yaml:"login_rate"`
	LoginBurst      int           `yaml:"login_burst"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Automation entities.AutomationConfig `yaml:"automation"`
	Browser    entities.BrowserOptions   `yaml:"browser"`
	Log        LogConfig                 `yaml:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":5000",
			Username:        "user",
			Password:        "password123",
			SessionTTL:      24 * time.Hour,
			AllowedOrigins:  []string{"*"},
			MetricsEnabled:  true,
			LoginRate:       1,
			LoginBurst:      5,
			ShutdownTimeout: 10 * time.Second,
		},
		Automation: entities.DefaultAutomationConfig(),
		Browser:    entities.DefaultBrowserOptions(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence. A .env file in the working
// directory is loaded first when present. path falls back to FEEDBACK_CONFIG.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup("FEEDBACK_CONFIG")
	}
	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	cfg.Browser.WaitTimeout = cfg.Automation.WaitTimeout
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML document at path onto cfg; absent keys keep their value.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	a := &cfg.Automation
	env.str("FEEDBACK_LOGIN_URL", &a.LoginURL)
	env.str("FEEDBACK_TERM", &a.TermValue)
	env.boolean("FEEDBACK_SUBMIT", &a.SubmitForm)
	env.integer("FEEDBACK_RATING", &a.DefaultRating)
	env.duration("FEEDBACK_WAIT_TIMEOUT", &a.WaitTimeout)
	env.duration("FEEDBACK_ROW_DELAY", &a.RowDelay)
	env.duration("FEEDBACK_FINAL_PAUSE", &a.FinalPause)
	env.boolean("FEEDBACK_SKIP_ROW_ERRORS", &a.SkipRowErrors)
	env.boolean("FEEDBACK_LOG_QUESTION_TEXT", &a.LogQuestionText)

	b := &cfg.Browser
	env.str("BROWSER_DRIVER", &b.Driver)
	env.boolean("BROWSER_HEADLESS", &b.Headless)
	env.str("BROWSER_DRIVER_PATH", &b.DriverPath)
	env.str("CHROME_BINARY_PATH", &b.BinaryPath)
	env.str("BROWSER_USER_DATA_DIR", &b.UserDataDir)

	s := &cfg.Server
	env.str("APP_ADDR", &s.Addr)
	env.str("APP_USERNAME", &s.Username)
	env.str("APP_PASSWORD", &s.Password)
	env.str("APP_SECRET_KEY", &s.SecretKey)
	env.duration("APP_SESSION_TTL", &s.SessionTTL)
	env.boolean("APP_SECURE_COOKIES", &s.SecureCookies)
	env.list("APP_ALLOWED_ORIGINS", &s.AllowedOrigins)
	env.boolean("APP_METRICS", &s.MetricsEnabled)
	env.float("APP_LOGIN_RATE", &s.LoginRate)
	env.integer("APP_LOGIN_BURST", &s.LoginBurst)
	env.duration("APP_SHUTDOWN_TIMEOUT", &s.ShutdownTimeout)

	env.str("LOG_LEVEL", &cfg.Log.Level)
	env.str("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(env.errs...)
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Automation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("automation: %w", err))
	}
	if err := c.Browser.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("browser: %w", err))
	}
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	return errors.Join(errs...)
}

func (s ServerConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Addr) == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if strings.TrimSpace(s.Username) == "" || s.Password == "" {
		errs = append(errs, errors.New("front-end username and password are required"))
	}
	if s.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("session ttl must be positive, got %s", s.SessionTTL))
	}
	if s.LoginRate <= 0 || s.LoginBurst <= 0 {
		errs = append(errs, errors.New("login rate and burst must be positive"))
	}
	return errors.Join(errs...)
}

// envReader applies environment overrides and collects parse errors.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return
	}
	*dst = b
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return
	}
	*dst = f
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return
	}
	*dst = d
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
