package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/ibeckermayer/rewards4me/internal/auth"
)

// EnvPrefix prefixes environment overrides, e.g. REWARDS4ME_BROWSER_HEADLESS
const EnvPrefix = "REWARDS4ME"

// Config holds all application configuration
type Config struct {
	Version  int             `toml:"version" mapstructure:"version"`
	Accounts []AccountConfig `toml:"accounts" mapstructure:"accounts"`
	Browser  BrowserConfig   `toml:"browser" mapstructure:"browser"`
	Login    LoginConfig     `toml:"login" mapstructure:"login"`
	Schedule ScheduleConfig  `toml:"schedule" mapstructure:"schedule"`
	Logger   LoggerConfig    `toml:"logger" mapstructure:"logger"`
	Notify   NotifyConfig    `toml:"notify" mapstructure:"notify"`
	Store    StoreConfig     `toml:"store" mapstructure:"store"`
}

// AccountConfig is one Microsoft account. The password may be given inline
// or through the environment variable named by PasswordEnv.
type AccountConfig struct {
	Email       string   `toml:"email" mapstructure:"email"`
	Password    string   `toml:"password,omitempty" mapstructure:"password"`
	PasswordEnv string   `toml:"password_env,omitempty" mapstructure:"password_env"`
	Devices     []string `toml:"devices,omitempty" mapstructure:"devices"`
}

type BrowserConfig struct {
	Headless      bool          `toml:"headless" mapstructure:"headless"`
	ActionTimeout time.Duration `toml:"action_timeout" mapstructure:"action_timeout"`
}

// LoginConfig tunes the sign-in flow. Every wait is bounded by one of these.
type LoginConfig struct {
	SessionDir            string        `toml:"session_dir" mapstructure:"session_dir"`
	SessionProbe          time.Duration `toml:"session_probe" mapstructure:"session_probe"`
	LockProbe             time.Duration `toml:"lock_probe" mapstructure:"lock_probe"`
	PasswordField         time.Duration `toml:"password_field" mapstructure:"password_field"`
	PasswordPause         time.Duration `toml:"password_pause" mapstructure:"password_pause"`
	ChallengeProbe        time.Duration `toml:"challenge_probe" mapstructure:"challenge_probe"`
	PushApproval          time.Duration `toml:"push_approval" mapstructure:"push_approval"`
	Authenticated         time.Duration `toml:"authenticated" mapstructure:"authenticated"`
	Convergence           time.Duration `toml:"convergence" mapstructure:"convergence"`
	PollInterval          time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	SecondaryProbe        time.Duration `toml:"secondary_probe" mapstructure:"secondary_probe"`
	SecondaryRetry        time.Duration `toml:"secondary_retry" mapstructure:"secondary_retry"`
	SecondaryIterations   int           `toml:"secondary_iterations" mapstructure:"secondary_iterations"`
	SkipSecondaryOnMobile bool          `toml:"skip_secondary_on_mobile" mapstructure:"skip_secondary_on_mobile"`
}

type ScheduleConfig struct {
	Cron       string        `toml:"cron" mapstructure:"cron"`
	Timezone   string        `toml:"timezone" mapstructure:"timezone"`
	JobTimeout time.Duration `toml:"job_timeout" mapstructure:"job_timeout"`
	RunOnStart bool          `toml:"run_on_start" mapstructure:"run_on_start"`
}

// LoggerConfig holds the configuration for the logger.
type LoggerConfig struct {
	Level      string      `toml:"level" mapstructure:"level"`
	Format     string      `toml:"format" mapstructure:"format"`
	AddSource  bool        `toml:"add_source" mapstructure:"add_source"`
	Name       string      `toml:"name" mapstructure:"name"`
	LogFile    string      `toml:"log_file" mapstructure:"log_file"`
	MaxSize    int         `toml:"max_size" mapstructure:"max_size"`
	MaxBackups int         `toml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int         `toml:"max_age" mapstructure:"max_age"`
	Compress   bool        `toml:"compress" mapstructure:"compress"`
	Colors     ColorConfig `toml:"colors" mapstructure:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `toml:"debug" mapstructure:"debug"`
	Info  string `toml:"info" mapstructure:"info"`
	Warn  string `toml:"warn" mapstructure:"warn"`
	Error string `toml:"error" mapstructure:"error"`
}

// NotifyConfig configures the failure alert mail
type NotifyConfig struct {
	Enabled  bool   `toml:"enabled" mapstructure:"enabled"`
	SMTPHost string `toml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort int    `toml:"smtp_port" mapstructure:"smtp_port"`
	SMTPUser string `toml:"smtp_user" mapstructure:"smtp_user"`
	SMTPPass string `toml:"smtp_pass" mapstructure:"smtp_pass"`
	FromAddr string `toml:"from_address" mapstructure:"from_address"`
	ToAddr   string `toml:"to_address" mapstructure:"to_address"`
}

type StoreConfig struct {
	Path string `toml:"path" mapstructure:"path"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	t := auth.DefaultTimeouts()
	return &Config{
		Version: 1,
		Browser: BrowserConfig{
			Headless:      true,
			ActionTimeout: 30 * time.Second,
		},
		Login: LoginConfig{
			SessionProbe:          t.SessionProbe,
			LockProbe:             t.LockProbe,
			PasswordField:         t.PasswordField,
			PasswordPause:         t.PasswordPause,
			ChallengeProbe:        t.ChallengeProbe,
			PushApproval:          t.PushApproval,
			Authenticated:         t.Authenticated,
			Convergence:           t.Convergence,
			PollInterval:          500 * time.Millisecond,
			SecondaryProbe:        t.SecondaryProbe,
			SecondaryRetry:        t.SecondaryRetry,
			SecondaryIterations:   auth.DefaultSecondaryIterations,
			SkipSecondaryOnMobile: true,
		},
		Schedule: ScheduleConfig{
			Cron:       "0 7 * * *",
			Timezone:   "Local",
			JobTimeout: 30 * time.Minute,
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "console",
			Name:       "rewards4me",
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
			Colors: ColorConfig{
				Debug: "cyan",
				Info:  "green",
				Warn:  "yellow",
				Error: "red",
			},
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
		},
	}
}

// SetDefaults registers every default with v so env overrides apply to them
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("version", d.Version)

	// -- Browser --
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.action_timeout", d.Browser.ActionTimeout)

	// -- Login --
	v.SetDefault("login.session_dir", d.Login.SessionDir)
	v.SetDefault("login.session_probe", d.Login.SessionProbe)
	v.SetDefault("login.lock_probe", d.Login.LockProbe)
	v.SetDefault("login.password_field", d.Login.PasswordField)
	v.SetDefault("login.password_pause", d.Login.PasswordPause)
	v.SetDefault("login.challenge_probe", d.Login.ChallengeProbe)
	v.SetDefault("login.push_approval", d.Login.PushApproval)
	v.SetDefault("login.authenticated", d.Login.Authenticated)
	v.SetDefault("login.convergence", d.Login.Convergence)
	v.SetDefault("login.poll_interval", d.Login.PollInterval)
	v.SetDefault("login.secondary_probe", d.Login.SecondaryProbe)
	v.SetDefault("login.secondary_retry", d.Login.SecondaryRetry)
	v.SetDefault("login.secondary_iterations", d.Login.SecondaryIterations)
	v.SetDefault("login.skip_secondary_on_mobile", d.Login.SkipSecondaryOnMobile)

	// -- Schedule --
	v.SetDefault("schedule.cron", d.Schedule.Cron)
	v.SetDefault("schedule.timezone", d.Schedule.Timezone)
	v.SetDefault("schedule.job_timeout", d.Schedule.JobTimeout)
	v.SetDefault("schedule.run_on_start", d.Schedule.RunOnStart)

	// -- Logger --
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.add_source", d.Logger.AddSource)
	v.SetDefault("logger.name", d.Logger.Name)
	v.SetDefault("logger.log_file", d.Logger.LogFile)
	v.SetDefault("logger.max_size", d.Logger.MaxSize)
	v.SetDefault("logger.max_backups", d.Logger.MaxBackups)
	v.SetDefault("logger.max_age", d.Logger.MaxAge)
	v.SetDefault("logger.compress", d.Logger.Compress)
	v.SetDefault("logger.colors.debug", d.Logger.Colors.Debug)
	v.SetDefault("logger.colors.info", d.Logger.Colors.Info)
	v.SetDefault("logger.colors.warn", d.Logger.Colors.Warn)
	v.SetDefault("logger.colors.error", d.Logger.Colors.Error)

	// -- Notify --
	v.SetDefault("notify.enabled", d.Notify.Enabled)
	v.SetDefault("notify.smtp_host", d.Notify.SMTPHost)
	v.SetDefault("notify.smtp_port", d.Notify.SMTPPort)
	v.SetDefault("notify.smtp_user", d.Notify.SMTPUser)
	v.SetDefault("notify.smtp_pass", d.Notify.SMTPPass)
	v.SetDefault("notify.from_address", d.Notify.FromAddr)
	v.SetDefault("notify.to_address", d.Notify.ToAddr)

	// -- Store --
	v.SetDefault("store.path", d.Store.Path)
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "rewards4me"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// SessionsDir returns where session files live
func (c *Config) SessionsDir() (string, error) {
	if c.Login.SessionDir != "" {
		return c.Login.SessionDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions"), nil
}

// HistoryPath returns the login history database path
func (c *Config) HistoryPath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Load reads config from the default path
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the TOML file at path on top of the defaults and applies
// REWARDS4ME_* environment overrides.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return NewConfigFromViper(v)
}

// NewConfigFromViper decodes and validates the configuration held by v
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// EnsureExists writes the default config if none exists yet
func EnsureExists() (path string, created bool, err error) {
	path, err = ConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, err
	}
	if err := Default().SaveTo(path); err != nil {
		return "", false, err
	}
	return path, true, nil
}

// Save writes config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if !strings.Contains(a.Email, "@") {
			return fmt.Errorf("accounts[%d].email must be an email address", i)
		}
		key := strings.ToLower(a.Email)
		if seen[key] {
			return fmt.Errorf("accounts[%d].email %s is listed twice", i, a.Email)
		}
		seen[key] = true
		if _, err := a.DeviceClasses(); err != nil {
			return fmt.Errorf("accounts[%d].devices: %w", i, err)
		}
	}

	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be positive")
	}
	if c.Login.Convergence < 0 {
		return fmt.Errorf("login.convergence must not be negative")
	}
	if c.Login.PollInterval < 0 {
		return fmt.Errorf("login.poll_interval must not be negative")
	}
	if c.Login.SecondaryIterations <= 0 {
		return fmt.Errorf("login.secondary_iterations must be a positive integer")
	}

	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}

	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}

	if c.Notify.Enabled && (c.Notify.SMTPHost == "" || c.Notify.FromAddr == "" || c.Notify.ToAddr == "") {
		return fmt.Errorf("notify.smtp_host, notify.from_address and notify.to_address are required when notify is enabled")
	}
	return nil
}

// DeviceClasses returns the device classes to log in with, desktop then
// mobile when none are configured.
func (a AccountConfig) DeviceClasses() ([]auth.DeviceClass, error) {
	if len(a.Devices) == 0 {
		return []auth.DeviceClass{auth.Desktop, auth.Mobile}, nil
	}
	classes := make([]auth.DeviceClass, 0, len(a.Devices))
	for _, d := range a.Devices {
		class, err := auth.ParseDeviceClass(d)
		if err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	return classes, nil
}

// ResolvePassword prefers the environment variable over the inline password
func (a AccountConfig) ResolvePassword() string {
	if a.PasswordEnv != "" {
		if pw := os.Getenv(a.PasswordEnv); pw != "" {
			return pw
		}
	}
	return a.Password
}

// Account finds the configured account for email
func (c *Config) Account(email string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if strings.EqualFold(a.Email, email) {
			return a, true
		}
	}
	return AccountConfig{}, false
}
