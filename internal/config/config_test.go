package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/rewards4me/internal/auth"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestSaveAndLoad_DefaultsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, Default().SaveTo(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, ""))
	require.NoError(t, err)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 2*time.Minute, cfg.Login.Convergence)
	assert.Equal(t, auth.DefaultSecondaryIterations, cfg.Login.SecondaryIterations)
	assert.True(t, cfg.Login.SkipSecondaryOnMobile)
	assert.Equal(t, "0 7 * * *", cfg.Schedule.Cron)
}

func TestLoadFile_Accounts(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
[[accounts]]
email = "a@x.com"
password = "inline"

[[accounts]]
email = "b@x.com"
password_env = "B_PASSWORD"
devices = ["mobile"]

[login]
convergence = "45s"
poll_interval = "1s"
`))
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 2)

	classes, err := cfg.Accounts[0].DeviceClasses()
	require.NoError(t, err)
	assert.Equal(t, []auth.DeviceClass{auth.Desktop, auth.Mobile}, classes)

	classes, err = cfg.Accounts[1].DeviceClasses()
	require.NoError(t, err)
	assert.Equal(t, []auth.DeviceClass{auth.Mobile}, classes)

	assert.Equal(t, 45*time.Second, cfg.Login.Convergence)
	assert.Equal(t, time.Second, cfg.Login.PollInterval)

	acct, ok := cfg.Account("B@X.COM")
	require.True(t, ok)
	assert.Equal(t, "B_PASSWORD", acct.PasswordEnv)
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("REWARDS4ME_BROWSER_HEADLESS", "false")
	t.Setenv("REWARDS4ME_SCHEDULE_CRON", "30 6 * * *")

	cfg, err := LoadFile(writeConfig(t, "[browser]\nheadless = true\n"))
	require.NoError(t, err)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "30 6 * * *", cfg.Schedule.Cron)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestResolvePassword(t *testing.T) {
	a := AccountConfig{Email: "a@x.com", Password: "inline", PasswordEnv: "R4M_TEST_PASSWORD"}
	assert.Equal(t, "inline", a.ResolvePassword())

	t.Setenv("R4M_TEST_PASSWORD", "from-env")
	assert.Equal(t, "from-env", a.ResolvePassword())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing email", func(c *Config) { c.Accounts = []AccountConfig{{}} }, "accounts[0].email"},
		{"duplicate email", func(c *Config) {
			c.Accounts = []AccountConfig{{Email: "a@x.com"}, {Email: "A@x.com"}}
		}, "listed twice"},
		{"unknown device", func(c *Config) {
			c.Accounts = []AccountConfig{{Email: "a@x.com", Devices: []string{"tablet"}}}
		}, "unknown device class"},
		{"bad cron", func(c *Config) { c.Schedule.Cron = "every morning" }, "schedule.cron"},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, "schedule.timezone"},
		{"no iterations", func(c *Config) { c.Login.SecondaryIterations = 0 }, "secondary_iterations"},
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
		{"notify without host", func(c *Config) { c.Notify.Enabled = true }, "notify.smtp_host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "rewards4me", filepath.Base(dir))

	cfg := Default()
	sessions, err := cfg.SessionsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sessions"), sessions)

	cfg.Store.Path = "/tmp/h.db"
	history, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/h.db", history)
}

func TestEnsureExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, created, err := EnsureExists()
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = EnsureExists()
	require.NoError(t, err)
	assert.False(t, created)

	_, err = LoadFile(path)
	require.NoError(t, err)
}
