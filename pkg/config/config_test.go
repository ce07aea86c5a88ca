package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/roulette/pkg/types"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("APP_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, 8888, c.Server.Port)
	require.Equal(t, "postgres", c.Database.Driver)
	require.Equal(t, "09:00", c.Birthday.SendWindowStart)
	require.Equal(t, "21:00", c.Birthday.SendWindowEnd)
	require.Equal(t, types.DeliveryChannelEmail, c.Birthday.DeliveryChannel)
	require.Equal(t, 15*time.Minute, c.Birthday.TickInterval)
	require.Equal(t, 20, c.Wheel.Coupon.ExpiryDays)
	require.True(t, c.Wheel.SerializeSpins)
}

func TestNew_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.yaml")
	content := []byte(`
birthday:
  enabled: true
  delivery_channel: both
  send_window_enabled: true
  send_window_start: "22:00"
  send_window_end: "02:00"
wheel:
  targeting:
    allowed_roles: [customer, vip]
    min_spent: 100.5
`)
	require.NoError(t, os.WriteFile(file, content, 0o600))
	t.Setenv("APP_CONFIG_FILE", file)
	t.Setenv("APP_SERVER_PORT", "9999")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, 9999, c.Server.Port)
	require.True(t, c.Birthday.Enabled)
	require.Equal(t, types.DeliveryChannelBoth, c.Birthday.DeliveryChannel)
	require.Equal(t, "22:00", c.Birthday.SendWindowStart)
	require.Equal(t, []string{"customer", "vip"}, c.Wheel.Targeting.AllowedRoles)
	require.InDelta(t, 100.5, c.Wheel.Targeting.MinSpent, 0.0001)
}

func TestNew_InvalidChannelFallsBackToEmail(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(file, []byte("birthday:\n  delivery_channel: pigeon\n"), 0o600))
	t.Setenv("APP_CONFIG_FILE", file)

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, types.DeliveryChannelEmail, c.Birthday.DeliveryChannel)
}

func TestBirthdayConfig_Location(t *testing.T) {
	require.Equal(t, time.Local, BirthdayConfig{}.Location())
	require.Equal(t, time.Local, BirthdayConfig{Timezone: "Not/AZone"}.Location())
	require.Equal(t, "UTC", BirthdayConfig{Timezone: "UTC"}.Location().String())
}
