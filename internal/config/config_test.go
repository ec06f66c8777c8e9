package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, "serial_baud: \"250000\"\nmqtt_host: broker.local\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "250000", cfg.SerialBaud)
	assert.Equal(t, "broker.local", cfg.MQTTHost)
	assert.Equal(t, 200, cfg.AckTimeoutMS) // untouched default
}

func TestLoadRejectsPlaceholderSecret(t *testing.T) {
	path := writeConfig(t, "serial_shared_secret: "+PlaceholderSecret+"\n")
	_, err := Load(path)
	require.Error(t, err)
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
}

func TestValidateRejectsWildcardAmongOthers(t *testing.T) {
	cfg := Default()
	cfg.AllowedCommands = "ls *"
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateAcceptsSoleWildcard(t *testing.T) {
	cfg := Default()
	cfg.AllowedCommands = "*"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsPathsOutsideTmp(t *testing.T) {
	cfg := Default()
	cfg.FileSystemRoot = "/etc/bridge"
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateAllowsNonTmpWithOptIn(t *testing.T) {
	cfg := Default()
	cfg.FileSystemRoot = "/srv/bridge"
	cfg.MQTTSpoolDir = "/srv/bridge-spool"
	cfg.AllowNonTmpPaths = true
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsWriteLimitAboveQuota(t *testing.T) {
	cfg := Default()
	cfg.FileWriteMaxBytes = cfg.FileStorageQuotaBytes + 1
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsTLSWithMissingCert(t *testing.T) {
	cfg := Default()
	cfg.MQTTTLS = true
	cfg.MQTTCertFile = filepath.Join(t.TempDir(), "missing.pem")
	cfg.MQTTKeyFile = filepath.Join(t.TempDir(), "missing.key")
	require.Error(t, cfg.Validate())
}

func TestPolicyMapsAllowSwitches(t *testing.T) {
	cfg := Default()
	cfg.AllowFileRead = true
	cfg.AllowShellRun = true
	cfg.AllowedCommands = "echo"
	p := cfg.Policy()

	assert.NoError(t, p.Check("file_read"))
	assert.Error(t, p.Check("file_write"))
	assert.NoError(t, p.CheckShellCommand("shell_run", "echo"))
}
