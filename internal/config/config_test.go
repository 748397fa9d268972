package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeTempConfig(t, "config.toml", `
[protocol]
initial_window_size = 131072
enable_push = false

[logging]
log_level = "DEBUG"
target = "stdout"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Protocol.InitialWindowSize)
	assert.Equal(t, uint32(131072), *cfg.Protocol.InitialWindowSize)
	require.NotNil(t, cfg.Protocol.EnablePush)
	assert.False(t, *cfg.Protocol.EnablePush)
	assert.Nil(t, cfg.Protocol.MaxFrameSize, "unset fields stay nil so defaults apply downstream")
	assert.Equal(t, LogLevelDebug, cfg.Logging.LogLevel)
	assert.Equal(t, "stdout", cfg.Logging.Target)
}

func TestLoadJSON(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{
  "protocol": {"max_frame_size": 32768, "header_table_size": 8192},
  "logging": {"log_level": "ERROR"}
}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Protocol.MaxFrameSize)
	assert.Equal(t, uint32(32768), *cfg.Protocol.MaxFrameSize)
	require.NotNil(t, cfg.Protocol.HeaderTableSize)
	assert.Equal(t, uint32(8192), *cfg.Protocol.HeaderTableSize)
	assert.Equal(t, LogLevelError, cfg.Logging.LogLevel)
}

func TestLoadAppliesDefaultsToEmptyFile(t *testing.T) {
	path := writeTempConfig(t, "empty.toml", "")
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Protocol)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, LogLevelInfo, cfg.Logging.LogLevel)
	assert.Equal(t, "stderr", cfg.Logging.Target)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	path := writeTempConfig(t, "bad.toml", "[protocol\ninitial_window_size = ")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateBounds(t *testing.T) {
	u32 := func(v uint32) *uint32 { return &v }

	cases := []struct {
		name     string
		protocol ProtocolConfig
		wantErr  string
	}{
		{
			name:     "window size above protocol maximum",
			protocol: ProtocolConfig{InitialWindowSize: u32(1 << 31)},
			wantErr:  "initial_window_size",
		},
		{
			name:     "frame size below minimum",
			protocol: ProtocolConfig{MaxFrameSize: u32(1024)},
			wantErr:  "max_frame_size",
		},
		{
			name:     "frame size above maximum",
			protocol: ProtocolConfig{MaxFrameSize: u32(1 << 24)},
			wantErr:  "max_frame_size",
		},
		{
			name:     "zero header entry size",
			protocol: ProtocolConfig{MaxHeaderEntrySize: u32(0)},
			wantErr:  "max_header_entry_size",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Protocol: &tc.protocol}
			cfg.ApplyDefaults()
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	cfg := &Config{Logging: &LoggingConfig{LogLevel: "VERBOSE"}}
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate())

	cfg = &Config{}
	cfg.ApplyDefaults()
	assert.NoError(t, cfg.Validate())
}

func TestIsFilePath(t *testing.T) {
	assert.False(t, IsFilePath("stdout"))
	assert.False(t, IsFilePath("stderr"))
	assert.True(t, IsFilePath("/var/log/h2.log"))
}
