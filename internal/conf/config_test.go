package conf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	return Config{
		LogLevel:      zerolog.WarnLevel,
		BackupSuffix:  ".bak",
		SudoCommand:   "sudo -n",
		SSHKnownHosts: []string{"~/.ssh/known_hosts"},
		SSHAgent:      true,
		SSHTimeout:    15 * time.Second,
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	if diff := cmp.Diff(defaults(), Defaults()); diff != "" {
		t.Errorf("Defaults() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadMissingFiles(t *testing.T) {
	t.Parallel()

	td := t.TempDir()
	cfg, err := FileSource(filepath.Join(td, "config.toml")).Read()
	require.NoError(t, err)

	if diff := cmp.Diff(defaults(), cfg); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadLayers(t *testing.T) {
	t.Parallel()

	td := t.TempDir()
	path := filepath.Join(td, "config.toml")
	dropIn := path + ".d"
	require.NoError(t, os.Mkdir(dropIn, 0o755))

	require.NoError(t, os.WriteFile(path, []byte(`
log-level = "info"
ssh-user = "deploy"
ssh-timeout = "30s"
metrics-file = "/var/lib/node_exporter/confpatch.prom"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dropIn, "20-debug.toml"), []byte(`log-level = "DEBUG"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dropIn, "10-ssh.toml"), []byte(`
ssh-user = "admin"
ssh-known-hosts = []
ssh-insecure = true
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dropIn, "30-ignored.conf"), []byte(`log-level = "error"`), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dropIn, "40-dir.toml"), 0o755))

	cfg, err := FileSource(path).Read()
	require.NoError(t, err)

	want := defaults()
	want.LogLevel = zerolog.DebugLevel
	want.SSHUser = "admin"
	want.SSHKnownHosts = nil
	want.SSHInsecure = true
	want.SSHTimeout = 30 * time.Second
	want.MetricsFile = "/var/lib/node_exporter/confpatch.prom"

	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyStringOverwrite(t *testing.T) {
	t.Parallel()

	td := t.TempDir()
	path := filepath.Join(td, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`sudo-command = ""`), 0o644))

	cfg, err := FileSource(path).Read()
	require.NoError(t, err)
	assert.Empty(t, cfg.SudoCommand)
	assert.Equal(t, ".bak", cfg.BackupSuffix)
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "syntax", content: `log-level = `, errMsg: "failed to parse"},
		{name: "unknown key", content: "log-level = \"info\"\nssh-password = \"x\"\n", errMsg: "unknown keys: ssh-password"},
		{name: "log level", content: `log-level = "loud"`, errMsg: "invalid log-level"},
		{name: "timeout", content: `ssh-timeout = "soon"`, errMsg: "invalid ssh-timeout"},
		{name: "type", content: `ssh-agent = "yes"`, errMsg: "failed to parse"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			_, err := FileSource(path).Read()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestReadDropInError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.Mkdir(path+".d", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path+".d", "00-bad.toml"), []byte(`[[`), 0o644))

	_, err := FileSource(path).Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "00-bad.toml")
}

func TestDefaultSource(t *testing.T) {
	td := t.TempDir()
	t.Setenv("GOPASS_HOMEDIR", td)

	s := DefaultSource()
	assert.True(t, strings.HasPrefix(s.Path, td), s.Path)
	assert.True(t, strings.HasSuffix(s.Path, filepath.Join("confpatch", "config.toml")), s.Path)
	assert.Equal(t, s.Path+".d", s.DropInDir)
}
