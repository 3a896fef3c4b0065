package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func learnerFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	fs := pflag.NewFlagSet("learner", pflag.ContinueOnError)
	LearnerFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadLearner_Defaults(t *testing.T) {
	cfg, err := LoadLearner(learnerFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3001/api", cfg.APIURL)
	assert.Equal(t, "file", cfg.TokenStore)
	assert.Equal(t, "token", filepath.Base(cfg.TokenPath))
	assert.Equal(t, "127.0.0.1:3000", cfg.CallbackAddr)
}

func TestLoadLearner_Precedence(t *testing.T) {
	fs := learnerFlags(t, "--api_url=http://flag.test/api/")
	t.Setenv("LEARNER_API_URL", "http://env.test/api")
	t.Setenv("LEARNER_TOKEN_STORE", "sqlite")

	cfg, err := LoadLearner(fs)
	require.NoError(t, err)
	assert.Equal(t, "http://flag.test/api", cfg.APIURL)
	assert.Equal(t, "sqlite", cfg.TokenStore)
	assert.Equal(t, "session.db", filepath.Base(cfg.TokenPath))
}

func TestLoadLearner_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export_dir: /tmp/pdfs\nlog_level: debug\n"), 0o600))

	cfg, err := LoadLearner(learnerFlags(t, "--config="+path))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pdfs", cfg.ExportDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLearner_BadTokenStore(t *testing.T) {
	_, err := LoadLearner(learnerFlags(t, "--token_store=keychain"))
	assert.ErrorContains(t, err, "token_store")
}
