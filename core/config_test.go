package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")

	conf, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "TEST", conf.Env)
	assert.Equal(t, "Jamii", conf.AppName)
	assert.True(t, conf.TestMode)
	assert.Equal(t, "memory", conf.Storage.Driver)
	assert.Equal(t, "user", conf.Storage.Key)
	assert.Equal(t, "memory", conf.Registry.Driver)
	assert.Equal(t, "/profile/edit", conf.ProfileEditLink)
	assert.Equal(t, ":8000", conf.Server.Addr)
	assert.Equal(t, 72*time.Hour, conf.PasswordResetTimeout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ENV", "qa")
	t.Setenv("QA_STORAGEDRIVER", "Postgres")
	t.Setenv("QA_FRONTENDBASEURL", "https://jamii.test/")
	t.Setenv("QA_REGISTRYDRIVER", "SQLite")

	workDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workDir, "config"), 0o755))
	dotEnv := "QA_APPNAME=Jamii QA\nQA_DEBUG=false\nQA_STORAGEDSN=postgres://jamii@db/jamii\n"
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "config", ".env.qa"), []byte(dotEnv), 0o600))
	t.Cleanup(func() {
		for _, key := range []string{"QA_APPNAME", "QA_DEBUG", "QA_STORAGEDSN"} {
			_ = os.Unsetenv(key)
		}
	})

	conf, err := LoadConfig(workDir)
	require.NoError(t, err)
	assert.Equal(t, "QA", conf.Env)
	assert.Equal(t, "Jamii QA", conf.AppName)
	assert.False(t, conf.Debug)
	assert.False(t, conf.TestMode)
	assert.Equal(t, "postgres", conf.Storage.Driver)
	assert.Equal(t, "postgres://jamii@db/jamii", conf.Storage.DSN)
	assert.Equal(t, "https://jamii.test", conf.FrontendBaseURL)
	assert.Equal(t, "sqlite", conf.Registry.Driver)
	assert.Equal(t, "jamii-users.db", conf.Registry.DSN)
}
