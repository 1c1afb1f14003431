package setupservice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RobsonDevCode/metascan/internal/configuration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configuration", "user_setting.json")

	require.NoError(t, CreateSetupFile(path, " key-1 ", "https://api.example.com/v4", false))

	settings, err := configuration.ReadUserSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "key-1", settings.ApiKey)
	assert.Equal(t, "https://api.example.com/v4", settings.BaseUrl)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestCreateSetupFileRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_setting.json")
	require.NoError(t, CreateSetupFile(path, "key-1", "", false))

	err := CreateSetupFile(path, "key-2", "", false)
	assert.ErrorIs(t, err, ErrSettingsExist)

	require.NoError(t, CreateSetupFile(path, "key-2", "", true))
	settings, err := configuration.ReadUserSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "key-2", settings.ApiKey)
	assert.Empty(t, settings.BaseUrl)
}

func TestCreateSetupFileValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_setting.json")

	assert.Error(t, CreateSetupFile(path, "  ", "", false))
	assert.Error(t, CreateSetupFile(path, "key", "not a url", false))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
