package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("  from-file\n"), 0o600))

	secret, err := Load(Source{Name: "gemini api key", Value: "inline", File: path})
	require.NoError(t, err)
	assert.Equal(t, "from-file", secret)
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	_, err := Load(Source{Name: "gemini api key", Value: "inline", File: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Source{File: filepath.Join(t.TempDir(), "absent")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading secret")
}

func TestLoadValueThenEnv(t *testing.T) {
	t.Setenv("ROOMIE_TEST_KEY", " from-env ")

	secret, err := Load(Source{Value: " inline ", Env: "ROOMIE_TEST_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "inline", secret)

	secret, err = Load(Source{Env: "ROOMIE_TEST_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", secret)
}

func TestLoadNotConfigured(t *testing.T) {
	t.Setenv("ROOMIE_TEST_KEY", "")

	_, err := Load(Source{Name: "gemini api key", Env: "ROOMIE_TEST_KEY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$ROOMIE_TEST_KEY")

	_, err = Load(Source{})
	require.EqualError(t, err, "secret is not configured")
}
