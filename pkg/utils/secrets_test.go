package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSecretFrom(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_secret"), []byte("  s3cret\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), []byte("\n"), 0o600))

	secret, err := ReadSecretFrom(dir, "jwt_secret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret)

	_, err = ReadSecretFrom(dir, "empty")
	assert.ErrorContains(t, err, "is empty")

	_, err = ReadSecretFrom(dir, "missing")
	assert.Error(t, err)
}

func TestReadOptionalSecret(t *testing.T) {
	dir := t.TempDir()

	secret, err := ReadOptionalSecret(dir, "llm_api_key")
	require.NoError(t, err)
	assert.Empty(t, secret)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "llm_api_key"), []byte("sk-test"), 0o600))
	secret, err = ReadOptionalSecret(dir, "llm_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", secret)
}
