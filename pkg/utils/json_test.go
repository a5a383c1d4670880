package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenFile struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values"`
}

func TestWriteSecretJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	in := tokenFile{Version: 1, Values: map[string]string{"access_token": "a", "refresh_token": "r"}}

	require.NoError(t, WriteSecretJSON(path, in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, SecretFileMode, info.Mode().Perm())

	var out tokenFile
	found, err := ReadJSONFile(path, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)

	// replacing keeps the restrictive mode
	in.Values = map[string]string{}
	require.NoError(t, WriteSecretJSON(path, in))
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, SecretFileMode, info.Mode().Perm())
}

func TestWriteSecretJSONUnencodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	assert.Error(t, WriteSecretJSON(path, map[string]interface{}{"ch": make(chan int)}))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReadJSONFile(t *testing.T) {
	dir := t.TempDir()

	var out tokenFile
	found, err := ReadJSONFile(filepath.Join(dir, "missing.json"), &out)
	assert.NoError(t, err)
	assert.False(t, found)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0600))
	found, err = ReadJSONFile(corrupt, &out)
	assert.Error(t, err)
	assert.False(t, found)
}
