package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// SecretFileMode is the permission of files that hold credentials
const SecretFileMode os.FileMode = 0600

// WriteSecretJSON atomically replaces filePath with the indented JSON
// encoding of data, readable by the owner only
func WriteSecretJSON(filePath string, data interface{}) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return AtomicWriteFile(filePath, encoded, SecretFileMode)
}

// ReadJSONFile decodes filePath into target. It reports false without an
// error when the file does not exist.
func ReadJSONFile(filePath string, target interface{}) (bool, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal JSON from %s: %w", filePath, err)
	}
	return true, nil
}
