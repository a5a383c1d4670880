package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mood2food/storefront-client/pkg/utils"
)

const fileFormatVersion = 1

// fileDocument is the on-disk layout of a FileBackend
type fileDocument struct {
	Version   int               `json:"version"`
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FileBackend persists credentials in a single JSON document.
//
// Every Load reads the file so that separate processes sharing a profile
// see each other's writes; every Apply rewrites it with an atomic rename.
type FileBackend struct {
	filePath string
	mu       sync.Mutex
}

// NewFileBackend creates a file backend rooted at filePath
func NewFileBackend(filePath string) (*FileBackend, error) {
	if filePath == "" {
		return nil, fmt.Errorf("credential file path cannot be empty")
	}

	if err := utils.EnsureDir(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}

	fb := &FileBackend{filePath: filePath}

	// Surface a corrupt document at construction rather than on first use
	if _, err := fb.read(); err != nil {
		return nil, err
	}

	return fb, nil
}

// Path returns the location of the credential document
func (fb *FileBackend) Path() string {
	return fb.filePath
}

// Load retrieves the values stored under keys
func (fb *FileBackend) Load(keys ...string) (map[string]string, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	doc, err := fb.read()
	if err != nil {
		return nil, err
	}

	found := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := doc.Values[key]; ok {
			found[key] = value
		}
	}
	return found, nil
}

// Apply rewrites the document with set applied and remove deleted
func (fb *FileBackend) Apply(set map[string]string, remove []string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	doc, err := fb.read()
	if err != nil {
		return err
	}

	for _, key := range remove {
		delete(doc.Values, key)
	}
	for key, value := range set {
		doc.Values[key] = value
	}

	doc.Version = fileFormatVersion
	doc.UpdatedAt = time.Now().UTC()

	if err := utils.WriteSecretJSON(fb.filePath, doc); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}

// Close is a no-op; every Apply is already on disk
func (fb *FileBackend) Close() error {
	return nil
}

// read loads the document, treating a missing file as empty
func (fb *FileBackend) read() (*fileDocument, error) {
	doc := &fileDocument{Values: make(map[string]string)}

	found, err := utils.ReadJSONFile(fb.filePath, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if !found {
		return doc, nil
	}
	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}
	if doc.Version > fileFormatVersion {
		return nil, fmt.Errorf("credential file %s has unsupported version %d", fb.filePath, doc.Version)
	}
	return doc, nil
}

// DefaultFilePath returns the per-user credential document location
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "storefront", "credentials.json")
}
