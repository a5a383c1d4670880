package credentials

// Fixed key names under which the session is persisted.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// allKeys lists every key a Store owns. Clear removes all of them.
var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Backend is the key-value persistence underneath a Store.
//
// Load returns only the keys that are present. Apply sets and removes keys
// in a single step: a reader never observes half of an Apply.
type Backend interface {
	// Load retrieves the values stored under keys
	Load(keys ...string) (map[string]string, error)

	// Apply stores set and deletes remove as one operation
	Apply(set map[string]string, remove []string) error

	// Close releases any resources held by the backend
	Close() error
}

// StoreConfig holds configuration for credential storage backends
type StoreConfig struct {
	Type string `json:"type" mapstructure:"type"` // "memory", "file"

	// File backend config
	FilePath string `json:"file_path,omitempty" mapstructure:"path"`

	// Encryption of secret values at rest. A key file wins over the env var.
	EncryptionKeyFile string `json:"encryption_key_file,omitempty" mapstructure:"encryption_key_file"`
	EncryptionKeyEnv  string `json:"encryption_key_env,omitempty" mapstructure:"encryption_key_env"`
}
