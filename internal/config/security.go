package config

import "golang.org/x/crypto/bcrypt"

// APIKeysEnabled reports whether inbound client keys are enforced.
func (c *Config) APIKeysEnabled() bool {
	return c != nil && len(c.Security.APIKeyHashes) > 0
}

// CheckAPIKey reports whether candidate matches one of the configured bcrypt hashes.
func CheckAPIKey(cfg *Config, candidate string) bool {
	if cfg == nil || candidate == "" {
		return false
	}
	for _, hash := range cfg.Security.APIKeyHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil {
			return true
		}
	}
	return false
}
