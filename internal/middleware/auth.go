package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"

	"vertex-relay/internal/config"
	"vertex-relay/internal/handlers/common"

	"github.com/gin-gonic/gin"
)

const maxVerifiedKeys = 1024

// APIKeyAuth enforces client keys when the snapshot lists bcrypt hashes.
// Keys are accepted from Authorization: Bearer, X-API-Key or x-goog-api-key.
// Successful checks are memoized by digest since bcrypt is deliberately slow.
func APIKeyAuth(src config.Source) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		verified = make(map[string]struct{})
	)
	return func(c *gin.Context) {
		cfg := src.Current()
		if !cfg.APIKeysEnabled() {
			c.Next()
			return
		}
		key := extractAPIKey(c)
		if key == "" {
			common.AbortWithError(c, http.StatusUnauthorized, "API key not provided")
			return
		}

		digest := cacheKey(key, cfg.Security.APIKeyHashes)
		mu.Lock()
		_, ok := verified[digest]
		mu.Unlock()
		if !ok {
			if !config.CheckAPIKey(cfg, key) {
				common.AbortWithError(c, http.StatusUnauthorized, "Invalid API key")
				return
			}
			mu.Lock()
			if len(verified) >= maxVerifiedKeys {
				verified = make(map[string]struct{})
			}
			verified[digest] = struct{}{}
			mu.Unlock()
		}
		c.Next()
	}
}

func cacheKey(key string, hashes []string) string {
	h := sha256.New()
	h.Write([]byte(key))
	for _, hash := range hashes {
		h.Write([]byte{0})
		h.Write([]byte(hash))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func extractAPIKey(c *gin.Context) string {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if v := strings.TrimSpace(c.GetHeader("X-API-Key")); v != "" {
		return v
	}
	return strings.TrimSpace(c.GetHeader("x-goog-api-key"))
}
