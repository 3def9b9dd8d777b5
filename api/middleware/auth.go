package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/complyscan/models"
)

// APIKeyContextKey is the gin context key holding the authenticated key.
const APIKeyContextKey = "api_key"

// Auth rejects requests without a configured API key, read from
// X-API-Key or Authorization: Bearer. Keys are compared by digest in
// constant time. With no keys configured every request passes.
func Auth(apiKeys []string) gin.HandlerFunc {
	var digests [][sha256.Size]byte
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}
	if len(digests) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := presentedKey(c)
		if key == "" {
			abort(c, http.StatusUnauthorized, models.ErrKindUnauthorized,
				"missing API key: send X-API-Key or Authorization: Bearer <key>")
			return
		}
		if !knownKey(digests, key) {
			abort(c, http.StatusUnauthorized, models.ErrKindUnauthorized, "invalid API key")
			return
		}
		c.Set(APIKeyContextKey, key)
		c.Next()
	}
}

func knownKey(digests [][sha256.Size]byte, key string) bool {
	d := sha256.Sum256([]byte(key))
	found := 0
	for i := range digests {
		found |= subtle.ConstantTimeCompare(digests[i][:], d[:])
	}
	return found == 1
}

func presentedKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("X-API-Key")); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func abort(c *gin.Context, status int, kind models.ErrorKind, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   models.ErrorDetail{Code: kind, Message: msg},
	})
}
