package ginserver

import (
	"crypto/subtle"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"availsync/internal/app/middleware"
)

// PrincipalAnonymous is attached to requests when no API tokens are configured.
const PrincipalAnonymous = "anonymous"

// TokenAuth checks static bearer tokens and tags the request context with the caller.
type TokenAuth struct {
	Tokens []string
}

func (m TokenAuth) Handle(c *gin.Context) {
	if len(m.Tokens) == 0 {
		setPrincipal(c, PrincipalAnonymous)
		c.Next()
		return
	}
	token := extractBearerToken(c.GetHeader("Authorization"))
	for _, candidate := range m.Tokens {
		if token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
			setPrincipal(c, "api:"+tokenFingerprint(candidate))
			c.Next()
			return
		}
	}
	c.Header("WWW-Authenticate", `Bearer realm="availsync"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "missing or invalid bearer token", Code: "unauthorized"})
}

func setPrincipal(c *gin.Context, principal string) {
	c.Request = c.Request.WithContext(middleware.WithPrincipal(c.Request.Context(), principal))
}

func extractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// tokenFingerprint names a token in logs without revealing it.
func tokenFingerprint(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "..." + token[len(token)-4:]
}
