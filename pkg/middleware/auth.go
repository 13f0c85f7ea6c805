package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/richxcame/giveaway/pkg/common"
)

const (
	// AdminClaimKey is the gin context key the admin identity is stored under
	AdminClaimKey = "admin_subject"
)

// AdminAuth guards admin console routes with a bearer JWT signed by the
// configured secret. When allowedSubjects is non-empty, the token subject
// must be one of them; otherwise any valid token is accepted. The subject is
// exposed to handlers for audit logs.
func AdminAuth(secret string, allowedSubjects ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedSubjects))
	for _, s := range allowedSubjects {
		allowed[s] = struct{}{}
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			common.ErrorResponse(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			common.ErrorResponse(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		var subject string
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			subject, _ = claims["sub"].(string)
		}

		if len(allowed) > 0 {
			if _, ok := allowed[subject]; !ok {
				common.ErrorResponse(c, http.StatusForbidden, "subject not allowed")
				c.Abort()
				return
			}
		}

		if subject != "" {
			c.Set(AdminClaimKey, subject)
		}

		c.Next()
	}
}
