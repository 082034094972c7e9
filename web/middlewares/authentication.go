package middlewares

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/security"
	"github.com/maeven-tapa/eals/web/common"
)

// SessionCookie carries the token for clients that cannot set headers.
const SessionCookie = "eals.session"

const claimsKey = "claims"

// Authentication checks for a valid Bearer token or session cookie.
func Authentication(tokens *security.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse(apperror.CodeNoSuchPrincipal, "not signed in"))
				return
			}
			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse(apperror.CodeNoSuchPrincipal, "malformed authorization header"))
				return
			}
			tokenStr = parts[1]
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse(apperror.CodeNoSuchPrincipal, "invalid or expired token"))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole lets the request through only for the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil || !slices.Contains(roles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse(apperror.CodeNoSuchPrincipal, "not allowed for this role"))
			return
		}
		c.Next()
	}
}

// Claims returns the session claims set by Authentication.
func Claims(c *gin.Context) *security.SessionClaims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*security.SessionClaims)
	return claims
}
