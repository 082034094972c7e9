package middlewares

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/web/common"
)

// RequireJSON rejects request bodies that are not application/json, or one of
// the extra media types in allow. Browsers send text/plain and form posts
// across sites without a preflight; JSON bodies always need one.
func RequireJSON(allow ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength == 0 {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		ct := c.ContentType()
		if ct != gin.MIMEJSON && !slices.Contains(allow, ct) {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType,
				common.NewErrorResponse(apperror.CodeValidation, "request body must be application/json"))
			return
		}
		c.Next()
	}
}
