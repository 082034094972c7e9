package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/web/common"
)

// Welcome hands out the first-run pages once.
func Welcome(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		w, ok := a.Setup.Take()
		if !ok {
			common.AbortWithError(c, apperror.New(apperror.CodeNotFound, "no welcome pending"))
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(w))
	}
}
