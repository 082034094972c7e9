package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/web/common"
)

func JournalDays(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, err := a.Journal.Days(c.Request.Context())
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSearchResponse(days))
	}
}

// JournalDay returns one day's journal as plain text.
func JournalDay(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		text, err := a.Journal.Read(c.Param("day"))
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.String(http.StatusOK, text)
	}
}
