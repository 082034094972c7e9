package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/employees"
	"github.com/maeven-tapa/eals/web/common"
	"github.com/maeven-tapa/eals/web/middlewares"
)

func SubmitFeedback(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req employees.FeedbackInput
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		fb, err := a.Employees.SubmitFeedback(c.Request.Context(), middlewares.Claims(c).PrincipalID, req)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, common.NewSuccessResponse(fb))
	}
}

func ListFeedback(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := a.Employees.ListFeedback(c.Request.Context())
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSearchResponse(list))
	}
}
