package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/auth"
	"github.com/maeven-tapa/eals/web/common"
	"github.com/maeven-tapa/eals/web/middlewares"
)

type loginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	ID       string `json:"id" binding:"required"`
	Ticket   string `json:"changeTicket" binding:"required"`
	Password string `json:"password" binding:"required"`
	Confirm  string `json:"confirm" binding:"required"`
}

type recoverRequest struct {
	AdminID           string `json:"adminId" binding:"required"`
	BootstrapPassword string `json:"bootstrapPassword" binding:"required"`
	Password          string `json:"password" binding:"required"`
	Confirm           string `json:"confirm" binding:"required"`
}

func Login(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		res, err := a.Auth.Authenticate(c.Request.Context(), req.ID, req.Password)
		if err != nil {
			common.AbortWithError(c, err, res)
			return
		}
		respondLogin(c, a, res)
	}
}

// ChangePassword completes the forced change that follows a first login.
func ChangePassword(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		res, err := a.Auth.ChangePassword(c.Request.Context(), req.ID, req.Ticket, req.Password, req.Confirm)
		if err != nil {
			common.AbortWithError(c, err, res)
			return
		}
		respondLogin(c, a, res)
	}
}

func RecoverAdmin(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recoverRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		err := a.Auth.RecoverAdmin(c.Request.Context(), req.AdminID, req.BootstrapPassword, req.Password, req.Confirm)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func Logout(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middlewares.Claims(c)

		d, err := a.Auth.Logout(c.Request.Context(), claims.PrincipalID)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}

		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(middlewares.SessionCookie, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, common.NewSuccessResponse(d))
	}
}

func respondLogin(c *gin.Context, a *app.App, res auth.LoginResult) {
	if res.Token != "" {
		maxAge := int(a.Config.Web.TokenTTL.Seconds())
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(middlewares.SessionCookie, res.Token, maxAge, "/", "", false, true)
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(res))
}
