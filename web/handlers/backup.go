package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/backup"
	"github.com/maeven-tapa/eals/web/common"
	"github.com/maeven-tapa/eals/web/middlewares"
)

type restoreRequest struct {
	Name string `json:"name" binding:"required"`
}

func BackupSettings(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, row, err := backup.LoadSettings(c.Request.Context(), a.DB)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(row))
	}
}

func SaveBackupSettings(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p backup.Policy
		if err := c.ShouldBindJSON(&p); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		by := middlewares.Claims(c).PrincipalID
		if err := backup.SaveSettings(c.Request.Context(), a.DB, p, by); err != nil {
			common.AbortWithError(c, err)
			return
		}
		a.Journal.Record(c.Request.Context(), by, "backup settings updated by "+by)
		c.Status(http.StatusNoContent)
	}
}

func ListSnapshots(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		snaps, err := a.Backup.List()
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSearchResponse(snaps))
	}
}

// CreateSnapshot takes a snapshot now, outside the cadence.
func CreateSnapshot(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := a.Backup.Snapshot(c.Request.Context())
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, common.NewSuccessResponse(snap))
	}
}

// RestoreSnapshot replaces the live database and schedules a relaunch.
func RestoreSnapshot(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req restoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		by := middlewares.Claims(c).PrincipalID
		if err := a.Backup.Restore(c.Request.Context(), req.Name, by); err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, common.NewSuccessResponse(gin.H{"restored": req.Name}))
	}
}
