package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/attendance"
	"github.com/maeven-tapa/eals/auth"
	"github.com/maeven-tapa/eals/web/common"
	"github.com/maeven-tapa/eals/web/middlewares"
)

type confirmRequest struct {
	ConfirmEarly bool `json:"confirmEarly"`
}

func PendingAttendance(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middlewares.Claims(c)
		d, ok := a.Auth.Pending(claims.PrincipalID)
		if !ok {
			common.AbortWithError(c, apperror.Newf(apperror.CodeNotFound, "no pending attendance for %s", claims.PrincipalID))
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(d))
	}
}

// ConfirmAttendance commits the decision made at login. An early clock-out
// is only written when confirmEarly is true.
func ConfirmAttendance(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req confirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		claims := middlewares.Claims(c)
		d, err := a.Auth.ConfirmAttendance(c.Request.Context(), claims.PrincipalID, req.ConfirmEarly)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(d))
	}
}

func CancelAttendance(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.Auth.CancelAttendance(middlewares.Claims(c).PrincipalID)
		c.Status(http.StatusNoContent)
	}
}

// AttendanceLogs lists log rows. Employees only see their own.
func AttendanceLogs(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f attendance.LogFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		claims := middlewares.Claims(c)
		if claims.Role == string(auth.RoleEmployee) {
			f.EmployeeID = claims.PrincipalID
		}

		rows, err := a.Attendance.Logs(c.Request.Context(), f)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSearchResponse(rows))
	}
}

func Dashboard(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := a.Attendance.Stats(c.Request.Context(), a.Now())
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(stats))
	}
}
