package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/employees"
	"github.com/maeven-tapa/eals/web/common"
)

// multipart overhead allowed on top of the picture itself
const uploadOverhead = 1 << 20

// UploadProfilePicture stores the "picture" form file for an employee.
func UploadProfilePicture(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, employees.MaxPictureSize+uploadOverhead)

		file, err := c.FormFile("picture")
		if err != nil {
			common.AbortWithError(c, apperror.Wrap(apperror.CodeValidation, "Field 'picture' is required and must be at most 20 MB", err))
			return
		}

		f, err := file.Open()
		if err != nil {
			common.AbortWithError(c, apperror.Wrap(apperror.CodeValidation, "failed to read upload", err))
			return
		}
		defer f.Close()

		path, err := a.Employees.SaveProfilePicture(c.Request.Context(), c.Param("id"), f)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"profilePicture": path}))
	}
}

func ProfilePicture(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !canSee(c, id) {
			common.AbortWithError(c, apperror.Newf(apperror.CodeNotFound, "employee %s not found", id))
			return
		}

		emp, err := a.Employees.Get(c.Request.Context(), id)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		if emp.ProfilePicture == "" {
			common.AbortWithError(c, apperror.Newf(apperror.CodeNotFound, "employee %s has no picture", id))
			return
		}
		c.File(emp.ProfilePicture)
	}
}
