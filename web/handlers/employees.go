package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/auth"
	"github.com/maeven-tapa/eals/employees"
	"github.com/maeven-tapa/eals/web/common"
	"github.com/maeven-tapa/eals/web/middlewares"
)

type employeeRequest struct {
	EmployeeID    string              `json:"employeeId"`
	IDPrefix      string              `json:"idPrefix"`
	FirstName     string              `json:"firstName"`
	LastName      string              `json:"lastName"`
	MiddleInitial string              `json:"middleInitial"`
	DateOfBirth   common.CalendarDate `json:"dateOfBirth"`
	Gender        string              `json:"gender"`
	Department    string              `json:"department"`
	Position      string              `json:"position"`
	Shift         string              `json:"shift"`
	Email         string              `json:"email"`
	IsHR          bool                `json:"isHr"`
}

func (r *employeeRequest) input() employees.Input {
	return employees.Input{
		EmployeeID:    r.EmployeeID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		MiddleInitial: r.MiddleInitial,
		DateOfBirth:   r.DateOfBirth.Time,
		Gender:        r.Gender,
		Department:    r.Department,
		Position:      r.Position,
		Shift:         r.Shift,
		Email:         r.Email,
		IsHR:          r.IsHR,
	}
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=Active Inactive"`
}

func ListEmployees(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f employees.Filter
		if err := c.ShouldBindQuery(&f); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		list, err := a.Employees.List(c.Request.Context(), f)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSearchResponse(list))
	}
}

// GetEmployee returns one record. Employees may only read their own.
func GetEmployee(a *app.App) gin.HandlerFunc {
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
		c.JSON(http.StatusOK, common.NewSuccessResponse(emp))
	}
}

func NextEmployeeID(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefix := c.DefaultQuery("prefix", a.Config.Employees.IDPrefix)
		year := a.Now().Year()
		if y := c.Query("year"); y != "" {
			var err error
			if year, err = strconv.Atoi(y); err != nil {
				common.AbortWithError(c, apperror.Newf(apperror.CodeValidation, "invalid year %q", y))
				return
			}
		}

		id, err := a.Employees.NextID(c.Request.Context(), prefix, year)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"employeeId": id}))
	}
}

func CreateEmployee(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req employeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}
		prefix := req.IDPrefix
		if prefix == "" {
			prefix = a.Config.Employees.IDPrefix
		}

		by := middlewares.Claims(c).PrincipalID
		emp, err := a.Employees.Enroll(c.Request.Context(), req.input(), prefix, by)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, common.NewSuccessResponse(emp))
	}
}

func UpdateEmployee(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req employeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		by := middlewares.Claims(c).PrincipalID
		emp, err := a.Employees.Update(c.Request.Context(), c.Param("id"), req.input(), by)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(emp))
	}
}

func SetEmployeeStatus(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		by := middlewares.Claims(c).PrincipalID
		if err := a.Employees.SetStatus(c.Request.Context(), c.Param("id"), req.Status, by); err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func DeleteEmployee(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		by := middlewares.Claims(c).PrincipalID
		if err := a.Employees.Delete(c.Request.Context(), c.Param("id"), by); err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func canSee(c *gin.Context, employeeID string) bool {
	claims := middlewares.Claims(c)
	return claims.Role != string(auth.RoleEmployee) || claims.PrincipalID == employeeID
}
