package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/reset"
	"github.com/maeven-tapa/eals/web/common"
)

type resetState struct {
	FlowID string     `json:"flowId"`
	Step   reset.Step `json:"step"`
}

type identityRequest struct {
	EmployeeID  string              `json:"employeeId" binding:"required"`
	DateOfBirth common.CalendarDate `json:"dateOfBirth"`
	Email       string              `json:"email" binding:"required"`
}

type codeRequest struct {
	Code string `json:"code" binding:"required"`
}

type newPasswordRequest struct {
	Password string `json:"password" binding:"required"`
	Confirm  string `json:"confirm" binding:"required"`
}

// BeginReset opens a forgot-password flow after a connectivity check.
func BeginReset(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, err := a.Reset.Begin(c.Request.Context())
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		id := a.Resets.Add(flow)
		c.JSON(http.StatusCreated, common.NewSuccessResponse(resetState{FlowID: id, Step: flow.Step()}))
	}
}

func ResetIdentity(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, flow, ok := lookupFlow(c, a)
		if !ok {
			return
		}
		var req identityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		if err := flow.VerifyIdentity(c.Request.Context(), req.EmployeeID, req.DateOfBirth.Time, req.Email); err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(resetState{FlowID: id, Step: flow.Step()}))
	}
}

func ResetCode(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, flow, ok := lookupFlow(c, a)
		if !ok {
			return
		}
		var req codeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		if err := flow.VerifyCode(req.Code); err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, common.NewSuccessResponse(resetState{FlowID: id, Step: flow.Step()}))
	}
}

func ResetPassword(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, flow, ok := lookupFlow(c, a)
		if !ok {
			return
		}
		var req newPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.AbortWithBindingError(c, err)
			return
		}

		if err := flow.SetPassword(c.Request.Context(), req.Password, req.Confirm); err != nil {
			common.AbortWithError(c, err)
			return
		}
		a.Resets.Remove(id)
		c.JSON(http.StatusOK, common.NewSuccessResponse(resetState{FlowID: id, Step: reset.StepDone}))
	}
}

func DiscardReset(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.Resets.Remove(c.Param("flow"))
		c.Status(http.StatusNoContent)
	}
}

func lookupFlow(c *gin.Context, a *app.App) (string, *reset.Flow, bool) {
	id := c.Param("flow")
	flow, ok := a.Resets.Get(id)
	if !ok {
		common.AbortWithError(c, apperror.New(apperror.CodeNotFound, "reset flow not found or expired"))
		return id, nil, false
	}
	return id, flow, true
}
