package common

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/apperror"
)

var statusByCode = map[apperror.Code]int{
	apperror.CodeNoSuchPrincipal:      http.StatusUnauthorized,
	apperror.CodeMismatch:             http.StatusUnauthorized,
	apperror.CodeOutOfShift:           http.StatusForbidden,
	apperror.CodeInactive:             http.StatusForbidden,
	apperror.CodeEarlyClockout:        http.StatusConflict,
	apperror.CodeConflict:             http.StatusConflict,
	apperror.CodeBusy:                 http.StatusConflict,
	apperror.CodeIdentityMismatch:     http.StatusUnprocessableEntity,
	apperror.CodeBadCode:              http.StatusUnprocessableEntity,
	apperror.CodeValidation:           http.StatusBadRequest,
	apperror.CodeNotFound:             http.StatusNotFound,
	apperror.CodeTransportUnavailable: http.StatusServiceUnavailable,
	apperror.CodePersistence:          http.StatusInternalServerError,
}

// StatusOf maps an error code to an HTTP status.
func StatusOf(code apperror.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AbortWithError writes err as an ErrorResponse. data, when given, is sent
// alongside so the client can still show partial results such as the
// admin failure count.
func AbortWithError(c *gin.Context, err error, data ...interface{}) {
	code := apperror.GetCode(err)
	resp := NewErrorResponse(code, err.Error())

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
	}
	if code == apperror.CodePersistence {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
		resp.Message = "internal error"
	}
	if len(data) > 0 {
		resp.Data = data[0]
	}

	c.AbortWithStatusJSON(StatusOf(code), resp)
}

// AbortWithBindingError reports a request that could not be decoded.
func AbortWithBindingError(c *gin.Context, err error) {
	resp := NewErrorResponse(apperror.CodeValidation, FormatBindingError(err))
	if problems := BindingProblems(err); len(problems) > 0 {
		resp.Data = problems
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}
