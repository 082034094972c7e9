package common

import "github.com/maeven-tapa/eals/apperror"

type ErrorResponse struct {
	Code    apperror.Code `json:"code"`
	Message string        `json:"message"`
	Data    interface{}   `json:"data,omitempty"`
}

func NewErrorResponse(code apperror.Code, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}
