// Package response renders the envelope every endpoint returns:
// {"success":true,"data":...} or {"success":false,"error":{code,message}}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "dealdesk/pkg/errors"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes data wrapped in the success envelope.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

// Error resolves err to an AppError and writes it with its HTTP status.
// A nil or unrecognised error renders as a generic 500.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)

	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, envelope{
		Success: false,
		Error:   &errorBody{Code: appErr.Code, Message: appErr.Message},
	})
}
