package response

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/uniedit/ghiblify/internal/shared/errors"
)

// Result is the envelope used by every mutating endpoint.
type Result struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg,omitempty"`
}

// OK writes a success envelope.
func OK(c *gin.Context, status int, msg string) {
	c.JSON(status, Result{Success: true, Msg: msg})
}

// Fail writes a failure envelope whose status is derived from err.
// The underlying cause is attached to the gin context for the logging middleware.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperrors.GetStatusCode(err), Result{
		Success: false,
		Msg:     apperrors.PublicMessage(err),
	})
}

// FailWith writes a failure envelope with an explicit status and message.
func FailWith(c *gin.Context, status int, msg string) {
	c.JSON(status, Result{Success: false, Msg: msg})
}
