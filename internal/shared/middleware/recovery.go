package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/uniedit/ghiblify/internal/shared/logger"
	"github.com/uniedit/ghiblify/internal/shared/response"
)

// Recovery returns a middleware that recovers from panics.
// It logs through the request-scoped logger when Logging ran, else log.
// If log is nil, it will use a default logger.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.New(nil)
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.FromContext(c.Request.Context(), log).Error("Panic recovered",
					"panic", err,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Result{
					Success: false,
					Msg:     "server error",
				})
			}
		}()
		c.Next()
	}
}
