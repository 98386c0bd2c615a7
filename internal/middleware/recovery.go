package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"repurposer/internal/metrics"
)

// Recovery answers a panicking handler with 500 and counts it under
// source="http" in repurposer_panics_total. The access log line still
// follows from Logger.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			metrics.Panic("http")
			id := RequestIDFrom(c)
			log.Error().
				Str("panic", fmt.Sprint(r)).
				Str("method", c.Request.Method).
				Str("route", routeOf(c)).
				Str("request_id", id).
				Bytes("stack", debug.Stack()).
				Msg("http handler panicked")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "internal",
				"request_id": id,
			})
		}()
		c.Next()
	}
}
