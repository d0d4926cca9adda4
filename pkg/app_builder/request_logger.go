package appbuilder

import (
	"time"

	"icr-prover/pkg/logger"

	"github.com/gin-gonic/gin"
)

func requestLogger(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l.Debugf("%s %s -> %d in %s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Round(time.Millisecond))
	}
}
