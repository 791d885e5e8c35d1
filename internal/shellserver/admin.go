package shellserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/pipectl/p4bridge/internal/observability"
)

// NewAdminRouter builds the optional HTTP admin surface: liveness, the list
// of bound pipeline programs, and Prometheus metrics. It observes the
// server; it never mutates pipeline state.
func NewAdminRouter(srv *Server, corsOrigins []string) *gin.Engine {
	observability.RegisterMetrics()
	started := time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(started).String(),
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"uptime": time.Since(started).String(),
		})
	})

	r.GET("/pipelines", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"programs": srv.Programs(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
