// Package restapi is the thin HTTP surface: banner, readiness and liveness
// probes, prometheus metrics and pprof. It carries no pipeline logic.
package restapi

import (
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telemetrydev/propdefs/health"
	"github.com/telemetrydev/propdefs/settings"
)

type Server struct {
	Router *gin.Engine
}

// response to hitting '/' on the server
func GetRoot(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/plain")
	_, err := c.Writer.Write([]byte("property definitions service"))
	if err != nil {
		settings.Logger.Err(err).Msg("get root")
	}
}

// Basic middleware to log errors.
func ErrorLoggerMiddleware(c *gin.Context) {
	if c == nil {
		settings.Logger.Error().Msg("gin error, couldn't provide error info as context was nil.")
		return
	}
	c.Next()

	for _, err := range c.Errors {
		if c.Request == nil || c.Request.URL == nil {
			settings.Logger.Error().Err(err).Msg("gin error, limited detail as Request or Request URL was nil.")
		} else {
			settings.Logger.Error().Err(err).Msgf("gin error on route %s %s", c.Request.Method, c.Request.URL)
		}
	}
}

func NewServer(registry *health.Registry) *Server {
	gin.SetMode(gin.ReleaseMode) // don't print route list on start

	router := gin.New()
	router.Use(ErrorLoggerMiddleware)

	router.GET("/", GetRoot)
	// ready as soon as the process is serving; consumption lag is not a readiness concern
	router.GET("/_readiness", GetRoot)
	router.GET("/_liveness", func(c *gin.Context) {
		status := registry.Status()
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	// memory monitoring, required for us to debug memory usage under load
	pprof.Register(router, "debug/pprof")

	// prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{Router: router}
}
