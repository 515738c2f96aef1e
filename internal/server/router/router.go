package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/server/handlers"
)

// Options holds the optional parts of the router.
type Options struct {
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// StaticDataDir, when set, is served under /data.
	StaticDataDir string
}

// New wires the Gin engine with required routes and middlewares.
func New(sessionHandler *handlers.SessionHandler, dataHandler *handlers.DataHandler, opts Options, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/files", dataHandler.Files)
	api.GET("/insights", dataHandler.Insights)
	api.GET("/yearly", dataHandler.Yearly)
	api.GET("/i18n/:lang", dataHandler.Translations)

	sess := api.Group("/session", sessionHandler.Attach)
	sess.GET("", sessionHandler.Info)
	sess.DELETE("", sessionHandler.Reset)
	sess.POST("/city", sessionHandler.SelectCity)
	sess.POST("/period", sessionHandler.SelectPeriod)
	sess.GET("/records", sessionHandler.Records)
	sess.GET("/facets", sessionHandler.Facets)
	sess.GET("/export.csv", sessionHandler.ExportCSV)
	sess.POST("/export/sheets", sessionHandler.ExportSheets)
	sess.POST("/language", sessionHandler.SetLanguage)

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.StaticDataDir != "" {
		r.Static("/data", opts.StaticDataDir)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := c.Writer.Header().Get(handlers.SessionHeader); id != "" {
			fields = append(fields, zap.String("session", id))
		}
		logger.Info("request completed", fields...)
	}
}
