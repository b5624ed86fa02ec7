package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartmailr/pkg/mq"
)

type Router struct {
	Engine *gin.Engine
}

// NewRouter wires the HTTP surface. db and publisher may be nil when the
// service runs without persistence or MQ (local mode); readiness then only
// covers what is actually wired.
func NewRouter(pipelineHandler *PipelineHandler, jwtSecret string, db *pgxpool.Pool, publisher *mq.Publisher) *Router {
	r := gin.Default()
	r.Use(TraceMiddleware(), MetricsMiddleware())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}

		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.POST("/messages", pipelineHandler.SubmitMessage)
		auth.GET("/cases/:id", pipelineHandler.GetCase)
		auth.GET("/cases/:id/staged", pipelineHandler.GetStagedAction)
		auth.POST("/cases/:id/cancel", pipelineHandler.CancelCase)
		auth.GET("/digest", pipelineHandler.GetDigest)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
