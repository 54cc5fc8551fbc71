package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aws-sqs-message-relay/internal/logger"
	"aws-sqs-message-relay/internal/message"
)

// MessageSender is the write side of service.MessageService.
type MessageSender interface {
	Send(ctx context.Context, msg *message.Message) (string, error)
}

// NewRouter builds the gin engine. The message routes are only mounted when
// sender is non-nil, so the reader serves health and metrics alone.
func NewRouter(sender MessageSender) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), traceRequest())

	router.GET("/healthz", Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if sender != nil {
		h := &MessageHandler{Sender: sender}
		router.POST("/messages", h.Create)
	}
	return router
}

// StartHTTPServer serves handler on addr until ctx is done, then shuts down
// gracefully. The returned channel is closed once the server has stopped.
func StartHTTPServer(ctx context.Context, addr string, handler http.Handler) <-chan struct{} {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	stopped := make(chan struct{})

	go func() {
		logger.Info("Starting HTTP server on %s", addr)
		if err := srv.ListenAndServe(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				logger.Info("HTTP server closed")
			} else {
				logger.Error("HTTP server failed, error: %s", err.Error())
			}
		}
	}()

	go func() {
		defer close(stopped)
		<-ctx.Done()
		logger.Info("Shutting down HTTP server...")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("HTTP server shutdown failed, error: %s", err.Error())
		} else {
			logger.Info("HTTP server shut down gracefully")
		}
	}()

	return stopped
}

// Healthz reports that the process is serving.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// traceRequest tags the request context with a trace id and logs the outcome.
func traceRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		if logger.TraceIDFromContext(ctx) == "" {
			ctx = logger.WithTraceID(ctx, uuid.NewString())
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if c.FullPath() == "/healthz" || c.FullPath() == "/metrics" {
			return
		}
		logger.InfoCtx(ctx, "%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
