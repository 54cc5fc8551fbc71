package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"aws-sqs-message-relay/configs"
	"aws-sqs-message-relay/internal/app"
	relayhttp "aws-sqs-message-relay/internal/http"
	"aws-sqs-message-relay/internal/logger"
	"aws-sqs-message-relay/internal/metrics"
	"aws-sqs-message-relay/internal/service"
)

func main() {
	cfg, err := configs.Parse()
	if err != nil {
		panic("unable to set config: " + err.Error())
	}
	if err := logger.Setup(cfg.LogLevel); err != nil {
		panic("unable to set logger: " + err.Error())
	}
	defer logger.Sync()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	q, closeQueue, err := app.NewQueue(ctx, cfg)
	if err != nil {
		logger.Fatal("unable to set queue: %s", err)
	}
	defer closeQueue()

	svc := &service.MessageService{Writer: q}
	<-relayhttp.StartHTTPServer(ctx, cfg.HTTPAddr, relayhttp.NewRouter(svc))
	logger.Info("Writer stopped")
}
