package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"aws-sqs-message-relay/configs"
	"aws-sqs-message-relay/internal/app"
	relayhttp "aws-sqs-message-relay/internal/http"
	"aws-sqs-message-relay/internal/logger"
	"aws-sqs-message-relay/internal/metrics"
	"aws-sqs-message-relay/internal/service"
	"aws-sqs-message-relay/internal/worker"
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

	metrics.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	q, closeQueue, err := app.NewQueue(ctx, cfg)
	if err != nil {
		logger.Fatal("unable to set queue: %s", err)
	}
	defer closeQueue()

	svc := &service.MessageService{Reader: q}
	reader := worker.NewContinuousReader(
		worker.NewTimer(cfg.ReaderIntervalDuration),
		svc,
		int(cfg.ReaderBatchSize),
		cfg.ReaderCycleTimeoutDuration,
	)

	serverStopped := relayhttp.StartHTTPServer(ctx, cfg.HTTPAddr, relayhttp.NewRouter(nil))

	reader.Start(ctx)
	<-ctx.Done()
	reader.Stop()

	logger.Info("Waiting for the in-flight cycle to finish...")
	reader.Timer.Wait()

	select {
	case <-serverStopped:
	case <-time.After(10 * time.Second):
	}
	logger.Info("Reader stopped")
}
