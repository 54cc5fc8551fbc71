// Package app assembles the components both binaries share.
package app

import (
	"context"
	"fmt"

	"aws-sqs-message-relay/configs"
	"aws-sqs-message-relay/internal/logger"
	"aws-sqs-message-relay/internal/queue"
	redisQueue "aws-sqs-message-relay/internal/queue/redis"
	"aws-sqs-message-relay/internal/queue/sqs"
)

// NewQueue builds the backend selected by QUEUE_TYPE. The returned func
// releases its connections.
func NewQueue(ctx context.Context, cfg *configs.Config) (queue.Queue, func(), error) {
	switch cfg.QueueType {
	case configs.QueueTypeSQS:
		client, err := sqs.NewClient(ctx, cfg.QueueAwsSqsRegion, cfg.QueueAwsSqsEndpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to create sqs client: %w", err)
		}
		logger.Info("Using SQS queue %s", cfg.QueueAwsSqsUrl)
		return &sqs.SqsActions{
			SqsClient: client,
			Config: &sqs.Config{
				QueueUrl:                 cfg.QueueAwsSqsUrl,
				GroupID:                  cfg.QueueAwsSqsGroupID,
				VisibilityTimeoutSeconds: cfg.QueueAwsSqsVisibilityTimeout,
				WaitTimeSeconds:          cfg.QueueAwsSqsWaitTimeSeconds,
			},
		}, func() {}, nil

	case configs.QueueTypeRedis:
		client := redisQueue.NewClient(cfg.QueueRedisEndpoint, cfg.QueueRedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("unable to connect to redis: %w", err)
		}
		logger.Info("Using Redis queue %s key %s", cfg.QueueRedisEndpoint, cfg.QueueRedisKey)
		return &redisQueue.RedisActions{
			Client: client,
			Config: &redisQueue.Config{
				Key:               cfg.QueueRedisKey,
				VisibilityTimeout: cfg.QueueVisibilityTimeoutDuration,
			},
		}, func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported queue type %q", cfg.QueueType)
}
