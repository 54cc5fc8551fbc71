package sqs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/google/uuid"

	"aws-sqs-message-relay/internal/logger"
	"aws-sqs-message-relay/internal/message"
	"aws-sqs-message-relay/internal/metrics"
	"aws-sqs-message-relay/internal/validation"
)

// API is the subset of *sqs.Client used by SqsActions.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// SqsActions provides methods to interact with AWS SQS.
type SqsActions struct {
	SqsClient API     // AWS SQS client
	Config    *Config // Configuration for SQS
}

type Config struct {
	QueueUrl                 string // SQS queue URL
	GroupID                  string // Message group shared by every push
	VisibilityTimeoutSeconds int32  // How long a received message stays hidden
	WaitTimeSeconds          int32  // Long-poll duration of a receive
}

// NewClient creates a new sqs client. A non-empty endpoint overrides the
// resolved service endpoint (LocalStack, ElasticMQ).
func NewClient(ctx context.Context, region string, endpoint string) (*sqs.Client, error) {
	// Load the Shared AWS Configuration
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	// Create an SQS service client
	svc := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return svc, nil
}

// Push sends a single message tagged with the fixed group and a fresh
// deduplication id, so a resend is never suppressed as a duplicate.
func (a *SqsActions) Push(ctx context.Context, msg *message.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	body, err := message.Encode(msg)
	if err != nil {
		return "", validation.Wrap(validation.KindValidation, err, "unable to encode message")
	}

	result, err := a.SqsClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               &a.Config.QueueUrl,
		MessageBody:            aws.String(body),
		MessageGroupId:         aws.String(a.Config.GroupID),
		MessageDeduplicationId: aws.String(uuid.NewString()),
	})
	if err != nil {
		logger.ErrorCtx(ctx, "SQS SendMessage error: %s", err)
		metrics.MessagesSendFailed.Inc()
		return "", validation.Wrap(validation.KindQueueWrite, err, "failed to send message to SQS")
	}
	if status := responseStatus(result.ResultMetadata); status != http.StatusOK {
		logger.ErrorCtx(ctx, "SQS SendMessage returned status %d", status)
		metrics.MessagesSendFailed.Inc()
		return "", validation.New(validation.KindQueueWrite,
			fmt.Sprintf("failed to send message to SQS: status %d", status))
	}

	metrics.MessagesSent.Inc()
	return aws.ToString(result.MessageId), nil
}

// Poll receives up to count messages and decodes each one. A single
// undecodable message fails the whole batch.
func (a *SqsActions) Poll(ctx context.Context, count int) ([]message.Handle, error) {
	if err := validation.This(count > 0, validation.KindValidation, "count has to be greater than 0"); err != nil {
		return nil, err
	}

	result, err := a.SqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    &a.Config.QueueUrl,
		MaxNumberOfMessages:         int32(count),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameAll},
		MessageAttributeNames:       []string{"All"},
		VisibilityTimeout:           a.Config.VisibilityTimeoutSeconds,
		WaitTimeSeconds:             a.Config.WaitTimeSeconds,
	})
	if err != nil {
		logger.ErrorCtx(ctx, "SQS ReceiveMessage error: %s", err)
		return nil, validation.Wrap(validation.KindMessageRead, err, "failed to read messages from SQS")
	}
	if status := responseStatus(result.ResultMetadata); status != http.StatusOK {
		logger.ErrorCtx(ctx, "SQS ReceiveMessage returned status %d", status)
		return nil, validation.New(validation.KindMessageRead,
			fmt.Sprintf("failed to read messages from SQS: status %d", status))
	}

	handles := make([]message.Handle, 0, len(result.Messages))
	for _, m := range result.Messages {
		h, err := toHandle(m)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	metrics.MessagesReceived.Add(float64(len(handles)))
	return handles, nil
}

// Delete removes the messages in one batch request. Entries the queue
// reports as failed are logged and dropped; they reappear once their
// visibility timeout lapses.
func (a *SqsActions) Delete(ctx context.Context, handles []message.Handle) error {
	if err := validation.This(len(handles) > 0, validation.KindValidation,
		"handles must contain at least one entry"); err != nil {
		return err
	}

	entries := make([]types.DeleteMessageBatchRequestEntry, 0, len(handles))
	for _, h := range handles {
		entries = append(entries, types.DeleteMessageBatchRequestEntry{
			Id:            aws.String(uuid.NewString()),
			ReceiptHandle: aws.String(h.ReceiptHandle),
		})
	}

	result, err := a.SqsClient.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: &a.Config.QueueUrl,
		Entries:  entries,
	})
	if err != nil {
		logger.ErrorCtx(ctx, "unable to delete messages from queue: %s", err)
		return fmt.Errorf("delete message batch: %w", err)
	}

	for _, failed := range result.Failed {
		logger.ErrorCtx(ctx, "Failed to delete message: id=%s code=%s senderFault=%t message=%s",
			aws.ToString(failed.Id), aws.ToString(failed.Code), failed.SenderFault, aws.ToString(failed.Message))
	}
	metrics.MessagesDeleteFailed.Add(float64(len(result.Failed)))
	metrics.MessagesDeleted.Add(float64(len(entries) - len(result.Failed)))
	return nil
}

func toHandle(m types.Message) (message.Handle, error) {
	id := aws.ToString(m.MessageId)
	msg, err := message.Decode(aws.ToString(m.Body))
	if err != nil {
		return message.Handle{}, validation.Wrap(validation.KindMessageRead, err,
			fmt.Sprintf("error while reading message. ID:%s", id))
	}
	return message.Handle{
		Message:       msg,
		MessageID:     id,
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
	}, nil
}

// responseStatus returns the HTTP status of the raw response, or 200 when
// none was recorded.
func responseStatus(md middleware.Metadata) int {
	if raw, ok := awsmiddleware.GetRawResponse(md).(*smithyhttp.Response); ok && raw != nil && raw.Response != nil {
		return raw.StatusCode
	}
	return http.StatusOK
}
