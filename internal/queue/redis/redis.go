package redisQueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"aws-sqs-message-relay/internal/logger"
	"aws-sqs-message-relay/internal/message"
	"aws-sqs-message-relay/internal/metrics"
	"aws-sqs-message-relay/internal/validation"
)

// RedisActions provides the queue contract on top of a Redis list. Received
// entries are parked in an in-flight hash until deleted or until their
// visibility timeout lapses, at which point they return to the list head.
type RedisActions struct {
	Client *redis.Client    // Redis client
	Config *Config          // Configuration for Redis queue
	Now    func() time.Time // Clock, defaults to time.Now
}

type Config struct {
	Key               string        // Redis list key
	VisibilityTimeout time.Duration // How long a received message stays hidden
}

// envelope is the list entry stored per message.
type envelope struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// receiveScript pops the list head and parks it in flight in one step, so a
// popped entry is never held only by the client.
// KEYS: list, inflight hash, deadlines zset. ARGV: handle, deadline millis.
var receiveScript = redis.NewScript(`
local raw = redis.call('LPOP', KEYS[1])
if not raw then
	return false
end
redis.call('HSET', KEYS[2], ARGV[1], raw)
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
return raw
`)

// requeueScript returns an expired in-flight entry to the list head.
// KEYS: list, inflight hash, deadlines zset. ARGV: handle.
var requeueScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[2], ARGV[1])
if raw then
	redis.call('LPUSH', KEYS[1], raw)
end
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('ZREM', KEYS[3], ARGV[1])
return 1
`)

// NewClient creates a new redis client
func NewClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
}

func (q *RedisActions) inflightKey() string  { return q.Config.Key + ":inflight" }
func (q *RedisActions) deadlinesKey() string { return q.Config.Key + ":deadlines" }

func (q *RedisActions) keys() []string {
	return []string{q.Config.Key, q.inflightKey(), q.deadlinesKey()}
}

func (q *RedisActions) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}
	return time.Now()
}

// Push appends the message to the list. The single list is the single
// ordering group; the generated id doubles as the deduplication id.
func (q *RedisActions) Push(ctx context.Context, msg *message.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	body, err := message.Encode(msg)
	if err != nil {
		return "", validation.Wrap(validation.KindValidation, err, "unable to encode message")
	}

	env := envelope{ID: uuid.NewString(), Body: body}
	data, err := json.Marshal(env)
	if err != nil {
		return "", validation.Wrap(validation.KindQueueWrite, err, "unable to encode envelope")
	}

	if err := q.Client.RPush(ctx, q.Config.Key, data).Err(); err != nil {
		logger.ErrorCtx(ctx, "Redis RPUSH error: %s", err)
		metrics.MessagesSendFailed.Inc()
		return "", validation.Wrap(validation.KindQueueWrite, err, "failed to send message to redis")
	}

	metrics.MessagesSent.Inc()
	return env.ID, nil
}

// Poll pops up to count entries after returning expired in-flight entries to
// the list. Each entry is popped and parked in flight atomically, before it
// is decoded, so a batch failed by a bad entry reappears after the
// visibility timeout.
func (q *RedisActions) Poll(ctx context.Context, count int) ([]message.Handle, error) {
	if err := validation.This(count > 0, validation.KindValidation, "count has to be greater than 0"); err != nil {
		return nil, err
	}

	if err := q.requeueExpired(ctx); err != nil {
		return nil, validation.Wrap(validation.KindMessageRead, err, "failed to requeue expired messages")
	}

	deadline := q.now().Add(q.Config.VisibilityTimeout).UnixMilli()
	var (
		raws    []string
		handles []string
	)
	for i := 0; i < count; i++ {
		handle := uuid.NewString()
		raw, err := receiveScript.Run(ctx, q.Client, q.keys(), handle, deadline).Text()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			logger.ErrorCtx(ctx, "Redis receive error: %s", err)
			return nil, validation.Wrap(validation.KindMessageRead, err, "failed to read messages from redis")
		}
		raws = append(raws, raw)
		handles = append(handles, handle)
	}

	result := make([]message.Handle, 0, len(raws))
	for i, raw := range raws {
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, validation.Wrap(validation.KindMessageRead, err,
				fmt.Sprintf("error while reading message. handle:%s", handles[i]))
		}
		msg, err := message.Decode(env.Body)
		if err != nil {
			return nil, validation.Wrap(validation.KindMessageRead, err,
				fmt.Sprintf("error while reading message. ID:%s", env.ID))
		}
		result = append(result, message.Handle{Message: msg, MessageID: env.ID, ReceiptHandle: handles[i]})
	}
	metrics.MessagesReceived.Add(float64(len(result)))
	return result, nil
}

// Delete drops the given handles from the in-flight set. Handles no longer in
// flight are logged and ignored.
func (q *RedisActions) Delete(ctx context.Context, handles []message.Handle) error {
	if err := validation.This(len(handles) > 0, validation.KindValidation,
		"handles must contain at least one entry"); err != nil {
		return err
	}

	pipe := q.Client.TxPipeline()
	removed := make([]*redis.IntCmd, 0, len(handles))
	for _, h := range handles {
		removed = append(removed, pipe.HDel(ctx, q.inflightKey(), h.ReceiptHandle))
		pipe.ZRem(ctx, q.deadlinesKey(), h.ReceiptHandle)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.ErrorCtx(ctx, "unable to delete messages from queue: %s", err)
		return fmt.Errorf("delete messages: %w", err)
	}

	failed := 0
	for i, cmd := range removed {
		if cmd.Val() == 0 {
			failed++
			logger.ErrorCtx(ctx, "Failed to delete message: id=%s handle=%s: not in flight",
				handles[i].MessageID, handles[i].ReceiptHandle)
		}
	}
	metrics.MessagesDeleteFailed.Add(float64(failed))
	metrics.MessagesDeleted.Add(float64(len(handles) - failed))
	return nil
}

// requeueExpired moves in-flight entries whose deadline has passed back to the
// head of the list, oldest first.
func (q *RedisActions) requeueExpired(ctx context.Context) error {
	expired, err := q.Client.ZRangeByScore(ctx, q.deadlinesKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return err
	}

	for i := len(expired) - 1; i >= 0; i-- {
		if err := requeueScript.Run(ctx, q.Client, q.keys(), expired[i]).Err(); err != nil {
			return err
		}
	}
	return nil
}
