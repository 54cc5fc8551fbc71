package redisQueue

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"aws-sqs-message-relay/internal/logger"
	"aws-sqs-message-relay/internal/message"
	"aws-sqs-message-relay/internal/validation"
)

var _ = Describe("RedisActions", func() {
	var (
		server  *miniredis.Miniredis
		client  *redis.Client
		actions *RedisActions
		logs    *observer.ObservedLogs
		restore func()
		now     time.Time
		ctx     context.Context
	)

	BeforeEach(func() {
		var core zapcore.Core
		core, logs = observer.New(zap.InfoLevel)
		restore = logger.Replace(zap.New(core))

		server = miniredis.NewMiniRedis()
		Expect(server.Start()).To(Succeed())
		client = NewClient(server.Addr(), 0)

		now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		ctx = context.Background()
		actions = &RedisActions{
			Client: client,
			Config: &Config{Key: "messages", VisibilityTimeout: 30 * time.Second},
			Now:    func() time.Time { return now },
		}
	})

	AfterEach(func() {
		_ = client.Close()
		server.Close()
		restore()
	})

	push := func(bodies ...string) []string {
		ids := make([]string, 0, len(bodies))
		for _, body := range bodies {
			id, err := actions.Push(ctx, message.New(body))
			Expect(err).NotTo(HaveOccurred())
			ids = append(ids, id)
		}
		return ids
	}

	It("round-trips bodies in push order", func() {
		ids := push("first", "second", "third")

		handles, err := actions.Poll(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(handles).To(HaveLen(3))
		for i, body := range []string{"first", "second", "third"} {
			Expect(handles[i].Message.Body).To(Equal(body))
			Expect(handles[i].MessageID).To(Equal(ids[i]))
			Expect(handles[i].ReceiptHandle).NotTo(BeEmpty())
		}
	})

	It("returns distinct ids for identical bodies", func() {
		ids := push("same", "same", "same")
		Expect(ids[0]).NotTo(Equal(ids[1]))
		Expect(ids[1]).NotTo(Equal(ids[2]))
	})

	It("polls at most count messages", func() {
		push("a", "b", "c")

		handles, err := actions.Poll(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(handles).To(HaveLen(2))

		rest, err := actions.Poll(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(rest).To(HaveLen(1))
		Expect(rest[0].Message.Body).To(Equal("c"))
	})

	It("returns an empty result on an empty queue", func() {
		handles, err := actions.Poll(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(handles).To(BeEmpty())
	})

	It("redelivers undeleted messages after the visibility timeout", func() {
		push("a", "b")
		handles, err := actions.Poll(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(handles).To(HaveLen(2))

		hidden, err := actions.Poll(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(hidden).To(BeEmpty())

		now = now.Add(31 * time.Second)
		again, err := actions.Poll(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(HaveLen(2))
		Expect(again[0].Message.Body).To(Equal("a"))
		Expect(again[1].Message.Body).To(Equal("b"))
		Expect(again[0].ReceiptHandle).NotTo(Equal(handles[0].ReceiptHandle))
	})

	It("does not redeliver deleted messages", func() {
		push("a", "b")
		handles, err := actions.Poll(ctx, 5)
		Expect(err).NotTo(HaveOccurred())

		Expect(actions.Delete(ctx, handles)).To(Succeed())

		now = now.Add(time.Hour)
		again, err := actions.Poll(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeEmpty())
	})

	It("logs and swallows expired handles on delete", func() {
		push("a")
		handles, err := actions.Poll(ctx, 5)
		Expect(err).NotTo(HaveOccurred())

		now = now.Add(time.Minute)
		redelivered, err := actions.Poll(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(redelivered).To(HaveLen(1))

		Expect(actions.Delete(ctx, handles)).To(Succeed())
		Expect(logs.FilterMessageSnippet("Failed to delete message").Len()).To(Equal(1))
	})

	It("fails the whole poll on an undecodable entry", func() {
		push("good")
		Expect(client.RPush(ctx, "messages", `{"id":"bad-1","body":"null"}`).Err()).To(Succeed())

		_, err := actions.Poll(ctx, 5)
		Expect(err).To(MatchError(validation.ErrMessageRead))
		Expect(err.Error()).To(ContainSubstring("ID:bad-1"))
		Expect(err).NotTo(MatchError(validation.ErrValidation))
	})

	It("parks every popped entry in flight with its deadline", func() {
		push("a", "b")

		handles, err := actions.Poll(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(handles).To(HaveLen(1))

		list, err := server.List("messages")
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(1))

		inflight, err := server.HKeys("messages:inflight")
		Expect(err).NotTo(HaveOccurred())
		Expect(inflight).To(ConsistOf(handles[0].ReceiptHandle))

		score, err := server.ZScore("messages:deadlines", handles[0].ReceiptHandle)
		Expect(err).NotTo(HaveOccurred())
		Expect(score).To(Equal(float64(now.Add(30 * time.Second).UnixMilli())))
	})

	It("keeps a batch failed by an undecodable entry for redelivery", func() {
		push("good")
		Expect(client.RPush(ctx, "messages", `{"id":"bad-1","body":"null"}`).Err()).To(Succeed())

		_, err := actions.Poll(ctx, 5)
		Expect(err).To(MatchError(validation.ErrMessageRead))

		inflight, err := server.HKeys("messages:inflight")
		Expect(err).NotTo(HaveOccurred())
		Expect(inflight).To(HaveLen(2))

		now = now.Add(31 * time.Second)
		Expect(actions.requeueExpired(ctx)).To(Succeed())

		list, err := server.List("messages")
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(2))
		Expect(list).To(ContainElement(ContainSubstring("bad-1")))
	})

	It("fails with MessageReadError when redis is unreachable", func() {
		Expect(client.Close()).To(Succeed())

		_, err := actions.Poll(ctx, 5)
		Expect(err).To(MatchError(validation.ErrMessageRead))
	})

	It("fails with QueueWriteError when redis is unreachable", func() {
		Expect(client.Close()).To(Succeed())

		_, err := actions.Push(ctx, message.New("hello"))
		Expect(err).To(MatchError(validation.ErrQueueWrite))
	})

	DescribeTable("rejects invalid arguments without touching redis",
		func(call func() error) {
			Expect(call()).To(MatchError(validation.ErrValidation))
			Expect(server.Keys()).To(BeEmpty())
		},
		Entry("nil message", func() error { _, err := actions.Push(ctx, nil); return err }),
		Entry("blank body", func() error { _, err := actions.Push(ctx, message.New(" ")); return err }),
		Entry("zero count", func() error { _, err := actions.Poll(ctx, 0); return err }),
		Entry("negative count", func() error { _, err := actions.Poll(ctx, -3); return err }),
		Entry("empty delete", func() error { return actions.Delete(ctx, nil) }),
	)

	It("keeps one list per key", func() {
		push("a")
		other := &RedisActions{Client: client, Config: &Config{Key: "other"}}
		handles, err := other.Poll(ctx, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(handles).To(BeEmpty())
		Expect(server.Exists("messages")).To(BeTrue(), fmt.Sprint(server.Keys()))
	})
})
