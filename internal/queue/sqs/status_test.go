package sqs

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"aws-sqs-message-relay/internal/message"
	"aws-sqs-message-relay/internal/validation"
)

// newEndpoint serves every SQS call with the given status and JSON body.
func newEndpoint(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-amz-json-1.0")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newEndpointClient(server *httptest.Server) *sqs.Client {
	return sqs.New(sqs.Options{
		Region:                           "us-east-1",
		BaseEndpoint:                     aws.String(server.URL),
		Credentials:                      aws.AnonymousCredentials{},
		HTTPClient:                       server.Client(),
		RetryMaxAttempts:                 1,
		DisableMessageChecksumValidation: true,
	})
}

var _ = Describe("SqsActions response status", func() {
	var (
		server  *httptest.Server
		actions *SqsActions
		ctx     context.Context
	)

	AfterEach(func() {
		server.Close()
	})

	use := func(status int, body string) {
		ctx = context.Background()
		server = newEndpoint(status, body)
		actions = &SqsActions{
			SqsClient: newEndpointClient(server),
			Config: &Config{
				QueueUrl:                 server.URL + "/000000000000/messages.fifo",
				GroupID:                  "1",
				VisibilityTimeoutSeconds: expectedVisibilityTimeout,
				WaitTimeSeconds:          0,
			},
		}
	}

	It("accepts a 200 send", func() {
		use(http.StatusOK, `{"MessageId":"id1"}`)

		id, err := actions.Push(ctx, message.New("hello"))
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("id1"))
	})

	It("fails with QueueWriteError on a non-200 send", func() {
		use(http.StatusAccepted, `{"MessageId":"id1"}`)

		_, err := actions.Push(ctx, message.New("hello"))
		Expect(err).To(MatchError(validation.ErrQueueWrite))
		Expect(err.Error()).To(ContainSubstring("status 202"))
	})

	It("accepts a 200 receive", func() {
		use(http.StatusOK, `{"Messages":[{"MessageId":"msg-1","ReceiptHandle":"r1","Body":"{\"Body\":\"A1\"}"}]}`)

		handles, err := actions.Poll(ctx, pollCount)
		Expect(err).NotTo(HaveOccurred())
		Expect(handles).To(HaveLen(1))
		Expect(handles[0].Message.Body).To(Equal("A1"))
	})

	It("fails with MessageReadError on a non-200 receive", func() {
		use(http.StatusAccepted, `{"Messages":[]}`)

		handles, err := actions.Poll(ctx, pollCount)
		Expect(err).To(MatchError(validation.ErrMessageRead))
		Expect(err.Error()).To(ContainSubstring("status 202"))
		Expect(handles).To(BeNil())
	})
})
