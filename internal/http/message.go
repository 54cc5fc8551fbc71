package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aws-sqs-message-relay/internal/logger"
	"aws-sqs-message-relay/internal/message"
	"aws-sqs-message-relay/internal/validation"
)

// NewMessageRequest is the body of POST /messages.
type NewMessageRequest struct {
	Body string `json:"body" binding:"required,max=500"`
}

type NewMessageResponse struct {
	ID string `json:"id"`
}

type MessageHandler struct {
	Sender MessageSender
}

// Create pushes the request body to the queue and answers 201 with its id.
func (h *MessageHandler) Create(c *gin.Context) {
	var req NewMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	id, err := h.Sender.Send(ctx, message.New(req.Body))
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorCtx(ctx, "unable to send message: %s", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, NewMessageResponse{ID: id})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, validation.ErrQueueWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
