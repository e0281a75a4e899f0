package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hibiken/asynq"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/notifications"
)

// ──────── Email delivery ────────

type EmailHandler struct {
	sender notifications.Sender
	logger hclog.Logger
}

func NewEmailHandler(sender notifications.Sender, logger hclog.Logger) *EmailHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &EmailHandler{sender: sender, logger: logger.Named("email")}
}

func (h *EmailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var msg notifications.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("decode email payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Warn("email delivery failed", "subject", msg.Subject, "error", err)
		return fmt.Errorf("send email: %v: %w", err, asynq.SkipRetry)
	}
	h.logger.Debug("email delivered", "subject", msg.Subject, "recipients", len(msg.To))
	return nil
}

type enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (string, error)
}

// Mailer hands messages to the queue instead of sending them inline.
type Mailer struct {
	queue enqueuer
}

func NewMailer(q *Queue) *Mailer {
	return &Mailer{queue: q}
}

func (m *Mailer) Send(ctx context.Context, msg notifications.Message) error {
	_, err := m.queue.Enqueue(ctx, TaskSendEmail, msg, asynq.Queue("default"))
	return err
}

// RegisterHandlers wires every task type to its handler.
func RegisterHandlers(q *Queue, sender notifications.Sender, logger hclog.Logger) {
	q.RegisterHandler(TaskSendEmail, NewEmailHandler(sender, logger))
}
