package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ondemand-reports-api/pkg/jobs"
)

// NotificationLevelError marks user-visible error notifications.
const NotificationLevelError = "error"

// Notification is a user-visible toast message.
type Notification struct {
	UserID  string    `json:"userId"`
	Tag     string    `json:"tag,omitempty"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

// Notifier delivers user notifications. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, note Notification) {
	n.logger.Info("user notification",
		zap.String("user_id", note.UserID),
		zap.String("tag", note.Tag),
		zap.String("level", note.Level),
		zap.String("message", note.Message))
}

// WriterNotifier prints notifications as plain lines, used by the CLI.
type WriterNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriterNotifier constructs a WriterNotifier.
func NewWriterNotifier(out io.Writer) *WriterNotifier {
	return &WriterNotifier{out: out}
}

// Notify implements Notifier.
func (n *WriterNotifier) Notify(_ context.Context, note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "[%s] %s\n", note.Level, note.Message)
}

type notificationDispatcher interface {
	Enqueue(job jobs.Job) error
}

// QueueNotifier hands notifications to a background queue for publishing.
type QueueNotifier struct {
	queue  notificationDispatcher
	logger *zap.Logger
}

// NewQueueNotifier constructs a QueueNotifier.
func NewQueueNotifier(queue notificationDispatcher, logger *zap.Logger) *QueueNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueNotifier{queue: queue, logger: logger}
}

// Notify implements Notifier. Enqueue failures are logged and dropped.
func (n *QueueNotifier) Notify(_ context.Context, note Notification) {
	if n.queue == nil {
		return
	}
	if err := n.queue.Enqueue(jobs.Job{Type: "notification", Payload: note}); err != nil {
		n.logger.Warn("failed to enqueue notification", zap.String("user_id", note.UserID), zap.Error(err))
	}
}

type notificationPublisher interface {
	PublishNotification(ctx context.Context, userID string, payload interface{}) error
}

// NotificationWorker publishes queued notifications.
type NotificationWorker struct {
	publisher notificationPublisher
}

// NewNotificationWorker constructs a worker.
func NewNotificationWorker(publisher notificationPublisher) *NotificationWorker {
	return &NotificationWorker{publisher: publisher}
}

// Handle processes a queue job.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job) error {
	note, ok := job.Payload.(Notification)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected notification payload %T", job.Payload))
	}
	return w.publisher.PublishNotification(ctx, note.UserID, note)
}

// MultiNotifier fans a notification out to several notifiers.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, note Notification) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, note)
		}
	}
}
