package booking

import (
	"context"
	"errors"
	"time"

	"hvac-backoffice/pkg/logger"
)

// ErrQueueFull is returned when the confirmation queue cannot take another message.
var ErrQueueFull = errors.New("sms queue full")

type smsJob struct {
	to, body string
}

// SMSQueue delivers confirmation texts off the request path. It satisfies Notifier,
// so a voice turn that books an appointment never waits on the SMS provider.
// Run drains the queue; it must be started by the process that owns the queue.
type SMSQueue struct {
	sender  Notifier
	jobs    chan smsJob
	timeout time.Duration
	drain   time.Duration
}

// NewSMSQueue wraps sender with a buffer of size messages. Each send gets its own
// timeout, independent of the request that enqueued it.
func NewSMSQueue(sender Notifier, size int, timeout time.Duration) *SMSQueue {
	if size <= 0 {
		size = 256
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SMSQueue{
		sender:  sender,
		jobs:    make(chan smsJob, size),
		timeout: timeout,
		drain:   10 * time.Second,
	}
}

// SendSMS enqueues the message and returns immediately with an empty message id.
func (q *SMSQueue) SendSMS(_ context.Context, to, body string) (string, error) {
	select {
	case q.jobs <- smsJob{to: to, body: body}:
		return "", nil
	default:
		return "", ErrQueueFull
	}
}

// Pending reports the number of queued messages.
func (q *SMSQueue) Pending() int { return len(q.jobs) }

// Run sends queued messages until ctx is cancelled, then flushes what is left
// within the drain budget. It always returns nil.
func (q *SMSQueue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.flush(context.WithoutCancel(ctx))
			return nil
		case job := <-q.jobs:
			// A send in flight is bounded by its own timeout, not by shutdown.
			q.send(context.WithoutCancel(ctx), job)
		}
	}
}

func (q *SMSQueue) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, q.drain)
	defer cancel()
	for {
		select {
		case job := <-q.jobs:
			if ctx.Err() != nil {
				logger.From(ctx).Warn("confirmation sms dropped at shutdown", "pending", len(q.jobs)+1)
				return
			}
			q.send(ctx, job)
		default:
			return
		}
	}
}

func (q *SMSQueue) send(ctx context.Context, job smsJob) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	sid, err := q.sender.SendSMS(ctx, job.to, job.body)
	if err != nil {
		logger.From(ctx).Warn("confirmation sms failed", "err", err)
		return
	}
	logger.From(ctx).Debug("confirmation sms sent", "message_id", sid)
}
