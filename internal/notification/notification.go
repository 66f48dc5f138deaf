// Package notification delivers transactional email through a pluggable
// Sender. Delivery is fire-and-forget: callers never wait on or see failures.
package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const sendTimeout = 10 * time.Second

// Message is one outgoing email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

// Sender delivers a message over one transport.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

var notificationsSent = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Notification deliveries by sender and outcome.",
	},
	[]string{"sender", "status"},
)

// Dispatcher sends messages in the background.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger, timeout: sendTimeout}
}

// Dispatch queues msg for delivery and returns immediately. The send outlives
// the caller's context but keeps its values for logging and tracing. After
// Close, messages are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.WarnContext(ctx, "notification dropped after shutdown",
			slog.String("subject", msg.Subject),
		)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	go func() {
		defer d.wg.Done()
		defer cancel()

		if err := d.sender.Send(sendCtx, msg); err != nil {
			notificationsSent.WithLabelValues(d.sender.Name(), "failed").Inc()
			d.logger.ErrorContext(sendCtx, "notification delivery failed",
				slog.String("sender", d.sender.Name()),
				slog.String("subject", msg.Subject),
				slog.String("error", err.Error()),
			)
			return
		}
		notificationsSent.WithLabelValues(d.sender.Name(), "sent").Inc()
	}()
}

// Close stops accepting messages and waits for in-flight sends.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
