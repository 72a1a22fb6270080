package mailer

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher is the subset of *nats.Conn used to enqueue mail jobs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSender enqueues messages on a NATS subject for a mail worker.
type NATSSender struct {
	publisher Publisher
	subject   string
}

// NewNATSSender constructs a sender publishing to subject.
func NewNATSSender(publisher Publisher, subject string) *NATSSender {
	return &NATSSender{publisher: publisher, subject: subject}
}

// Send publishes the encoded message.
func (s *NATSSender) Send(_ context.Context, msg Message) error {
	if s.publisher == nil || s.subject == "" {
		return fmt.Errorf("nats publisher is not configured")
	}
	payload, err := encode(msg)
	if err != nil {
		return err
	}
	return s.publisher.Publish(s.subject, payload)
}

// Worker consumes queued mail jobs and hands them to a delivery sender.
type Worker struct {
	conn     *nats.Conn
	subject  string
	delivery Sender
	logger   zerolog.Logger
}

// NewWorker constructs a mail worker.
func NewWorker(conn *nats.Conn, subject string, delivery Sender, logger zerolog.Logger) *Worker {
	return &Worker{
		conn:     conn,
		subject:  subject,
		delivery: delivery,
		logger:   logger.With().Str("component", "mail_worker").Logger(),
	}
}

// Start subscribes to the mail subject until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	if w.conn == nil || w.subject == "" {
		return
	}

	sub, err := w.conn.QueueSubscribe(w.subject, "exam-mail", func(msg *nats.Msg) {
		w.Handle(ctx, msg.Data)
	})
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to subscribe to mail subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			w.logger.Warn().Err(err).Msg("failed to drain mail subscription")
		}
	}()
}

// Handle decodes and delivers one queued job.
func (w *Worker) Handle(ctx context.Context, data []byte) {
	msg, err := decode(data)
	if err != nil {
		w.logger.Warn().Err(err).Msg("discarding malformed mail job")
		return
	}
	if err := w.delivery.Send(ctx, msg); err != nil {
		w.logger.Error().Err(err).Str("kind", msg.Kind).Msg("mail delivery failed")
	}
}
