// Package mailer delivers account and exam notifications. Every send reports
// success as a bool; callers treat failure as advisory.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Message kinds.
const (
	KindInvitation      = "invitation"
	KindPasswordReset   = "password_reset"
	KindStudentApproval = "student_approval"
)

// ExamInfo describes the exam a message refers to.
type ExamInfo struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// Message is the mail job handed to the delivery backend.
type Message struct {
	Kind      string    `json:"kind"`
	To        string    `json:"to"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	Link      string    `json:"link,omitempty"`
	Exam      *ExamInfo `json:"exam,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the minimum fields every mail job needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("recipient is required")
	}
	switch m.Kind {
	case KindInvitation, KindPasswordReset, KindStudentApproval:
		return nil
	default:
		return fmt.Errorf("unknown message kind %q", m.Kind)
	}
}

// Notifier is the notification collaborator used by the exam services.
type Notifier interface {
	SendInvitation(ctx context.Context, to, role, link string, exam ExamInfo) bool
	SendPasswordReset(ctx context.Context, to, name, link string, exam ExamInfo) bool
	SendStudentApproval(ctx context.Context, to, name, link string, exam ExamInfo) bool
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// notifier adapts a Sender into a Notifier.
type notifier struct {
	sender Sender
	logger zerolog.Logger
	now    func() time.Time
}

// New wraps a delivery backend as a Notifier.
func New(sender Sender, logger zerolog.Logger) Notifier {
	return &notifier{
		sender: sender,
		logger: logger.With().Str("component", "mailer").Logger(),
		now:    time.Now,
	}
}

func (n *notifier) SendInvitation(ctx context.Context, to, role, link string, exam ExamInfo) bool {
	return n.dispatch(ctx, Message{Kind: KindInvitation, To: to, Role: role, Link: link, Exam: &exam})
}

func (n *notifier) SendPasswordReset(ctx context.Context, to, name, link string, exam ExamInfo) bool {
	return n.dispatch(ctx, Message{Kind: KindPasswordReset, To: to, Name: name, Link: link, Exam: &exam})
}

func (n *notifier) SendStudentApproval(ctx context.Context, to, name, link string, exam ExamInfo) bool {
	return n.dispatch(ctx, Message{Kind: KindStudentApproval, To: to, Name: name, Link: link, Exam: &exam})
}

func (n *notifier) dispatch(ctx context.Context, msg Message) bool {
	msg.CreatedAt = n.now().UTC()
	if err := msg.Validate(); err != nil {
		n.logger.Warn().Err(err).Str("kind", msg.Kind).Msg("mail job rejected")
		return false
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error().Err(err).Str("kind", msg.Kind).Str("to", msg.To).Msg("failed to send mail")
		return false
	}
	return true
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender constructs a logging sender.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "mail_log").Logger()}
}

// Send logs the message. Query values of the link carry bearer tokens and
// are masked.
func (l *LogSender) Send(_ context.Context, msg Message) error {
	l.logger.Info().
		Str("kind", msg.Kind).
		Str("to", msg.To).
		Str("link", redactLink(msg.Link)).
		Msg("mail delivered to log")
	return nil
}

func redactLink(link string) string {
	if link == "" {
		return ""
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return "***"
	}
	if parsed.RawQuery != "" {
		query := parsed.Query()
		masked := make([]string, 0, len(query))
		for key := range query {
			masked = append(masked, url.QueryEscape(key)+"=***")
		}
		sort.Strings(masked)
		parsed.RawQuery = strings.Join(masked, "&")
	}
	parsed.Fragment = ""
	parsed.User = nil
	return parsed.String()
}

func encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	return msg, msg.Validate()
}
