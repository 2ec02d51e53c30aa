// Package contact handles the "Got an idea?" form: validation, persistence
// and forwarding by email.
package contact

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/jamiewells/portfolio/internal/analytics"
	"github.com/jamiewells/portfolio/internal/config"
)

// Form is bound from the POST body by gin.
type Form struct {
	Name    string `form:"fullName" binding:"required,max=120"`
	Email   string `form:"email" binding:"required,email,max=254"`
	Message string `form:"message" binding:"required,min=10,max=5000"`
}

type FieldErrors map[string]string

// FromBindError turns a binding error into form-field messages.
func FromBindError(err error, dst any) FieldErrors {
	out := FieldErrors{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fieldKey(dst, fe.StructField())] = messageForTag(fe.Tag(), fe.Param())
		}
		return out
	}
	out["_"] = "The form could not be read."
	return out
}

func fieldKey(dst any, structField string) string {
	t := reflect.TypeOf(dst)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return strings.ToLower(structField)
	}
	f, ok := t.FieldByName(structField)
	if !ok {
		return strings.ToLower(structField)
	}
	tag, _, _ := strings.Cut(f.Tag.Get("form"), ",")
	if tag == "" || tag == "-" {
		return strings.ToLower(structField)
	}
	return tag
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Must be at least " + param + " characters."
	case "max":
		return "Must be at most " + param + " characters."
	default:
		return "Invalid value."
	}
}

// Mailer delivers a contact message to the site owner.
type Mailer interface {
	Send(ctx context.Context, m analytics.Message) error
}

// SMTPMailer sends through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg config.SMTP
	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.SMTP) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg analytics.Message) error {
	if !m.cfg.Configured() {
		return errors.New("SMTP credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := m.send(addr, auth, m.cfg.User, []string{m.cfg.To}, Compose(m.cfg, msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Compose renders the raw RFC 5322 message.
func Compose(cfg config.SMTP, msg analytics.Message) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", oneLine(msg.Name))
	body := fmt.Sprintf(`New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form (%s)
`, oneLine(msg.Name), oneLine(msg.Email), msg.Message, msg.ID)

	return []byte("To: " + cfg.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + cfg.User + "\r\n" +
		"Reply-To: " + oneLine(msg.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")
}

// oneLine strips CR/LF so visitor input cannot inject headers.
func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// LogMailer stands in when SMTP is not configured; messages stay in the database.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) Send(_ context.Context, msg analytics.Message) error {
	m.Logger.Info("contact message stored without email delivery",
		zap.String("id", msg.ID), zap.String("from", msg.Email))
	return nil
}

// MessageStore is the persistence the service needs.
type MessageStore interface {
	SaveMessage(ctx context.Context, m analytics.Message) error
}

// Service persists a submission and then forwards it.
type Service struct {
	store  MessageStore
	mailer Mailer
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store MessageStore, mailer Mailer, logger *zap.Logger) *Service {
	return &Service{store: store, mailer: mailer, logger: logger, now: time.Now}
}

// Submit stores the message and emails it. A delivery failure is returned
// but the message is already saved.
func (s *Service) Submit(ctx context.Context, f Form) (analytics.Message, error) {
	msg := analytics.Message{
		ID:        ulid.Make().String(),
		Name:      strings.TrimSpace(f.Name),
		Email:     strings.TrimSpace(f.Email),
		Message:   strings.TrimSpace(f.Message),
		Timestamp: s.now(),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return msg, err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("contact email failed", zap.String("id", msg.ID), zap.Error(err))
		return msg, err
	}
	s.logger.Info("contact message sent", zap.String("id", msg.ID))
	return msg, nil
}
