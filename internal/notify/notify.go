// Package notify emails submitters when their request changes status.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/oafund/internal/model"
)

// Config holds SMTP settings. An empty Host disables sending.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends status emails over SMTP.
type Mailer struct {
	cfg  Config
	log  logrus.FieldLogger
	send sendFunc
}

// New returns a Mailer. With no host configured it does nothing.
func New(cfg Config, log logrus.FieldLogger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// Enabled reports whether a host is configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

// NotifyStatus mails r.Email about the current status of r.
func (m *Mailer) NotifyStatus(ctx context.Context, r model.FundingRequest) error {
	if !m.Enabled() {
		m.log.WithField("timestamp", r.Timestamp).Debug("smtp not configured, skipping notification")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}
	msg := buildMessage(from, r, time.Now())

	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, a, from, []string{r.Email}, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", r.Email, err)
	}
	m.log.WithFields(logrus.Fields{
		"to":     r.Email,
		"status": string(r.Status),
	}).Info("status notification sent")
	return nil
}

// Subject returns the mail subject for a request in its current status.
func Subject(r model.FundingRequest) string {
	return "OA fund request " + string(r.Status)
}

func buildMessage(from string, r model.FundingRequest, at time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&b, "%s: %s\r\n", k, stripCRLF(v))
	}
	header("From", from)
	header("To", r.Email)
	header("Subject", Subject(r))
	header("Date", at.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")

	name := r.AuthorName
	if name == "" {
		name = r.Email
	}
	fmt.Fprintf(&b, "Dear %s,\r\n\r\n", name)
	fmt.Fprintf(&b, "Your Open Access fund request submitted %s is now %s.\r\n\r\n", r.Timestamp, r.Status)
	fmt.Fprintf(&b, "Title:  %s\r\n", r.Title)
	fmt.Fprintf(&b, "Amount: %s\r\n", r.Amount.StringFixed(2))
	if r.Journal != "" {
		fmt.Fprintf(&b, "Journal: %s\r\n", r.Journal)
	}
	b.WriteString("\r\nLibrary Publishing Team\r\n")
	return b.Bytes()
}

func stripCRLF(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
