// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier"
)

const defaultSubject = "PTS上昇ランキング"

type params struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	Subject  string   `mapstructure:"subject"`
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	subject  string
	sendMail sendFunc
	now      func() time.Time
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		subject:  defaultSubject,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) MaxLength() int { return 0 }

func (e *Email) Init(cfg notifier.Config) error {
	var p params
	if err := notifier.DecodeParams(cfg.Params, &p); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	if p.Host != "" {
		e.host = p.Host
	}
	if p.Port != 0 {
		e.port = p.Port
	}
	if p.Username != "" {
		e.username = p.Username
	}
	if p.Password != "" {
		e.password = p.Password
	}
	if p.From != "" {
		e.from = p.From
	}
	if len(p.To) > 0 {
		e.to = p.To
	}
	if p.Subject != "" {
		e.subject = p.Subject
	}
	if e.subject == "" {
		e.subject = defaultSubject
	}
	if e.port == 0 {
		e.port = 587
	}
	if e.sendMail == nil {
		e.sendMail = smtp.SendMail
	}
	if e.now == nil {
		e.now = time.Now
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	return nil
}

// Send mails the text as the body and the image as an attachment. net/smtp
// has no context support, so ctx is only checked before dialing.
func (e *Email) Send(ctx context.Context, msg notifier.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	if err := e.sendMail(addr, auth, e.from, e.to, e.build(msg)); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}

func (e *Email) build(msg notifier.Message) []byte {
	subject := fmt.Sprintf("%s %s", e.subject, e.now().Format("2006/01/02"))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s\r\n", e.from))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(e.to, ",")))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	sb.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Image) == 0 {
		writeTextPart(&sb, msg.Text)
		return []byte(sb.String())
	}

	boundary := newBoundary()
	sb.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", boundary))

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	writeTextPart(&sb, msg.Text)
	sb.WriteString("\r\n")

	name := msg.ImageName
	if name == "" {
		name = "chart.png"
	}
	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString(fmt.Sprintf("Content-Type: image/png; name=\"%s\"\r\n", name))
	sb.WriteString("Content-Transfer-Encoding: base64\r\n")
	sb.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", name))
	sb.WriteString(wrapBase64(msg.Image))
	sb.WriteString("\r\n")
	sb.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return []byte(sb.String())
}

func writeTextPart(sb *strings.Builder, text string) {
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	sb.WriteString(wrapBase64([]byte(text)))
	sb.WriteString("\r\n")
}

// wrapBase64 encodes b with 76-character lines.
func wrapBase64(b []byte) string {
	encoded := base64.StdEncoding.EncodeToString(b)

	const lineLen = 76
	var out strings.Builder
	for i := 0; i < len(encoded); i += lineLen {
		end := min(i+lineLen, len(encoded))
		out.WriteString(encoded[i:end])
		if end < len(encoded) {
			out.WriteString("\r\n")
		}
	}
	return out.String()
}

func newBoundary() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "pts_boundary"
	}
	return fmt.Sprintf("pts_%x", b)
}
