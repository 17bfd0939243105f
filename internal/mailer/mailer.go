// Package mailer sends the transactional confirmation emails. Bodies are
// written as markdown, rendered to HTML with goldmark, and delivered over
// SMTP with mailyak. The plain-text part is the same markdown with the
// participant's values left unescaped.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/domodwyer/mailyak/v3"
	"github.com/yuin/goldmark"
)

type Config struct {
	// SMTPAddr is host:port of the provider's SMTP relay.
	SMTPAddr string
	Username string
	APIKey   string
	From     string
	FromName string
}

type Confirmation struct {
	To          string
	Name        string
	EventName   string
	TicketURL   string
	TicketCount int
	// Coupon is set for approved voucher inscriptions.
	Coupon string
}

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer struct {
	cfg      Config
	markdown goldmark.Markdown
	send     func(ctx context.Context, msg Message) error
}

func New(cfg Config) *Mailer {
	m := &Mailer{cfg: cfg, markdown: goldmark.New()}
	m.send = m.sendSMTP
	return m
}

// NewWithSender replaces SMTP delivery, for tests and dry runs.
func NewWithSender(cfg Config, send func(ctx context.Context, msg Message) error) *Mailer {
	return &Mailer{cfg: cfg, markdown: goldmark.New(), send: send}
}

func (m *Mailer) SendConfirmation(ctx context.Context, c Confirmation) error {
	msg, err := m.Render(c)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation to %s: %w", c.To, err)
	}
	return nil
}

// Render builds the confirmation message without sending it.
func (m *Mailer) Render(c Confirmation) (Message, error) {
	subject := fmt.Sprintf("Your %s tickets are confirmed!", c.EventName)
	if c.Coupon != "" {
		subject = fmt.Sprintf("Your voucher for %s was approved!", c.EventName)
	}

	var html bytes.Buffer
	if err := m.markdown.Convert([]byte(compose(c, escapeMarkdown)), &html); err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}

	return Message{
		To:      c.To,
		Subject: subject,
		Text:    compose(c, func(s string) string { return s }),
		HTML:    html.String(),
	}, nil
}

// compose writes the markdown body, passing user-supplied values through escape.
func compose(c Confirmation, escape func(string) string) string {
	var md strings.Builder

	fmt.Fprintf(&md, "# Hello, %s!\n\n", escape(c.Name))
	if c.Coupon != "" {
		fmt.Fprintf(&md, "Your inscription with the voucher **%s** was approved.\n\n", escape(c.Coupon))
	} else {
		md.WriteString("Your payment was confirmed.\n\n")
	}
	if c.TicketCount > 1 {
		fmt.Fprintf(&md, "Your %d digital tickets are ready: [View your tickets](%s)\n\n", c.TicketCount, c.TicketURL)
	} else {
		fmt.Fprintf(&md, "Your digital ticket is ready: [View your ticket](%s)\n\n", c.TicketURL)
	}
	md.WriteString("Thank you!\n")
	return md.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "`", "\\`",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func (m *Mailer) sendSMTP(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	host, _, err := net.SplitHostPort(m.cfg.SMTPAddr)
	if err != nil {
		return fmt.Errorf("smtp address %q: %w", m.cfg.SMTPAddr, err)
	}

	mail := mailyak.New(m.cfg.SMTPAddr, smtp.PlainAuth("", m.cfg.Username, m.cfg.APIKey, host))
	mail.To(msg.To)
	mail.From(m.cfg.From)
	if m.cfg.FromName != "" {
		mail.FromName(m.cfg.FromName)
	}
	mail.Subject(msg.Subject)
	mail.Plain().Set(msg.Text)
	mail.HTML().Set(msg.HTML)

	return mail.Send()
}
