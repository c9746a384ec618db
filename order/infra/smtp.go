package infra

import (
	"context"
	"errors"
	"fmt"

	"order-gateway/order/application"

	"github.com/wneessen/go-mail"
)

// msgSender é a parte do *mail.Client que usamos.
type msgSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer envia o pedido do operador para o próprio operador (Gmail com
// senha de app, por padrão).
type SMTPMailer struct {
	operator string
	client   msgSender
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // também é o endereço do operador
	Password string
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("smtp credentials not configured")
	}
	host := cfg.Host
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := cfg.Port
	if port == 0 {
		port = mail.DefaultPortTLS
	}

	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{operator: cfg.Username, client: client}, nil
}

// Send implementa application.Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg application.Mail) error {
	built, err := m.build(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, built); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) build(msg application.Mail) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.operator); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := out.To(m.operator); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}

	replyTo := msg.ReplyTo
	if replyTo == "" {
		replyTo = m.operator
	}
	if err := out.ReplyTo(replyTo); err != nil {
		// reply-to inválido não impede o envio
		_ = out.ReplyTo(m.operator)
	}

	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return out, nil
}
