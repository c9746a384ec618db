package application

import (
	"context"
	"errors"
	"time"

	"order-gateway/order/domain"

	"github.com/rs/zerolog"
)

// Channel identifica um canal de notificação.
type Channel string

const (
	ChannelChat Channel = "chat"
	ChannelMail Channel = "mail"
)

// DispatchObserver recebe o resultado de cada canal (métricas).
type DispatchObserver interface {
	Dispatched(channel Channel, err error)
}

// Pipeline executa, para uma variante, os passos depois do rate limit:
// honeypot, CAPTCHA, validação, sanitização, renderização, envio e gravação.
//
// Authority é o canal cuja falha derruba a requisição; falhas do outro canal
// só vão para o log.
type Pipeline struct {
	Variant    string
	Gate       Gate
	Validator  Validator
	Normalizer Normalizer
	Chat       ChatTemplate
	Fanout     *Fanout // nil = sem chat
	Mailer     Mailer  // nil = sem email
	Authority  Channel

	Store        OrderStore // opcional
	StoreTimeout time.Duration

	Observer DispatchObserver
	Log      zerolog.Logger
}

// Process devolve o pedido aceito ou um *domain.Error.
func (p *Pipeline) Process(ctx context.Context, payload *domain.Object, clientIP string) (domain.SanitizedOrder, error) {
	if err := CheckHoneypot(payload); err != nil {
		p.Log.Warn().Str("client_ip", clientIP).Msg("honeypot triggered")
		return domain.SanitizedOrder{}, err
	}

	if err := p.Gate.Check(ctx, payload, clientIP); err != nil {
		return domain.SanitizedOrder{}, err
	}

	if p.Validator != nil {
		if err := p.Validator.Validate(payload); err != nil {
			return domain.SanitizedOrder{}, err
		}
	}

	order, err := p.Normalizer.Normalize(payload, clientIP)
	if err != nil {
		return domain.SanitizedOrder{}, err
	}
	order.Variant = p.Variant
	log := p.Log.With().Str("order_id", order.OrderID).Logger()

	if err := p.dispatch(ctx, order, log); err != nil {
		return domain.SanitizedOrder{}, err
	}

	p.persist(ctx, order, log)

	log.Info().Msg("order processed")
	return order, nil
}

func (p *Pipeline) dispatch(ctx context.Context, order domain.SanitizedOrder, log zerolog.Logger) error {
	var (
		mailErr error
		chatErr error
	)

	if p.Mailer != nil {
		mailErr = p.sendMail(ctx, order)
		p.observe(ChannelMail, mailErr)
		if mailErr != nil {
			log.Error().Err(mailErr).Msg("mail dispatch failed")
		}
	} else if p.Authority == ChannelMail {
		mailErr = errors.New("mail not configured")
	}
	if mailErr != nil && p.Authority == ChannelMail {
		return domain.Wrap(domain.DownstreamDispatchFailed, "mail dispatch failed", mailErr)
	}

	chatErr = p.sendChat(ctx, order)
	if chatErr != nil {
		if errors.Is(chatErr, ErrNoDestinations) {
			log.Warn().Msg("no chat destinations configured")
		} else {
			log.Error().Err(chatErr).Msg("chat dispatch failed")
		}
	}
	if chatErr != nil && p.Authority == ChannelChat {
		return domain.Wrap(domain.DownstreamDispatchFailed, "chat dispatch failed", chatErr)
	}
	return nil
}

func (p *Pipeline) sendMail(ctx context.Context, order domain.SanitizedOrder) error {
	body, err := EmailHTML(order)
	if err != nil {
		return err
	}
	return p.Mailer.Send(ctx, Mail{
		Subject: EmailSubject(order),
		HTML:    body,
		ReplyTo: replyTo(order),
	})
}

func (p *Pipeline) sendChat(ctx context.Context, order domain.SanitizedOrder) error {
	if p.Fanout == nil {
		return ErrNoDestinations
	}
	if p.Chat.tmpl == nil {
		return errors.New("chat template not configured")
	}
	text, err := p.Chat.Render(order)
	if err != nil {
		return err
	}
	report, err := p.Fanout.Broadcast(ctx, text)
	for _, res := range report.Results {
		p.observe(ChannelChat, res.Err)
	}
	return err
}

// persist não altera a resposta: o pedido já foi entregue.
func (p *Pipeline) persist(ctx context.Context, order domain.SanitizedOrder, log zerolog.Logger) {
	if p.Store == nil {
		return
	}
	if p.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.StoreTimeout)
		defer cancel()
	}
	if err := p.Store.Save(ctx, order); err != nil {
		log.Error().Err(err).Msg("order store save failed")
	}
}

func (p *Pipeline) observe(ch Channel, err error) {
	if p.Observer != nil {
		p.Observer.Dispatched(ch, err)
	}
}

// replyTo usa o email do cliente quando ele tem formato válido.
func replyTo(order domain.SanitizedOrder) string {
	email := order.Field("email")
	if email == domain.Sentinel || !IsValidEmail(email) {
		return ""
	}
	return email
}
