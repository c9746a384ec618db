package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"order-gateway/order/domain"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	ErrNoDestinations        = errors.New("no chat destinations configured")
	ErrAllDestinationsFailed = errors.New("all chat destinations failed")
)

// Destination é um chat configurado. Desabilitado fica na configuração mas
// não recebe mensagens.
type Destination struct {
	ID      string
	Enabled bool
}

// ParseDestinations lê uma lista separada por vírgulas. Um "!" na frente
// desabilita o destino (ids de grupo já começam com "-").
func ParseDestinations(s string) []Destination {
	var out []Destination
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, disabled := strings.CutPrefix(part, "!"); disabled {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, Destination{ID: id, Enabled: false})
			}
			continue
		}
		out = append(out, Destination{ID: part, Enabled: true})
	}
	return out
}

// ChatSender entrega uma mensagem a um chat.
type ChatSender interface {
	Send(ctx context.Context, chatID, text string) error
}

type DispatchResult struct {
	Destination string
	Err         error
	Elapsed     time.Duration
}

type Report struct {
	Results []DispatchResult
}

func (r Report) Succeeded() int {
	return lo.CountBy(r.Results, func(res DispatchResult) bool { return res.Err == nil })
}

func (r Report) Failed() int { return len(r.Results) - r.Succeeded() }

// Fanout envia a mesma mensagem para todos os destinos habilitados em
// paralelo e espera todos terminarem. A falha de um destino não cancela os outros.
type Fanout struct {
	Sender       ChatSender
	Destinations []Destination
	Timeout      time.Duration // por destino
	Limiter      *rate.Limiter // compartilhado entre envios; nil = sem limite
	Log          zerolog.Logger
}

func (f *Fanout) Enabled() []Destination {
	return lo.Filter(f.Destinations, func(d Destination, _ int) bool { return d.Enabled })
}

// Broadcast devolve ErrNoDestinations sem destino habilitado e
// ErrAllDestinationsFailed quando todos falharam. Falha parcial não é erro.
func (f *Fanout) Broadcast(ctx context.Context, text string) (Report, error) {
	targets := f.Enabled()
	if len(targets) == 0 {
		return Report{}, ErrNoDestinations
	}

	results := make([]DispatchResult, len(targets))
	var g errgroup.Group
	for i, dest := range targets {
		g.Go(func() error {
			results[i] = f.send(ctx, dest.ID, text)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Results: results}
	for _, res := range results {
		if res.Err != nil {
			f.Log.Error().Err(res.Err).Str("chat_id", res.Destination).Dur("elapsed", res.Elapsed).Msg("chat dispatch failed")
		} else {
			f.Log.Debug().Str("chat_id", res.Destination).Dur("elapsed", res.Elapsed).Msg("chat dispatch ok")
		}
	}
	if report.Succeeded() == 0 {
		return report, ErrAllDestinationsFailed
	}
	return report, nil
}

func (f *Fanout) send(ctx context.Context, chatID, text string) DispatchResult {
	start := time.Now()
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	res := DispatchResult{Destination: chatID}
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			res.Err = err
			res.Elapsed = time.Since(start)
			return res
		}
	}
	res.Err = f.Sender.Send(ctx, chatID, text)
	res.Elapsed = time.Since(start)
	return res
}

// Mail é a mensagem para o operador; remetente e destinatário são fixos no transporte.
type Mail struct {
	Subject string
	HTML    string
	ReplyTo string // vazio = endereço do operador
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// OrderStore guarda o pedido depois do envio. Opcional.
type OrderStore interface {
	Save(ctx context.Context, order domain.SanitizedOrder) error
}
