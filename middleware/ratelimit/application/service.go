package application

import (
	"context"
	"time"

	"order-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit por token bucket.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true, Remaining: -1}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	lim := s.Store.Get(key)
	if lim == nil || lim.Allow() {
		return domain.Decision{Allowed: true, Remaining: -1}
	}
	return domain.Decision{Allowed: false, RetryAfter: s.RetryAfter}
}

// WindowService aplica a janela deslizante por chave.
//
// Erro do store é devolvido junto com uma decisão permissiva (fail-open):
// quem chama loga o erro e segue com o pedido.
type WindowService struct {
	Store domain.WindowStore
	Now   func() time.Time
}

func (s WindowService) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Store == nil {
		return domain.Decision{Allowed: true, Remaining: -1}, nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	dec, err := s.Store.Hit(ctx, key, now())
	if err != nil {
		return domain.Decision{Allowed: true, Remaining: -1}, err
	}
	if !dec.Allowed && dec.RetryAfter < time.Second {
		// Retry-After é em segundos; nunca sugerir 0.
		dec.RetryAfter = time.Second
	}
	return dec, nil
}
