package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// Implementado pelo token bucket da camada infra (golang.org/x/time/rate).
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (ex: IP, API key, usuário).
type LimiterStore interface {
	Get(Key) Limiter
}

// WindowStore conta chamadas por chave dentro de uma janela deslizante
// (ex: 10 pedidos por hora por IP).
//
// Hit só registra `now` quando a chamada é permitida: chamadas rejeitadas
// não ocupam espaço na janela.
type WindowStore interface {
	Hit(ctx context.Context, key Key, now time.Time) (Decision, error)
}

type Decision struct {
	Allowed bool
	// Remaining é quantas chamadas ainda cabem na janela depois desta.
	// -1 quando a implementação não sabe informar.
	Remaining int
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// SlotPool limita quantas requisições são atendidas ao mesmo tempo.
// O release devolvido por Acquire deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
