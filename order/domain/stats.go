package domain

import (
	"context"
	"time"
)

// Outcome é o desfecho de uma requisição de pedido, usado em estatísticas.
// Para falhas é o nome do ErrorKind; para sucesso, "accepted".
type Outcome string

const OutcomeAccepted Outcome = "accepted"

func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeAccepted
	}
	return Outcome(KindOf(err).String())
}

// StatsEvent registra o desfecho de uma requisição.
//
// ClientIP só é gravado por implementações configuradas para isso;
// cuidado com cardinalidade.
type StatsEvent struct {
	Variant  string
	Outcome  Outcome
	ClientIP string
	At       time.Time
}

// StatsStore persiste estatísticas de desfecho. Erros são best-effort:
// quem chama loga e segue.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
