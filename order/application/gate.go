package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"order-gateway/order/domain"

	"github.com/rs/zerolog"
)

const (
	HoneypotField = "honeypot"
	TokenField    = "recaptchaToken"

	DefaultMinScore = 0.5
)

// CheckHoneypot rejeita quando o campo invisível veio preenchido.
// A mensagem é genérica para não revelar o motivo.
func CheckHoneypot(payload *domain.Object) error {
	v, ok := payload.Get(HoneypotField)
	if !ok || v.IsBlank() {
		return nil
	}
	return domain.NewError(domain.SpamSuspected, "Validation failed")
}

// Verdict é a resposta do serviço de verificação de CAPTCHA.
type Verdict struct {
	Success    bool
	Score      float64
	Action     string
	Hostname   string
	ErrorCodes []string
}

type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (Verdict, error)
}

// CaptchaErrorPolicy define o que fazer quando o verificador não responde.
type CaptchaErrorPolicy string

const (
	CaptchaReject  CaptchaErrorPolicy = "reject"
	CaptchaProceed CaptchaErrorPolicy = "proceed"
)

func ParseCaptchaErrorPolicy(s string) (CaptchaErrorPolicy, error) {
	switch p := CaptchaErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case CaptchaReject, CaptchaProceed:
		return p, nil
	default:
		return "", fmt.Errorf("invalid captcha error policy %q (want reject or proceed)", s)
	}
}

// Gate aplica a verificação de CAPTCHA de uma variante.
type Gate struct {
	Verifier      Verifier // nil desliga a verificação
	MinScore      float64
	TokenRequired bool
	OnError       CaptchaErrorPolicy
	Timeout       time.Duration
	Log           zerolog.Logger
}

func (g Gate) Check(ctx context.Context, payload *domain.Object, clientIP string) error {
	token := ""
	if v, ok := payload.Get(TokenField); ok {
		if s, isStr := v.Str(); isStr {
			token = strings.TrimSpace(s)
		}
	}

	if token == "" {
		if g.TokenRequired {
			return domain.FieldError(domain.ValidationFailed, TokenField, "reCAPTCHA token missing")
		}
		return nil
	}
	if g.Verifier == nil {
		return nil
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	verdict, err := g.Verifier.Verify(ctx, token, clientIP)
	if err != nil {
		if g.OnError == CaptchaProceed {
			g.Log.Warn().Err(err).Msg("captcha verification unavailable, proceeding")
			return nil
		}
		return domain.Wrap(domain.UnexpectedFailure, "reCAPTCHA verification failed", err)
	}

	if !verdict.Success {
		g.Log.Warn().Strs("error_codes", verdict.ErrorCodes).Msg("captcha verification failed")
		return domain.NewError(domain.CaptchaRejected, "reCAPTCHA verification failed")
	}

	minScore := g.MinScore
	if minScore == 0 {
		minScore = DefaultMinScore
	}
	if verdict.Score < minScore {
		g.Log.Warn().Float64("score", verdict.Score).Str("action", verdict.Action).Msg("captcha score too low")
		return domain.NewError(domain.CaptchaRejected, "Suspicious activity detected")
	}
	return nil
}
