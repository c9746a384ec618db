package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifica as falhas do pipeline; cada uma mapeia para um status HTTP.
type ErrorKind int

const (
	UnexpectedFailure ErrorKind = iota
	MethodNotAllowed
	OriginRejected
	MalformedBody
	RateLimited
	SpamSuspected
	CaptchaRejected
	ValidationFailed
	FieldTooLong
	DownstreamDispatchFailed
)

var kindNames = map[ErrorKind]string{
	UnexpectedFailure:        "unexpected_failure",
	MethodNotAllowed:         "method_not_allowed",
	OriginRejected:           "origin_rejected",
	MalformedBody:            "malformed_body",
	RateLimited:              "rate_limited",
	SpamSuspected:            "spam_suspected",
	CaptchaRejected:          "captcha_rejected",
	ValidationFailed:         "validation_failed",
	FieldTooLong:             "field_too_long",
	DownstreamDispatchFailed: "downstream_dispatch_failed",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Status devolve o status HTTP da falha.
func (k ErrorKind) Status() int {
	switch k {
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	case OriginRejected, CaptchaRejected:
		return http.StatusForbidden
	case MalformedBody, SpamSuspected, ValidationFailed, FieldTooLong:
		return http.StatusBadRequest
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error é a falha tipada do pipeline.
//
// Message é texto seguro para o usuário (chave do catálogo de mensagens);
// Err guarda a causa interna, que só vai para o log.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
	Args    []any // argumentos de Message
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Args) > 0 {
		msg = fmt.Sprintf(msg, e.Args...)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func FieldError(kind ErrorKind, field, msg string) *Error {
	return &Error{Kind: kind, Field: field, Message: msg}
}

func Wrap(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extrai a classificação de err; erros desconhecidos são UnexpectedFailure.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnexpectedFailure
}
