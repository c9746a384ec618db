package application

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"order-gateway/order/domain"

	"github.com/samber/lo"
)

var (
	dzPhoneRe    = regexp.MustCompile(`^(\+213|0)[5-7][0-9]{8}$`)
	phoneCleanRe = regexp.MustCompile(`[\s\-()]`)
	emailRe      = regexp.MustCompile(`^[a-zA-Z0-9._%-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	loosePhoneRe = regexp.MustCompile(`^[0-9+\-\s()]+$`)
)

// Validator verifica o payload bruto antes da sanitização.
type Validator interface {
	Validate(payload *domain.Object) error
}

// IsValidDZPhone aceita +213 ou 0 seguido de 5, 6 ou 7 e mais 8 dígitos,
// ignorando espaços, hífens e parênteses.
func IsValidDZPhone(phone string) bool {
	return dzPhoneRe.MatchString(phoneCleanRe.ReplaceAllString(phone, ""))
}

func IsValidEmail(email string) bool {
	if len(email) > 100 || strings.ContainsAny(email, "\r\n") {
		return false
	}
	return emailRe.MatchString(email)
}

type lengthRule struct {
	key   string
	label string
	max   int
}

type requiredRule struct {
	key     string
	message string
}

// StrictValidator exige o conjunto fixo de campos do formulário de produto.
type StrictValidator struct{}

var (
	strictRequired = []requiredRule{
		{"fullName", "Full name is required"},
		{"phone", "Valid phone number is required"},
		{"wilaya", "Wilaya is required"},
		{"commune", "Commune is required"},
		{"size", "Size is required"},
		{"color", "Color is required"},
	}
	strictLengths = []lengthRule{
		{"fullName", "Full name", 100},
		{"wilaya", "Wilaya", 500},
		{"commune", "Commune", 500},
		{"size", "Size", 10},
		{"color", "Color", 50},
	}
)

func (StrictValidator) Validate(payload *domain.Object) error {
	for _, rule := range strictRequired {
		s, ok := stringField(payload, rule.key)
		if !ok || strings.TrimSpace(s) == "" {
			return domain.FieldError(domain.ValidationFailed, rule.key, rule.message)
		}
		if rule.key == "phone" && !IsValidDZPhone(Clean(s)) {
			return domain.FieldError(domain.ValidationFailed, rule.key, rule.message)
		}
	}

	qty, _ := payload.Get("quantity")
	if _, ok := ParseQuantity(qty); !ok {
		return domain.FieldError(domain.ValidationFailed, "quantity", "Valid quantity is required")
	}

	for _, rule := range strictLengths {
		s, _ := stringField(payload, rule.key)
		if RuneLen(s) > rule.max {
			return tooLong(rule.key, rule.label, rule.max)
		}
	}
	return nil
}

// ParseQuantity aceita número ou string numérica >= 1 e trunca para inteiro.
// NaN e infinitos ("NaN", "Inf") são recusados.
func ParseQuantity(v domain.Value) (int, bool) {
	var f float64
	switch v.Kind() {
	case domain.KindNumber:
		f, _ = v.Num()
	case domain.KindString:
		s, _ := v.Str()
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || f < 1 || f > 1e9 {
		return 0, false
	}
	return int(f), true
}

// LenientValidator aceita qualquer conjunto de campos; só confere o formato
// de email e telefone quando presentes e o tamanho das strings de topo.
type LenientValidator struct {
	MaxFieldLength    int
	MaxFreeTextLength int
	FreeTextFields    []string
}

func DefaultLenientValidator() LenientValidator {
	return LenientValidator{
		MaxFieldLength:    500,
		MaxFreeTextLength: 2000,
		FreeTextFields:    []string{"message", "notes", "comment", "note"},
	}
}

func (v LenientValidator) Validate(payload *domain.Object) error {
	if email, ok := payload.Get("email"); ok && !email.IsBlank() {
		s, isStr := email.Str()
		if !isStr || !IsValidEmail(Clean(s)) {
			return domain.FieldError(domain.ValidationFailed, "email", "Invalid email format")
		}
	}

	if phone, ok := payload.Get("phone"); ok && !phone.IsBlank() {
		s, isStr := phone.Str()
		if !isStr {
			s = phone.Text()
		}
		if !loosePhoneRe.MatchString(Clean(s)) {
			return domain.FieldError(domain.ValidationFailed, "phone", "Invalid phone format")
		}
	}

	for _, key := range payload.Keys() {
		if key == "honeypot" || key == "recaptchaToken" {
			continue
		}
		s, ok := stringField(payload, key)
		if !ok {
			continue
		}
		limit := v.MaxFieldLength
		if lo.Contains(v.FreeTextFields, key) {
			limit = v.MaxFreeTextLength
		}
		if limit > 0 && RuneLen(s) > limit {
			return tooLong(key, key, limit)
		}
	}
	return nil
}

func stringField(obj *domain.Object, key string) (string, bool) {
	v, ok := obj.Get(key)
	if !ok {
		return "", false
	}
	return v.Str()
}

func tooLong(key, label string, limit int) error {
	return &domain.Error{
		Kind:    domain.FieldTooLong,
		Field:   key,
		Message: "%s exceeds maximum length of %d",
		Args:    []any{label, limit},
	}
}
