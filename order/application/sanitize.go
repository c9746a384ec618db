package application

import (
	"strings"
	"unicode/utf8"

	"order-gateway/order/domain"

	"golang.org/x/text/unicode/norm"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML troca & < > " ' pelas entidades. Não é idempotente:
// "&amp;" vira "&amp;amp;", então deve ser aplicado uma única vez.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Clean normaliza para NFC e remove espaços das pontas.
func Clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// RuneLen conta code points depois de Clean.
func RuneLen(s string) int {
	return utf8.RuneCountInString(Clean(s))
}

// SanitizeString aplica Clean + EscapeHTML; vazio vira Sentinel.
func SanitizeString(s string) string {
	s = EscapeHTML(Clean(s))
	if s == "" {
		return domain.Sentinel
	}
	return s
}

// SanitizeValue percorre o valor escapando chaves e folhas string.
// null vira Sentinel; números e booleanos passam intactos.
func SanitizeValue(v domain.Value) domain.Value {
	switch v.Kind() {
	case domain.KindNull:
		return domain.String(domain.Sentinel)
	case domain.KindString:
		s, _ := v.Str()
		return domain.String(SanitizeString(s))
	case domain.KindArray:
		items := make([]domain.Value, 0, len(v.Items()))
		for _, item := range v.Items() {
			items = append(items, SanitizeValue(item))
		}
		return domain.Array(items...)
	case domain.KindObject:
		return domain.ObjectValue(SanitizeObject(v.Object(), nil))
	default:
		return v
	}
}

// SanitizeObject devolve uma cópia sanitizada de obj, sem as chaves em skip.
func SanitizeObject(obj *domain.Object, skip map[string]bool) *domain.Object {
	out := domain.NewObject()
	for _, k := range obj.Keys() {
		if skip[k] {
			continue
		}
		v, _ := obj.Get(k)
		out.Set(EscapeHTML(Clean(k)), SanitizeValue(v))
	}
	return out
}
