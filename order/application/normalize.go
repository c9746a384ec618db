package application

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"order-gateway/order/domain"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SubmittedAtLayout é o formato dd/mm/yyyy HH:MM usado nas mensagens.
const SubmittedAtLayout = "02/01/2006 15:04"

// IDFunc gera o identificador do pedido.
type IDFunc func() (string, error)

// RandomID gera PREFIX-XXXX com n caracteres maiúsculos alfanuméricos de crypto/rand.
func RandomID(prefix string, n int) IDFunc {
	base := big.NewInt(int64(len(idAlphabet)))
	return func() (string, error) {
		var sb strings.Builder
		sb.Grow(len(prefix) + 1 + n)
		sb.WriteString(prefix)
		sb.WriteByte('-')
		for i := 0; i < n; i++ {
			idx, err := rand.Int(rand.Reader, base)
			if err != nil {
				return "", err
			}
			sb.WriteByte(idAlphabet[idx.Int64()])
		}
		return sb.String(), nil
	}
}

// Default é o valor usado quando a chave está ausente ou vazia.
type Default struct {
	Key   string
	Value string
}

// StrictDefaults são os padrões do formulário de produto.
var StrictDefaults = []Default{
	{"deliveryType", "توصيل إلى المنزل"},
	{"productName", "منتج"},
	{"productPrice", domain.Sentinel},
	{"deliveryPrice", domain.Sentinel},
	{"totalPrice", domain.Sentinel},
}

// Normalizer transforma o payload validado em SanitizedOrder.
type Normalizer struct {
	Exclude   []string // campos de controle; padrão honeypot e recaptchaToken
	Defaults  []Default
	IntFields []string
	NewID     IDFunc
	Now       func() time.Time
	Location  *time.Location
}

func (n Normalizer) Normalize(payload *domain.Object, clientIP string) (domain.SanitizedOrder, error) {
	newID := n.NewID
	if newID == nil {
		newID = RandomID("INV", 6)
	}
	id, err := newID()
	if err != nil {
		return domain.SanitizedOrder{}, domain.Wrap(domain.UnexpectedFailure, "order id", err)
	}

	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}
	loc := n.Location
	if loc == nil {
		loc = AlgiersLocation()
	}

	exclude := n.Exclude
	if exclude == nil {
		exclude = []string{HoneypotField, TokenField}
	}
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}

	fields := SanitizeObject(payload, skip)

	for _, key := range n.IntFields {
		raw, ok := payload.Get(key)
		if !ok {
			continue
		}
		if q, ok := ParseQuantity(raw); ok {
			fields.Set(key, domain.Number(float64(q)))
		}
	}

	for _, d := range n.Defaults {
		raw, ok := payload.Get(d.Key)
		if ok && !raw.IsBlank() {
			continue
		}
		fields.Set(d.Key, domain.String(SanitizeString(d.Value)))
	}

	submittedAt := now.In(loc).Format(SubmittedAtLayout)
	fields.Set("submittedAt", domain.String(submittedAt))

	ip := SanitizeString(clientIP)
	if raw, ok := payload.Get("ipAddress"); ok && isEmptyIP(raw) {
		fields.Set("ipAddress", domain.String(ip))
	}
	if tracking, ok := fields.Get("tracking"); ok && tracking.Kind() == domain.KindObject {
		raw, _ := payload.Lookup("tracking", "ipAddress")
		if isEmptyIP(raw) {
			tracking.Object().Set("ipAddress", domain.String(ip))
		}
	}

	return domain.SanitizedOrder{
		OrderID:     id,
		SubmittedAt: submittedAt,
		ReceivedAt:  now,
		ClientIP:    clientIP,
		Fields:      fields,
	}, nil
}

// isEmptyIP trata ausente, null, vazio e a string "null" como "sem IP".
func isEmptyIP(v domain.Value) bool {
	if v.IsBlank() {
		return true
	}
	s, ok := v.Str()
	return ok && strings.TrimSpace(s) == "null"
}

// clientNamePaths é a ordem de busca do nome exibido no resumo do chat.
var clientNamePaths = [][]string{
	{"name"},
	{"fullName"},
	{"customerName"},
	{"client"},
	{"customer", "name"},
	{"customerInfo", "customer_name"},
	{"customer_info", "name"},
}

const UnknownClient = "Unknown Client"

// ClientName devolve o primeiro nome preenchido do pedido sanitizado.
func ClientName(order domain.SanitizedOrder) string {
	for _, path := range clientNamePaths {
		v, ok := order.Fields.Lookup(path...)
		if !ok || v.IsBlank() {
			continue
		}
		switch v.Kind() {
		case domain.KindString, domain.KindNumber:
			if s := v.Text(); s != domain.Sentinel {
				return s
			}
		}
	}
	return UnknownClient
}

var algiers = func() *time.Location {
	loc, err := time.LoadLocation("Africa/Algiers")
	if err != nil {
		// Argélia não tem horário de verão desde 1981.
		return time.FixedZone("CET", 60*60)
	}
	return loc
}()

// AlgiersLocation é o fuso usado para submittedAt.
func AlgiersLocation() *time.Location { return algiers }
