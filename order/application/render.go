package application

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"order-gateway/order/domain"

	"github.com/samber/lo"
)

// Row é uma linha da tabela do email: caminho pontuado até a folha.
type Row struct {
	Path  string
	Key   string // último segmento do caminho
	Value domain.Value
}

// Flatten achata objetos aninhados em linhas na ordem das chaves.
// Arrays são folhas.
func Flatten(obj *domain.Object) []Row {
	var rows []Row
	flattenInto(&rows, obj, "")
	return rows
}

func flattenInto(rows *[]Row, obj *domain.Object, prefix string) {
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if v.Kind() == domain.KindObject {
			flattenInto(rows, v.Object(), path)
			continue
		}
		*rows = append(*rows, Row{Path: path, Key: k, Value: v})
	}
}

var (
	priceKeys      = []string{"price", "total", "cost", "amount"}
	currencyTokens = []string{"DA", "DZD", "د.ج", "$", "€"}
	phoneShapeRe   = regexp.MustCompile(`^[+]?[\d\s\-()]+$`)
	phoneDigitsRe  = regexp.MustCompile(`[^0-9+]`)
)

const (
	styleEmpty = `color: #999; font-style: italic;`
	stylePrice = `font-weight: bold; color: #ff6b35; font-size: 16px;`
	styleLink  = `color: #0066cc; text-decoration: none; font-weight: 500;`
	styleTh    = `padding: 8px; text-align: right; background: #ff6b35; color: white; border: 1px solid #ddd;`
	styleTd    = `padding: 8px; border: 1px solid #ddd; text-align: right;`
)

// IsPriceField classifica pelo nome da chave ou por um símbolo de moeda no valor.
// Só afeta a apresentação.
func IsPriceField(key, value string) bool {
	lower := strings.ToLower(key)
	if lo.SomeBy(priceKeys, func(k string) bool { return strings.Contains(lower, k) }) {
		return true
	}
	return lo.SomeBy(currencyTokens, func(tok string) bool { return strings.Contains(value, tok) })
}

func emptyCell() string {
	return `<span style="` + styleEmpty + `">` + domain.Sentinel + `</span>`
}

// FormatValue renderiza uma folha já sanitizada como fragmento HTML.
// O conteúdo não é escapado de novo.
func FormatValue(key string, v domain.Value) string {
	if v.IsBlank() {
		return emptyCell()
	}
	if s, ok := v.Str(); ok && s == domain.Sentinel {
		return emptyCell()
	}

	switch v.Kind() {
	case domain.KindArray:
		return formatArray(v.Items())
	case domain.KindObject:
		return formatPairs(v.Object())
	}

	text := v.Text()
	if IsPriceField(key, text) {
		return `<span style="` + stylePrice + `">` + text + `</span>`
	}
	if strings.Contains(strings.ToLower(key), "phone") || phoneShapeRe.MatchString(text) {
		if clean := phoneDigitsRe.ReplaceAllString(text, ""); len(clean) >= 7 {
			return `<a href="tel:` + clean + `" style="` + styleLink + `">` + text + `</a>`
		}
	}
	if strings.Contains(strings.ToLower(key), "email") || emailRe.MatchString(text) {
		return `<a href="mailto:` + text + `" style="` + styleLink + `">` + text + `</a>`
	}
	return text
}

func formatArray(items []domain.Value) string {
	if len(items) == 0 {
		return emptyCell()
	}

	hasObject := lo.SomeBy(items, func(it domain.Value) bool { return it.Kind() == domain.KindObject })
	if !hasObject {
		var sb strings.Builder
		sb.WriteString(`<ul style="margin: 0; padding-right: 20px; text-align: right;">`)
		for _, it := range items {
			sb.WriteString("<li>" + it.Text() + "</li>")
		}
		sb.WriteString("</ul>")
		return sb.String()
	}

	columns := lo.Uniq(lo.FlatMap(items, func(it domain.Value, _ int) []string {
		return it.Object().Keys()
	}))
	span := strconv.Itoa(len(columns))

	var sb strings.Builder
	sb.WriteString(`<table style="width: 100%; border-collapse: collapse; margin: 5px 0;"><thead><tr>`)
	for _, col := range columns {
		sb.WriteString(`<th style="` + styleTh + `">` + col + `</th>`)
	}
	sb.WriteString(`</tr></thead><tbody>`)
	for _, it := range items {
		// item escalar no meio de objetos ocupa a linha inteira
		if it.Kind() != domain.KindObject {
			sb.WriteString(`<tr><td colspan="` + span + `" style="` + styleTd + `">` + scalarCell(it) + `</td></tr>`)
			continue
		}
		sb.WriteString("<tr>")
		for _, col := range columns {
			sb.WriteString(`<td style="` + styleTd + `">` + tableCell(it.Object(), col) + `</td>`)
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString(`</tbody></table>`)
	return sb.String()
}

func tableCell(row *domain.Object, col string) string {
	v, ok := row.Get(col)
	if !ok {
		return domain.Sentinel
	}
	if v.Kind() == domain.KindObject {
		return formatPairs(v.Object())
	}
	return v.Text()
}

func scalarCell(v domain.Value) string {
	if v.IsBlank() {
		return domain.Sentinel
	}
	return v.Text()
}

func formatPairs(obj *domain.Object) string {
	parts := lo.Map(obj.Keys(), func(k string, _ int) string {
		v, _ := obj.Get(k)
		return "<strong>" + k + ":</strong> " + v.Text()
	})
	return strings.Join(parts, "<br>")
}

// EmailRows monta as linhas <tr> da tabela de detalhes.
func EmailRows(order domain.SanitizedOrder) string {
	var sb strings.Builder
	for _, row := range Flatten(order.Fields) {
		fmt.Fprintf(&sb, `
<tr style="border-bottom: 1px solid #e0e0e0;">
  <td style="padding: 12px 15px; text-align: left; background-color: #f8f9fa; font-weight: 500; color: #333; width: 35%%; vertical-align: top;">%s</td>
  <td style="padding: 12px 15px; text-align: right; background-color: #ffffff; color: #333; direction: rtl;">%s</td>
</tr>`, row.Path, FormatValue(row.Key, row.Value))
	}
	return sb.String()
}

const emailShell = `<!DOCTYPE html>
<html dir="rtl" lang="ar">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f5f5f5;">
  <table role="presentation" style="width: 100%; border-collapse: collapse; background-color: #f5f5f5;">
    <tr>
      <td style="padding: 20px 0;">
        <table role="presentation" style="width: 100%; max-width: 800px; margin: 0 auto; border-collapse: collapse; background-color: #ffffff; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
          <tr>
            <td style="background-color: #000000; padding: 25px 30px; text-align: left;">
              <h1 style="margin: 0; color: #ffffff; font-size: 18px; font-weight: 600; letter-spacing: 0.5px; text-transform: uppercase;">New Order</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 20px 30px; background-color: #fff; border-bottom: 3px solid #ff6b35;">
              <table role="presentation" style="width: 100%; border-collapse: collapse;">
                <tr>
                  <td style="text-align: left; padding: 5px 0;">
                    <span style="font-size: 14px; color: #666;">Order Number:</span><br>
                    <span style="font-size: 14px; font-weight: 700; color: #000;">{{.OrderID}}</span>
                  </td>
                  <td style="text-align: right; padding: 5px 0;">
                    <span style="font-size: 14px; color: #666;">Date &amp; Time:</span><br>
                    <span style="font-size: 12px; font-weight: 600; color: #000;">{{.SubmittedAt}}</span>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding: 0;">
              <table role="presentation" style="width: 100%; border-collapse: collapse;">{{.Rows}}
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding: 20px 30px; background-color: #f8f9fa; border-top: 1px solid #e0e0e0; text-align: center;">
              <p style="margin: 0; font-size: 12px; color: #666; line-height: 1.4;">Made in Algeria 🇩🇿</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

var emailTmpl = htmltemplate.Must(htmltemplate.New("email").Parse(emailShell))

// EmailHTML renderiza o corpo do email. As linhas entram como HTML confiável
// porque o conteúdo do pedido já foi escapado na sanitização.
func EmailHTML(order domain.SanitizedOrder) (string, error) {
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, struct {
		OrderID     string
		SubmittedAt string
		Rows        htmltemplate.HTML
	}{
		OrderID:     order.OrderID,
		SubmittedAt: order.SubmittedAt,
		Rows:        htmltemplate.HTML(EmailRows(order)),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// EmailSubject é o assunto do email do pedido.
func EmailSubject(order domain.SanitizedOrder) string {
	return "📋 New Order " + order.OrderID
}

// ChatTemplate renderiza a mensagem do chat (parse mode HTML do Telegram).
type ChatTemplate struct {
	tmpl *template.Template
}

type chatData struct {
	order domain.SanitizedOrder

	OrderID     string
	SubmittedAt string
	ClientName  string
}

// F devolve o campo de topo já escapado, ou N/A.
func (d chatData) F(key string) string { return d.order.Field(key) }

// DeliveryIcon diferencia retirada no escritório de entrega em casa.
func (d chatData) DeliveryIcon() string {
	if d.order.Field("deliveryType") == "استلام من المكتب" {
		return "🏢"
	}
	return "🚚"
}

func (c ChatTemplate) Render(order domain.SanitizedOrder) (string, error) {
	var buf bytes.Buffer
	err := c.tmpl.Execute(&buf, chatData{
		order:       order,
		OrderID:     order.OrderID,
		SubmittedAt: order.SubmittedAt,
		ClientName:  ClientName(order),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

const detailedChat = `
🆔 <b>طلب جديد #{{.OrderID}}</b>
📅 <b>التاريخ:</b> {{.SubmittedAt}}
━━━━━━━━━━━━━━━━━━━━

👤 <b>معلومات العميل:</b>
• <b>الاسم:</b> {{.F "fullName"}}
• <b>الهاتف:</b> {{.F "phone"}}

📍 <b>معلومات التوصيل:</b>
• <b>الولاية:</b> {{.F "wilaya"}}
• <b>البلدية:</b> {{.F "commune"}}
• <b>نوع التوصيل:</b> {{.DeliveryIcon}} {{.F "deliveryType"}}

📦 <b>تفاصيل الطلب:</b>
• <b>المنتج:</b> {{.F "productName"}}
• <b>المقاس:</b> {{.F "size"}}
• <b>اللون:</b> {{.F "color"}}
• <b>الكمية:</b> {{.F "quantity"}}
• <b>سعر المنتج:</b> {{.F "productPrice"}}
• <b>سعر التوصيل:</b> {{.F "deliveryPrice"}}
• <b>المبلغ الإجمالي:</b> {{.F "totalPrice"}}

━━━━━━━━━━━━━━━━━━━━
📞 <i>يرجى الاتصال بالعميل لتأكيد الطلب</i>
`

const summaryChat = `
🔔 <b>New Order Received!</b>

📋 <b>Invoice:</b> <code>{{.OrderID}}</code>
👤 <b>Client:</b> {{.ClientName}}

✅ Check your email for full details
`

var (
	// DetailedChat traz o pedido inteiro, para quando o chat é o registro oficial.
	DetailedChat = ChatTemplate{tmpl: template.Must(template.New("detailed").Parse(detailedChat))}
	// SummaryChat só avisa; os detalhes vão por email.
	SummaryChat = ChatTemplate{tmpl: template.Must(template.New("summary").Parse(summaryChat))}
)
