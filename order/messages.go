package order

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgSuccess         = "Order submitted successfully! We will contact you soon."
	msgGeneric         = "An error occurred while processing the order. Please try again later."
	msgMethod          = "Method not allowed"
	msgOrigin          = "Unauthorized origin"
	msgInvalidJSON     = "Invalid JSON"
	msgTooManyRequests = "Too many requests. Please try again later."
)

// Chaves em inglês; o texto em inglês é a própria chave.
var arabic = map[string]string{
	msgSuccess:                        "تم إرسال الطلب بنجاح! سنتواصل معك قريباً.",
	msgGeneric:                        "حدث خطأ في معالجة الطلب. يرجى المحاولة لاحقاً.",
	msgMethod:                         "الطريقة غير مسموح بها",
	msgOrigin:                         "مصدر غير مصرح به",
	msgInvalidJSON:                    "بيانات JSON غير صالحة",
	msgTooManyRequests:                "طلبات كثيرة جداً. يرجى المحاولة لاحقاً.",
	"Validation failed":               "فشل التحقق من البيانات",
	"reCAPTCHA token missing":         "رمز reCAPTCHA مفقود",
	"reCAPTCHA verification failed":   "فشل التحقق من reCAPTCHA",
	"Suspicious activity detected":    "تم رصد نشاط مشبوه",
	"Full name is required":           "الاسم الكامل مطلوب",
	"Valid phone number is required":  "رقم هاتف صالح مطلوب",
	"Wilaya is required":              "الولاية مطلوبة",
	"Commune is required":             "البلدية مطلوبة",
	"Size is required":                "المقاس مطلوب",
	"Color is required":               "اللون مطلوب",
	"Valid quantity is required":      "كمية صالحة مطلوبة",
	"Invalid email format":            "صيغة البريد الإلكتروني غير صالحة",
	"Invalid phone format":            "صيغة رقم الهاتف غير صالحة",
	"%s exceeds maximum length of %d": "%s يتجاوز الحد الأقصى للطول وهو %d",
}

var messages = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range arabic {
		_ = b.SetString(language.Arabic, key, text)
		_ = b.SetString(language.English, key, key)
	}
	return b
}()

// Messages traduz as mensagens devolvidas ao cliente.
type Messages struct {
	p *message.Printer
}

// NewMessages aceita uma tag BCP 47 ("ar", "ar-DZ", "en"). Qualquer idioma
// que não seja árabe cai para inglês.
func NewMessages(locale string) *Messages {
	tag := language.Arabic
	if parsed, err := language.Parse(locale); err == nil {
		if base, _ := parsed.Base(); base.String() != "ar" {
			tag = language.English
		}
	}
	return &Messages{p: message.NewPrinter(tag, message.Catalog(messages))}
}

func (m *Messages) Text(key string, args ...any) string {
	return m.p.Sprintf(key, args...)
}
