package application

import (
	"strings"
	"testing"

	"order-gateway/order/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeHTML(t *testing.T) {
	got := EscapeHTML(`<script>alert("x") & 'y'</script>`)
	assert.Equal(t, "&lt;script&gt;alert(&quot;x&quot;) &amp; &#039;y&#039;&lt;/script&gt;", got)
	assert.NotContains(t, got, "<")
	assert.NotContains(t, got, ">")
}

func TestEscapeHTML_IsNotIdempotent(t *testing.T) {
	// o pipeline escapa uma vez só; escapar de novo estraga o texto
	once := EscapeHTML("&amp;")
	assert.Equal(t, "&amp;amp;", once)
	assert.NotEqual(t, once, EscapeHTML(once))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, domain.Sentinel, SanitizeString("   "))
	assert.Equal(t, "Tom &amp; Jerry", SanitizeString("  Tom & Jerry \n"))
	// NFC: e + acento combinado vira um code point só
	assert.Equal(t, "é", SanitizeString("é"))
}

func TestRuneLen_CountsCodePoints(t *testing.T) {
	assert.Equal(t, 5, RuneLen(" محمد1 "))
	assert.Equal(t, 1, RuneLen("é"))
}

func TestSanitizeObject_RecursesIntoKeysAndLeaves(t *testing.T) {
	payload, err := domain.ParseObject([]byte(`{
		"honeypot": "",
		"<b>": "x",
		"items": [{"name": "<i>shirt</i>", "attrs": {"color": "red & blue"}}, null],
		"qty": 2,
		"gift": false,
		"note": null
	}`))
	require.NoError(t, err)

	out := SanitizeObject(payload, map[string]bool{"honeypot": true})
	assert.Equal(t, []string{"&lt;b&gt;", "items", "qty", "gift", "note"}, out.Keys())

	items, _ := out.Get("items")
	first := items.Items()[0].Object()
	name, _ := first.Get("name")
	assert.Equal(t, "&lt;i&gt;shirt&lt;/i&gt;", name.Text())
	color, _ := first.Lookup("attrs", "color")
	assert.Equal(t, "red &amp; blue", color.Text())
	assert.Equal(t, domain.Sentinel, items.Items()[1].Text())

	qty, _ := out.Get("qty")
	assert.Equal(t, domain.KindNumber, qty.Kind())
	gift, _ := out.Get("gift")
	assert.Equal(t, domain.KindBool, gift.Kind())
	note, _ := out.Get("note")
	assert.Equal(t, domain.Sentinel, note.Text())

	raw, _ := out.MarshalJSON()
	assert.False(t, strings.ContainsAny(string(raw), "<>"))
}
