package domain

import "time"

// Sentinel substitui campos vazios ou ausentes.
const Sentinel = "N/A"

// SanitizedOrder é a representação escapada e normalizada de um envio.
//
// Toda string dentro de Fields (chaves e folhas, em qualquer profundidade) já
// passou pelo escape HTML uma única vez; quem renderiza não escapa de novo.
type SanitizedOrder struct {
	OrderID     string
	SubmittedAt string
	ReceivedAt  time.Time
	ClientIP    string
	Variant     string
	Fields      *Object
}

// Field devolve o texto de uma chave de topo, ou Sentinel quando ausente.
func (o SanitizedOrder) Field(key string) string {
	v, ok := o.Fields.Get(key)
	if !ok || v.IsBlank() {
		return Sentinel
	}
	return v.Text()
}
