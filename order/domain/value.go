package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifica a variante guardada num Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Value é um valor JSON arbitrário vindo do formulário.
//
// O payload não tem esquema fixo, então tudo o que o pipeline faz com ele
// (sanitizar, achatar, renderizar) é recursão estrutural sobre esta variante.
type Value struct {
	kind Kind
	str  string
	num  float64
	raw  string // literal original do número
	b    bool
	arr  []Value
	obj  *Object
}

func Null() Value                { return Value{} }
func String(s string) Value      { return Value{kind: KindString, str: s} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

func Number(f float64) Value {
	return Value{kind: KindNumber, num: f, raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

func numberFromLiteral(n json.Number) (Value, error) {
	f, err := n.Float64()
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindNumber, num: f, raw: string(n)}, nil
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) Items() []Value  { return v.arr }
func (v Value) Object() *Object { return v.obj }

// Str devolve o conteúdo quando o valor é string.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Num devolve o número quando o valor é numérico.
func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// IsBlank diz se o valor conta como ausente: null ou string só com espaços.
func (v Value) IsBlank() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.str) == ""
	default:
		return false
	}
}

// Text é a forma textual do valor para exibição numa célula.
// Arrays e objetos viram JSON compacto.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.raw != "" {
			return v.raw
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return ""
	default:
		b, _ := v.MarshalJSON()
		return string(b)
	}
}

// MarshalJSON preserva a ordem das chaves dos objetos.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return quote(v.str)
	case KindNumber:
		if v.raw != "" {
			return []byte(v.raw), nil
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindArray:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			sb.Write(b)
		}
		sb.WriteByte(']')
		return []byte(sb.String()), nil
	case KindObject:
		return v.obj.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}

// Object é um mapa com ordem de inserção, como o objeto JSON recebido.
type Object struct {
	keys []string
	vals map[string]Value
}

func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys devolve as chaves na ordem de inserção.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Set grava o valor; chave nova vai para o fim, chave existente mantém a posição.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Lookup segue um caminho de chaves por objetos aninhados (ex: "customer", "name").
func (o *Object) Lookup(path ...string) (Value, bool) {
	cur := o
	for i, key := range path {
		v, ok := cur.Get(key)
		if !ok {
			return Value{}, false
		}
		if i == len(path)-1 {
			return v, true
		}
		if v.kind != KindObject {
			return Value{}, false
		}
		cur = v.obj
	}
	return Value{}, false
}

func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		kb, err := quote(k)
		if err != nil {
			return nil, err
		}
		sb.Write(kb)
		sb.WriteByte(':')
		vb, err := o.vals[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		sb.Write(vb)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// quote codifica s como string JSON sem trocar & < > por \u00XX: o conteúdo
// já vem escapado para HTML.
func quote(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalIndent é json.MarshalIndent sem o escape de HTML do encoding/json.
func MarshalIndent(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
