// Package rates carrega a tabela de entrega por wilaya (tarifas e comunas)
// usada pelo formulário e pelo cálculo de preço.
package rates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Code aceita o código da wilaya como número ou string no arquivo.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("wilaya_code: %w", err)
	}
	*c = Code(n.String())
	return nil
}

// Entry é uma linha da tabela. Rate vem como "casa, escritório" (ex: "600, 400")
// e Commune como lista separada por vírgulas.
type Entry struct {
	Code    Code   `json:"wilaya_code" yaml:"wilaya_code"`
	Name    string `json:"wilaya_name" yaml:"wilaya_name"`
	Rate    string `json:"rate" yaml:"rate"`
	Commune string `json:"commune" yaml:"commune"`
}

// Rates são as tarifas de entrega em dinares.
type Rates struct {
	Home int `json:"home"`
	Desk int `json:"desk"`
}

// Rates interpreta o campo Rate. Partes ausentes ou inválidas valem 0.
func (e Entry) Rates() Rates {
	parts := strings.Split(strings.Join(strings.Fields(e.Rate), ""), ",")
	at := func(i int) int {
		if i >= len(parts) {
			return 0
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0
		}
		return n
	}
	return Rates{Home: at(0), Desk: at(1)}
}

func (e Entry) Communes() []string {
	out := lo.Map(strings.Split(e.Commune, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Compact(out)
}

// Price devolve a tarifa do tipo de entrega ("desk" ou qualquer outro = casa).
func (r Rates) Price(deliveryType string) int {
	if deliveryType == "desk" {
		return r.Desk
	}
	return r.Home
}

type Table struct {
	entries []Entry
	index   map[string]int
}

// Parse lê a tabela em JSON ou YAML (format "json", "yaml" ou "yml").
func Parse(data []byte, format string) (*Table, error) {
	var entries []Entry
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse delivery rates yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse delivery rates json: %w", err)
		}
	}
	return NewTable(entries), nil
}

// Load lê o arquivo; o formato vem da extensão.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read delivery rates: %w", err)
	}
	return Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

func NewTable(entries []Entry) *Table {
	t := &Table{entries: entries, index: make(map[string]int, 2*len(entries))}
	for i, e := range entries {
		if name := normalizeKey(e.Name); name != "" {
			t.index[name] = i
		}
		if code := normalizeKey(string(e.Code)); code != "" {
			t.index[code] = i
		}
	}
	return t
}

func (t *Table) Len() int { return len(t.entries) }

func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup procura a wilaya pelo nome ou pelo código.
func (t *Table) Lookup(wilaya string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	i, ok := t.index[normalizeKey(wilaya)]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
