package rates

import (
	"net/http"

	"order-gateway/order/domain"
)

// Handler serve a tabela em JSON (GET /api/delivery-rates). Com ?wilaya=
// devolve só a entrada pedida, com as tarifas já interpretadas.
func Handler(t *Table) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
			return
		}

		if q := r.URL.Query().Get("wilaya"); q != "" {
			e, ok := t.Lookup(q)
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown wilaya"})
				return
			}
			writeJSON(w, http.StatusOK, struct {
				Entry
				Rates    Rates    `json:"rates"`
				Communes []string `json:"communes"`
			}{e, e.Rates(), e.Communes()})
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, t.Entries())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := domain.MarshalIndent(v, "")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
