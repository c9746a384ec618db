package infra

import (
	"container/list"
	"context"
	"sync"
	"time"

	"order-gateway/middleware/ratelimit/domain"
)

// WindowStore é uma janela deslizante em memória: para cada chave guarda os
// instantes das chamadas aceitas dentro da janela.
//
// A memória é limitada de duas formas: o janitor remove chaves cujas chamadas
// já saíram da janela, e maxKeys limita o total de chaves, descartando a menos
// usada recentemente (LRU).
type WindowStore struct {
	mu           sync.Mutex
	limit        int
	window       time.Duration
	maxKeys      int
	cleanupEvery time.Duration

	entries map[string]*list.Element
	lru     *list.List // frente = uso mais recente
}

type windowEntry struct {
	key  string
	hits []time.Time
}

type WindowOption func(*WindowStore)

// WithMaxKeys limita o número de chaves rastreadas (0 = sem limite).
func WithMaxKeys(n int) WindowOption {
	return func(s *WindowStore) { s.maxKeys = n }
}

func WithWindowCleanupEvery(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.cleanupEvery = d }
}

func NewWindowStore(limit int, window time.Duration, opts ...WindowOption) *WindowStore {
	s := &WindowStore{
		limit:        limit,
		window:       window,
		maxKeys:      10000,
		cleanupEvery: 5 * time.Minute,
		entries:      make(map[string]*list.Element),
		lru:          list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WindowStore) Limit() int                  { return s.limit }
func (s *WindowStore) Window() time.Duration       { return s.window }
func (s *WindowStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Hit implementa domain.WindowStore.
func (s *WindowStore) Hit(_ context.Context, key domain.Key, now time.Time) (domain.Decision, error) {
	k := string(key)
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	var ent *windowEntry
	if el, ok := s.entries[k]; ok {
		ent = el.Value.(*windowEntry)
		s.lru.MoveToFront(el)
	} else {
		s.evictLocked()
		ent = &windowEntry{key: k}
		s.entries[k] = s.lru.PushFront(ent)
	}

	ent.hits = pruneHits(ent.hits, cutoff)
	if len(ent.hits) >= s.limit {
		var retry time.Duration
		if len(ent.hits) > 0 {
			retry = ent.hits[0].Add(s.window).Sub(now)
		}
		return domain.Decision{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}

	ent.hits = append(ent.hits, now)
	return domain.Decision{Allowed: true, Remaining: s.limit - len(ent.hits)}, nil
}

// Len devolve o número de chaves rastreadas no momento.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove as chaves que não têm mais nenhuma chamada dentro da janela.
func (s *WindowStore) Cleanup(now time.Time) {
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, el := range s.entries {
		ent := el.Value.(*windowEntry)
		ent.hits = pruneHits(ent.hits, cutoff)
		if len(ent.hits) == 0 {
			s.lru.Remove(el)
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *WindowStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.Cleanup(now)
			}
		}
	}()
}

// evictLocked abre espaço para uma chave nova. Chamar com s.mu travado.
func (s *WindowStore) evictLocked() {
	if s.maxKeys <= 0 {
		return
	}
	for len(s.entries) >= s.maxKeys {
		el := s.lru.Back()
		if el == nil {
			return
		}
		s.lru.Remove(el)
		delete(s.entries, el.Value.(*windowEntry).key)
	}
}

// pruneHits mantém apenas os instantes estritamente depois de cutoff,
// reaproveitando o slice.
func pruneHits(hits []time.Time, cutoff time.Time) []time.Time {
	n := 0
	for _, t := range hits {
		if t.After(cutoff) {
			hits[n] = t
			n++
		}
	}
	return hits[:n]
}
