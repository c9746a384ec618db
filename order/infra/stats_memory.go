package infra

import (
	"container/list"
	"context"
	"sync"

	"order-gateway/order/domain"
)

// MemoryStatsStore conta desfechos em memória, por variante e (opcionalmente)
// por IP. Sem expiração; serve para desenvolvimento e testes.
//
// Os contadores por IP ficam limitados a maxClients, descartando o IP usado
// há mais tempo (LRU).
type MemoryStatsStore struct {
	mu        sync.Mutex
	total     map[domain.Outcome]int64
	byVariant map[string]map[domain.Outcome]int64
	byClient  map[string]*list.Element
	clients   *list.List // frente = uso mais recente

	trackClients bool
	maxClients   int
}

type clientCounts struct {
	ip     string
	counts map[domain.Outcome]int64
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackClients(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackClients = track }
}

// WithMaxClients limita quantos IPs têm contadores próprios (0 = sem limite).
func WithMaxClients(n int) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.maxClients = n }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:      make(map[domain.Outcome]int64),
		byVariant:  make(map[string]map[domain.Outcome]int64),
		byClient:   make(map[string]*list.Element),
		clients:    list.New(),
		maxClients: 10000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++
	incr(s.byVariant, ev.Variant, ev.Outcome)
	if s.trackClients && ev.ClientIP != "" {
		s.clientLocked(ev.ClientIP).counts[ev.Outcome]++
	}
	return nil
}

// clientLocked devolve os contadores do IP, criando e abrindo espaço se preciso.
// Chamar com s.mu travado.
func (s *MemoryStatsStore) clientLocked(ip string) *clientCounts {
	if el, ok := s.byClient[ip]; ok {
		s.clients.MoveToFront(el)
		return el.Value.(*clientCounts)
	}
	for s.maxClients > 0 && len(s.byClient) >= s.maxClients {
		el := s.clients.Back()
		if el == nil {
			break
		}
		s.clients.Remove(el)
		delete(s.byClient, el.Value.(*clientCounts).ip)
	}
	c := &clientCounts{ip: ip, counts: make(map[domain.Outcome]int64)}
	s.byClient[ip] = s.clients.PushFront(c)
	return c
}

func incr(m map[string]map[domain.Outcome]int64, key string, out domain.Outcome) {
	c, ok := m[key]
	if !ok {
		c = make(map[domain.Outcome]int64)
		m[key] = c
	}
	c[out]++
}

func (s *MemoryStatsStore) Total() map[domain.Outcome]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCounts(s.total)
}

func (s *MemoryStatsStore) ByVariant(variant string) map[domain.Outcome]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCounts(s.byVariant[variant])
}

func (s *MemoryStatsStore) ByClient(ip string) map[domain.Outcome]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.byClient[ip]
	if !ok {
		return copyCounts(nil)
	}
	return copyCounts(el.Value.(*clientCounts).counts)
}

// Clients devolve quantos IPs têm contadores no momento.
func (s *MemoryStatsStore) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byClient)
}

func copyCounts(in map[domain.Outcome]int64) map[domain.Outcome]int64 {
	out := make(map[domain.Outcome]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
