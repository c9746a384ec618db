// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Store: token bucket por chave usando golang.org/x/time/rate
//   - WindowStore: janela deslizante em memória com limite de chaves (LRU)
//   - RedisWindowStore: janela deslizante em sorted set do Redis, com TTL
//   - ChanPool: semáforo simples para limite de concorrência
package infra
