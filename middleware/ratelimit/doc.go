// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (token bucket, janela deslizante, semáforo)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// O envio de pedidos não usa Middleware diretamente: a janela deslizante roda
// depois do parse do corpo, dentro do handler de pedidos (pacote order), via
// application.WindowService. Middleware protege os endpoints de leitura.
package ratelimit
