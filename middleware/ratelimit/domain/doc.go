// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// Dois modelos convivem aqui: o token bucket (Limiter/LimiterStore), usado em
// endpoints de leitura, e a janela deslizante (WindowStore), usada no envio de pedidos.
package domain
