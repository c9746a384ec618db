// Package order expõe os endpoints de pedido (POST /api/order e
// POST /api/submit) sobre o pipeline de order/application.
//
// O handler faz a parte HTTP do fluxo: método, origem, corpo, rate limit e a
// resposta JSON localizada. O resto fica no Pipeline da variante.
package order
