// Package domain contém os tipos do pedido: o payload JSON ordenado
// (Value/Object), o pedido sanitizado, a taxonomia de erros e os contratos de
// estatística.
//
// Nada aqui conhece HTTP além do mapeamento ErrorKind -> status.
package domain
