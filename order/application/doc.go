// Package application contém as regras do pedido, sem HTTP: validação,
// spam/CAPTCHA, sanitização, renderização das mensagens e fan-out.
//
// Transportes (reCAPTCHA, Telegram, SMTP, armazenamento) entram por interface
// e ficam em order/infra.
package application
