// Package infra implementa os transportes do pedido: verificação reCAPTCHA,
// Telegram, SMTP, armazenamento (SQLite, Postgres, S3) e estatísticas de
// desfecho (memória, Redis).
package infra
