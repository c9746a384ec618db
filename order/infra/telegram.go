package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const DefaultTelegramAPI = "https://api.telegram.org"

var ErrTelegramNotConfigured = errors.New("telegram bot token not configured")

// TelegramSender envia mensagens pelo sendMessage da Bot API (parse mode HTML).
type TelegramSender struct {
	token   string
	baseURL string
	client  *http.Client
}

type TelegramOption func(*TelegramSender)

func WithTelegramBaseURL(u string) TelegramOption {
	return func(s *TelegramSender) { s.baseURL = u }
}

func WithTelegramClient(c *http.Client) TelegramOption {
	return func(s *TelegramSender) { s.client = c }
}

func NewTelegramSender(token string, opts ...TelegramOption) *TelegramSender {
	s := &TelegramSender{
		token:   token,
		baseURL: DefaultTelegramAPI,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send implementa application.ChatSender. Resposta com ok=false é erro.
func (s *TelegramSender) Send(ctx context.Context, chatID, text string) error {
	if s.token == "" {
		return ErrTelegramNotConfigured
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// a URL carrega o token; não deixar vazar no log
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram send to %s: %w", chatID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out sendMessageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return fmt.Errorf("telegram send to %s: status %d: decode: %w", chatID, resp.StatusCode, err)
	}
	if !out.OK {
		return fmt.Errorf("telegram send to %s: %d %s", chatID, out.ErrorCode, out.Description)
	}
	return nil
}
