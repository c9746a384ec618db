package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"order-gateway/order/application"
)

const DefaultRecaptchaURL = "https://www.google.com/recaptcha/api/siteverify"

// RecaptchaVerifier chama o siteverify do reCAPTCHA v3.
type RecaptchaVerifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

type RecaptchaOption func(*RecaptchaVerifier)

func WithRecaptchaEndpoint(u string) RecaptchaOption {
	return func(v *RecaptchaVerifier) { v.endpoint = u }
}

func WithRecaptchaClient(c *http.Client) RecaptchaOption {
	return func(v *RecaptchaVerifier) { v.client = c }
}

func NewRecaptchaVerifier(secret string, opts ...RecaptchaOption) *RecaptchaVerifier {
	v := &RecaptchaVerifier{
		secret:   secret,
		endpoint: DefaultRecaptchaURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify implementa application.Verifier.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (application.Verdict, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" && remoteIP != "unknown" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return application.Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return application.Verdict{}, fmt.Errorf("siteverify request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return application.Verdict{}, fmt.Errorf("siteverify status %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return application.Verdict{}, fmt.Errorf("siteverify decode: %w", err)
	}

	return application.Verdict{
		Success:    out.Success,
		Score:      out.Score,
		Action:     out.Action,
		Hostname:   out.Hostname,
		ErrorCodes: out.ErrorCodes,
	}, nil
}
