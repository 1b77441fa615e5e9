package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenSource issues short-lived credentials for the streaming endpoint so
// the long-lived API key never travels in a WebSocket URL.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

const defaultTokenTTL = 60 * time.Second

// HTTPTokenSource exchanges an API key for a temporary token.
type HTTPTokenSource struct {
	client *http.Client
	url    string
	apiKey string
	ttl    time.Duration
}

// NewHTTPTokenSource creates a TokenSource posting to url.
func NewHTTPTokenSource(client *http.Client, url, apiKey string) *HTTPTokenSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPTokenSource{client: client, url: url, apiKey: apiKey, ttl: defaultTokenTTL}
}

type tokenRequest struct {
	ExpiresIn int `json:"expires_in"`
}

type tokenResponse struct {
	Token string `json:"token"`
	Error string `json:"error,omitempty"`
}

func (s *HTTPTokenSource) Token(ctx context.Context) (string, error) {
	body, err := json.Marshal(tokenRequest{ExpiresIn: int(s.ttl / time.Second)})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Authorization", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint responded with %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.Token == "" {
		return "", errors.New("no token received from token endpoint")
	}

	return tr.Token, nil
}
