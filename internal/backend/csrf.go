package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// CSRFTokenSource fetches the per-session anti-forgery token from the
// backend once and caches it. It is an explicit dependency of the client
// rather than ambient module state, so tests can substitute a fake.
type CSRFTokenSource struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewCSRFTokenSource builds a token source against the backend base URL.
func NewCSRFTokenSource(baseURL string, httpClient *http.Client) *CSRFTokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &CSRFTokenSource{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

// Token returns the cached anti-forgery token, fetching it on first use.
func (s *CSRFTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/security/token", nil)
	if err != nil {
		return "", fmt.Errorf("backend: create token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend: fetch token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: "token endpoint"}
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("backend: decode token: %w", err)
	}
	if payload.Token == "" {
		return "", errors.New("backend: empty csrf token")
	}
	s.token = payload.Token
	return s.token, nil
}

// Invalidate drops the cached token so the next call refetches, e.g. after
// the backend rejects a stale one.
func (s *CSRFTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
