package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPConfig configures the remote identity provider client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// HTTPProvider talks to a hosted identity service over its admin REST API.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider validates the configuration and builds a client.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("http provider: base url is required")
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &HTTPProvider{
		baseURL: base,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  client,
	}, nil
}

type accountPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Password    string `json:"password,omitempty"`
}

// LookupByEmail resolves an account through GET /v1/accounts?email=.
func (p *HTTPProvider) LookupByEmail(ctx context.Context, email string) (*Identity, error) {
	endpoint := fmt.Sprintf("%s/v1/accounts?email=%s", p.baseURL, url.QueryEscape(normaliseEmail(email)))

	resp, err := p.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return decodeAccount(resp)
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%w: lookup returned status %d", ErrUnavailable, resp.StatusCode)
	}
}

// Create provisions an account through POST /v1/accounts.
func (p *HTTPProvider) Create(ctx context.Context, input CreateInput) (*Identity, error) {
	body, err := json.Marshal(accountPayload{
		Email:       normaliseEmail(input.Email),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Password:    input.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("http provider: encode account: %w", err)
	}

	resp, err := p.do(ctx, http.MethodPost, p.baseURL+"/v1/accounts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return decodeAccount(resp)
	case http.StatusConflict:
		return nil, ErrEmailExists
	default:
		return nil, fmt.Errorf("%w: create returned status %d", ErrUnavailable, resp.StatusCode)
	}
}

// Delete removes an account through DELETE /v1/accounts/{id}. A 404 is treated
// as success so retried compensations stay idempotent.
func (p *HTTPProvider) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("http provider: id is required")
	}

	resp, err := p.do(ctx, http.MethodDelete, fmt.Sprintf("%s/v1/accounts/%s", p.baseURL, url.PathEscape(id)), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("%w: delete returned status %d", ErrUnavailable, resp.StatusCode)
	}
}

func (p *HTTPProvider) do(ctx context.Context, method, endpoint string, body *bytes.Reader) (*http.Response, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("http provider: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func decodeAccount(resp *http.Response) (*Identity, error) {
	var payload accountPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode account: %v", ErrUnavailable, err)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("%w: account response missing id", ErrUnavailable)
	}

	return &Identity{
		ID:          payload.ID,
		Email:       payload.Email,
		DisplayName: payload.DisplayName,
	}, nil
}
