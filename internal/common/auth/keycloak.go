// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mangastream-workers/internal/common/errors"
)

// Introspector resolves an access token into the identity it was issued to.
type Introspector interface {
	Introspect(ctx context.Context, token string) (*TokenInfo, error)
}

// KeycloakClient introspects viewer access tokens against a Keycloak realm.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// TokenInfo holds the fields of the introspection response the workers read.
type TokenInfo struct {
	Active    bool   `json:"active"`
	Subject   string `json:"sub,omitempty"`
	Username  string `json:"username,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"` // seconds since epoch
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Introspect calls the realm's token introspection endpoint.
// An inactive token is not an error: the result has Active == false.
func (k *KeycloakClient) Introspect(ctx context.Context, token string) (*TokenInfo, error) {
	if token == "" {
		return &TokenInfo{Active: false}, nil
	}

	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, introspectURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, nonRetryable(errors.NewTokenIntrospectionFailedError(err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTokenIntrospectionFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		stdErr := errors.NewTokenIntrospectionFailedError(
			fmt.Errorf("introspection returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		if !isTransientHTTPError(resp.StatusCode) {
			stdErr = nonRetryable(stdErr)
		}
		return nil, stdErr
	}

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, nonRetryable(errors.NewTokenIntrospectionFailedError(fmt.Errorf("decode introspection response: %w", err)))
	}

	return &info, nil
}

func nonRetryable(err *errors.StandardError) *errors.StandardError {
	err.Retryable = false
	return err
}

func isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
