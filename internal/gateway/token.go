package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/payground/internal/credentials"
)

// token expiry safety margin; a token about to lapse mid-call is not worth
// reusing.
const tokenExpirySlack = 30 * time.Second

type cachedToken struct {
	value   string
	expires time.Time
}

// tokenSource exchanges a resolved credential for a bearer token and caches
// it per identity+endpoint until shortly before expiry.
type tokenSource struct {
	transport Doer

	mu     sync.Mutex
	tokens map[string]cachedToken
	now    func() time.Time
}

func newTokenSource(transport Doer) *tokenSource {
	return &tokenSource{
		transport: transport,
		tokens:    make(map[string]cachedToken),
		now:       time.Now,
	}
}

func (ts *tokenSource) cacheKey(resolved credentials.Resolved) string {
	return resolved.Endpoint + "|" + resolved.ClientID
}

// Token returns a bearer token for the resolved credential, fetching a new
// one when the cache has none or it is about to expire.
func (ts *tokenSource) Token(ctx context.Context, resolved credentials.Resolved) (string, error) {
	key := ts.cacheKey(resolved)

	ts.mu.Lock()
	cached, ok := ts.tokens[key]
	now := ts.now()
	ts.mu.Unlock()
	if ok && now.Add(tokenExpirySlack).Before(cached.expires) {
		return cached.value, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "payment-all")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(resolved.Endpoint, "/")+"/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("gateway: token request: %w", err)
	}
	req.SetBasicAuth(resolved.ClientID, resolved.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := ts.transport.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("gateway: token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gateway: token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway: token exchange failed with status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("gateway: token decode: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("gateway: token exchange returned no access token")
	}

	expires := ts.now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	ts.mu.Lock()
	ts.tokens[key] = cachedToken{value: parsed.AccessToken, expires: expires}
	ts.mu.Unlock()

	return parsed.AccessToken, nil
}
