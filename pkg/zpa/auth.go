package zpa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// token holds a bearer token from the client-credentials grant.
type token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`

	// acquiredAt is set locally when the grant succeeds.
	acquiredAt time.Time
}

// expired reports whether the token TTL has elapsed, with a small skew margin
// so a token is never used in its final seconds.
func (t *token) expired() bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	if t.ExpiresIn <= 0 {
		return false
	}
	ttl := time.Duration(t.ExpiresIn)*time.Second - 10*time.Second
	return time.Since(t.acquiredAt) >= ttl
}

// authenticate performs the OAuth client-credentials grant against the token
// endpoint and stores the resulting bearer token on the client.
func (c *Client) authenticate(ctx context.Context) error {
	// Two token-endpoint contracts: the legacy per-cloud /signin endpoint
	// takes bare client_id/client_secret, while the Zidentity OneAPI endpoint
	// (vanity domain) is standard OAuth2 and requires the grant_type field.
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	if c.cfg.VanityDomain != "" {
		form.Set("grant_type", "client_credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return NewAuthError("building token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewAuthError("token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return NewAuthError("reading token response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewAuthError(
			fmt.Sprintf("token grant rejected with status %d: %s",
				resp.StatusCode, truncate(string(body), 200)), nil)
	}

	var tok token
	if err := json.Unmarshal(body, &tok); err != nil {
		return NewAuthError("decoding token response", err)
	}
	if tok.AccessToken == "" {
		return NewAuthError("token response carried no access_token", nil)
	}
	tok.acquiredAt = time.Now()
	c.token = &tok

	c.logger.Debug().
		Int("expires_in", tok.ExpiresIn).
		Msg("acquired bearer token")
	return nil
}

// truncate caps s at n runes for log and error messages.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
