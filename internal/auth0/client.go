// Package auth0 talks to the identity provider's Management API. It returns
// profile facts only; user provisioning decisions live in the services layer.
package auth0

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2/clientcredentials"
)

// ErrUserNotFound means the provider has no user for the requested id.
var ErrUserNotFound = errors.New("auth0: user not found")

// Profile holds the provider-side user fields the local record is built from.
type Profile struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Picture  string `json:"picture"`
}

// Config holds the Management API settings.
type Config struct {
	// Domain is the tenant domain, e.g. "kwekker.eu.auth0.com".
	Domain       string
	ClientID     string
	ClientSecret string
	// Audience is the Management API identifier.
	Audience string
}

// ManagementClient is a minimal Management API client. The underlying
// transport holds the client-credentials token behind a single-acquisition
// cached source, so concurrent first use performs one token request. Unlike
// the preceding implementation, which fetched the token once and held it
// forever, the source re-acquires on expiry; this is intentional.
type ManagementClient struct {
	baseURL string
	http    *http.Client
}

// NewManagementClient creates a Management API client for the given tenant.
func NewManagementClient(cfg Config) *ManagementClient {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://%s/oauth/token", cfg.Domain),
		EndpointParams: url.Values{
			"audience": {cfg.Audience},
		},
	}
	return &ManagementClient{
		baseURL: fmt.Sprintf("https://%s/api/v2", cfg.Domain),
		http:    cc.Client(context.Background()),
	}
}

// newManagementClientForTest builds a client against an arbitrary base and
// token URL, used by tests to point at a stub server.
func newManagementClientForTest(baseURL, tokenURL string) *ManagementClient {
	cc := clientcredentials.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		TokenURL:     tokenURL,
	}
	return &ManagementClient{
		baseURL: baseURL,
		http:    cc.Client(context.Background()),
	}
}

// GetUser fetches a user's profile by provider subject id.
func (c *ManagementClient) GetUser(ctx context.Context, id string) (Profile, error) {
	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("management api request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Profile{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	case resp.StatusCode != http.StatusOK:
		return Profile{}, fmt.Errorf("management api returned status %d for user %s", resp.StatusCode, id)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("malformed management api response: %w", err)
	}
	return profile, nil
}
