package lastfm

import (
	"context"
	"fmt"
	"net/url"
)

// AuthService implements the desktop authentication flow.
type AuthService struct {
	client *Client
}

// GetToken requests an unauthorized request token.
func (a *AuthService) GetToken(ctx context.Context) (*Token, error) {
	inner, err := a.client.call(ctx, "auth.getToken", nil, "", false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Token string `xml:"token"`
	}
	if err := decodeInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse token response: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("lastfm: empty token in response")
	}

	return &Token{Token: resp.Token}, nil
}

// GetAuthURL returns the page where the user authorizes token.
func (a *AuthService) GetAuthURL(token string) string {
	q := url.Values{}
	q.Set("api_key", a.client.apiKey)
	q.Set("token", token)
	return DefaultAuthURL + "?" + q.Encode()
}

// GetSession exchanges an authorized token for a session key. The key does
// not expire and should be stored for later calls.
func (a *AuthService) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("lastfm: token is required")
	}

	inner, err := a.client.call(ctx, "auth.getSession", map[string]string{"token": token}, "", false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Name       string `xml:"session>name"`
		Key        string `xml:"session>key"`
		Subscriber int    `xml:"session>subscriber"`
	}
	if err := decodeInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse session response: %w", err)
	}
	if resp.Key == "" {
		return nil, fmt.Errorf("lastfm: empty session key in response")
	}

	return &Session{
		Key:        resp.Key,
		Username:   resp.Name,
		Subscriber: resp.Subscriber == 1,
	}, nil
}
