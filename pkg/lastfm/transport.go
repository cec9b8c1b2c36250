package lastfm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBackoff = 30 * time.Second

// envelope is the <lfm> root element wrapping every API response.
type envelope struct {
	XMLName xml.Name  `xml:"lfm"`
	Status  string    `xml:"status,attr"`
	Error   *apiError `xml:"error"`
	Inner   []byte    `xml:",innerxml"`
}

type apiError struct {
	Code    int    `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// retryable marks an attempt failure that may succeed on a later attempt.
type retryable struct{ err error }

func (r retryable) Error() string { return r.err.Error() }
func (r retryable) Unwrap() error { return r.err }

// call signs and posts an API method, retrying transient failures, and
// returns the inner XML of a successful response. sessionKey is required
// when non-empty auth is needed; pass "" for unauthenticated methods.
func (c *Client) call(ctx context.Context, method string, params map[string]string, sessionKey string, requiresAuth bool) ([]byte, error) {
	if requiresAuth && sessionKey == "" {
		return nil, ErrNoSessionKey
	}

	signed := make(map[string]string, len(params)+3)
	for k, v := range params {
		signed[k] = v
	}
	signed["method"] = method
	signed["api_key"] = c.apiKey
	if requiresAuth {
		signed["sk"] = sessionKey
	}

	form := url.Values{}
	for k, v := range signed {
		form.Set(k, v)
	}
	form.Set("api_sig", sign(signed, c.apiSecret))
	body := form.Encode()

	backoff := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		c.debugf("lastfm: calling %s (attempt %d/%d)", method, attempt, c.maxRetries)

		inner, err := c.attempt(ctx, body)
		if err == nil {
			c.debugf("lastfm: %s succeeded", method)
			return inner, nil
		}

		var r retryable
		if !errors.As(err, &r) {
			return nil, err
		}
		lastErr = r.err
		if attempt == c.maxRetries {
			break
		}

		c.debugf("lastfm: %s failed, retrying in %s: %v", method, backoff, r.err)
		if !sleep(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff)
	}

	return nil, fmt.Errorf("lastfm: %s: max retries exceeded: %w", method, lastErr)
}

// attempt performs a single HTTP round trip.
func (c *Client) attempt(ctx context.Context, body string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil && isNetworkError(err) {
			return nil, retryable{fmt.Errorf("lastfm: http request failed: %w", err)}
		}
		return nil, fmt.Errorf("lastfm: http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retryable{fmt.Errorf("lastfm: failed to read response: %w", err)}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, retryable{fmt.Errorf("lastfm: server error: %s", resp.Status)}
	}

	// Last.fm reports API errors with 4xx statuses and an <lfm status="failed">
	// body, so try to decode the envelope before rejecting the status.
	var env envelope
	if err := xml.Unmarshal(data, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("lastfm: unexpected status: %s", resp.Status)
		}
		return nil, fmt.Errorf("lastfm: failed to parse response: %w", err)
	}

	if env.Status != "ok" {
		apiErr := &Error{Message: "unknown error"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = strings.TrimSpace(env.Error.Message)
		}
		if apiErr.Temporary() {
			return nil, retryable{apiErr}
		}
		return nil, apiErr
	}

	return env.Inner, nil
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleep waits for d or until ctx is done. It reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// decodeInner unmarshals the inner XML of a response into v.
func decodeInner(inner []byte, v interface{}) error {
	wrapped := make([]byte, 0, len(inner)+13)
	wrapped = append(wrapped, "<root>"...)
	wrapped = append(wrapped, inner...)
	wrapped = append(wrapped, "</root>"...)
	return xml.Unmarshal(wrapped, v)
}
