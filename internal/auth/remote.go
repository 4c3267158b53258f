package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// RemoteVerifier asks an account service who owns a token:
// GET <base>/session with the token in Authorization, answering
// {"username": "..."}. 401 and 403 mean the token is invalid.
type RemoteVerifier struct {
	baseURL  string
	http     *fasthttp.Client
	timeout  time.Duration
	retryMax int
}

type RemoteOption func(*RemoteVerifier)

func WithTimeout(d time.Duration) RemoteOption {
	return func(v *RemoteVerifier) { v.timeout = d }
}

func WithRetry(max int) RemoteOption {
	return func(v *RemoteVerifier) { v.retryMax = max }
}

func NewRemoteVerifier(baseURL string, opts ...RemoteOption) *RemoteVerifier {
	v := &RemoteVerifier{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 32},
		timeout:  3 * time.Second,
		retryMax: 3,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type sessionResponse struct {
	Username string `json:"username"`
}

func (v *RemoteVerifier) Authenticate(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(v.baseURL + "/session")
	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", "application/json")

	attempts := v.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := v.http.DoDeadline(req, resp, v.deadline(ctx))
		switch {
		case err != nil:
			lastErr = fmt.Errorf("auth request failed: %w", err)
		case resp.StatusCode() == fasthttp.StatusUnauthorized || resp.StatusCode() == fasthttp.StatusForbidden:
			return "", ErrUnauthorized
		case resp.StatusCode() < 200 || resp.StatusCode() >= 300:
			lastErr = fmt.Errorf("auth service error: status=%d", resp.StatusCode())
			if !shouldRetryStatus(resp.StatusCode()) {
				return "", lastErr
			}
		default:
			var out sessionResponse
			if err := json.Unmarshal(resp.Body(), &out); err != nil {
				return "", fmt.Errorf("decode auth response: %w", err)
			}
			if strings.TrimSpace(out.Username) == "" {
				return "", ErrUnauthorized
			}
			return strings.TrimSpace(out.Username), nil
		}
		if attempt < attempts {
			if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
				return "", lastErr
			}
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return "", lastErr
}

func (v *RemoteVerifier) deadline(ctx context.Context) time.Time {
	own := time.Now().Add(v.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(own) {
		return dl
	}
	return own
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 50 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	}
	return false
}
