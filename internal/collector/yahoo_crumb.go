package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// sessionCrumb returns the cached crumb, running the cookie and crumb
// handshake on first use. An empty crumb with a nil error means the
// handshake is disabled.
func (f *YahooFetcher) sessionCrumb(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb != "" || f.CookieURL == "" {
		return f.crumb, nil
	}

	// the cookie endpoint answers 404 but still sets the session cookie
	if _, _, err := f.get(ctx, f.CookieURL); err != nil {
		return "", fmt.Errorf("yahoo cookie: %w", err)
	}
	code, body, err := f.get(ctx, f.BaseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	if code != http.StatusOK {
		return "", fmt.Errorf("yahoo crumb: %w", &statusError{Code: code, Body: truncate(body, 200)})
	}
	crumb := strings.TrimSpace(body)
	if crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		return "", errors.New("yahoo crumb: unexpected response")
	}
	f.crumb = crumb
	return crumb, nil
}

// resetCrumb drops a crumb the server no longer accepts.
func (f *YahooFetcher) resetCrumb() {
	f.mu.Lock()
	f.crumb = ""
	f.mu.Unlock()
}

func (f *YahooFetcher) get(ctx context.Context, addr string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}
