package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// maxLoggedBody caps how much of a response body is attached to trace logs
const maxLoggedBody = 4096

type traceTransport struct {
	base http.RoundTripper
	name string
}

// NewTraceClient returns an HTTP client that logs requests at trace level.
func NewTraceClient(name string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &traceTransport{name: name},
	}
}

func (t *traceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	urlStr := RedactURL(req.URL)
	start := time.Now()

	log.Trace().
		Str("client", t.name).
		Str("method", req.Method).
		Str("url", urlStr).
		Msg("HTTP request")

	resp, err := base.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		log.Trace().
			Str("client", t.name).
			Str("method", req.Method).
			Str("url", urlStr).
			Dur("duration", duration).
			Err(err).
			Msg("HTTP request failed")
		return nil, err
	}

	// The body is only read when trace logging is on
	logEvent := log.Trace()
	if !logEvent.Enabled() {
		return resp, nil
	}

	bodyBytes, readErr := readAndRestoreBody(resp)
	logEvent.
		Str("client", t.name).
		Str("method", req.Method).
		Str("url", urlStr).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Int("body_length", len(bodyBytes))

	if readErr != nil {
		logEvent.Err(readErr)
	}

	if n := len(bodyBytes); n > 0 {
		switch {
		case n <= maxLoggedBody && json.Valid(bodyBytes):
			logEvent.RawJSON("body", bodyBytes)
		case n > maxLoggedBody:
			logEvent.Str("body", string(bodyBytes[:maxLoggedBody])+"...")
		default:
			logEvent.Str("body", string(bodyBytes))
		}
	}

	logEvent.Msg("HTTP response")

	return resp, nil
}

func readAndRestoreBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	return bodyBytes, err
}

// RedactURL renders u with credentials removed: userinfo, secret query
// values and the token segment of webhook paths (/webhooks/{id}/{token}).
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	copyURL := *u
	if copyURL.User != nil {
		copyURL.User = url.User("redacted")
	}

	segments := strings.Split(copyURL.Path, "/")
	for i, seg := range segments {
		if seg == "webhooks" && i+2 < len(segments) && segments[i+2] != "" {
			segments[i+2] = "redacted"
			copyURL.Path = strings.Join(segments, "/")
			copyURL.RawPath = ""
			break
		}
	}

	if copyURL.RawQuery == "" {
		return copyURL.String()
	}

	q := copyURL.Query()
	for key := range q {
		if isSensitiveQueryKey(key) {
			q.Set(key, "redacted")
		}
	}

	copyURL.RawQuery = q.Encode()
	return copyURL.String()
}

func isSensitiveQueryKey(key string) bool {
	switch strings.ToLower(key) {
	case "apikey", "api_key", "api-key", "key", "token", "access_token", "secret", "signature", "sig", "authorization", "auth":
		return true
	default:
		return false
	}
}
