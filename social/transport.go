package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds every outbound provider call.
const DefaultHTTPTimeout = 10 * time.Second

// NewHTTPClient returns a client with timeout, DefaultHTTPTimeout when zero.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Request describes one JSON call to a provider endpoint.
type Request struct {
	Provider string
	Stage    Stage
	Method   string
	URL      string
	Headers  map[string]string
	Body     io.Reader
}

// DoJSON performs req and decodes a 2xx JSON response into out. Transport
// failures, non 2xx responses and undecodable bodies return a ProviderError.
func DoJSON(ctx context.Context, client *http.Client, req Request, out any) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, req.Body)
	if err != nil {
		return req.fail(0, "invalid_request", "", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return req.fail(0, "transport", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return req.fail(resp.StatusCode, "transport", "", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return req.fail(resp.StatusCode, "http_status", errorDescription(body), nil)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return req.fail(resp.StatusCode, "invalid_response", "failed to decode response", err)
	}
	return nil
}

func (r Request) fail(status int, code, description string, err error) *ProviderError {
	return &ProviderError{
		Provider:    r.Provider,
		Stage:       r.Stage,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}

// errorDescription pulls a readable message out of an error body.
func errorDescription(body []byte) string {
	var payload struct {
		Message          string `json:"message"`
		Error            any    `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.ErrorDescription != "":
			return payload.ErrorDescription
		case payload.Message != "":
			return payload.Message
		}
		if s, ok := payload.Error.(string); ok && s != "" {
			return s
		}
		if m, ok := payload.Error.(map[string]any); ok {
			if msg, ok := m["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
