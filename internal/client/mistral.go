package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/markis/content-creator/internal/prompt"
)

// Constants
const (
	DefaultBaseURL = "https://api.mistral.ai"
	chatPath       = "/v1/chat/completions"

	defaultTimeout = 60 * time.Second
	maxErrorBody   = 8192
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("missing API key: set MISTRAL_API_KEY or api_key in the config file")

// Payload is the body of a streamed chat completions request.
type Payload struct {
	Model       string           `json:"model"`
	Messages    []prompt.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	Stream      bool             `json:"stream"`
}

// Config holds everything the client needs; nothing is read from the environment.
// Timeout bounds the wait for response headers only. Once the stream starts,
// its length is governed by the request context.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client sends chat completion requests to the Mistral API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func New(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.Timeout)
	}

	return &Client{apiKey: key, baseURL: base, http: httpClient}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		DisableCompression:    false,
		DisableKeepAlives:     false,
		ForceAttemptHTTP2:     true,
	}

	// Add context-aware dial options
	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext

	// No Client.Timeout: it would also cut off a body that is still streaming.
	return &http.Client{Transport: transport}
}

// endpoint returns the chat completions URL, accepting base URLs that already
// end in /v1 or point at the full endpoint.
func (c *Client) endpoint() string {
	switch {
	case strings.HasSuffix(c.baseURL, chatPath):
		return c.baseURL
	case strings.HasSuffix(c.baseURL, "/v1"):
		return c.baseURL + "/chat/completions"
	default:
		return c.baseURL + chatPath
	}
}

// SendStreamingRequest posts payload with streaming enabled and returns the
// event stream body. The caller must close it. Any failure to obtain a 2xx
// response is a *TransportError.
func (c *Client) SendStreamingRequest(ctx context.Context, payload Payload) (io.ReadCloser, error) {
	payload.Stream = true
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("request failed: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	return resp.Body, nil
}

// TransportError is a connection failure or a non-success response from the API.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode == 0:
		return e.Err.Error()
	case e.Message != "":
		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// errorMessage extracts a readable message from an error response body.
func errorMessage(body []byte) string {
	var envelope struct {
		Message any `json:"message"`
		Error   any `json:"error"`
		Detail  any `json:"detail"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		for _, v := range []any{envelope.Message, envelope.Error, envelope.Detail} {
			switch m := v.(type) {
			case nil:
			case string:
				if m != "" {
					return m
				}
			default:
				if b, err := json.Marshal(m); err == nil {
					return string(b)
				}
			}
		}
	}
	return strings.TrimSpace(string(body))
}
