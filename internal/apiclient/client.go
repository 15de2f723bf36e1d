package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"packloop-client/internal/logger"
	"packloop-client/internal/security"
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")
	// ErrNetwork is returned for transport-level failures (timeouts,
	// connection resets). Callers map it to a weak-connection message.
	ErrNetwork = errors.New("network unavailable or request timed out")
)

// APIError carries a non-2xx server response. The message is surfaced to the
// user verbatim when no more specific local handling applies.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("platform API returned status %d", e.StatusCode)
}

// Client is a typed HTTP client for the packaging platform API. All response
// shape normalization happens here so callers never branch on wire layout.
type Client struct {
	baseURL         string
	http            *http.Client
	tokens          security.TokenProvider
	historyPageSize int
}

// Options tunes client construction.
type Options struct {
	Timeout         time.Duration
	HistoryPageSize int
}

// New creates a platform API client. The token provider is injected here;
// there is no global token registration.
func New(baseURL string, tokens security.TokenProvider, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageSize := opts.HistoryPageSize
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		http:            &http.Client{Timeout: timeout},
		tokens:          tokens,
		historyPageSize: pageSize,
	}
}

// HistoryPageSize returns the bounded page size used for history fetches.
func (c *Client) HistoryPageSize() int {
	return c.historyPageSize
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// do executes the request and decodes a 2xx body into out (unless out is
// nil). Transport failures map to ErrNetwork, 404 to ErrNotFound, other
// non-2xx statuses to *APIError with the server's message.
func (c *Client) do(req *http.Request, out any) error {
	logger.APICall(req.Method, req.URL.Path)
	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrNetwork, err)
		logger.APIResult(req.Method, req.URL.Path, 0, wrapped)
		return wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		logger.APIResult(req.Method, req.URL.Path, resp.StatusCode, apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			decodeFail := fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.URL.Path, err)
			logger.APIResult(req.Method, req.URL.Path, resp.StatusCode, decodeFail)
			return decodeFail
		}
	}
	logger.APIResult(req.Method, req.URL.Path, resp.StatusCode, nil)
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(body, &payload); err != nil {
		payload.Message = strings.TrimSpace(string(body))
	}
	message := payload.Message
	if message == "" {
		message = payload.Error
	}
	if resp.StatusCode == http.StatusNotFound {
		if message != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		return ErrNotFound
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, reader, contentType)
	if err != nil {
		return err
	}
	return c.do(req, out)
}
