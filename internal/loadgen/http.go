package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/hrdesk/pkg/logger"
)

// ErrUnexpectedStatus is returned when the server answers with a status the
// caller did not expect.
var ErrUnexpectedStatus = errors.New("unexpected status")

// HTTPClient wraps http.Client with a timeout and an optional shared rate limit.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// newHTTPClient creates a new HTTP client. rps <= 0 disables throttling.
func newHTTPClient(baseURL string, timeout time.Duration, rps float64, burst int) *HTTPClient {
	c := &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return c
}

// Get performs a GET request and decodes a JSON response into out when the
// status matches want.
func (c *HTTPClient) Get(ctx context.Context, path string, want int, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, want, out)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any, headers map[string]string, want int, out any) error {
	return c.do(ctx, http.MethodPost, path, body, headers, want, out)
}

// Do performs a request and returns the raw status and body.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any, headers map[string]string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, data, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, headers map[string]string, want int, out any) error {
	status, data, err := c.Do(ctx, method, path, body, headers)
	if err != nil {
		return err
	}
	if status != want {
		return fmt.Errorf("%w: %s %s answered %d: %s", ErrUnexpectedStatus, method, path, status, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}
