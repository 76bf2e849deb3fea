package clients

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

//go:generate mockgen -source=http_client.go -destination=mock_http_client.go -package=clients

const defaultTimeout = time.Second * 15

var ErrFailedCloseResponseBody = errors.New("failed close response body")

type HTTPClientI interface {
	Do(req *http.Request) (*http.Response, error)
	Get(ctx context.Context, url string, headers http.Header) (statusCode int, respBody []byte, respHeaders http.Header, err error)
	Post(ctx context.Context, url string, headers http.Header, body []byte) (statusCode int, respBody []byte, respHeaders http.Header, err error)
}

type HTTPClientAdapter struct {
	client *http.Client
}

func (h *HTTPClientAdapter) Do(req *http.Request) (*http.Response, error) {
	return h.client.Do(req)
}

func (h *HTTPClientAdapter) Get(ctx context.Context, url string, headers http.Header) (int, []byte, http.Header, error) {
	return h.send(ctx, http.MethodGet, url, headers, nil)
}

func (h *HTTPClientAdapter) Post(ctx context.Context, url string, headers http.Header, body []byte) (int, []byte, http.Header, error) {
	return h.send(ctx, http.MethodPost, url, headers, body)
}

func (h *HTTPClientAdapter) send(ctx context.Context, method, url string, headers http.Header, body []byte) (statusCode int, respBody []byte, respHeaders http.Header, err error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return
	}
	if headers != nil {
		req.Header = headers.Clone()
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return
	}

	defer func() {
		if e := resp.Body.Close(); e != nil {
			err = errors.Join(err, ErrFailedCloseResponseBody)
		}
	}()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	statusCode = resp.StatusCode
	respHeaders = resp.Header

	return
}

type HTTPClient struct {
	client HTTPClientI
	raw    *http.Client
}

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	raw := &http.Client{Timeout: timeout}
	return &HTTPClient{
		client: &HTTPClientAdapter{client: raw},
		raw:    raw,
	}
}

func (h *HTTPClient) Get(ctx context.Context, url string, headers http.Header) (int, []byte, http.Header, error) {
	return h.client.Get(ctx, url, headers)
}

func (h *HTTPClient) Post(ctx context.Context, url string, headers http.Header, body []byte) (int, []byte, http.Header, error) {
	return h.client.Post(ctx, url, headers, body)
}

func (h *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return h.client.Do(req)
}

// Standard exposes the underlying client for libraries that need one.
func (h *HTTPClient) Standard() *http.Client {
	return h.raw
}

func (h *HTTPClient) SetClient(mock HTTPClientI) {
	h.client = mock
}
