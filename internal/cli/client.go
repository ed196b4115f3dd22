// Package cli implements tollctl, the command-line client of the
// settlement API.  Commands are thin wrappers around Client; output is
// printed as returned by the server, with JSON re-indented for reading.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// AuthHeader carries the token returned by login.
const AuthHeader = "X-OBSERVATORY-AUTH"

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

// Response is a successful answer.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// NoContent reports a 204 answer.
func (r *Response) NoContent() bool { return r.Status == http.StatusNoContent }

// Client talks to the REST API rooted at BaseURL, e.g.
// http://localhost:9115/api.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient returns a client with a request timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Get issues a GET for path with query.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, "")
}

// PostForm posts url-encoded values.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, nil, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

// PostJSON posts v as JSON.
func (c *Client) PostJSON(ctx context.Context, path string, v interface{}) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	return c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(b), "application/json")
}

// Post sends an empty POST.
func (c *Client) Post(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, query, nil, "")
}

// Upload posts the file at filePath as multipart field "file".
func (c *Client) Upload(ctx context.Context, path string, query url.Values, filePath string) (*Response, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filePath)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, errors.Wrap(err, "build upload")
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, errors.Wrapf(err, "read %s", filePath)
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "build upload")
	}
	return c.do(ctx, http.MethodPost, path, query, &body, mw.FormDataContentType())
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*Response, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set(AuthHeader, c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp.StatusCode, b)
	}
	return &Response{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: b}, nil
}

func decodeAPIError(status int, b []byte) *APIError {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}
	if err := json.Unmarshal(b, &body); err == nil {
		apiErr.Code = body.Code
		if body.Message != "" {
			apiErr.Message = body.Message
		} else if body.Status != "" {
			apiErr.Message = body.Status
		}
	}
	return apiErr
}
