package backend

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
)

// Client talks to the upstream profile backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient builds an upstream API client. A nil httpClient gets a sane
// default with timeouts.
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// RequestUploadTarget obtains a single-use upload destination.
func (c *Client) RequestUploadTarget(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/images/upload-url", nil)
	if err != nil {
		return "", err
	}
	var payload struct {
		UploadURL string `json:"uploadUrl"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode upload target: %w", err)
	}
	if payload.UploadURL == "" {
		return "", fmt.Errorf("upload target missing url")
	}
	return payload.UploadURL, nil
}

// Transfer PUTs the binary to the upload target, reporting byte progress.
// Non-2xx statuses are returned in the result, not as an error, so the caller
// can record the response text.
func (c *Client) Transfer(ctx context.Context, uploadURL string, data []byte, contentType string, progress ProgressFunc) (TransferResult, error) {
	total := int64(len(data))
	var reader io.Reader = bytes.NewReader(data)
	if progress != nil {
		reader = &progressReader{r: reader, total: total, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, reader)
	if err != nil {
		return TransferResult{}, err
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TransferResult{}, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TransferResult{}, classifyTransport(err)
	}
	return TransferResult{Status: resp.StatusCode, Body: body}, nil
}

// ConfirmMetadata registers the uploaded binary and returns the durable image id.
func (c *Client) ConfirmMetadata(ctx context.Context, meta ImageMetadata) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/images/confirm", meta)
	if err != nil {
		return "", err
	}
	var payload struct {
		ImageID string `json:"imageId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode confirm response: %w", err)
	}
	if payload.ImageID == "" {
		return "", fmt.Errorf("confirm response missing image id")
	}
	return payload.ImageID, nil
}

// PersistImageOrder stores the profile's image ordering.
func (c *Client) PersistImageOrder(ctx context.Context, ownerID string, imageIDs []string) error {
	_, err := c.do(ctx, http.MethodPost, "/images/order", map[string]any{
		"ownerId":  ownerID,
		"imageIds": imageIDs,
	})
	return err
}

// CreateProfile submits the cleaned profile payload.
func (c *Client) CreateProfile(ctx context.Context, payload map[string]any) (Profile, error) {
	body, err := c.do(ctx, http.MethodPost, "/profiles", payload)
	if err != nil {
		return Profile{}, err
	}
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

// GetExistingProfile looks up a profile for the identity, reporting whether
// one exists.
func (c *Client) GetExistingProfile(ctx context.Context, identity string) (Profile, bool, error) {
	body, err := c.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(identity), nil)
	if err != nil {
		if isStatusErr(err, http.StatusNotFound) {
			return Profile{}, false, nil
		}
		return Profile{}, false, err
	}
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return Profile{}, false, fmt.Errorf("decode profile: %w", err)
	}
	return profile, true, nil
}

// statusError preserves the upstream status and response text for
// classification and user display.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("backend returned %d: %s", e.status, e.body)
	}
	return fmt.Sprintf("backend returned %d", e.status)
}

// UserMessage exposes the upstream response text for user display.
func (e *statusError) UserMessage() string { return e.body }

func isStatusErr(err error, status int) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	return se.status == status
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthExpired, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrAuthExpired, strings.TrimSpace(string(body)))
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("%w: %s", ErrConflict, strings.TrimSpace(string(body)))
	default:
		return nil, &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
}

func classifyTransport(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	fn     ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.fn(p.loaded, p.total)
	}
	return n, err
}
