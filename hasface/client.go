package hasface

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/bytedance/sonic"
)

// Detector runs face detection on an image.
type Detector interface {
	Detect(ctx context.Context, image io.Reader, filename string) (*DetectionResponse, error)
}

// StatusError is returned when the detection API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("detection api returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("detection api returned %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client posts images to the configured detection endpoint.
type Client struct {
	cfg        *Config
	httpClient *http.Client
}

// NewClient returns a Client reading credentials and endpoint from cfg on every call.
// A nil httpClient means http.DefaultClient.
func NewClient(cfg *Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Detect sends image as a multipart upload together with the API credentials
// and decodes the JSON answer. A body with status "failure" is returned with an
// error wrapping ErrDetectionFailed, so the validator reports it as a failed
// call and never as no_face, even though such a body carries no tags.
func (c *Client) Detect(ctx context.Context, image io.Reader, filename string) (*DetectionResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("api_key", c.cfg.APIKey); err != nil {
		return nil, err
	}
	if err := writer.WriteField("api_secret", c.cfg.APISecret); err != nil {
		return nil, err
	}
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.DetectURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode > 299 {
		return nil, &StatusError{StatusCode: res.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	var out DetectionResponse
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode detection response: %w", err)
	}
	if out.Failed() {
		msg := out.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("error_code=%d", out.ErrorCode)
		}
		return &out, fmt.Errorf("%w: %s", ErrDetectionFailed, msg)
	}
	return &out, nil
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}
