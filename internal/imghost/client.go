package imghost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/KeithOmondi/kian-optics/internal/config"
)

// UploadResult identifies a hosted image.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

// Uploader is what handlers depend on; the REST client implements it and
// tests substitute a stub.
type Uploader interface {
	Upload(ctx context.Context, image, folder string) (*UploadResult, error)
	Destroy(ctx context.Context, publicID string) error
}

// Client uploads product images to the hosting service's REST API. Images
// arrive from the storefront as data URIs or remote URLs and are passed
// through unchanged.
type Client struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:    cfg.IMGHOST_URL,
		APIKey:     cfg.IMGHOST_KEY,
		APISecret:  cfg.IMGHOST_SECRET,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Upload(ctx context.Context, image, folder string) (*UploadResult, error) {
	payload := map[string]string{
		"file":       image,
		"folder":     folder,
		"api_key":    c.APIKey,
		"api_secret": c.APISecret,
	}
	var out UploadResult
	if err := c.post(ctx, "/image/upload", payload, &out); err != nil {
		return nil, fmt.Errorf("imghost: upload failed: %w", err)
	}
	return &out, nil
}

func (c *Client) Destroy(ctx context.Context, publicID string) error {
	payload := map[string]string{
		"public_id":  publicID,
		"api_key":    c.APIKey,
		"api_secret": c.APISecret,
	}
	if err := c.post(ctx, "/image/destroy", payload, nil); err != nil {
		return fmt.Errorf("imghost: destroy %s failed: %w", publicID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("status %d: %s", res.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
