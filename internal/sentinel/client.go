// Package sentinel downloads acquisitions from the Sentinel Hub catalog and
// process APIs into the GeoTIFF archive.
package sentinel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrNoCredentials = errors.New("sentinel: no client credentials configured")
	ErrUnauthorized  = errors.New("sentinel: unauthorized, check client id and secret")
)

type Credential struct {
	ClientID     string
	ClientSecret string
}

type Config struct {
	Credentials []Credential
	TokenURL    string
	ProcessURL  string
	CatalogURL  string
	RetryMax    int
	RetryWait   time.Duration
}

// Client posts JSON requests with the first credential pair that the token
// endpoint accepts.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Credentials) == 0 {
		return nil, ErrNoCredentials
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = 10
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = 5 * time.Second
	}
	return &Client{cfg: cfg}, nil
}

func (c *Client) httpClient(ctx context.Context, cred Credential) *retryablehttp.Client {
	config := &clientcredentials.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		TokenURL:     c.cfg.TokenURL,
	}
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = c.cfg.RetryMax
	retryClient.RetryWaitMin = c.cfg.RetryWait
	retryClient.RetryWaitMax = 4 * c.cfg.RetryWait
	retryClient.HTTPClient = config.Client(ctx)
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			utils.Log.WithField("url", req.URL.String()).Warnf("attempt %d", attempt+1)
		}
	}
	return retryClient
}

// Post sends body to url and returns the response body of the first
// credential that is not rejected.
func (c *Client) Post(ctx context.Context, url string, body []byte, accept string) ([]byte, error) {
	var lastErr error
	for i, cred := range c.cfg.Credentials {
		content, err := c.post(ctx, cred, url, body, accept)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		utils.Log.WithError(err).Warnf("credential %d of %d failed", i+1, len(c.cfg.Credentials))
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, cred Credential, url string, body []byte, accept string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	response, err := c.httpClient(ctx, cred).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post to %s: %w", url, err)
	}
	defer response.Body.Close()

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	switch {
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case response.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s returned %d: %s", url, response.StatusCode, errorMessage(content))
	}
	return content, nil
}

func errorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}
