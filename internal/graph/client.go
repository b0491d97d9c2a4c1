// Package graph implements a minimal Microsoft Graph API client for the
// ingestion pipeline: drive tree listing, site page retrieval, shareable
// links, and retrying content downloads.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sshaikhIntervision/Brinkmann/internal/auth"
	"github.com/sshaikhIntervision/Brinkmann/internal/config"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
)

// maxResponseBodyBytes limits the size of downloaded content.
const maxResponseBodyBytes = 100 * 1024 * 1024 // 100 MB

// maxErrorBodyBytes limits how much of an error payload is kept in messages.
const maxErrorBodyBytes = 2048

// retryableStatuses are the HTTP statuses treated as transient.
var retryableStatuses = map[int]struct{}{
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// TransientFetchError is returned when a download keeps failing with
// transient errors for its whole attempt budget. Callers downgrade it to a
// skipped item rather than aborting the run.
type TransientFetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

// Error implements the error interface.
func (e *TransientFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %d attempts exhausted: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %d attempts exhausted: last status %d", e.URL, e.Attempts, e.StatusCode)
}

// Unwrap returns the underlying transport error, if any.
func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// Client calls the Microsoft Graph API with bearer credentials from a
// token provider.
type Client struct {
	baseURL        string
	tokens         auth.TokenProvider
	httpClient     *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	log            logger.Interface
}

// Option customizes a Client.
type Option func(*Client)

// WithInitialBackoff overrides the initial retry backoff delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = d
	}
}

// NewClient creates a Graph client. The HTTP client's timeout bounds every
// request including content downloads.
func NewClient(
	cfg config.GraphConfig,
	ingestCfg config.IngestConfig,
	tokens auth.TokenProvider,
	httpClient *http.Client,
	log logger.Interface,
	opts ...Option,
) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		tokens:         tokens,
		httpClient:     httpClient,
		maxAttempts:    ingestCfg.MaxFetchAttempts,
		initialBackoff: config.BackoffInitial(),
		log:            log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListDrives returns all drives of a site.
func (c *Client) ListDrives(ctx context.Context, siteID string) ([]Drive, error) {
	var resp listResponse[Drive]
	endpoint := fmt.Sprintf("%s/sites/%s/drives", c.baseURL, siteID)
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list drives for site %s: %w", siteID, err)
	}
	return resp.Value, nil
}

// ListChildren returns the immediate children of a drive folder. An empty
// folderPath addresses the drive root.
func (c *Client) ListChildren(ctx context.Context, driveID, folderPath string) ([]Item, error) {
	endpoint := fmt.Sprintf("%s/drives/%s/root/children", c.baseURL, driveID)
	if folderPath != "" {
		endpoint = fmt.Sprintf("%s/drives/%s/root:/%s:/children", c.baseURL, driveID, escapePath(folderPath))
	}

	var resp listResponse[Item]
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list children of %q in drive %s: %w", folderPath, driveID, err)
	}
	return resp.Value, nil
}

// CreateShareLink creates an organization-scoped view link for a drive item.
func (c *Client) CreateShareLink(ctx context.Context, driveID, itemID string) (string, error) {
	endpoint := fmt.Sprintf("%s/drives/%s/items/%s/createLink", c.baseURL, driveID, itemID)
	body := `{"type":"view","scope":"organization"}`

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("create share link for item %s: %w", itemID, err)
	}

	var resp shareLinkResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode share link response: %w", err)
	}
	return resp.Link.WebURL, nil
}

// ListSitePages returns the page records of a site's page list.
func (c *Client) ListSitePages(ctx context.Context, siteID, listTitle string) ([]PageRecord, error) {
	endpoint := fmt.Sprintf("%s/sites/%s/lists/%s/items", c.baseURL, siteID, url.PathEscape(listTitle))

	var resp listResponse[PageRecord]
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list pages for site %s: %w", siteID, err)
	}
	return resp.Value, nil
}

// GetSitePage fetches a page's structured layout as raw bytes. The payload
// may need a repair pass before decoding, so no decoding happens here.
func (c *Client) GetSitePage(ctx context.Context, siteID, pageID string) ([]byte, error) {
	endpoint := fmt.Sprintf(
		"%s/sites/%s/pages/%s/microsoft.graph.sitePage?$expand=canvasLayout",
		c.baseURL, siteID, pageID,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	data, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", pageID, err)
	}
	return data, nil
}

// Download fetches file content from a direct download URL, retrying
// transient failures (network errors and 500/502/503/504) with exponential
// backoff up to the configured attempt budget. On exhaustion it returns a
// TransientFetchError.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	var lastStatus int
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		body, status, err := c.fetchOnce(ctx, rawURL)
		switch {
		case err == nil && status == http.StatusOK:
			return body, nil
		case err != nil:
			// A credential failure cannot heal through backoff.
			var authErr *auth.AuthError
			if errors.As(err, &authErr) {
				return nil, err
			}
			lastErr = err
			lastStatus = 0
		default:
			if _, transient := retryableStatuses[status]; !transient {
				return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, status)
			}
			lastStatus = status
			lastErr = nil
		}

		c.log.Debug("transient fetch failure",
			"url", rawURL,
			"attempt", attempt,
			"status", lastStatus,
			"error", lastErr,
		)
	}

	return nil, &TransientFetchError{
		URL:        rawURL,
		StatusCode: lastStatus,
		Attempts:   c.maxAttempts,
		Err:        lastErr,
	}
}

// fetchOnce performs a single authorized GET of the given URL.
func (c *Client) fetchOnce(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// getJSON performs an authorized GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	data, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do authorizes and executes a request, returning the body on 2xx.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("graph api status %d: %s", resp.StatusCode, truncate(body))
	}
	return body, nil
}

// authorize attaches a valid bearer credential to the request.
func (c *Client) authorize(req *http.Request) error {
	token, err := c.tokens.Token(req.Context())
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// escapePath escapes each segment of a drive folder path, preserving the
// separators.
func escapePath(folderPath string) string {
	segments := strings.Split(folderPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// truncate shortens an error payload for log and error messages.
func truncate(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		return string(body[:maxErrorBodyBytes]) + "..."
	}
	return string(body)
}
