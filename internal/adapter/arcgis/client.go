package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrItemNotFound is returned when the portal item or its layer does not exist.
var ErrItemNotFound = errors.New("item not found")

// APIError is the error envelope the ArcGIS REST API returns, usually with
// HTTP status 200.
type APIError struct {
	Code        int      `json:"code"`
	Message     string   `json:"message"`
	Description string   `json:"description"`
	Details     []string `json:"details"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Description
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("arcgis error %d: %s (%s)", e.Code, msg, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("arcgis error %d: %s", e.Code, msg)
}

// Client talks to an ArcGIS portal and the feature services it hosts.
type Client struct {
	portalURL  string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a portal client. An empty token means anonymous access.
func NewClient(portalURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		portalURL: strings.TrimRight(portalURL, "/"),
		token:     token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ResolveLayer looks up a portal item and returns the feature layer at
// index within its service, with its metadata already fetched.
func (c *Client) ResolveLayer(ctx context.Context, itemID string, index int) (*FeatureLayer, error) {
	u := fmt.Sprintf("%s/sharing/rest/content/items/%s", c.portalURL, url.PathEscape(itemID))

	var item struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Type  string `json:"type"`
		URL   string `json:"url"`
	}
	if err := c.getJSON(ctx, u, &item); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s: %w", ErrItemNotFound, itemID, err)
		}
		return nil, fmt.Errorf("get item %s: %w", itemID, err)
	}
	if item.URL == "" {
		return nil, fmt.Errorf("%w: %s has no service URL", ErrItemNotFound, itemID)
	}

	layer := NewFeatureLayer(c, strings.TrimRight(item.URL, "/")+"/"+strconv.Itoa(index))
	info, err := layer.Describe(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: layer index %d of %s: %w", ErrItemNotFound, index, itemID, err)
		}
		return nil, err
	}
	layer.info = info

	c.logger.Info("retrieved layer", "item_id", itemID, "item_title", item.Title, "layer", info.Name, "url", layer.URL())
	return layer, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	params := url.Values{"f": {"json"}}
	if c.token != "" {
		params.Set("token", c.token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	form.Set("f", "json")
	if c.token != "" {
		form.Set("token", c.token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

// do sends req and decodes the JSON body into out, surfacing the REST error
// envelope as *APIError.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("arcgis request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("arcgis API error: status %d: %s", resp.StatusCode, truncate(body, 512))
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
