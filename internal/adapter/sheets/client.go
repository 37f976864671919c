package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/sheet-ladder-etl/internal/domain"
)

// ErrFetch is returned when the sheet export cannot be downloaded.
var ErrFetch = errors.New("failed to load Google Sheet")

// Client downloads a sheet tab as CSV. It implements pipeline.TableSource.
type Client struct {
	ref        Ref
	schema     domain.Schema
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a client for the given sheet tab. baseURL is the Google
// Docs origin, normally https://docs.google.com.
func NewClient(ref Ref, schema domain.Schema, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		ref:    ref,
		schema: schema,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ExportURL returns the CSV export address of the sheet tab.
func (c *Client) ExportURL() string {
	params := url.Values{
		"format": {"csv"},
		"gid":    {fmt.Sprint(c.ref.GID)},
	}
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?%s", c.baseURL, url.PathEscape(c.ref.ID), params.Encode())
}

// Load downloads and parses the sheet.
func (c *Client) Load(ctx context.Context) (domain.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ExportURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrFetch, resp.StatusCode, body)
	}
	// Private sheets answer 200 with an HTML sign-in page.
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && mt == "text/html" {
		return nil, fmt.Errorf("%w: sheet %s is not shared publicly", ErrFetch, c.ref.ID)
	}

	table, err := ParseTable(resp.Body, c.schema)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTable) {
			c.logger.Error("sheet validation failed", "sheet_id", c.ref.ID, "gid", c.ref.GID, "error", err)
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	c.logger.Info("loaded sheet", "sheet_id", c.ref.ID, "gid", c.ref.GID, "rows", len(table))
	return table, nil
}
