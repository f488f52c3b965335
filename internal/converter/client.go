// Package converter is the HTTP client for the external markup <-> semantic
// conversion service.
package converter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
)

// Client calls the converter service.
//
//	POST {base}/toSemantic    text/html in, {"semantic","skeleton"} out
//	POST {base}/fromSemantic  {"semantic","skeleton"} in, text/html out
type Client struct {
	client  *resty.Client
	baseURL string
	logger  *slog.Logger
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // optional; its transport is wrapped for tracing
	Logger     *slog.Logger
}

// Document is the semantic form of a markup document together with the
// skeleton needed to rebuild it.
type Document struct {
	Semantic string `json:"semantic"`
	Skeleton string `json:"skeleton"`
}

// New creates a converter client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc = &http.Client{
		Transport:     otelhttp.NewTransport(base),
		CheckRedirect: hc.CheckRedirect,
		Jar:           hc.Jar,
		Timeout:       hc.Timeout,
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.NewWithClient(hc).SetRetryCount(0)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// ToSemantic converts markup into its semantic form and skeleton.
func (c *Client) ToSemantic(ctx context.Context, markup string) (string, string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", domain.MimeHTML).
		SetHeader("Accept", domain.MimeJSON).
		SetBody(markup).
		Post(c.baseURL + "/toSemantic")
	if err != nil {
		return "", "", fmt.Errorf("converter request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return "", "", statusError("toSemantic", resp)
	}

	var doc Document
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return "", "", fmt.Errorf("decode converter response: %w", err)
	}
	if doc.Semantic == "" {
		return "", "", fmt.Errorf("converter returned an empty semantic document")
	}

	c.logger.DebugContext(ctx, "markup converted",
		slog.Int("markup_bytes", len(markup)),
		slog.Int("semantic_bytes", len(doc.Semantic)),
	)
	return doc.Semantic, doc.Skeleton, nil
}

// FromSemantic merges an enriched semantic document into skeleton.
func (c *Client) FromSemantic(ctx context.Context, semantic, skeleton string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", domain.MimeJSON).
		SetHeader("Accept", domain.MimeHTML).
		SetBody(Document{Semantic: semantic, Skeleton: skeleton}).
		Post(c.baseURL + "/fromSemantic")
	if err != nil {
		return "", fmt.Errorf("converter request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return "", statusError("fromSemantic", resp)
	}

	return string(resp.Body()), nil
}

func statusError(op string, resp *resty.Response) error {
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		return fmt.Errorf("converter %s returned HTTP status %d", op, resp.StatusCode())
	}
	return fmt.Errorf("converter %s returned HTTP status %d: %s", op, resp.StatusCode(), body)
}

var _ ports.MarkupConverter = (*Client)(nil)
