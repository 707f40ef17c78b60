// Package playstore resolves package metadata by reading the meta tags of the
// public store detail page directly.
package playstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/appmeta/internal/httpclient"
	"github.com/JakeFAU/appmeta/internal/lookup"
	"github.com/JakeFAU/appmeta/internal/metrics"
)

// EngineName labels metrics and logs produced by this backend.
const EngineName = "playstore"

// DefaultStoreURL is the public app detail page.
const DefaultStoreURL = "https://play.google.com/store/apps/details"

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "appmeta/1.0 (+https://github.com/JakeFAU/appmeta)"

// Config controls the store page client.
type Config struct {
	StoreURL  string
	UserAgent string
	Timeout   time.Duration
}

// Client implements lookup.Engine by scraping the store detail page.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client. A nil httpClient gets the shared pooled client.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.StoreURL == "" {
		cfg.StoreURL = DefaultStoreURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if httpClient == nil {
		httpClient = httpclient.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Run fetches the detail page for id and converts its meta tags.
func (c *Client) Run(ctx context.Context, id lookup.PackageID) (lookup.Metatags, error) {
	body, err := c.fetch(ctx, id)
	if err != nil {
		return lookup.Metatags{}, err
	}
	tags, err := ParseMetaTags(body)
	if err != nil {
		malformed := &lookup.MalformedResponseError{ID: id, Reason: "unparseable store page", Err: err}
		c.logger.Error("malformed store page", zap.String("package_id", id), zap.Error(malformed))
		return lookup.Metatags{}, malformed
	}
	md, err := lookup.FromTags(id, tags)
	if err != nil {
		var malformed *lookup.MalformedResponseError
		if errors.As(err, &malformed) {
			c.logger.Error("malformed store page", zap.String("package_id", id), zap.Error(err))
		}
		return lookup.Metatags{}, err
	}
	return md, nil
}

func (c *Client) fetch(ctx context.Context, id lookup.PackageID) ([]byte, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("id", id)
	params.Set("hl", "en")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.StoreURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build store request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(EngineName, 0, time.Since(start))
		return nil, lookup.NewUpstreamError(0, nil, err)
	}
	defer resp.Body.Close()

	body, readErr := httpclient.ReadBody(resp)
	metrics.ObserveUpstream(EngineName, resp.StatusCode, time.Since(start))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, lookup.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn("store request failed",
			zap.String("package_id", id),
			zap.Int("status", resp.StatusCode),
		)
		return nil, lookup.NewUpstreamError(resp.StatusCode, body, nil)
	case readErr != nil:
		return nil, lookup.NewUpstreamError(resp.StatusCode, nil, readErr)
	}
	return body, nil
}

// ParseMetaTags collects <meta> tags keyed by their property or name
// attribute. The first occurrence of a key wins.
func ParseMetaTags(body []byte) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	tags := make(map[string]string)
	doc.Find("head meta").Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr("property")
		if !ok || strings.TrimSpace(key) == "" {
			key, ok = s.Attr("name")
		}
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return
		}
		if _, seen := tags[key]; seen {
			return
		}
		content, _ := s.Attr("content")
		tags[key] = strings.TrimSpace(content)
	})
	return tags, nil
}
