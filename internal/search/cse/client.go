// Package cse resolves package metadata through the Google Custom Search JSON API.
package cse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/appmeta/internal/httpclient"
	"github.com/JakeFAU/appmeta/internal/lookup"
	"github.com/JakeFAU/appmeta/internal/metrics"
)

// EngineName labels metrics and logs produced by this backend.
const EngineName = "cse"

// DefaultEndpoint is the public Custom Search JSON API endpoint.
const DefaultEndpoint = "https://customsearch.googleapis.com/customsearch/v1"

// FieldMask restricts the response to the meta-tag keys we read.
const FieldMask = "items/pagemap/metatags(" +
	lookup.TagStoreID + "," +
	lookup.TagTitle + "," +
	lookup.TagImage + "," +
	lookup.TagURL + "," +
	lookup.TagDescription + ")"

// Config controls the Custom Search client.
type Config struct {
	Endpoint string
	APIKey   string
	EngineID string
	// Timeout bounds each upstream call. Zero leaves only the caller's deadline.
	Timeout time.Duration
}

// QueryParams is the fixed query sent for one package.
type QueryParams struct {
	ExactTerms string
	Fields     string
	CX         string
	HL         string
	LR         string
	Filter     int
	Safe       string
	Num        int
}

// NewQueryParams returns the query for id against the engine identified by cx.
func NewQueryParams(id lookup.PackageID, cx string) QueryParams {
	return QueryParams{
		ExactTerms: id,
		Fields:     FieldMask,
		CX:         cx,
		HL:         "en",
		LR:         "lang_en",
		Filter:     1,
		Safe:       "active",
		Num:        1,
	}
}

// Values encodes the query as URL parameters.
func (q QueryParams) Values() url.Values {
	v := url.Values{}
	v.Set("exactTerms", q.ExactTerms)
	v.Set("fields", q.Fields)
	v.Set("cx", q.CX)
	v.Set("hl", q.HL)
	v.Set("lr", q.LR)
	v.Set("filter", strconv.Itoa(q.Filter))
	v.Set("safe", q.Safe)
	v.Set("num", strconv.Itoa(q.Num))
	return v
}

// Client implements lookup.Engine against the Custom Search API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client. A nil httpClient gets the shared pooled client.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = httpclient.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Run performs one search for id and returns its normalized metadata.
func (c *Client) Run(ctx context.Context, id lookup.PackageID) (lookup.Metatags, error) {
	env, err := c.fetch(ctx, id)
	if err != nil {
		return lookup.Metatags{}, err
	}
	md, err := lookup.Extract(id, env)
	if err != nil {
		var malformed *lookup.MalformedResponseError
		if errors.As(err, &malformed) {
			c.logger.Error("malformed search result", zap.String("package_id", id), zap.Error(err))
		}
		return lookup.Metatags{}, err
	}
	return md, nil
}

func (c *Client) fetch(ctx context.Context, id lookup.PackageID) (lookup.SearchEnvelope, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	params := NewQueryParams(id, c.cfg.EngineID).Values()
	params.Set("key", c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return lookup.SearchEnvelope{}, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(EngineName, 0, time.Since(start))
		return lookup.SearchEnvelope{}, lookup.NewUpstreamError(0, nil, redact(err))
	}
	defer resp.Body.Close()

	body, readErr := httpclient.ReadBody(resp)
	metrics.ObserveUpstream(EngineName, resp.StatusCode, time.Since(start))
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("search request failed",
			zap.String("package_id", id),
			zap.Int("status", resp.StatusCode),
		)
		return lookup.SearchEnvelope{}, lookup.NewUpstreamError(resp.StatusCode, body, nil)
	}
	if readErr != nil {
		return lookup.SearchEnvelope{}, lookup.NewUpstreamError(resp.StatusCode, nil, readErr)
	}

	var env lookup.SearchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		malformed := &lookup.MalformedResponseError{ID: id, Reason: "invalid JSON envelope", Err: err}
		c.logger.Error("malformed search response", zap.String("package_id", id), zap.Error(malformed))
		return lookup.SearchEnvelope{}, malformed
	}
	return env, nil
}

// redact strips the query string, which carries the API key, from transport
// errors before they reach logs or callers.
func redact(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
		u.RawQuery = ""
		urlErr.URL = u.String()
	} else {
		urlErr.URL = "<redacted>"
	}
	return urlErr
}
