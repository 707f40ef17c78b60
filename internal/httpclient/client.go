// Package httpclient builds the shared outbound HTTP client and decodes
// compressed upstream responses.
package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// AcceptEncoding is advertised on every upstream request. Setting it by hand
// disables net/http's transparent gzip handling, so Decode must be used.
const AcceptEncoding = "gzip, deflate, br"

// MaxBodyBytes bounds how much of an upstream response is read.
const MaxBodyBytes = 4 << 20

// New returns an http.Client with a pooled transport sized for concurrent
// upstream lookups. Per-call deadlines come from the request context.
func New() *http.Client {
	return &http.Client{Transport: NewTransport()}
}

// NewTransport returns the tuned transport used by New.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
	}
}

// Decode wraps body according to the Content-Encoding header.
func Decode(encoding string, body io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("open gzip body: %w", err)
		}
		return zr, nil
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("open deflate body: %w", err)
		}
		return zr, nil
	case "br":
		return brotli.NewReader(body), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// ReadBody reads and decodes at most MaxBodyBytes of resp.Body. The caller
// still owns closing the body.
func ReadBody(resp *http.Response) ([]byte, error) {
	r, err := Decode(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, MaxBodyBytes)); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return buf.Bytes(), nil
}
