// Package fetch implements the background fetch pipeline (spec.md §4.3): a
// pool of workers advancing resources Initializing -> Downloading ->
// Downloaded -> Finalizing -> Ready, with priority-ordered back-pressure,
// exponential back-off on transient failures and auth-aware retry.
//
// Grounded on tile_proxy/webtile_downloader.go's fetchTileWithRetry/fetchTile
// (context-scoped http.Client, header spoofing, retry-with-backoff) and
// tile_proxy/proxy.go's pooled *http.Client configuration.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/http2"
)

// Reply mirrors the external Fetcher contract of spec.md §6.
type Reply struct {
	Status      int
	Content     []byte
	ContentType string
	ETag        string
	LastModified string
	Expires     time.Time
}

// Fetcher is the external collaborator the pipeline drives; HTTPFetcher is
// the default production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (Reply, error)
}

// HTTPFetcher is the default Fetcher, using an HTTP/2-aware client the same
// way tile_proxy.TileProxyService configures its pooled transport.
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	// best-effort: HTTP/2 configuration only helps when the server supports
	// it and is never fatal if it fails (e.g. in test transports).
	_ = http2.ConfigureTransport(transport)
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout, Transport: transport}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Reply{}, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", "vtscore-tile-fetcher/1.0")
	req.Header.Set("Accept", "*/*")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("fetch: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("fetch: read body: %w", err)
	}

	body, err = decompress(resp.Header.Get("Content-Encoding"), body)
	if err != nil {
		return Reply{}, fmt.Errorf("fetch: decompress body: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = mimetype.Detect(body).String()
	}

	expires := time.Now().Add(5 * time.Minute)
	if exp := resp.Header.Get("Expires"); exp != "" {
		if t, err := http.ParseTime(exp); err == nil {
			expires = t
		}
	}

	return Reply{
		Status:       resp.StatusCode,
		Content:      body,
		ContentType:  ct,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Expires:      expires,
	}, nil
}
