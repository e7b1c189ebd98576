// Package fetch performs bounded, SSRF-guarded retrieval of monitored pages.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/priceping/priceping/internal/monitoring/checkerr"
	"github.com/priceping/priceping/internal/monitoring/extract"
	"github.com/priceping/priceping/internal/monitoring/ssrf"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultMaxBody = 2 << 20 // 2 MiB
)

// Config tunes the fetcher. The zero value is safe: default timeout, default
// body cap, certificate verification on.
type Config struct {
	Timeout            time.Duration
	UserAgent          string
	MaxBodyBytes       int64
	FollowRedirects    bool
	InsecureSkipVerify bool
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBody
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; PricePingBot/1.0; +https://priceping.app)"
	}
	return c
}

type Fetcher struct {
	client *http.Client
	cfg    Config
}

func New(cfg Config) *Fetcher {
	cfg = cfg.withDefaults()
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		},
	}
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(transport),
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return &Fetcher{client: client, cfg: cfg}
}

// HTML retrieves url and returns the response body as a string. The URL
// guard is re-checked here as defense-in-depth even though callers consult
// it first. The body is capped at MaxBodyBytes whether or not the server
// declares a length.
func (f *Fetcher) HTML(ctx context.Context, url string) (string, error) {
	if _, err := ssrf.Validate(url); err != nil {
		return "", err
	}
	return f.do(ctx, url)
}

func (f *Fetcher) do(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", checkerr.Wrap(checkerr.KindInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", checkerr.Wrap(checkerr.KindFetchTimeout, err)
		}
		return "", checkerr.Wrap(checkerr.KindParseError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		// The target is actively refusing the bot, which the UI treats
		// differently from a transient failure.
		return "", checkerr.New(checkerr.KindBlockedBySite, fmt.Sprintf("HTTP %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", checkerr.New(checkerr.KindParseError, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" &&
		!strings.Contains(ct, "text/html") && !strings.Contains(ct, "application/xhtml+xml") {
		return "", checkerr.New(checkerr.KindParseError, "response is not HTML")
	}
	if resp.ContentLength > f.cfg.MaxBodyBytes {
		return "", checkerr.New(checkerr.KindSizeExceeded, "declared content length over limit")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", checkerr.Wrap(checkerr.KindFetchTimeout, err)
		}
		return "", checkerr.Wrap(checkerr.KindParseError, err)
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		return "", checkerr.New(checkerr.KindSizeExceeded, "body over limit")
	}
	return string(body), nil
}

// AndExtract fetches url and extracts the first selector match's text.
// One shot, no retries; retry policy belongs to the scheduler.
func (f *Fetcher) AndExtract(ctx context.Context, url, selector string) (string, error) {
	html, err := f.HTML(ctx, url)
	if err != nil {
		return "", err
	}
	return extract.Text(html, selector)
}
