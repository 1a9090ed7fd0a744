// Package crawler fetches public ad library pages over plain HTTP and
// hands the parsed documents to the platform parsers.
package crawler

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/marketingos/adsurv-cli/internal/adlib"
	"github.com/marketingos/adsurv-cli/internal/model"
)

const maxBodyBytes = 2 << 20

// Config tunes the crawler. Base URLs are overridable for tests.
type Config struct {
	MetaBaseURL       string  `yaml:"meta_base_url" mapstructure:"meta_base_url"`
	LinkedInBaseURL   string  `yaml:"linkedin_base_url" mapstructure:"linkedin_base_url"`
	GoogleBaseURL     string  `yaml:"google_base_url" mapstructure:"google_base_url"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.MetaBaseURL == "" {
		out.MetaBaseURL = "https://www.facebook.com/ads/library/"
	}
	if out.LinkedInBaseURL == "" {
		out.LinkedInBaseURL = "https://www.linkedin.com/ad-library/search"
	}
	if out.GoogleBaseURL == "" {
		out.GoogleBaseURL = "https://adstransparency.google.com/"
	}
	if out.UserAgent == "" {
		out.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	}
	if out.TimeoutSeconds <= 0 {
		out.TimeoutSeconds = 20
	}
	if out.RequestsPerSecond <= 0 {
		out.RequestsPerSecond = 0.5
	}
	return out
}

// Client crawls the three ad libraries. It implements ingest.Crawler.
// One limiter paces all requests; the libraries block quickly when
// hit faster than a human browses.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a Client from config, filling in defaults.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// FetchMeta crawls the Meta Ad Library for one advertiser.
func (c *Client) FetchMeta(ctx context.Context, competitor string, keywords []string) ([]model.AdCandidate, error) {
	q := url.Values{
		"active_status": {"active"},
		"ad_type":       {"all"},
		"country":       {"US"},
		"q":             {competitor},
		"search_type":   {"keyword_unordered"},
	}
	page, err := c.fetchPage(ctx, c.cfg.MetaBaseURL+"?"+q.Encode())
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: meta library for %s", competitor)
	}
	return adlib.ParseMeta(ctx, page, keywords)
}

// FetchLinkedIn crawls the LinkedIn Ad Library for one advertiser.
func (c *Client) FetchLinkedIn(ctx context.Context, competitor string) ([]model.AdCandidate, error) {
	q := url.Values{"companyName": {competitor}}
	page, err := c.fetchPage(ctx, c.cfg.LinkedInBaseURL+"?"+q.Encode())
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: linkedin library for %s", competitor)
	}
	return adlib.ParseLinkedIn(ctx, page)
}

// FetchGoogle crawls the Google Ads Transparency Center for one
// advertiser.
func (c *Client) FetchGoogle(ctx context.Context, competitor string) ([]model.AdCandidate, error) {
	q := url.Values{"region": {"US"}, "query": {competitor}}
	page, err := c.fetchPage(ctx, c.cfg.GoogleBaseURL+"?"+q.Encode())
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: google transparency center for %s", competitor)
	}
	return adlib.ParseGoogle(ctx, page)
}

func (c *Client) fetchPage(ctx context.Context, targetURL string) (adlib.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "crawler: pacing")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "crawler: create request")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "crawler: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "crawler: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		zap.L().Warn("ad library blocked the request",
			zap.String("url", targetURL),
			zap.String("block_type", string(blockType)))
		return nil, eris.Errorf("crawler: blocked (%s)", blockType)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("crawler: status %d", resp.StatusCode)
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "crawler: parse html")
	}
	return &htmlPage{root: root}, nil
}
