// Package resolution downloads images referenced by URL and reports their
// pixel dimensions.
package resolution

import (
	"context"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geo-enrich/internal/validate"
)

// Status values reported for a URL. Failures carry the error text instead.
const (
	StatusSuccess    = "Success"
	StatusInvalidURL = "Invalid URL"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "Mozilla/5.0"
	defaultWorkers   = 4
	// maxImageBytes bounds how much of a response is read when sniffing dimensions.
	maxImageBytes = 32 << 20
)

// Result is the outcome for one URL.
type Result struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Status string `json:"status"`
}

// OK reports whether dimensions were read.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Config tunes a Checker.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	Workers   int
}

// Checker fetches images concurrently.
type Checker struct {
	client    *http.Client
	userAgent string
	workers   int
}

// New creates a Checker. A nil client gets one with cfg.Timeout.
func New(cfg Config, client *http.Client) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Checker{client: client, userAgent: cfg.UserAgent, workers: cfg.Workers}
}

// Check inspects every URL and returns results in input order. Invalid URLs
// are reported without a request. progress, when set, is called serially.
func (c *Checker) Check(ctx context.Context, urls []string, progress func(done, total int)) []Result {
	results := make([]Result, len(urls))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, raw := range urls {
		g.Go(func() error {
			results[i] = c.CheckOne(gctx, raw)
			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(urls))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// CheckOne fetches a single URL and decodes only the image header.
func (c *Checker) CheckOne(ctx context.Context, raw string) Result {
	u := strings.TrimSpace(raw)
	res := Result{URL: u}
	if !validate.IsValidURL(u) {
		res.Status = StatusInvalidURL
		return res
	}

	w, h, err := c.dimensions(ctx, u)
	if err != nil {
		zap.L().Debug("resolution: check failed", zap.String("url", u), zap.Error(err))
		res.Status = err.Error()
		return res
	}
	res.Width, res.Height, res.Status = w, h, StatusSuccess
	return res
}

func (c *Checker) dimensions(ctx context.Context, u string) (int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, eris.Wrap(err, "resolution: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, 0, eris.Wrap(err, "resolution: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, 0, eris.Errorf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), u)
	}

	cfg, _, err := image.DecodeConfig(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return 0, 0, eris.Wrapf(err, "cannot identify image file %s", u)
	}
	return cfg.Width, cfg.Height, nil
}
