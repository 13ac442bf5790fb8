package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geo-enrich/internal/resilience"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 10 * time.Second

// Credentials are the secrets a provider authenticates with.
type Credentials struct {
	APIKey string
}

// Option configures a provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	userAgent  string
	country    string
	baseURL    string
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRateLimit caps requests per second made by the provider. Zero or less
// removes the limit.
func WithRateLimit(rps float64) Option {
	return func(o *options) {
		o.limiter = newRateLimiter(rps)
	}
}

// WithLimiter makes the provider wait on l, so several provider values can
// share one request budget. A nil limiter is ignored.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) {
		if l != nil {
			o.limiter = l
		}
	}
}

// NewLimiter returns the limiter New would build for the named provider at
// rps. Nominatim keeps its public usage rate when rps is unset.
func NewLimiter(name string, rps float64) *rate.Limiter {
	if rps <= 0 && normalizeName(name) == Nominatim {
		return rate.NewLimiter(nominatimDefaultRate, 1)
	}
	return newRateLimiter(rps)
}

func newRateLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithCountry sets the country appended to free-text queries by providers
// that need the hint (Mapbox, OpenCage). An empty country disables the hint.
func WithCountry(country string) Option {
	return func(o *options) {
		o.country = country
	}
}

// WithBaseURL overrides the endpoint root. Only Nominatim honors it.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

func newOptions(opts []Option) options {
	o := options{
		timeout:   DefaultTimeout,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		userAgent: "geo-enrich/1.0",
		country:   "India",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	return o
}

// httpAPI is the shared request plumbing for the JSON providers.
type httpAPI struct {
	name string
	opts options
}

// getJSON issues a GET and decodes the JSON body into out. The returned
// Failure is FailureNone on success.
func (h *httpAPI) getJSON(ctx context.Context, reqURL string, out any) (Failure, error) {
	ctx, cancel := context.WithTimeout(ctx, h.opts.timeout)
	defer cancel()

	if err := h.opts.limiter.Wait(ctx); err != nil {
		return FailureTransport, eris.Wrapf(err, "geocode: %s rate limit", h.name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return FailureTransport, eris.Wrapf(err, "geocode: %s build request", h.name)
	}
	req.Header.Set("Accept", "application/json")
	if h.opts.userAgent != "" {
		req.Header.Set("User-Agent", h.opts.userAgent)
	}

	resp, err := h.opts.httpClient.Do(req)
	if err != nil {
		return FailureTransport, eris.Wrapf(err, "geocode: %s request", h.name)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("geocode: %s returned status %d", h.name, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return FailureTransport, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return FailureTransport, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FailureTransport, eris.Wrapf(err, "geocode: %s read body", h.name)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return FailureParse, eris.Wrapf(err, "geocode: %s parse response", h.name)
	}
	return FailureNone, nil
}

func (h *httpAPI) logFailure(op string, f Failure, err error) {
	zap.L().Debug("geocode: provider call failed",
		zap.String("provider", h.name),
		zap.String("operation", op),
		zap.String("failure", string(f)),
		zap.Error(err),
	)
}
