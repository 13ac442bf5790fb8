package geocode

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// newRewriteClient creates an HTTP client that sends requests matching any of
// the target prefixes to the test server, keeping the rest of the URL.
func newRewriteClient(testServerURL string, targetPrefixes ...string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:           http.DefaultTransport,
			testServer:     testServerURL,
			targetPrefixes: targetPrefixes,
		},
	}
}

type rewriteTransport struct {
	base           http.RoundTripper
	testServer     string
	targetPrefixes []string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	for _, prefix := range t.targetPrefixes {
		if !strings.HasPrefix(origURL, prefix) {
			continue
		}
		parsed, err := req.URL.Parse(t.testServer + origURL[len(prefix):])
		if err != nil {
			return nil, err
		}
		newReq := req.Clone(req.Context())
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}

// jsonServer answers every request with status and body, handing each request
// to inspect first when set.
func jsonServer(t *testing.T, status int, body string, inspect func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestProvider builds the named provider with its endpoints redirected to srv.
func newTestProvider(t *testing.T, name string, srv *httptest.Server, opts ...Option) Provider {
	t.Helper()
	client := newRewriteClient(srv.URL,
		googleGeocodeURL,
		hereGeocodeURL,
		hereRevGeocodeURL,
		"https://api.mapbox.com",
		olaPlacesURL,
		openCageURL,
	)
	opts = append([]Option{WithHTTPClient(client)}, opts...)
	p, err := New(name, Credentials{APIKey: "test-key"}, opts...)
	require.NoError(t, err)
	return p
}
