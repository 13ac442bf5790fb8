package geocode

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geo-enrich/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

type googleProvider struct {
	httpAPI
	apiKey string
}

func newGoogle(creds Credentials, o options) *googleProvider {
	return &googleProvider{httpAPI: httpAPI{name: "google", opts: o}, apiKey: creds.APIKey}
}

func (g *googleProvider) Name() string { return g.name }

type googleResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Results      []googleResult `json:"results"`
}

type googleResult struct {
	AddressComponents []googleComponent `json:"address_components"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type googleComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

func (g *googleProvider) Forward(ctx context.Context, query string) ForwardResult {
	params := url.Values{}
	params.Set("address", query)
	params.Set("key", g.apiKey)

	var resp googleResponse
	if f, err := g.fetch(ctx, googleGeocodeURL+"?"+params.Encode(), &resp); f != FailureNone {
		g.logFailure("forward", f, err)
		return ForwardFailed(g.name, f, err)
	}
	loc := resp.Results[0].Geometry.Location
	return ForwardOK(g.name, loc.Lat, loc.Lng)
}

func (g *googleProvider) Reverse(ctx context.Context, lat, lon float64) ReverseResult {
	params := url.Values{}
	params.Set("latlng", latLng(lat, lon))
	params.Set("key", g.apiKey)

	var resp googleResponse
	if f, err := g.fetch(ctx, googleGeocodeURL+"?"+params.Encode(), &resp); f != FailureNone {
		g.logFailure("reverse", f, err)
		return ReverseFailed(g.name, f, err)
	}

	comps := resp.Results[0].AddressComponents
	return reverseFrom(g.name, ReverseResult{
		City:       firstComponent(comps, "locality", "sublocality"),
		State:      firstComponent(comps, "administrative_area_level_1"),
		PostalCode: firstComponent(comps, "postal_code"),
		Country:    firstComponent(comps, "country"),
	})
}

// fetch wraps getJSON with Google's in-body status codes.
func (g *googleProvider) fetch(ctx context.Context, reqURL string, resp *googleResponse) (Failure, error) {
	if f, err := g.getJSON(ctx, reqURL, resp); f != FailureNone {
		return f, err
	}
	switch resp.Status {
	case "OK":
		if len(resp.Results) == 0 {
			return FailureNoResults, nil
		}
		return FailureNone, nil
	case "ZERO_RESULTS":
		return FailureNoResults, nil
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return FailureTransport, resilience.NewTransientError(
			eris.Errorf("geocode: google status %s: %s", resp.Status, resp.ErrorMessage), 0)
	default:
		return FailureTransport, eris.Errorf("geocode: google status %s: %s", resp.Status, resp.ErrorMessage)
	}
}

// firstComponent returns the long name of the first component carrying any of
// types, trying types in priority order.
func firstComponent(comps []googleComponent, types ...string) string {
	for _, t := range types {
		for _, c := range comps {
			for _, ct := range c.Types {
				if ct == t && c.LongName != "" {
					return c.LongName
				}
			}
		}
	}
	return ""
}
