package geocode

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"github.com/rotisserie/eris"
)

const mapboxPlacesURL = "https://api.mapbox.com/geocoding/v5/mapbox.places/"

type mapboxProvider struct {
	httpAPI
	token string
}

func newMapbox(creds Credentials, o options) *mapboxProvider {
	return &mapboxProvider{httpAPI: httpAPI{name: "mapbox", opts: o}, token: creds.APIKey}
}

func (m *mapboxProvider) Name() string { return m.name }

type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

type mapboxFeature struct {
	PlaceType []string  `json:"place_type"`
	Text      string    `json:"text"`
	Center    []float64 `json:"center"`
	Geometry  struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

func (m *mapboxProvider) Forward(ctx context.Context, query string) ForwardResult {
	search := query
	if m.opts.country != "" {
		search = query + ", " + m.opts.country
	}
	reqURL := mapboxPlacesURL + url.PathEscape(search) + ".json?access_token=" + url.QueryEscape(m.token)

	var resp mapboxResponse
	if f, err := m.getJSON(ctx, reqURL, &resp); f != FailureNone {
		m.logFailure("forward", f, err)
		return ForwardFailed(m.name, f, err)
	}
	if len(resp.Features) == 0 {
		return ForwardFailed(m.name, FailureNoResults, nil)
	}
	// Mapbox orders coordinates lon,lat.
	coords := resp.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		coords = resp.Features[0].Center
	}
	if len(coords) < 2 {
		return ForwardFailed(m.name, FailureParse, eris.New("geocode: mapbox feature without coordinates"))
	}
	return ForwardOK(m.name, coords[1], coords[0])
}

func (m *mapboxProvider) Reverse(ctx context.Context, lat, lon float64) ReverseResult {
	reqURL := fmt.Sprintf("%s%f,%f.json?access_token=%s", mapboxPlacesURL, lon, lat, url.QueryEscape(m.token))

	var resp mapboxResponse
	if f, err := m.getJSON(ctx, reqURL, &resp); f != FailureNone {
		m.logFailure("reverse", f, err)
		return ReverseFailed(m.name, f, err)
	}

	var out ReverseResult
	for _, feat := range resp.Features {
		switch {
		case out.City == "" && slices.Contains(feat.PlaceType, "place"):
			out.City = feat.Text
		case out.State == "" && slices.Contains(feat.PlaceType, "region"):
			out.State = feat.Text
		case out.PostalCode == "" && slices.Contains(feat.PlaceType, "postcode"):
			out.PostalCode = feat.Text
		case out.Country == "" && slices.Contains(feat.PlaceType, "country"):
			out.Country = feat.Text
		}
	}
	return reverseFrom(m.name, out)
}
