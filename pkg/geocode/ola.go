package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

const olaPlacesURL = "https://api.olamaps.io/places/v1"

type olaProvider struct {
	httpAPI
	apiKey string
}

func newOla(creds Credentials, o options) *olaProvider {
	return &olaProvider{httpAPI: httpAPI{name: "ola", opts: o}, apiKey: creds.APIKey}
}

func (p *olaProvider) Name() string { return p.name }

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return eris.Wrap(err, "geocode: ola coordinate")
	}
	*f = flexFloat(v)
	return nil
}

type olaResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat flexFloat `json:"lat"`
				Lng flexFloat `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents json.RawMessage `json:"address_components"`
	} `json:"results"`
}

func (p *olaProvider) Forward(ctx context.Context, query string) ForwardResult {
	params := url.Values{}
	params.Set("address", query)
	params.Set("api_key", p.apiKey)

	var resp olaResponse
	if f, err := p.getJSON(ctx, olaPlacesURL+"/geocode?"+params.Encode(), &resp); f != FailureNone {
		p.logFailure("forward", f, err)
		return ForwardFailed(p.name, f, err)
	}
	if len(resp.Results) == 0 {
		return ForwardFailed(p.name, FailureNoResults, nil)
	}
	loc := resp.Results[0].Geometry.Location
	return ForwardOK(p.name, float64(loc.Lat), float64(loc.Lng))
}

func (p *olaProvider) Reverse(ctx context.Context, lat, lon float64) ReverseResult {
	params := url.Values{}
	params.Set("latlng", latLng(lat, lon))
	params.Set("api_key", p.apiKey)

	var resp olaResponse
	if f, err := p.getJSON(ctx, olaPlacesURL+"/reverse-geocode?"+params.Encode(), &resp); f != FailureNone {
		p.logFailure("reverse", f, err)
		return ReverseFailed(p.name, f, err)
	}
	if len(resp.Results) == 0 {
		return ReverseFailed(p.name, FailureNoResults, nil)
	}

	out, err := parseOlaComponents(resp.Results[0].AddressComponents)
	if err != nil {
		p.logFailure("reverse", FailureParse, err)
		return ReverseFailed(p.name, FailureParse, err)
	}
	return reverseFrom(p.name, out)
}

// parseOlaComponents handles both shapes Ola has served: a flat object keyed
// by field name and a Google-style list of typed components.
func parseOlaComponents(raw json.RawMessage) (ReverseResult, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ReverseResult{}, nil
	}

	if raw[0] == '{' {
		var flat struct {
			City       string `json:"city"`
			State      string `json:"state"`
			PostalCode string `json:"postal_code"`
			Country    string `json:"country"`
		}
		if err := json.Unmarshal(raw, &flat); err != nil {
			return ReverseResult{}, eris.Wrap(err, "geocode: ola address components")
		}
		return ReverseResult{City: flat.City, State: flat.State, PostalCode: flat.PostalCode, Country: flat.Country}, nil
	}

	var comps []googleComponent
	if err := json.Unmarshal(raw, &comps); err != nil {
		return ReverseResult{}, eris.Wrap(err, "geocode: ola address components")
	}
	return ReverseResult{
		City:       firstComponent(comps, "locality", "sublocality"),
		State:      firstComponent(comps, "administrative_area_level_1"),
		PostalCode: firstComponent(comps, "postal_code"),
		Country:    firstComponent(comps, "country"),
	}, nil
}
