package geocode

import (
	"context"
	"net/url"
)

const openCageURL = "https://api.opencagedata.com/geocode/v1/json"

type openCageProvider struct {
	httpAPI
	apiKey string
}

func newOpenCage(creds Credentials, o options) *openCageProvider {
	return &openCageProvider{httpAPI: httpAPI{name: "opencage", opts: o}, apiKey: creds.APIKey}
}

func (p *openCageProvider) Name() string { return p.name }

type openCageResponse struct {
	Results []struct {
		Geometry struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
		Components struct {
			City     string `json:"city"`
			Town     string `json:"town"`
			Village  string `json:"village"`
			State    string `json:"state"`
			Postcode string `json:"postcode"`
			Country  string `json:"country"`
		} `json:"components"`
	} `json:"results"`
}

func (p *openCageProvider) Forward(ctx context.Context, query string) ForwardResult {
	q := query
	if p.opts.country != "" {
		q = query + ", " + p.opts.country
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("key", p.apiKey)

	var resp openCageResponse
	if f, err := p.getJSON(ctx, openCageURL+"?"+params.Encode(), &resp); f != FailureNone {
		p.logFailure("forward", f, err)
		return ForwardFailed(p.name, f, err)
	}
	if len(resp.Results) == 0 {
		return ForwardFailed(p.name, FailureNoResults, nil)
	}
	g := resp.Results[0].Geometry
	return ForwardOK(p.name, g.Lat, g.Lng)
}

func (p *openCageProvider) Reverse(ctx context.Context, lat, lon float64) ReverseResult {
	params := url.Values{}
	params.Set("q", latLng(lat, lon))
	params.Set("key", p.apiKey)

	var resp openCageResponse
	if f, err := p.getJSON(ctx, openCageURL+"?"+params.Encode(), &resp); f != FailureNone {
		p.logFailure("reverse", f, err)
		return ReverseFailed(p.name, f, err)
	}
	if len(resp.Results) == 0 {
		return ReverseFailed(p.name, FailureNoResults, nil)
	}

	c := resp.Results[0].Components
	city := c.City
	if city == "" {
		city = c.Town
	}
	if city == "" {
		city = c.Village
	}
	return reverseFrom(p.name, ReverseResult{
		City:       city,
		State:      c.State,
		PostalCode: c.Postcode,
		Country:    c.Country,
	})
}
