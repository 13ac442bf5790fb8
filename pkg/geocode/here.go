package geocode

import (
	"context"
	"net/url"
)

const (
	hereGeocodeURL    = "https://geocode.search.hereapi.com/v1/geocode"
	hereRevGeocodeURL = "https://revgeocode.search.hereapi.com/v1/revgeocode"
)

type hereProvider struct {
	httpAPI
	apiKey string
}

func newHERE(creds Credentials, o options) *hereProvider {
	return &hereProvider{httpAPI: httpAPI{name: "here", opts: o}, apiKey: creds.APIKey}
}

func (h *hereProvider) Name() string { return h.name }

type hereResponse struct {
	Items []struct {
		Position struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"position"`
		Address struct {
			City        string `json:"city"`
			State       string `json:"state"`
			PostalCode  string `json:"postalCode"`
			CountryName string `json:"countryName"`
		} `json:"address"`
	} `json:"items"`
}

func (h *hereProvider) Forward(ctx context.Context, query string) ForwardResult {
	params := url.Values{}
	params.Set("q", query)
	params.Set("apiKey", h.apiKey)

	var resp hereResponse
	if f, err := h.getJSON(ctx, hereGeocodeURL+"?"+params.Encode(), &resp); f != FailureNone {
		h.logFailure("forward", f, err)
		return ForwardFailed(h.name, f, err)
	}
	if len(resp.Items) == 0 {
		return ForwardFailed(h.name, FailureNoResults, nil)
	}
	pos := resp.Items[0].Position
	return ForwardOK(h.name, pos.Lat, pos.Lng)
}

func (h *hereProvider) Reverse(ctx context.Context, lat, lon float64) ReverseResult {
	params := url.Values{}
	params.Set("at", latLng(lat, lon))
	params.Set("apiKey", h.apiKey)

	var resp hereResponse
	if f, err := h.getJSON(ctx, hereRevGeocodeURL+"?"+params.Encode(), &resp); f != FailureNone {
		h.logFailure("reverse", f, err)
		return ReverseFailed(h.name, f, err)
	}
	if len(resp.Items) == 0 {
		return ReverseFailed(h.name, FailureNoResults, nil)
	}
	addr := resp.Items[0].Address
	return reverseFrom(h.name, ReverseResult{
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.CountryName,
	})
}
