package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"parkfinder/internal/apperr"
	"parkfinder/internal/model"
)

// ErrMsgGeocodeFetch is shown when the geocoding service cannot be reached
const ErrMsgGeocodeFetch = "Failed to look up the address. Please try again."

// AddressResolver turns a free-text address into coordinates
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (model.Point, error)
}

// geocodeCandidate mirrors the relevant parts of a Nominatim search result
type geocodeCandidate struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocoder resolves addresses through a Nominatim-compatible search endpoint
type Geocoder struct {
	endpoint string
	client   jsonClient
	limiter  *rate.Limiter
	log      *zap.Logger
}

// NewGeocoder creates a geocoder. ratePerSec <= 0 disables throttling.
func NewGeocoder(endpoint string, httpClient *http.Client, timeout time.Duration, userAgent string, ratePerSec float64, log *zap.Logger) *Geocoder {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Geocoder{
		endpoint: endpoint,
		client:   newJSONClient(httpClient, timeout, userAgent),
		limiter:  rate.NewLimiter(limit, 1),
		log:      log,
	}
}

// Resolve returns the first candidate's coordinates for address
func (g *Geocoder) Resolve(ctx context.Context, address string) (model.Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.Point{}, apperr.New(apperr.KindAddressNotFound, "Please enter an address.").WithOp("geocoder.Resolve")
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return model.Point{}, classify(ctx, err, apperr.KindGeocodeFetch, ErrMsgGeocodeFetch).WithOp("geocoder.Resolve")
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")
	reqURL := fmt.Sprintf("%s?%s", g.endpoint, params.Encode())

	var candidates []geocodeCandidate
	if _, err := g.client.get(ctx, reqURL, &candidates); err != nil {
		g.log.Warn("geocode request failed", zap.String("address", address), zap.Error(err))
		return model.Point{}, classify(ctx, err, apperr.KindGeocodeFetch, ErrMsgGeocodeFetch).WithOp("geocoder.Resolve")
	}

	if len(candidates) == 0 {
		return model.Point{}, apperr.New(apperr.KindAddressNotFound, addressNotFoundMessage(address)).WithOp("geocoder.Resolve")
	}

	first := candidates[0]
	lat, err := strconv.ParseFloat(strings.TrimSpace(first.Lat), 64)
	if err != nil {
		return model.Point{}, apperr.Wrap(apperr.KindGeocodeFetch, ErrMsgGeocodeFetch, fmt.Errorf("invalid latitude %q: %w", first.Lat, err)).WithOp("geocoder.Resolve")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(first.Lon), 64)
	if err != nil {
		return model.Point{}, apperr.Wrap(apperr.KindGeocodeFetch, ErrMsgGeocodeFetch, fmt.Errorf("invalid longitude %q: %w", first.Lon, err)).WithOp("geocoder.Resolve")
	}

	p := model.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return model.Point{}, apperr.Wrap(apperr.KindGeocodeFetch, ErrMsgGeocodeFetch, fmt.Errorf("coordinates out of range: %s", p)).WithOp("geocoder.Resolve")
	}

	g.log.Debug("address geocoded", zap.String("address", address), zap.String("match", first.DisplayName), zap.Stringer("point", p))
	return p, nil
}

func addressNotFoundMessage(address string) string {
	return fmt.Sprintf("Address not found: %q. Please check the address and try again.", address)
}
