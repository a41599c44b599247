package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"parkfinder/internal/apperr"
	"parkfinder/internal/model"
)

// ErrMsgRouteFetch is shown when the routing service cannot be reached
const ErrMsgRouteFetch = "Failed to calculate route. Please try again."

// osrmNoRoute is the OSRM code for "no path between the points"
const osrmNoRoute = "NoRoute"

// RouteFetcher computes a driving path between two points
type RouteFetcher interface {
	FetchRoute(ctx context.Context, origin, destination model.Point) ([]model.Point, error)
}

// routeResponse mirrors the relevant parts of an OSRM route response
type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// RouteClient talks to an OSRM-compatible routing service. The endpoint
// includes the profile, e.g. https://router.project-osrm.org/route/v1/driving.
type RouteClient struct {
	endpoint string
	client   jsonClient
	log      *zap.Logger
}

// NewRouteClient creates a route client. httpClient may be nil.
func NewRouteClient(endpoint string, httpClient *http.Client, timeout time.Duration, userAgent string, log *zap.Logger) *RouteClient {
	return &RouteClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   newJSONClient(httpClient, timeout, userAgent),
		log:      log,
	}
}

// FetchRoute returns the first route's path in (lat, lng) order.
// No route found yields an empty path and no error.
func (c *RouteClient) FetchRoute(ctx context.Context, origin, destination model.Point) ([]model.Point, error) {
	// OSRM takes lon,lat pairs
	reqURL := fmt.Sprintf("%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.endpoint, origin.Lng, origin.Lat, destination.Lng, destination.Lat)

	var resp routeResponse
	raw, err := c.client.get(ctx, reqURL, &resp)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && isNoRoute(raw) {
			c.log.Info("routing service found no route", zap.Stringer("origin", origin), zap.Stringer("destination", destination))
			return []model.Point{}, nil
		}
		c.log.Warn("route request failed", zap.Error(err))
		return nil, classify(ctx, err, apperr.KindRouteFetch, ErrMsgRouteFetch).WithOp("route.FetchRoute")
	}

	if resp.Code == osrmNoRoute || len(resp.Routes) == 0 {
		return []model.Point{}, nil
	}

	coords := resp.Routes[0].Geometry.Coordinates
	path := make([]model.Point, 0, len(coords))
	for i, pair := range coords {
		if len(pair) < 2 {
			return nil, apperr.Wrap(apperr.KindRouteFetch, ErrMsgRouteFetch, fmt.Errorf("coordinate %d has %d values", i, len(pair))).WithOp("route.FetchRoute")
		}
		p := model.Point{Lat: pair[1], Lng: pair[0]}
		if !p.Valid() {
			return nil, apperr.Wrap(apperr.KindRouteFetch, ErrMsgRouteFetch, fmt.Errorf("coordinate %d out of range: %s", i, p)).WithOp("route.FetchRoute")
		}
		path = append(path, p)
	}

	c.log.Debug("route fetched", zap.Int("points", len(path)), zap.Float64("distance_m", resp.Routes[0].Distance))
	return path, nil
}

func isNoRoute(raw []byte) bool {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return false
	}
	return body.Code == osrmNoRoute
}
