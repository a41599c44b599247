package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"parkfinder/internal/apperr"
	"parkfinder/internal/model"
)

// ErrMsgAvailabilityFetch is shown when the live snapshot cannot be fetched
const ErrMsgAvailabilityFetch = "Failed to fetch carpark availability. Please try again."

// carLotType is the lot type for ordinary cars in the availability feed
const carLotType = "C"

// AvailabilityFetcher fetches one live snapshot of every facility's open slots
type AvailabilityFetcher interface {
	FetchAll(ctx context.Context) (*model.Snapshot, error)
}

// availabilityResponse mirrors the data.gov.sg carpark-availability payload
type availabilityResponse struct {
	Items []struct {
		Timestamp   string            `json:"timestamp"`
		CarparkData []availabilityRow `json:"carpark_data"`
	} `json:"items"`
}

type availabilityRow struct {
	CarparkNumber  string             `json:"carpark_number"`
	UpdateDatetime string             `json:"update_datetime"`
	CarparkInfo    []availabilityInfo `json:"carpark_info"`
}

type availabilityInfo struct {
	LotType       string          `json:"lot_type"`
	LotsAvailable json.RawMessage `json:"lots_available"`
}

// AvailabilityClient talks to the availability service
type AvailabilityClient struct {
	endpoint string
	client   jsonClient
	log      *zap.Logger
}

// NewAvailabilityClient creates a client for endpoint. httpClient may be nil.
func NewAvailabilityClient(endpoint string, httpClient *http.Client, timeout time.Duration, userAgent string, log *zap.Logger) *AvailabilityClient {
	return &AvailabilityClient{
		endpoint: endpoint,
		client:   newJSONClient(httpClient, timeout, userAgent),
		log:      log,
	}
}

// FetchAll performs one call and returns the snapshot. Facilities missing from
// the response, or present with no info blocks, read as model.Unknown.
func (c *AvailabilityClient) FetchAll(ctx context.Context) (*model.Snapshot, error) {
	var resp availabilityResponse
	if _, err := c.client.get(ctx, c.endpoint, &resp); err != nil {
		c.log.Warn("availability fetch failed", zap.String("endpoint", c.endpoint), zap.Error(err))
		return nil, classify(ctx, err, apperr.KindAvailabilityFetch, ErrMsgAvailabilityFetch).WithOp("availability.FetchAll")
	}

	lots := make(map[string]model.Lots)
	for _, item := range resp.Items {
		for _, row := range item.CarparkData {
			if row.CarparkNumber == "" {
				continue
			}
			// The feed repeats some carparks; the first row with a usable
			// count wins and later rows only fill in an unknown one.
			if prev, seen := lots[row.CarparkNumber]; seen && prev.Known() {
				continue
			}
			lots[row.CarparkNumber] = pickLots(row.CarparkInfo)
		}
	}

	c.log.Debug("availability snapshot fetched", zap.Int("facilities", len(lots)))
	return model.NewSnapshot(lots), nil
}

// pickLots prefers the car lot block and falls back to the first one
func pickLots(info []availabilityInfo) model.Lots {
	if len(info) == 0 {
		return model.Unknown
	}
	for _, block := range info {
		if block.LotType == carLotType {
			return parseLots(block.LotsAvailable)
		}
	}
	return parseLots(info[0].LotsAvailable)
}

// parseLots reads a count leniently; one bad row must not fail the snapshot
func parseLots(raw json.RawMessage) model.Lots {
	if len(raw) == 0 {
		return model.Unknown
	}
	var lots model.Lots
	if err := json.Unmarshal(raw, &lots); err != nil {
		return model.Unknown
	}
	return lots
}
