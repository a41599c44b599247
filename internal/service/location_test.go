package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkfinder/internal/apperr"
	"parkfinder/internal/model"
)

// addressFunc adapts a function to AddressResolver
type addressFunc func(ctx context.Context, address string) (model.Point, error)

func (f addressFunc) Resolve(ctx context.Context, address string) (model.Point, error) {
	return f(ctx, address)
}

func TestLocationResolver_ResolveOrigin(t *testing.T) {
	device := model.Point{Lat: 1.29, Lng: 103.85}
	geocoded := model.Point{Lat: 1.35, Lng: 103.94}

	var geocodeCalls []string
	geocoder := addressFunc(func(ctx context.Context, address string) (model.Point, error) {
		geocodeCalls = append(geocodeCalls, address)
		return geocoded, nil
	})

	tests := []struct {
		name        string
		typed       string
		device      DeviceLocator
		want        model.Point
		wantKind    apperr.Kind
		wantErr     bool
		wantGeocode bool
	}{
		{name: "Empty uses device", typed: "", device: FixedLocation{Point: device}, want: device},
		{name: "Whitespace uses device", typed: "   ", device: FixedLocation{Point: device}, want: device},
		{name: "Typed address geocodes", typed: "Tampines", device: FixedLocation{Point: device}, want: geocoded, wantGeocode: true},
		{name: "Device denied", typed: "", device: FixedLocation{Err: ErrGeolocationDenied}, wantErr: true, wantKind: apperr.KindGeolocationDenied},
		{name: "Device unavailable", typed: "", device: FixedLocation{Err: ErrGeolocationUnavailable}, wantErr: true, wantKind: apperr.KindGeolocationUnavailable},
		{name: "No device at all", typed: "", device: nil, wantErr: true, wantKind: apperr.KindGeolocationUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geocodeCalls = nil
			r := NewLocationResolver(tt.device, geocoder)

			got, err := r.ResolveOrigin(context.Background(), tt.typed)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.GetKind(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.wantGeocode, len(geocodeCalls) == 1)
		})
	}
}

func TestLocationResolver_PropagatesGeocoderError(t *testing.T) {
	notFound := apperr.New(apperr.KindAddressNotFound, "Address not found")
	r := NewLocationResolver(nil, addressFunc(func(ctx context.Context, address string) (model.Point, error) {
		return model.Point{}, notFound
	}))

	_, err := r.ResolveOrigin(context.Background(), "Somewhere")
	assert.True(t, errors.Is(err, notFound))
}

func TestReportedLocation(t *testing.T) {
	loc := NewReportedLocation()

	_, err := loc.CurrentPosition(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindGeolocationUnavailable), "nothing reported yet")

	loc.Apply(model.DeviceReport{Position: &model.Point{Lat: 1.3, Lng: 103.8}})
	p, err := loc.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Point{Lat: 1.3, Lng: 103.8}, p)

	loc.Apply(model.DeviceReport{Error: "denied"})
	_, err = loc.CurrentPosition(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindGeolocationDenied))

	loc.Apply(model.DeviceReport{Position: &model.Point{Lat: 200, Lng: 0}})
	_, err = loc.CurrentPosition(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindGeolocationUnavailable), "invalid position is treated as unavailable")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loc.Report(model.Point{Lat: 1, Lng: 1})
	_, err = loc.CurrentPosition(ctx)
	assert.Error(t, err)
}
