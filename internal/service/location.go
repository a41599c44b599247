package service

import (
	"context"
	"strings"
	"sync"

	"parkfinder/internal/apperr"
	"parkfinder/internal/model"
)

const (
	ErrMsgGeolocationDenied      = "Unable to get your location. Please allow location access or enter a starting address."
	ErrMsgGeolocationUnavailable = "Your current location is unavailable. Please enter a starting address."
)

// ErrGeolocationDenied and ErrGeolocationUnavailable are the two device failures
var (
	ErrGeolocationDenied      = apperr.New(apperr.KindGeolocationDenied, ErrMsgGeolocationDenied)
	ErrGeolocationUnavailable = apperr.New(apperr.KindGeolocationUnavailable, ErrMsgGeolocationUnavailable)
)

// DeviceLocator is the platform geolocation capability. It returns a single
// position or one of ErrGeolocationDenied / ErrGeolocationUnavailable.
type DeviceLocator interface {
	CurrentPosition(ctx context.Context) (model.Point, error)
}

// OriginResolver resolves the user's route origin
type OriginResolver interface {
	ResolveOrigin(ctx context.Context, typedAddress string) (model.Point, error)
}

// LocationResolver prefers device geolocation when no address is typed
// and falls back to the geocoder otherwise.
type LocationResolver struct {
	device   DeviceLocator
	geocoder AddressResolver
}

// NewLocationResolver creates a resolver
func NewLocationResolver(device DeviceLocator, geocoder AddressResolver) *LocationResolver {
	return &LocationResolver{device: device, geocoder: geocoder}
}

// ResolveOrigin returns the origin for typedAddress. There is no internal
// timeout; the caller's context bounds the device request.
func (r *LocationResolver) ResolveOrigin(ctx context.Context, typedAddress string) (model.Point, error) {
	if strings.TrimSpace(typedAddress) != "" {
		return r.geocoder.Resolve(ctx, typedAddress)
	}
	if r.device == nil {
		return model.Point{}, ErrGeolocationUnavailable
	}
	return r.device.CurrentPosition(ctx)
}

// ReportedLocation is a DeviceLocator fed by the client: a browser reports
// its geolocation outcome and the next route computation reads it.
type ReportedLocation struct {
	mu       sync.RWMutex
	position *model.Point
	err      error
}

// NewReportedLocation returns a locator with nothing reported yet
func NewReportedLocation() *ReportedLocation {
	return &ReportedLocation{}
}

// Report records a successful position
func (l *ReportedLocation) Report(p model.Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = &p
	l.err = nil
}

// Fail records a denial or unavailability
func (l *ReportedLocation) Fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = nil
	l.err = err
}

// Apply records a device report as sent by the client
func (l *ReportedLocation) Apply(report model.DeviceReport) {
	switch {
	case report.Position != nil && report.Position.Valid():
		l.Report(*report.Position)
	case report.Error == "denied":
		l.Fail(ErrGeolocationDenied)
	default:
		l.Fail(ErrGeolocationUnavailable)
	}
}

// CurrentPosition implements DeviceLocator
func (l *ReportedLocation) CurrentPosition(ctx context.Context) (model.Point, error) {
	if err := ctx.Err(); err != nil {
		return model.Point{}, classify(ctx, err, apperr.KindGeolocationUnavailable, ErrMsgGeolocationUnavailable)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.err != nil {
		return model.Point{}, l.err
	}
	if l.position == nil {
		return model.Point{}, ErrGeolocationUnavailable
	}
	return *l.position, nil
}

// FixedLocation is a DeviceLocator that always answers with the same outcome
type FixedLocation struct {
	Point model.Point
	Err   error
}

// CurrentPosition implements DeviceLocator
func (f FixedLocation) CurrentPosition(ctx context.Context) (model.Point, error) {
	if f.Err != nil {
		return model.Point{}, f.Err
	}
	return f.Point, nil
}
