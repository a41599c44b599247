package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(KindAddressNotFound, `Address "Somewhere" not found.`)
	wrapped := fmt.Errorf("resolve origin: %w", base)

	assert.True(t, Is(wrapped, KindAddressNotFound))
	assert.Equal(t, KindAddressNotFound, GetKind(wrapped))
	assert.Equal(t, `Address "Somewhere" not found.`, UserMessage(wrapped, "fallback"))
}

func TestUserMessage_Fallback(t *testing.T) {
	assert.Equal(t, "fallback", UserMessage(errors.New("plain"), "fallback"))
	assert.Equal(t, "fallback", UserMessage(New(KindRouteFetch, ""), "fallback"))
}

func TestError_String(t *testing.T) {
	err := Wrap(KindGeocodeFetch, "geocoding failed", errors.New("dial tcp: refused")).WithOp("geocoder.Resolve")
	assert.Equal(t, "geocoder.Resolve: geocoding failed: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, err.Err)
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindAddressNotFound, "address_not_found"},
		{KindGeolocationDenied, "geolocation_denied"},
		{KindTimeout, "timeout"},
		{Kind(99), "kind(99)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}
