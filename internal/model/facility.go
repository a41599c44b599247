package model

import "fmt"

// Point is a geographic position. All internal state uses (lat, lng) order;
// services that speak (lon, lat) convert at their boundary.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within latitude/longitude ranges
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Facility is an immutable catalog entry for a carpark.
// Coordinates are optional; some catalog rows have none.
type Facility struct {
	ID      string   `json:"id" yaml:"id" db:"id"`
	Address string   `json:"address" yaml:"address" db:"address"`
	Lat     *float64 `json:"lat,omitempty" yaml:"lat,omitempty" db:"lat"`
	Lng     *float64 `json:"lng,omitempty" yaml:"lng,omitempty" db:"lng"`
}

// Point returns the facility location and whether it is known
func (f Facility) Point() (Point, bool) {
	if f.Lat == nil || f.Lng == nil {
		return Point{}, false
	}
	return Point{Lat: *f.Lat, Lng: *f.Lng}, true
}

// RouteResult is the outcome of one completed route computation.
// It replaces any previous result wholesale.
type RouteResult struct {
	Origin Point   `json:"origin"`
	Path   []Point `json:"path"`
}
