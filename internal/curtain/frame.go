package curtain

import (
	"math"
	"strings"

	"geocurtain/internal/geom"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/pkg/errors"
)

const (
	// MetersPerDegree is the length of one degree of latitude, and of
	// longitude at the equator, in the flat-earth approximation.
	MetersPerDegree = 111320.0
	// EarthRadius is the mean earth radius used for ECEF placement.
	EarthRadius = 6371008.8
)

// AnchorPolicy selects the origin of a local frame.
type AnchorPolicy int

const (
	AnchorCentroid AnchorPolicy = iota
	AnchorFirstVertex
)

func (p AnchorPolicy) String() string {
	if p == AnchorFirstVertex {
		return "first"
	}
	return "centroid"
}

func ParseAnchorPolicy(s string) (AnchorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "centroid":
		return AnchorCentroid, nil
	case "first", "first_vertex":
		return AnchorFirstVertex, nil
	}
	return AnchorCentroid, errors.Errorf("unknown anchor policy %q", s)
}

// LocalFrame is an equirectangular tangent plane around Anchor: x points
// east and y north, both in meters. It is accurate for paths spanning a
// few kilometres away from the poles.
type LocalFrame struct {
	Anchor                     geom.GeoPoint `json:"anchor"`
	MetersPerDegreeLat         float64       `json:"meters_per_degree_lat"`
	MetersPerDegreeLngAtAnchor float64       `json:"meters_per_degree_lng"`
}

// FrameAt builds the frame anchored at p.
func FrameAt(p geom.GeoPoint) LocalFrame {
	lat := s2.LatLngFromDegrees(p.Lat, p.Lng).Lat
	return LocalFrame{
		Anchor:                     p,
		MetersPerDegreeLat:         MetersPerDegree,
		MetersPerDegreeLngAtAnchor: MetersPerDegree * cos(lat),
	}
}

// NewLocalFrame anchors a frame on path according to policy. An empty path
// yields a frame at the origin.
func NewLocalFrame(path geom.BoundaryPath, policy AnchorPolicy) LocalFrame {
	if len(path) == 0 {
		return FrameAt(geom.GeoPoint{})
	}
	if policy == AnchorFirstVertex {
		return FrameAt(path[0])
	}
	return FrameAt(Centroid(path))
}

// Centroid is the arithmetic mean of the vertices.
func Centroid(path geom.BoundaryPath) geom.GeoPoint {
	if len(path) == 0 {
		return geom.GeoPoint{}
	}
	var c geom.GeoPoint
	for _, p := range path {
		c.Lng += p.Lng
		c.Lat += p.Lat
	}
	n := float64(len(path))
	return geom.GeoPoint{Lng: c.Lng / n, Lat: c.Lat / n}
}

// Project maps p to local meters.
func (f LocalFrame) Project(p geom.GeoPoint) (x, y float64) {
	return (p.Lng - f.Anchor.Lng) * f.MetersPerDegreeLngAtAnchor,
		(p.Lat - f.Anchor.Lat) * f.MetersPerDegreeLat
}

// Unproject is the inverse of Project.
func (f LocalFrame) Unproject(x, y float64) geom.GeoPoint {
	p := geom.GeoPoint{Lat: f.Anchor.Lat + y/f.MetersPerDegreeLat, Lng: f.Anchor.Lng}
	if f.MetersPerDegreeLngAtAnchor != 0 {
		p.Lng += x / f.MetersPerDegreeLngAtAnchor
	}
	return p
}

func (f LocalFrame) ProjectPath(path geom.BoundaryPath) [][2]float64 {
	out := make([][2]float64, len(path))
	for i, p := range path {
		out[i][0], out[i][1] = f.Project(p)
	}
	return out
}

// Project is the free-function form used by one-off callers.
func Project(anchor, p geom.GeoPoint) (x, y float64) {
	return FrameAt(anchor).Project(p)
}

// Placement positions a local frame on the globe.
type Placement struct {
	Anchor geom.GeoPoint `json:"anchor"`
	Height float64       `json:"height"`
	// ECEF is the anchor at Height on a spherical earth, in meters.
	ECEF [3]float64 `json:"ecef"`
}

// Place computes the placement of anchor raised to height.
func Place(anchor geom.GeoPoint, height float64) Placement {
	v := s2.PointFromLatLng(s2.LatLngFromDegrees(anchor.Lat, anchor.Lng)).Mul(EarthRadius + height)
	return Placement{Anchor: anchor, Height: height, ECEF: [3]float64{v.X, v.Y, v.Z}}
}

func cos(a s1.Angle) float64 { return math.Cos(a.Radians()) }
