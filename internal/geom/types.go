package geom

import (
	geojson "github.com/paulmach/go.geojson"
)

// GeoPoint is a geodetic position in degrees.
type GeoPoint struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Pt builds a GeoPoint from a GeoJSON style [lng, lat] pair.
func Pt(lng, lat float64) GeoPoint { return GeoPoint{Lng: lng, Lat: lat} }

// BoundaryPath is an ordered polyline. Paths are never mutated once built.
type BoundaryPath []GeoPoint

// Coords returns the path as GeoJSON [lng, lat] pairs.
func (p BoundaryPath) Coords() [][]float64 {
	out := make([][]float64, len(p))
	for i, pt := range p {
		out[i] = []float64{pt.Lng, pt.Lat}
	}
	return out
}

type BBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Valid reports whether the box spans a non-zero area.
func (b BBox) Valid() bool { return b.MaxX > b.MinX && b.MaxY > b.MinY }

// bboxBuilder grows a box one point at a time; the first point seeds it.
type bboxBuilder struct {
	box BBox
	n   int
}

func (bb *bboxBuilder) add(lng, lat float64) {
	if bb.n == 0 {
		bb.box = BBox{MinX: lng, MinY: lat, MaxX: lng, MaxY: lat}
	} else {
		if lng < bb.box.MinX {
			bb.box.MinX = lng
		}
		if lat < bb.box.MinY {
			bb.box.MinY = lat
		}
		if lng > bb.box.MaxX {
			bb.box.MaxX = lng
		}
		if lat > bb.box.MaxY {
			bb.box.MaxY = lat
		}
	}
	bb.n++
}

// Boundary is one polyline extracted from a feature, ready for the curtain pipeline.
type Boundary struct {
	ID         string
	Kind       string // source geometry type
	Path       BoundaryPath
	Closed     bool // polygon ring; closing duplicate vertex already dropped
	Properties map[string]any
}

// Feature is a loaded geometry plus its properties.
type Feature struct {
	Geometry   *geojson.Geometry
	Properties map[string]any
}

// Dataset is what every loader returns.
type Dataset struct {
	Features []Feature
	Markers  []GeoPoint // Point / MultiPoint coordinates
	BBox     BBox

	// Diagnostics lists features skipped while loading.
	Diagnostics []Diagnostic
}

// Counts returns (markers, lines, polygons) for status lines.
func (d Dataset) Counts() (markers, lines, polys int) {
	markers = len(d.Markers)
	for _, f := range d.Features {
		if f.Geometry == nil {
			continue
		}
		switch f.Geometry.Type {
		case geojson.GeometryLineString:
			lines++
		case geojson.GeometryMultiLineString:
			lines += len(f.Geometry.MultiLineString)
		case geojson.GeometryPolygon:
			polys++
		case geojson.GeometryMultiPolygon:
			polys += len(f.Geometry.MultiPolygon)
		}
	}
	return markers, lines, polys
}
