package geom

import (
	"encoding/json"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// LoadGeo reads a GeoJSON file and returns its features.
func LoadGeo(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, err
	}
	return ParseGeo(data)
}

// ParseGeo accepts a FeatureCollection, a Feature or a bare geometry.
// A feature whose geometry cannot be decoded is skipped and reported in
// Dataset.Diagnostics; only an unreadable document is an error, so a
// collection with nothing usable yields an empty dataset.
func ParseGeo(data []byte) (Dataset, error) {
	var head struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Dataset{}, errors.Wrap(err, "geojson")
	}
	if head.Type == "" && head.Features != nil {
		head.Type = "FeatureCollection"
	}
	if head.Type == "" {
		return Dataset{}, errors.New("invalid geojson: missing type")
	}

	var (
		d  Dataset
		bb bboxBuilder
	)
	add := func(idx int, g *geojson.Geometry, props map[string]any) {
		if g == nil {
			d.Diagnostics = append(d.Diagnostics, Diagnostic{Feature: idx, Err: errors.Wrap(ErrUnsupportedGeometry, "null geometry")})
			return
		}
		switch g.Type {
		case geojson.GeometryPoint:
			if len(g.Point) >= 2 {
				d.Markers = append(d.Markers, Pt(g.Point[0], g.Point[1]))
				bb.add(g.Point[0], g.Point[1])
			}
			return
		case geojson.GeometryMultiPoint:
			for _, c := range g.MultiPoint {
				if len(c) >= 2 {
					d.Markers = append(d.Markers, Pt(c[0], c[1]))
					bb.add(c[0], c[1])
				}
			}
			return
		}
		walkCoords(g, bb.add)
		d.Features = append(d.Features, Feature{Geometry: g, Properties: props})
	}

	switch head.Type {
	case "FeatureCollection":
		for i, raw := range head.Features {
			f, err := geojson.UnmarshalFeature(raw)
			if err != nil {
				d.Diagnostics = append(d.Diagnostics, Diagnostic{Feature: i, Err: errors.Wrap(err, "decode feature")})
				continue
			}
			add(i, f.Geometry, f.Properties)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return Dataset{}, errors.Wrap(err, "decode feature")
		}
		add(0, f.Geometry, f.Properties)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return Dataset{}, errors.Wrap(err, "decode geometry")
		}
		add(0, g, nil)
	}
	d.BBox = bb.box
	return d, nil
}

// walkCoords visits every [lng, lat] position of g, collections included.
func walkCoords(g *geojson.Geometry, visit func(lng, lat float64)) {
	line := func(ls [][]float64) {
		for _, c := range ls {
			if len(c) >= 2 {
				visit(c[0], c[1])
			}
		}
	}
	switch g.Type {
	case geojson.GeometryPoint:
		if len(g.Point) >= 2 {
			visit(g.Point[0], g.Point[1])
		}
	case geojson.GeometryMultiPoint:
		line(g.MultiPoint)
	case geojson.GeometryLineString:
		line(g.LineString)
	case geojson.GeometryMultiLineString:
		for _, ls := range g.MultiLineString {
			line(ls)
		}
	case geojson.GeometryPolygon:
		for _, ring := range g.Polygon {
			line(ring)
		}
	case geojson.GeometryMultiPolygon:
		for _, poly := range g.MultiPolygon {
			for _, ring := range poly {
				line(ring)
			}
		}
	case geojson.GeometryCollection:
		for _, member := range g.Geometries {
			if member != nil {
				walkCoords(member, visit)
			}
		}
	}
}
