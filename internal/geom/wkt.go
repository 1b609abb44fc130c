package geom

import (
	"os"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// LoadWKT reads a file holding a single WKT geometry.
func LoadWKT(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, err
	}
	return ParseWKT(string(data))
}

// ParseWKT parses POINT, MULTIPOINT, LINESTRING, MULTILINESTRING, POLYGON,
// MULTIPOLYGON and GEOMETRYCOLLECTION text into a Dataset.
func ParseWKT(text string) (Dataset, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Dataset{}, errors.New("empty wkt")
	}
	t, err := wkt.Unmarshal(s)
	if err != nil {
		return Dataset{}, errors.Wrap(err, "wkt")
	}
	var (
		d  Dataset
		bb bboxBuilder
	)
	switch v := t.(type) {
	case *gogeom.Point:
		if c := v.Coords(); len(c) >= 2 {
			d.Markers = append(d.Markers, Pt(c[0], c[1]))
			bb.add(c[0], c[1])
		}
	case *gogeom.MultiPoint:
		for _, c := range v.Coords() {
			if len(c) >= 2 {
				d.Markers = append(d.Markers, Pt(c[0], c[1]))
				bb.add(c[0], c[1])
			}
		}
	default:
		g, err := toGeoJSON(t)
		if err != nil {
			return Dataset{}, err
		}
		walkCoords(g, bb.add)
		d.Features = append(d.Features, Feature{Geometry: g})
	}
	if len(d.Features) == 0 && len(d.Markers) == 0 {
		return Dataset{}, errors.New("wkt: no coordinates parsed")
	}
	d.BBox = bb.box
	return d, nil
}

func toGeoJSON(t gogeom.T) (*geojson.Geometry, error) {
	switch v := t.(type) {
	case *gogeom.Point:
		return geojson.NewPointGeometry(flat(v.Coords())), nil
	case *gogeom.MultiPoint:
		return geojson.NewMultiPointGeometry(flatLine(v.Coords())...), nil
	case *gogeom.LineString:
		return geojson.NewLineStringGeometry(flatLine(v.Coords())), nil
	case *gogeom.MultiLineString:
		var lines [][][]float64
		for _, ls := range v.Coords() {
			lines = append(lines, flatLine(ls))
		}
		return geojson.NewMultiLineStringGeometry(lines...), nil
	case *gogeom.Polygon:
		return geojson.NewPolygonGeometry(flatRings(v.Coords())), nil
	case *gogeom.MultiPolygon:
		var polys [][][][]float64
		for _, p := range v.Coords() {
			polys = append(polys, flatRings(p))
		}
		return geojson.NewMultiPolygonGeometry(polys...), nil
	case *gogeom.GeometryCollection:
		var members []*geojson.Geometry
		for _, m := range v.Geoms() {
			g, err := toGeoJSON(m)
			if err != nil {
				return nil, err
			}
			members = append(members, g)
		}
		return geojson.NewCollectionGeometry(members...), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedGeometry, "wkt type %T", t)
}

func flat(c gogeom.Coord) []float64 { return []float64(c) }

func flatLine(cs []gogeom.Coord) [][]float64 {
	out := make([][]float64, len(cs))
	for i, c := range cs {
		out[i] = flat(c)
	}
	return out
}

func flatRings(rs [][]gogeom.Coord) [][][]float64 {
	out := make([][][]float64, len(rs))
	for i, r := range rs {
		out[i] = flatLine(r)
	}
	return out
}
