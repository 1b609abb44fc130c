package geom

import (
	"fmt"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// ErrUnsupportedGeometry marks a geometry that yields no boundary.
var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// ExtractPolicy selects how multi-geometries are flattened.
type ExtractPolicy int

const (
	// MultiAll emits every member of a multi-geometry, outer ring of each polygon.
	MultiAll ExtractPolicy = iota
	// MultiFirst emits only the first member.
	MultiFirst
)

func (p ExtractPolicy) String() string {
	if p == MultiFirst {
		return "first"
	}
	return "all"
}

// ParseExtractPolicy maps "all" / "first" to a policy.
func ParseExtractPolicy(s string) (ExtractPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return MultiAll, nil
	case "first":
		return MultiFirst, nil
	}
	return MultiAll, errors.Errorf("unknown multi-geometry policy %q", s)
}

// Diagnostic is a warning-level report about a skipped feature or coordinate.
type Diagnostic struct {
	Feature int
	Kind    string
	Err     error
}

func (d Diagnostic) String() string {
	if d.Kind == "" {
		return fmt.Sprintf("feature %d: %v", d.Feature, d.Err)
	}
	return fmt.Sprintf("feature %d (%s): %v", d.Feature, d.Kind, d.Err)
}

// Extract turns every feature of d into boundaries. Unsupported or malformed
// geometries are skipped and reported; nothing here fails.
func Extract(d Dataset, policy ExtractPolicy) ([]Boundary, []Diagnostic) {
	var (
		out   []Boundary
		diags []Diagnostic
	)
	for i, f := range d.Features {
		bs, ds := extract(fmt.Sprintf("feature-%d", i), i, f.Geometry, policy, f.Properties)
		out = append(out, bs...)
		diags = append(diags, ds...)
	}
	return out, diags
}

// ExtractGeometry normalizes a single geometry; ids are prefixed "feature-0".
func ExtractGeometry(g *geojson.Geometry, policy ExtractPolicy) ([]Boundary, []Diagnostic) {
	return extract("feature-0", 0, g, policy, nil)
}

func extract(prefix string, idx int, g *geojson.Geometry, policy ExtractPolicy, props map[string]any) ([]Boundary, []Diagnostic) {
	var diags []Diagnostic
	warn := func(kind string, err error) {
		diags = append(diags, Diagnostic{Feature: idx, Kind: kind, Err: err})
	}
	if g == nil {
		warn("", errors.Wrap(ErrUnsupportedGeometry, "null geometry"))
		return nil, diags
	}
	kind := string(g.Type)
	toPath := func(coords [][]float64) BoundaryPath {
		p := make(BoundaryPath, 0, len(coords))
		for j, c := range coords {
			if len(c) < 2 {
				warn(kind, errors.Errorf("coordinate %d has %d values, dropped", j, len(c)))
				continue
			}
			p = append(p, Pt(c[0], c[1]))
		}
		return p
	}
	ring := func(id string, rings [][][]float64) (Boundary, bool) {
		if len(rings) == 0 {
			warn(kind, errors.Wrap(ErrUnsupportedGeometry, "polygon without rings"))
			return Boundary{}, false
		}
		p, closed := openRing(toPath(rings[0]))
		return Boundary{ID: id, Kind: kind, Path: p, Closed: closed, Properties: props}, true
	}

	var out []Boundary
	switch g.Type {
	case geojson.GeometryLineString:
		out = append(out, Boundary{ID: prefix + "-line", Kind: kind, Path: toPath(g.LineString), Properties: props})
	case geojson.GeometryPolygon:
		if b, ok := ring(prefix+"-polygon", g.Polygon); ok {
			out = append(out, b)
		}
	case geojson.GeometryMultiLineString:
		for j, ls := range g.MultiLineString {
			if policy == MultiFirst && j > 0 {
				break
			}
			out = append(out, Boundary{ID: fmt.Sprintf("%s-multiline-%d", prefix, j), Kind: kind, Path: toPath(ls), Properties: props})
		}
	case geojson.GeometryMultiPolygon:
		for j, poly := range g.MultiPolygon {
			if policy == MultiFirst && j > 0 {
				break
			}
			if b, ok := ring(fmt.Sprintf("%s-multipolygon-%d", prefix, j), poly); ok {
				out = append(out, b)
			}
		}
	case geojson.GeometryCollection:
		for j, member := range g.Geometries {
			bs, ds := extract(fmt.Sprintf("%s-collection-%d", prefix, j), idx, member, policy, props)
			out = append(out, bs...)
			diags = append(diags, ds...)
		}
	default:
		warn(kind, errors.Wrapf(ErrUnsupportedGeometry, "type %q", kind))
	}
	return out, diags
}

// openRing drops the repeated closing vertex of a GeoJSON ring. The result is
// marked closed whenever it came from a ring, repeated vertex or not.
func openRing(p BoundaryPath) (BoundaryPath, bool) {
	if n := len(p); n >= 2 && p[0] == p[n-1] {
		p = p[:n-1]
	}
	return p, true
}

// Paths strips boundaries down to their polylines.
func Paths(bs []Boundary) []BoundaryPath {
	out := make([]BoundaryPath, len(bs))
	for i, b := range bs {
		out[i] = b.Path
	}
	return out
}
