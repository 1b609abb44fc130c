package geom

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

type kmlLinearRing struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer kmlLinearRing   `xml:"outerBoundaryIs>LinearRing"`
	Inner []kmlLinearRing `xml:"innerBoundaryIs>LinearRing"`
}

type kmlGeometry struct {
	Points   []kmlLinearRing `xml:"Point"`
	Lines    []kmlLinearRing `xml:"LineString"`
	Rings    []kmlLinearRing `xml:"LinearRing"`
	Polygons []kmlPolygon    `xml:"Polygon"`
}

type kmlPlacemark struct {
	Name string `xml:"name"`
	kmlGeometry
	Multi *kmlGeometry `xml:"MultiGeometry"`
}

// LoadKML reads Placemarks from a KML file.
func LoadKML(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()
	return ParseKML(f)
}

// ParseKML extracts Placemark geometry wherever it sits in the document
// (Document, Folder or the root). LineString and LinearRing become lines,
// Polygon keeps its rings and Point becomes a marker.
// KML coordinates are "lon,lat[,alt]"; altitude is ignored.
func ParseKML(r io.Reader) (Dataset, error) {
	var (
		d  Dataset
		bb bboxBuilder
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Dataset{}, errors.Wrap(err, "kml")
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}
		var pm kmlPlacemark
		if err := dec.DecodeElement(&pm, &se); err != nil {
			return Dataset{}, errors.Wrap(err, "kml placemark")
		}
		var props map[string]any
		if pm.Name != "" {
			props = map[string]any{"name": pm.Name}
		}
		geoms := []kmlGeometry{pm.kmlGeometry}
		if pm.Multi != nil {
			geoms = append(geoms, *pm.Multi)
		}
		for _, g := range geoms {
			for _, p := range g.Points {
				for _, c := range parseKMLCoords(p.Coordinates) {
					d.Markers = append(d.Markers, Pt(c[0], c[1]))
					bb.add(c[0], c[1])
				}
			}
			for _, ls := range append(g.Lines, g.Rings...) {
				cs := parseKMLCoords(ls.Coordinates)
				if len(cs) == 0 {
					continue
				}
				for _, c := range cs {
					bb.add(c[0], c[1])
				}
				d.Features = append(d.Features, Feature{Geometry: geojson.NewLineStringGeometry(cs), Properties: props})
			}
			for _, poly := range g.Polygons {
				outer := parseKMLCoords(poly.Outer.Coordinates)
				if len(outer) == 0 {
					continue
				}
				rings := [][][]float64{outer}
				for _, in := range poly.Inner {
					rings = append(rings, parseKMLCoords(in.Coordinates))
				}
				for _, c := range outer {
					bb.add(c[0], c[1])
				}
				d.Features = append(d.Features, Feature{Geometry: geojson.NewPolygonGeometry(rings), Properties: props})
			}
		}
	}
	if len(d.Features) == 0 && len(d.Markers) == 0 {
		return Dataset{}, errors.New("kml: no placemarks found")
	}
	d.BBox = bb.box
	return d, nil
}

// coordinates may contain multiple tuples separated by whitespace
func parseKMLCoords(s string) [][]float64 {
	var out [][]float64
	for _, tuple := range strings.Fields(s) {
		vals := strings.Split(tuple, ",")
		if len(vals) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(vals[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, []float64{lon, lat})
	}
	return out
}
