package geom

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// LoadCSV reads ordered path vertices from a CSV file.
func LoadCSV(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV reads rows as consecutive vertices of a LineString.
// Column detection: lat|latitude|y and lon|lng|long|longitude|x (case-insensitive).
// An optional path|id|boundary column splits the rows into one line per value,
// in order of first appearance.
func ParseCSV(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return Dataset{}, errors.Wrap(err, "csv")
	}
	if len(recs) == 0 {
		return Dataset{}, errors.New("empty csv")
	}
	idxLat, idxLon, idxPath := -1, -1, -1
	for i, h := range recs[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lat", "latitude", "y":
			if idxLat == -1 {
				idxLat = i
			}
		case "lon", "lng", "long", "longitude", "x":
			if idxLon == -1 {
				idxLon = i
			}
		case "path", "id", "boundary":
			if idxPath == -1 {
				idxPath = i
			}
		}
	}
	if idxLat == -1 || idxLon == -1 {
		return Dataset{}, errors.New("csv: latitude/longitude columns not found")
	}

	var (
		order []string
		lines = map[string][][]float64{}
		bb    bboxBuilder
	)
	for _, row := range recs[1:] {
		if idxLon >= len(row) || idxLat >= len(row) {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(row[idxLon]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(row[idxLat]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		key := ""
		if idxPath >= 0 && idxPath < len(row) {
			key = strings.TrimSpace(row[idxPath])
		}
		if _, ok := lines[key]; !ok {
			order = append(order, key)
		}
		lines[key] = append(lines[key], []float64{lon, lat})
		bb.add(lon, lat)
	}
	if len(order) == 0 {
		return Dataset{}, errors.New("csv: no valid points parsed")
	}
	d := Dataset{BBox: bb.box}
	for _, key := range order {
		var props map[string]any
		if key != "" {
			props = map[string]any{"path": key}
		}
		d.Features = append(d.Features, Feature{Geometry: geojson.NewLineStringGeometry(lines[key]), Properties: props})
	}
	return d, nil
}
