package geom

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/require"
)

func TestParseGeoBareGeometry(t *testing.T) {
	d, err := ParseGeo([]byte(`{"type":"MultiLineString","coordinates":[[[0,0],[1,1]],[[2,2],[3,4]]]}`))
	require.NoError(t, err)
	require.Len(t, d.Features, 1)
	require.Equal(t, BBox{MinX: 0, MinY: 0, MaxX: 3, MaxY: 4}, d.BBox)
	_, lines, polys := d.Counts()
	require.Equal(t, 2, lines)
	require.Equal(t, 0, polys)
}

func TestParseGeoSkipsBrokenFeature(t *testing.T) {
	d, err := ParseGeo([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":"oops"}},
		{"type":"Feature","properties":{},"geometry":null},
		{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}
	]}`))
	require.NoError(t, err)
	require.Len(t, d.Features, 1)
	require.Len(t, d.Diagnostics, 2)
}

func TestParseGeoNothingUsable(t *testing.T) {
	d, err := ParseGeo([]byte(`{"features":[{"geometry":null}]}`))
	require.NoError(t, err)
	require.Empty(t, d.Features)
	require.Len(t, d.Diagnostics, 1)
	require.ErrorIs(t, d.Diagnostics[0].Err, ErrUnsupportedGeometry)

	d, err = ParseGeo([]byte(`{"type":"FeatureCollection","features":[]}`))
	require.NoError(t, err)
	require.Empty(t, d.Features)
	require.Empty(t, d.Diagnostics)
}

func TestParseGeoErrors(t *testing.T) {
	_, err := ParseGeo([]byte(`not json`))
	require.Error(t, err)
	_, err = ParseGeo([]byte(`{"coordinates":[0,0]}`))
	require.Error(t, err)
}

func TestParseWKT(t *testing.T) {
	d, err := ParseWKT("LINESTRING (0 0, 2 0, 2 2)")
	require.NoError(t, err)
	require.Len(t, d.Features, 1)
	require.Equal(t, geojson.GeometryLineString, d.Features[0].Geometry.Type)
	require.Equal(t, [][]float64{{0, 0}, {2, 0}, {2, 2}}, d.Features[0].Geometry.LineString)

	d, err = ParseWKT("MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)), ((5 5, 6 5, 6 6, 5 5)))")
	require.NoError(t, err)
	bs, diags := Extract(d, MultiAll)
	require.Empty(t, diags)
	require.Len(t, bs, 2)

	d, err = ParseWKT("POINT (3 4)")
	require.NoError(t, err)
	require.Equal(t, []GeoPoint{Pt(3, 4)}, d.Markers)

	_, err = ParseWKT("   ")
	require.Error(t, err)
	_, err = ParseWKT("CIRCLE (1 2)")
	require.Error(t, err)
}

func TestParseCSVSplitsPaths(t *testing.T) {
	in := strings.Join([]string{
		"id,longitude,latitude",
		"a,0,0",
		"a,1,0",
		"b,5,5",
		"a,1,1",
		"b,6,5",
		"b,bad,5",
	}, "\n")
	d, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, d.Features, 2)
	require.Equal(t, [][]float64{{0, 0}, {1, 0}, {1, 1}}, d.Features[0].Geometry.LineString)
	require.Equal(t, "a", d.Features[0].Properties["path"])
	require.Equal(t, [][]float64{{5, 5}, {6, 5}}, d.Features[1].Geometry.LineString)

	_, err = ParseCSV(strings.NewReader("foo,bar\n1,2\n"))
	require.Error(t, err)
}

func TestParseKMLNestedPlacemarks(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Folder>
      <Placemark>
        <name>fence</name>
        <LineString><coordinates>0,0,0 1,0,0 1,1,0</coordinates></LineString>
      </Placemark>
      <Placemark>
        <name>park</name>
        <Polygon><outerBoundaryIs><LinearRing>
          <coordinates>0,0 2,0 2,2 0,0</coordinates>
        </LinearRing></outerBoundaryIs></Polygon>
      </Placemark>
      <Placemark><Point><coordinates>9,9</coordinates></Point></Placemark>
    </Folder>
  </Document>
</kml>`
	d, err := ParseKML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, d.Features, 2)
	require.Equal(t, []GeoPoint{Pt(9, 9)}, d.Markers)
	bs, _ := Extract(d, MultiAll)
	require.Len(t, bs, 2)
	require.Equal(t, "fence", bs[0].Properties["name"])
	require.True(t, bs[1].Closed)
	require.Len(t, bs[1].Path, 3)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "b.wkt")
	require.NoError(t, os.WriteFile(p, []byte("LINESTRING (0 0, 1 1)"), 0o644))
	d, err := Load(p)
	require.NoError(t, err)
	require.Len(t, d.Features, 1)

	_, err = Load(filepath.Join(dir, "x.shp"))
	require.Error(t, err)
	require.True(t, Supported(".GeoJSON"))
	require.False(t, Supported(".shp"))
}
