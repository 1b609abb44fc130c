package geom

import (
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestExtractLineString(t *testing.T) {
	g := geojson.NewLineStringGeometry([][]float64{{0, 0}, {1, 0}, {1, 1}})
	bs, diags := ExtractGeometry(g, MultiAll)
	require.Empty(t, diags)
	require.Len(t, bs, 1)
	require.Equal(t, "feature-0-line", bs[0].ID)
	require.False(t, bs[0].Closed)
	require.Equal(t, BoundaryPath{Pt(0, 0), Pt(1, 0), Pt(1, 1)}, bs[0].Path)
}

func TestExtractPolygonOuterRingOnly(t *testing.T) {
	g := geojson.NewPolygonGeometry([][][]float64{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {3, 2}, {3, 3}, {2, 2}},
	})
	bs, diags := ExtractGeometry(g, MultiAll)
	require.Empty(t, diags)
	require.Len(t, bs, 1)
	require.True(t, bs[0].Closed)
	// closing duplicate dropped
	require.Equal(t, BoundaryPath{Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)}, bs[0].Path)
}

func TestExtractPolygonWithoutClosingVertex(t *testing.T) {
	g := geojson.NewPolygonGeometry([][][]float64{{{0, 0}, {1, 0}, {1, 1}}})
	bs, _ := ExtractGeometry(g, MultiAll)
	require.Len(t, bs, 1)
	require.True(t, bs[0].Closed)
	require.Len(t, bs[0].Path, 3)
}

func TestExtractMultiLineStringEmitsAll(t *testing.T) {
	g := geojson.NewMultiLineStringGeometry(
		[][]float64{{0, 0}, {1, 1}},
		[][]float64{{2, 2}, {3, 3}},
		[][]float64{{4, 4}, {5, 5}},
	)
	bs, diags := ExtractGeometry(g, MultiAll)
	require.Empty(t, diags)
	require.Len(t, bs, 3)
	require.Equal(t, "feature-0-multiline-2", bs[2].ID)
	require.Equal(t, Pt(4, 4), bs[2].Path[0])

	first, _ := ExtractGeometry(g, MultiFirst)
	require.Len(t, first, 1)
	require.Equal(t, "feature-0-multiline-0", first[0].ID)
}

func TestExtractMultiPolygonFirstRingEach(t *testing.T) {
	g := geojson.NewMultiPolygonGeometry(
		[][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, {{0.2, 0.2}, {0.3, 0.2}, {0.3, 0.3}, {0.2, 0.2}}},
		[][][]float64{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}},
	)
	bs, diags := ExtractGeometry(g, MultiAll)
	require.Empty(t, diags)
	require.Len(t, bs, 2)
	require.Equal(t, "feature-0-multipolygon-1", bs[1].ID)
	require.Equal(t, BoundaryPath{Pt(5, 5), Pt(6, 5), Pt(6, 6)}, bs[1].Path)
	for _, b := range bs {
		require.True(t, b.Closed)
	}

	first, _ := ExtractGeometry(g, MultiFirst)
	require.Len(t, first, 1)
}

func TestExtractUnsupportedIsSkipped(t *testing.T) {
	bs, diags := ExtractGeometry(&geojson.Geometry{Type: "Circle"}, MultiAll)
	require.Empty(t, bs)
	require.Len(t, diags, 1)
	require.True(t, errors.Is(diags[0].Err, ErrUnsupportedGeometry))

	bs, diags = ExtractGeometry(nil, MultiAll)
	require.Empty(t, bs)
	require.Len(t, diags, 1)

	bs, diags = ExtractGeometry(&geojson.Geometry{Type: geojson.GeometryPolygon}, MultiAll)
	require.Empty(t, bs)
	require.Len(t, diags, 1)
}

func TestExtractDropsShortCoordinates(t *testing.T) {
	g := geojson.NewLineStringGeometry([][]float64{{0, 0}, {1}, {2, 2}})
	bs, diags := ExtractGeometry(g, MultiAll)
	require.Len(t, bs, 1)
	require.Len(t, bs[0].Path, 2)
	require.Len(t, diags, 1)
}

func TestExtractCollection(t *testing.T) {
	g := geojson.NewCollectionGeometry(
		geojson.NewLineStringGeometry([][]float64{{0, 0}, {1, 1}}),
		geojson.NewPointGeometry([]float64{3, 3}),
	)
	bs, diags := ExtractGeometry(g, MultiAll)
	require.Len(t, bs, 1)
	require.Equal(t, "feature-0-collection-0-line", bs[0].ID)
	// points are not boundaries
	require.Len(t, diags, 1)
}

func TestExtractDatasetKeepsProperties(t *testing.T) {
	d, err := ParseGeo([]byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {"name": "north"},
			 "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}},
			{"type": "Feature", "properties": {},
			 "geometry": {"type": "Point", "coordinates": [5,5]}},
			{"type": "Feature", "properties": {"name": "lake"},
			 "geometry": {"type": "Polygon", "coordinates": [[[0,0],[2,0],[2,2],[0,0]]]}}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, d.Markers, 1)
	require.Len(t, d.Features, 2)

	bs, diags := Extract(d, MultiAll)
	require.Empty(t, diags)
	require.Len(t, bs, 2)
	require.Equal(t, "feature-0-line", bs[0].ID)
	require.Equal(t, "north", bs[0].Properties["name"])
	require.Equal(t, "feature-1-polygon", bs[1].ID)
	require.Equal(t, "lake", bs[1].Properties["name"])
}

func TestParseExtractPolicy(t *testing.T) {
	p, err := ParseExtractPolicy("FIRST")
	require.NoError(t, err)
	require.Equal(t, MultiFirst, p)
	p, err = ParseExtractPolicy("")
	require.NoError(t, err)
	require.Equal(t, MultiAll, p)
	_, err = ParseExtractPolicy("some")
	require.Error(t, err)
}
