package curtain

import (
	"math"

	"geocurtain/internal/geom"
)

// Sample returns count points spread uniformly in path parameter: sample i
// sits at t = i/(count-1) of the vertex index range, so every segment gets
// the same share regardless of its length. The first and last samples are
// exactly the first and last vertices.
func Sample(path geom.BoundaryPath, count int) []geom.GeoPoint {
	n := len(path)
	if n < 2 || count <= 0 {
		return nil
	}
	if count == 1 {
		return []geom.GeoPoint{path[0]}
	}
	out := make([]geom.GeoPoint, count)
	for i := 0; i < count; i++ {
		t := float64(i) / float64(count-1)
		pos := t * float64(n-1)
		seg := int(math.Floor(pos))
		if seg >= n-1 {
			out[i] = path[n-1]
			continue
		}
		out[i] = lerp(path[seg], path[seg+1], pos-float64(seg))
	}
	return out
}

// SampleArcLength spreads count points evenly by distance along the path,
// measured in the path's local frame.
func SampleArcLength(path geom.BoundaryPath, count int) []geom.GeoPoint {
	n := len(path)
	if n < 2 || count <= 0 {
		return nil
	}
	if count == 1 {
		return []geom.GeoPoint{path[0]}
	}
	frame := NewLocalFrame(path, AnchorFirstVertex)
	xy := frame.ProjectPath(path)
	cum := make([]float64, n)
	for i := 1; i < n; i++ {
		cum[i] = cum[i-1] + math.Hypot(xy[i][0]-xy[i-1][0], xy[i][1]-xy[i-1][1])
	}
	total := cum[n-1]
	if total == 0 {
		return Sample(path, count)
	}

	out := make([]geom.GeoPoint, count)
	seg := 0
	for i := 0; i < count; i++ {
		d := total * float64(i) / float64(count-1)
		if i == count-1 {
			out[i] = path[n-1]
			continue
		}
		for seg < n-2 && cum[seg+1] < d {
			seg++
		}
		l := cum[seg+1] - cum[seg]
		if l == 0 {
			out[i] = path[seg]
			continue
		}
		out[i] = lerp(path[seg], path[seg+1], (d-cum[seg])/l)
	}
	return out
}

func lerp(a, b geom.GeoPoint, t float64) geom.GeoPoint {
	return geom.GeoPoint{
		Lng: a.Lng + (b.Lng-a.Lng)*t,
		Lat: a.Lat + (b.Lat-a.Lat)*t,
	}
}
