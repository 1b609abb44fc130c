package curtain

import (
	"math"

	"github.com/pkg/errors"
)

// ErrDegenerateInput reports input that cannot form a wall: too few points
// or a bottom not strictly below the top.
var ErrDegenerateInput = errors.New("degenerate curtain input")

// Mesh is an indexed triangle list. Vertex 2i is the top of point i and
// vertex 2i+1 its bottom.
type Mesh struct {
	Vertices [][3]float64 `json:"vertices"`
	Indices  [][3]uint32  `json:"indices"`
}

func (m Mesh) Empty() bool { return len(m.Indices) == 0 }

func (m Mesh) TriangleCount() int { return len(m.Indices) }

// FlatVertices packs positions as x,y,z float32 triples.
func (m Mesh) FlatVertices() []float32 {
	out := make([]float32, 0, len(m.Vertices)*3)
	for _, v := range m.Vertices {
		out = append(out, float32(v[0]), float32(v[1]), float32(v[2]))
	}
	return out
}

func (m Mesh) FlatIndices() []uint32 {
	out := make([]uint32, 0, len(m.Indices)*3)
	for _, t := range m.Indices {
		out = append(out, t[0], t[1], t[2])
	}
	return out
}

// CheckInput reports ErrDegenerateInput when Build would return an empty
// mesh for these arguments.
func CheckInput(n int, topZ, bottomZ float64, closed bool) error {
	switch {
	case closed && n < 3:
		return errors.Wrap(ErrDegenerateInput, "closed wall needs at least 3 points")
	case n < 2:
		return errors.Wrap(ErrDegenerateInput, "wall needs at least 2 points")
	case !(bottomZ < topZ):
		return errors.Wrapf(ErrDegenerateInput, "bottom %.1f is not below top %.1f", bottomZ, topZ)
	}
	return nil
}

// Build extrudes points (local meters) into a vertical wall between
// bottomZ and topZ. Each segment i -> i+1 is split into the triangles
// (top_i, top_i+1, bottom_i) and (top_i+1, bottom_i+1, bottom_i). A closed
// wall adds the segment from the last point back to the first.
// Consecutive duplicate points are not removed; see DropDuplicates.
func Build(points [][2]float64, topZ, bottomZ float64, closed bool) Mesh {
	n := len(points)
	if CheckInput(n, topZ, bottomZ, closed) != nil {
		return Mesh{}
	}

	verts := make([][3]float64, 0, 2*n)
	for _, p := range points {
		verts = append(verts,
			[3]float64{p[0], p[1], topZ},
			[3]float64{p[0], p[1], bottomZ},
		)
	}

	segs := n - 1
	if closed {
		segs = n
	}
	idx := make([][3]uint32, 0, 2*segs)
	for i := 0; i < segs; i++ {
		next := (i + 1) % n
		top, bottom := uint32(2*i), uint32(2*i+1)
		topNext, bottomNext := uint32(2*next), uint32(2*next+1)
		idx = append(idx,
			[3]uint32{top, topNext, bottom},
			[3]uint32{topNext, bottomNext, bottom},
		)
	}
	return Mesh{Vertices: verts, Indices: idx}
}

// DropDuplicates removes consecutive points closer than eps. A closed ring
// also loses a last point that repeats the first.
func DropDuplicates(points [][2]float64, eps float64, closed bool) [][2]float64 {
	if len(points) == 0 {
		return nil
	}
	same := func(a, b [2]float64) bool {
		return math.Hypot(a[0]-b[0], a[1]-b[1]) <= eps
	}
	out := [][2]float64{points[0]}
	for _, p := range points[1:] {
		if !same(out[len(out)-1], p) {
			out = append(out, p)
		}
	}
	if closed && len(out) > 1 && same(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}
