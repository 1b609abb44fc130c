package tui

import (
	"sort"
	"strings"

	"geocurtain/internal/geom"
)

// cellToLonLat converts a map cell back to lon/lat using bbox, zoom and pan.
func (m Model) cellToLonLat(cx, cy, w, h int) (float64, float64, bool) {
	if !m.bbox.Valid() || w <= 1 || h <= 1 {
		return 0, 0, false
	}
	zx := float64(cx-m.offsetX) / float64(w-1)
	zy := 1.0 - float64(cy-m.offsetY)/float64(h-1)
	nx := 0.5 + (zx-0.5)/m.zoom
	ny := 0.5 + (zy-0.5)/m.zoom
	lon := m.bbox.MinX + nx*(m.bbox.MaxX-m.bbox.MinX)
	lat := m.bbox.MinY + ny*(m.bbox.MaxY-m.bbox.MinY)
	return lon, lat, true
}

// screenXYMicro maps lon/lat into braille micro coordinates considering
// zoom (around the centre) and pan.
func (m Model) screenXYMicro(p geom.GeoPoint, w, h int) (int, int, bool) {
	if !m.bbox.Valid() {
		return 0, 0, false
	}
	nx := (p.Lng - m.bbox.MinX) / (m.bbox.MaxX - m.bbox.MinX)
	ny := (p.Lat - m.bbox.MinY) / (m.bbox.MaxY - m.bbox.MinY)
	zx := 0.5 + (nx-0.5)*m.zoom
	zy := 0.5 + (ny-0.5)*m.zoom
	sx := int(zx*float64(w*2-1)) + m.offsetX*2
	sy := int((1.0-zy)*float64(h*4-1)) + m.offsetY*4
	return sx, sy, true
}

func (m Model) projectPath(path geom.BoundaryPath, w, h int) [][2]int {
	out := make([][2]int, 0, len(path))
	for _, p := range path {
		if x, y, ok := m.screenXYMicro(p, w, h); ok {
			out = append(out, [2]int{x, y})
		}
	}
	return out
}

// renderPlan draws boundaries from above. The selected closed boundary is
// filled; sampled elevation points are drawn as dots when known.
func (m Model) renderPlan(w, h int) string {
	c := newCanvas(w, h)

	if m.showBoundaries {
		for i, b := range m.boundaries {
			pts := m.projectPath(b.Path, w, h)
			if i == m.selected && b.Closed && len(pts) >= 3 {
				fillRing(c, pts)
			}
			c.polyline(pts, b.Closed)
		}
	}

	if m.showMarkers && len(m.boundaries) == 0 {
		for _, p := range m.data.Markers {
			if x, y, ok := m.screenXYMicro(p, w, h); ok {
				c.set(x, y)
			}
		}
	}

	rows := c.rows()
	overlay := map[[2]int]string{}
	if m.showSamples {
		if cur, ok := m.selectedCurtain(); ok {
			dot := sampleStyle.Render("•")
			for _, s := range cur.Samples {
				if x, y, ok := m.screenXYMicro(s.Point, w, h); ok {
					overlay[[2]int{x / 2, y / 4}] = dot
				}
			}
		}
	}
	if m.hovering {
		overlay[[2]int{m.hoverMicX / 2, m.hoverMicY / 4}] = hoverStyle.Render("◯")
	}
	return compose(rows, overlay)
}

// fillRing fills a ring with the even-odd rule, one micro scanline at a time.
func fillRing(c *canvas, ring [][2]int) {
	for y := 0; y < c.microH(); y++ {
		var xs []int
		for i := range ring {
			a, b := ring[i], ring[(i+1)%len(ring)]
			if a[1] == b[1] {
				continue
			}
			if (y >= a[1] && y < b[1]) || (y >= b[1] && y < a[1]) {
				t := float64(y-a[1]) / float64(b[1]-a[1])
				xs = append(xs, int(float64(a[0])+t*float64(b[0]-a[0])))
			}
		}
		sort.Ints(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := max(0, xs[i]); x <= min(xs[i+1], c.microW()-1); x++ {
				// leave every other column open so the outline stays readable
				if x%2 == 0 {
					c.set(x, y)
				}
			}
		}
	}
}

// compose joins raster rows, replacing cells that carry styled overlays.
func compose(rows [][]rune, overlay map[[2]int]string) string {
	lines := make([]string, len(rows))
	for y, row := range rows {
		var sb strings.Builder
		for x, r := range row {
			if s, ok := overlay[[2]int{x, y}]; ok {
				sb.WriteString(s)
				continue
			}
			sb.WriteRune(r)
		}
		lines[y] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// nearestVertex returns the boundary vertex (or marker) closest to the
// micro coordinate (mx, my), with the index of its boundary or -1.
func (m Model) nearestVertex(mx, my, w, h int) (geom.GeoPoint, int, int, int, bool) {
	best := 1<<31 - 1
	var (
		bp     geom.GeoPoint
		bi     = -1
		bx, by int
		found  bool
	)
	try := func(p geom.GeoPoint, idx int) {
		x, y, ok := m.screenXYMicro(p, w, h)
		if !ok {
			return
		}
		d := (x-mx)*(x-mx) + (y-my)*(y-my)
		if d < best {
			best, bp, bi, bx, by, found = d, p, idx, x, y, true
		}
	}
	for i, b := range m.boundaries {
		for _, p := range b.Path {
			try(p, i)
		}
	}
	for _, p := range m.data.Markers {
		try(p, -1)
	}
	return bp, bi, bx, by, found
}
