package tui

import (
	"fmt"
	"math"

	"geocurtain/internal/curtain"
	"geocurtain/internal/geom"
)

// profile is the selected curtain unrolled along its path: distance on the
// horizontal axis, height on the vertical one.
type profile struct {
	c      curtain.Curtain
	xy     [][2]float64 // local frame, closing vertex repeated for rings
	cum    []float64    // distance at each vertex
	total  float64
	zMin   float64
	zMax   float64
	ground [][2]float64 // (distance, elevation) of each sample
}

func (m Model) buildProfile() (profile, bool) {
	c, ok := m.selectedCurtain()
	if !ok || m.selected >= len(m.boundaries) {
		return profile{}, false
	}
	b := m.boundaries[m.selected]
	if len(b.Path) < 2 {
		return profile{}, false
	}
	p := profile{c: c, xy: c.Frame.ProjectPath(b.Path)}
	open := len(p.xy)
	if b.Closed {
		p.xy = append(p.xy, p.xy[0])
	}
	p.cum = make([]float64, len(p.xy))
	for i := 1; i < len(p.xy); i++ {
		p.cum[i] = p.cum[i-1] + math.Hypot(p.xy[i][0]-p.xy[i-1][0], p.xy[i][1]-p.xy[i-1][1])
	}
	p.total = p.cum[len(p.cum)-1]
	if p.total == 0 {
		return profile{}, false
	}

	p.zMin, p.zMax = c.BottomZ, c.TopZ
	for _, s := range c.Samples {
		if math.IsNaN(s.Elevation) || math.IsInf(s.Elevation, 0) {
			continue
		}
		x, y := c.Frame.Project(s.Point)
		p.ground = append(p.ground, [2]float64{p.distanceAlong(x, y, open), s.Elevation})
		p.zMin = math.Min(p.zMin, s.Elevation)
		p.zMax = math.Max(p.zMax, s.Elevation)
	}
	pad := (p.zMax - p.zMin) * 0.05
	if pad == 0 {
		pad = 1
	}
	p.zMin -= pad
	p.zMax += pad
	return p, true
}

// distanceAlong projects (x, y) onto the first n vertices of the path and
// returns the distance of the closest foot point.
func (p profile) distanceAlong(x, y float64, n int) float64 {
	best, bestD := math.Inf(1), 0.0
	for i := 1; i < n; i++ {
		a, b := p.xy[i-1], p.xy[i]
		dx, dy := b[0]-a[0], b[1]-a[1]
		l2 := dx*dx + dy*dy
		t := 0.0
		if l2 > 0 {
			t = math.Max(0, math.Min(1, ((x-a[0])*dx+(y-a[1])*dy)/l2))
		}
		fx, fy := a[0]+t*dx, a[1]+t*dy
		if d := math.Hypot(x-fx, y-fy); d < best {
			best, bestD = d, p.cum[i-1]+t*(p.cum[i]-p.cum[i-1])
		}
	}
	return bestD
}

func (p profile) micro(d, z float64, w, h int) (int, int) {
	mx := int(math.Round(d / p.total * float64(w*2-1)))
	my := int(math.Round((p.zMax - z) / (p.zMax - p.zMin) * float64(h*4-1)))
	return mx, my
}

// at converts a cell back to distance, height and the geographic position
// on the path at that distance.
func (p profile) at(cx, cy, w, h int) (float64, float64, geom.GeoPoint) {
	d := float64(cx) / float64(max(1, w-1)) * p.total
	z := p.zMax - float64(cy)/float64(max(1, h-1))*(p.zMax-p.zMin)
	d = math.Max(0, math.Min(p.total, d))
	for i := 1; i < len(p.xy); i++ {
		if d <= p.cum[i] || i == len(p.xy)-1 {
			seg := p.cum[i] - p.cum[i-1]
			t := 0.0
			if seg > 0 {
				t = (d - p.cum[i-1]) / seg
			}
			x := p.xy[i-1][0] + t*(p.xy[i][0]-p.xy[i-1][0])
			y := p.xy[i-1][1] + t*(p.xy[i][1]-p.xy[i-1][1])
			return d, z, p.c.Frame.Unproject(x, y)
		}
	}
	return d, z, p.c.Frame.Anchor
}

// renderProfile draws the wall outline, a post at every vertex and the
// sampled ground line.
func (m Model) renderProfile(w, h int) string {
	p, ok := m.buildProfile()
	if !ok {
		msg := "no curtain for the selected boundary"
		if m.building {
			msg = "building curtains..."
		}
		return dimStyle.Render(msg)
	}
	c := newCanvas(w, h)

	x0, top := p.micro(0, p.c.TopZ, w, h)
	x1, _ := p.micro(p.total, p.c.TopZ, w, h)
	_, bottom := p.micro(0, p.c.BottomZ, w, h)
	c.line(x0, top, x1, top)
	c.line(x0, bottom, x1, bottom)
	for _, d := range p.cum {
		x, _ := p.micro(d, 0, w, h)
		c.line(x, top, x, bottom)
	}

	var ground [][2]int
	for _, g := range p.ground {
		x, y := p.micro(g[0], g[1], w, h)
		ground = append(ground, [2]int{x, y})
	}
	gc := newCanvas(w, h)
	gc.polyline(ground, false)

	rows := c.rows()
	overlay := map[[2]int]string{}
	for y, row := range gc.rows() {
		for x, r := range row {
			if r != ' ' {
				overlay[[2]int{x, y}] = groundStyle.Render(string(r))
			}
		}
	}
	if m.showSamples {
		dot := sampleStyle.Render("•")
		for _, g := range ground {
			overlay[[2]int{g[0] / 2, g[1] / 4}] = dot
		}
	}
	if m.hovering {
		overlay[[2]int{m.hoverMicX / 2, m.hoverMicY / 4}] = hoverStyle.Render("◯")
	}
	return compose(rows, overlay)
}

func (p profile) legend() string {
	return fmt.Sprintf("%s  length %s  top %s  base %s", p.c.ID, meters(p.total), meters(p.c.TopZ), meters(p.c.BottomZ))
}
