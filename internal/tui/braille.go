package tui

// canvas is a braille raster: each terminal cell holds a 2x4 grid of
// micro-pixels, addressed in micro coordinates.
type canvas struct {
	w, h  int // in cells
	cells [][]uint8
}

// dot bits of U+2800.., indexed [row][column] within a cell
var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

func newCanvas(w, h int) *canvas {
	cells := make([][]uint8, h)
	for i := range cells {
		cells[i] = make([]uint8, w)
	}
	return &canvas{w: w, h: h, cells: cells}
}

// microW and microH are the raster size in micro-pixels.
func (c *canvas) microW() int { return c.w * 2 }
func (c *canvas) microH() int { return c.h * 4 }

func (c *canvas) set(mx, my int) {
	if mx < 0 || my < 0 || mx >= c.microW() || my >= c.microH() {
		return
	}
	c.cells[my/4][mx/2] |= brailleBits[my%4][mx%2]
}

// line draws a Bresenham segment between two micro-pixels.
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x1 < x0 {
		sx = -1
	}
	if y1 < y0 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// polyline connects consecutive points, closing the loop when closed.
func (c *canvas) polyline(pts [][2]int, closed bool) {
	for i := 1; i < len(pts); i++ {
		c.line(pts[i-1][0], pts[i-1][1], pts[i][0], pts[i][1])
	}
	if closed && len(pts) > 2 {
		c.line(pts[len(pts)-1][0], pts[len(pts)-1][1], pts[0][0], pts[0][1])
	}
}

// rows renders the raster; empty cells are spaces.
func (c *canvas) rows() [][]rune {
	out := make([][]rune, c.h)
	for y := range out {
		row := make([]rune, c.w)
		for x, mask := range c.cells[y] {
			row[x] = ' '
			if mask != 0 {
				row[x] = rune(0x2800 + int(mask))
			}
		}
		out[y] = row
	}
	return out
}
