package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"geocurtain/internal/geom"
)

const sidebarWidth = 28

// layout is the geometry shared by View and mouse handling.
type layout struct {
	sidebarW, contentW, contentH int
	mapX, mapY, mapW, mapH       int
}

func (m Model) layout() layout {
	var lo layout
	if m.showSidebar {
		lo.sidebarW = sidebarWidth
	}
	headerHeight, footerHeight := 1, 2
	lo.contentH = max(4, m.height-headerHeight-footerHeight)
	lo.contentW = max(10, m.width)
	lo.mapW = max(10, lo.contentW-lo.sidebarW-1)
	lo.mapH = lo.contentH
	if m.showSidebar {
		lo.mapX = lo.sidebarW + 1
	}
	lo.mapY = headerHeight
	return lo
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.showSidebar {
			m.l.SetSize(sidebarWidth-2, m.layout().contentH-2)
		}
	case buildDoneMsg:
		m.applyBuild(msg)
		return m, nil
	case tea.KeyMsg:
		// while the list filters, it owns the keyboard
		if m.showSidebar && m.l.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		if m.pasteMode {
			return m.updatePaste(msg)
		}
		if m.showAttrs {
			switch msg.String() {
			case "up", "down", "pgup", "pgdown", "home", "end":
				var cmd tea.Cmd
				m.tbl, cmd = m.tbl.Update(msg)
				m.selected = m.tbl.Cursor()
				return m, cmd
			}
		}
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "1":
			m.showBoundaries = !m.showBoundaries
			m.status = fmt.Sprintf("boundaries: %v", m.showBoundaries)
		case "2":
			m.showMarkers = !m.showMarkers
			m.status = fmt.Sprintf("markers: %v", m.showMarkers)
		case "3":
			m.showSamples = !m.showSamples
			m.status = fmt.Sprintf("samples: %v", m.showSamples)
		case "l":
			all := m.showBoundaries && m.showMarkers && m.showSamples
			m.showBoundaries, m.showMarkers, m.showSamples = !all, !all, !all
			m.status = fmt.Sprintf("layers: boundaries=%v markers=%v samples=%v", m.showBoundaries, m.showMarkers, m.showSamples)
		case "+", "=":
			if m.zoom < 64 {
				m.zoom *= 1.2
				m.status = fmt.Sprintf("zoom: %.2fx", m.zoom)
			}
		case "-", "_":
			if m.zoom > 0.05 {
				m.zoom /= 1.2
				m.status = fmt.Sprintf("zoom: %.2fx", m.zoom)
			}
		case "tab":
			m.showSidebar = !m.showSidebar
			if m.showSidebar {
				m.refreshDir()
				m.l.SetSize(sidebarWidth-2, m.layout().contentH-2)
			}
		case "v":
			if m.mode == planView {
				m.mode = profileView
				m.status = "profile view"
			} else {
				m.mode = planView
				m.status = "plan view"
			}
			m.hovering, m.hoverHasGeo = false, false
		case "n", "N":
			if len(m.boundaries) > 0 {
				step := 1
				if msg.String() == "N" {
					step = len(m.boundaries) - 1
				}
				m.selected = (m.selected + step) % len(m.boundaries)
				m.status = "selected " + m.selectionLabel()
				if m.showAttrs {
					m.tbl.SetCursor(m.selected)
				}
			}
		case "r":
			if m.svc != nil {
				m.svc.Invalidate()
			}
			m.status = "rebuilding curtains"
			return m, m.rebuild()
		case "p":
			m.pasteMode = true
			m.ta.SetValue("")
			m.ta.Focus()
			m.status = "paste mode"
		case "h":
			m.helpVisible = !m.helpVisible
		case "a":
			m.showAttrs = !m.showAttrs
			if m.showAttrs {
				m.refreshAttrs()
			}
		case "i":
			m.inspect()
		case "esc":
			m.inspectPopup = ""
		case "enter":
			if m.showSidebar {
				if it, ok := m.l.SelectedItem().(fileItem); ok {
					return m, m.loadPath(it.path)
				}
			}
		case "up":
			m.offsetY--
		case "down":
			m.offsetY++
		case "left":
			m.offsetX -= 2
		case "right":
			m.offsetX += 2
		}
	case tea.MouseMsg:
		m.hover(msg.X, msg.Y)
	}
	if m.showSidebar {
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updatePaste(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pasteMode = false
		m.ta.Blur()
		m.status = "paste cancelled"
		return m, nil
	case "enter":
		w := strings.TrimSpace(m.ta.Value())
		if w == "" {
			m.status = "paste: empty"
			return m, nil
		}
		d, err := geom.ParseWKT(w)
		if err != nil {
			m.status = "wkt error: " + err.Error()
			return m, nil
		}
		m.pasteMode = false
		m.ta.Blur()
		m.selPath = ""
		return m, m.setDataset(d, "pasted WKT")
	}
	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

// hover tracks the pointer over the map area. In plan view it snaps to the
// nearest vertex; in profile view it reads distance and height off the axes.
func (m *Model) hover(x, y int) {
	lo := m.layout()
	cx, cy := x-lo.mapX, y-lo.mapY
	if cx < 0 || cy < 0 || cx >= lo.mapW || cy >= lo.mapH || m.showAttrs || m.pasteMode {
		m.hovering, m.hoverHasGeo = false, false
		return
	}
	m.hovering = true
	m.hoverMicX, m.hoverMicY = cx*2, cy*4
	m.hoverInfo = ""

	if m.mode == profileView {
		p, ok := m.buildProfile()
		if !ok {
			m.hovering, m.hoverHasGeo = false, false
			return
		}
		d, z, at := p.at(cx, cy, lo.mapW, lo.mapH)
		m.hoverHasGeo, m.hoverLon, m.hoverLat = true, at.Lng, at.Lat
		m.hoverInfo = fmt.Sprintf("d=%s z=%s", meters(d), meters(z))
		return
	}

	lon, lat, ok := m.cellToLonLat(cx, cy, lo.mapW, lo.mapH)
	m.hoverHasGeo, m.hoverLon, m.hoverLat = ok, lon, lat
	if _, bi, bx, by, found := m.nearestVertex(cx*2, cy*4, lo.mapW, lo.mapH); found {
		m.hoverMicX, m.hoverMicY = bx, by
		if bi >= 0 {
			m.hoverInfo = m.boundaries[bi].ID
		}
	}
}

// inspect opens a popup describing the selected boundary and its curtain.
func (m *Model) inspect() {
	if m.selected >= len(m.boundaries) {
		m.inspectPopup = "no boundary selected"
		m.status = m.inspectPopup
		return
	}
	b := m.boundaries[m.selected]
	name := filepath.Base(m.selPath)
	if m.selPath == "" {
		name = "<pasted>"
	}
	meta := []string{
		fmt.Sprintf("source: %s", name),
		fmt.Sprintf("boundary: %s (%s, %d vertices, closed=%v)", b.ID, b.Kind, len(b.Path), b.Closed),
	}
	if c, ok := m.selectedCurtain(); ok {
		meta = append(meta,
			fmt.Sprintf("anchor: lon=%.6f lat=%.6f", c.Frame.Anchor.Lng, c.Frame.Anchor.Lat),
			fmt.Sprintf("base: %s  top: %s", meters(c.BottomZ), meters(c.TopZ)),
			fmt.Sprintf("triangles: %d", c.Mesh.TriangleCount()),
		)
		if c.Base.Fallback {
			meta = append(meta, warnStyle.Render("deep fallback: "+c.Base.Reason))
		}
		if err := m.failed[b.ID]; err != nil {
			meta = append(meta, warnStyle.Render("no mesh: "+err.Error()))
		}
	} else if m.building {
		meta = append(meta, "curtain: building")
	}
	m.inspectPopup = strings.Join(meta, "\n")
	m.status = "inspect " + b.ID
}

func (m Model) selectionLabel() string {
	if m.selected >= len(m.boundaries) {
		return "-"
	}
	return fmt.Sprintf("%s (%d/%d)", m.boundaries[m.selected].ID, m.selected+1, len(m.boundaries))
}
