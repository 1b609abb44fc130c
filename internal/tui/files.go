package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"geocurtain/internal/geom"
	"geocurtain/internal/logging"
)

type fileItem struct {
	title, desc string
	path        string
}

func (f fileItem) Title() string       { return f.title }
func (f fileItem) Description() string { return f.desc }
func (f fileItem) FilterValue() string { return f.title }

func (m *Model) refreshDir() {
	entries, err := os.ReadDir(m.cwd)
	if err != nil {
		m.status = "read dir error: " + err.Error()
		return
	}
	var items []list.Item
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if geom.Supported(ext) {
			items = append(items, fileItem{title: name, desc: ext, path: filepath.Join(m.cwd, name)})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].(fileItem).Title() < items[j].(fileItem).Title() })
	m.items = items
	m.l.SetItems(items)
	if len(items) == 0 {
		m.status = "no boundary files in current directory"
	}
}

// loadPath loads a boundary file and starts building its curtains.
func (m *Model) loadPath(p string) tea.Cmd {
	d, err := geom.Load(p)
	if err != nil {
		m.status = "load error: " + err.Error()
		return nil
	}
	m.selPath = p
	return m.setDataset(d, filepath.Base(p))
}

// setDataset replaces the loaded data, extracts boundaries and kicks off a
// build. Skipped features are logged and counted in the status line.
func (m *Model) setDataset(d geom.Dataset, name string) tea.Cmd {
	bs, diags := geom.Extract(d, m.policy)
	all := append(append([]geom.Diagnostic{}, d.Diagnostics...), diags...)
	for _, dg := range all {
		m.log.Warn(context.Background(), "boundary skipped",
			logging.String("source", name), logging.Int("feature", dg.Feature), logging.Err(dg.Err))
	}

	m.data, m.boundaries, m.bbox = d, bs, viewBox(d.BBox)
	m.selected = 0
	m.zoom = 1.0
	m.offsetX, m.offsetY = 0, 0
	m.inspectPopup = ""

	markers, lines, polys := d.Counts()
	m.status = fmt.Sprintf("loaded: %s  boundaries=%d (ls=%d poly=%d) markers=%d", name, len(bs), lines, polys, markers)
	if len(all) > 0 {
		m.status += fmt.Sprintf("  skipped=%d", len(all))
	}
	cmd := m.rebuild()
	if m.showAttrs {
		m.refreshAttrs()
	}
	return cmd
}

// viewBox widens a box with a zero span (a single marker, a meridian line)
// so it can still be projected.
func viewBox(b geom.BBox) geom.BBox {
	const pad = 1e-4
	if b.MaxX-b.MinX <= 0 {
		b.MinX, b.MaxX = b.MinX-pad, b.MaxX+pad
	}
	if b.MaxY-b.MinY <= 0 {
		b.MinY, b.MaxY = b.MinY-pad, b.MaxY+pad
	}
	return b
}
