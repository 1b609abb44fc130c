package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	table "github.com/charmbracelet/bubbles/table"
	"github.com/dustin/go-humanize"

	"geocurtain/internal/curtain"
	"geocurtain/internal/geom"
)

var statColumns = []string{"id", "kind", "vertices", "base", "top", "tris", "state"}

// refreshAttrs rebuilds the table from the current boundaries and curtains.
func (m *Model) refreshAttrs() {
	cols, rows := m.buildAttributes()
	if len(rows) == 0 {
		m.showAttrs = false
		m.status = "no boundaries loaded"
		return
	}
	tcols := make([]table.Column, 0, len(cols)+1)
	tcols = append(tcols, table.Column{Title: "#", Width: 4})
	const maxColW = 24
	for i, c := range cols {
		w := len(c) + 2
		for _, r := range rows {
			w = max(w, len(r[i])+1)
		}
		tcols = append(tcols, table.Column{Title: c, Width: min(w, maxColW)})
	}
	trows := make([]table.Row, 0, len(rows))
	for i, r := range rows {
		trows = append(trows, table.Row(append([]string{strconv.Itoa(i + 1)}, r...)))
	}
	// clear rows first so columns and rows never disagree mid-update
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(tcols)
	m.tbl.SetRows(trows)
	m.tbl.SetCursor(m.selected)
}

// buildAttributes returns one row per boundary: curtain stats followed by
// the union of feature property keys, sorted.
func (m Model) buildAttributes() ([]string, [][]string) {
	var keys []string
	seen := map[string]bool{}
	for _, b := range m.boundaries {
		for k := range b.Properties {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	cols := append(append([]string{}, statColumns...), keys...)
	rows := make([][]string, 0, len(m.boundaries))
	for _, b := range m.boundaries {
		row := m.statRow(b)
		for _, k := range keys {
			row = append(row, propString(b.Properties[k]))
		}
		rows = append(rows, row)
	}
	return cols, rows
}

func (m Model) statRow(b geom.Boundary) []string {
	row := []string{b.ID, b.Kind, strconv.Itoa(len(b.Path))}
	c, ok := m.curtains[b.ID]
	if !ok {
		state := "pending"
		if !m.building {
			state = "-"
		}
		return append(row, "", "", "", state)
	}
	return append(row,
		meters(c.BottomZ),
		meters(c.TopZ),
		humanize.Comma(int64(c.Mesh.TriangleCount())),
		curtainState(c, m.failed[b.ID]),
	)
}

func curtainState(c curtain.Curtain, err error) string {
	switch {
	case err != nil:
		return "degenerate"
	case c.Base.Fallback:
		return "fallback"
	}
	return "ok"
}

func propString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case bool:
		return strconv.FormatBool(t)
	default:
		bs, _ := json.Marshal(t)
		return string(bs)
	}
}
