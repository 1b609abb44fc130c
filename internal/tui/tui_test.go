package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"geocurtain/internal/curtain"
	"geocurtain/internal/elevation"
	"geocurtain/internal/geom"
)

const square = "POLYGON((0 0, 0.01 0, 0.01 0.01, 0 0.01, 0 0))"

func newTestModel(t *testing.T) Model {
	t.Helper()
	svc, err := curtain.NewService(curtain.ServiceConfig{
		Oracle:  elevation.Constant(100),
		Options: curtain.DefaultOptions(),
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	m := New(Options{Service: svc})
	m.width, m.height = 100, 30
	return m
}

func loadWKT(t *testing.T, m *Model, text string) tea.Cmd {
	t.Helper()
	d, err := geom.ParseWKT(text)
	require.NoError(t, err)
	cmd := m.setDataset(d, "test")
	require.NotNil(t, cmd)
	return cmd
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestBuildFlow(t *testing.T) {
	m := newTestModel(t)
	cmd := loadWKT(t, &m, square)
	require.True(t, m.building)

	m = apply(t, m, cmd())
	require.False(t, m.building)

	c, ok := m.selectedCurtain()
	require.True(t, ok)
	require.InDelta(t, -200, c.BottomZ, 1e-9)
	require.InDelta(t, 600, c.TopZ, 1e-9)
	require.Equal(t, 8, c.Mesh.TriangleCount())
	require.Contains(t, m.status, "built 1 curtains")
}

func TestStaleBuildDropped(t *testing.T) {
	m := newTestModel(t)
	first := loadWKT(t, &m, square)
	second := m.rebuild()
	require.NotNil(t, second)

	stale := first().(buildDoneMsg)
	require.False(t, m.applyBuild(stale))
	require.Empty(t, m.curtains)
	require.True(t, m.building)

	require.True(t, m.applyBuild(second().(buildDoneMsg)))
	require.Len(t, m.curtains, 1)
	require.False(t, m.building)
}

func TestReloadDiscardsPreviousCurtains(t *testing.T) {
	m := newTestModel(t)
	cmd := loadWKT(t, &m, square)
	m = apply(t, m, cmd())
	require.Len(t, m.curtains, 1)

	cmd = loadWKT(t, &m, "LINESTRING(0 0, 0.02 0.01)")
	require.Empty(t, m.curtains)
	m = apply(t, m, cmd())
	c, ok := m.selectedCurtain()
	require.True(t, ok)
	require.False(t, c.Closed)
	require.Equal(t, 2, c.Mesh.TriangleCount())
}

func TestAttributes(t *testing.T) {
	m := newTestModel(t)
	cmd := loadWKT(t, &m, square)
	m = apply(t, m, cmd())

	cols, rows := m.buildAttributes()
	require.Equal(t, statColumns, cols[:len(statColumns)])
	require.Len(t, rows, 1)
	require.Equal(t, "4", rows[0][2])
	require.Equal(t, "ok", rows[0][6])
}

func TestProfile(t *testing.T) {
	m := newTestModel(t)
	cmd := loadWKT(t, &m, square)
	m = apply(t, m, cmd())

	p, ok := m.buildProfile()
	require.True(t, ok)
	require.InDelta(t, 4*0.01*curtain.MetersPerDegree, p.total, 10)
	require.Len(t, p.ground, 10)
	require.Less(t, p.zMin, -200.0)
	require.Greater(t, p.zMax, 600.0)

	out := m.renderProfile(40, 10)
	require.Len(t, strings.Split(out, "\n"), 10)
	require.True(t, strings.ContainsFunc(out, func(r rune) bool { return r > 0x2800 && r <= 0x28FF }))

	m.mode = profileView
	lo := m.layout()
	m.hover(lo.mapX, lo.mapY+2)
	require.True(t, m.hoverHasGeo)
	require.InDelta(t, 0, m.hoverLon, 1e-6)
	require.InDelta(t, 0, m.hoverLat, 1e-6)
	require.Contains(t, m.hoverInfo, "d=0")
}

func TestPasteWKT(t *testing.T) {
	m := newTestModel(t)
	m = apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	require.True(t, m.pasteMode)

	m.ta.SetValue(square)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.False(t, m.pasteMode)
	require.Len(t, m.boundaries, 1)
	require.NotNil(t, cmd)

	m = apply(t, m, cmd())
	require.Len(t, m.curtains, 1)
	require.Contains(t, m.View(), "geocurtain")
}

func TestPasteRejectsBadWKT(t *testing.T) {
	m := newTestModel(t)
	m.pasteMode = true
	m.ta.SetValue("POLYGON((0 0")
	m = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.pasteMode)
	require.True(t, strings.HasPrefix(m.status, "wkt error"))
}
