package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"geocurtain/internal/curtain"
	"geocurtain/internal/logging"
)

// buildDoneMsg carries the results of the build started as generation gen.
type buildDoneMsg struct {
	gen     uint64
	results []curtain.Result
}

// rebuild starts a new generation for the current boundaries and cancels
// the previous one.
func (m *Model) rebuild() tea.Cmd {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
	m.curtains = map[string]curtain.Curtain{}
	m.failed = map[string]error{}
	if m.svc == nil || len(m.boundaries) == 0 {
		m.building = false
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.building = true

	gen, svc := m.gen, m.svc
	bs := append(m.boundaries[:0:0], m.boundaries...)
	return func() tea.Msg {
		return buildDoneMsg{gen: gen, results: svc.BuildAll(ctx, bs)}
	}
}

// applyBuild stores results of the current generation and reports whether
// msg was current.
func (m *Model) applyBuild(msg buildDoneMsg) bool {
	if msg.gen != m.gen {
		m.log.Debug(context.Background(), "dropping stale curtain build",
			logging.Int("gen", int(msg.gen)), logging.Int("current", int(m.gen)))
		return false
	}
	m.building = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	var built, tris, fallback, failed int
	for _, r := range msg.results {
		if errors.Is(r.Err, curtain.ErrSuperseded) || errors.Is(r.Err, context.Canceled) {
			continue
		}
		if r.Err != nil {
			m.failed[r.ID] = r.Err
			failed++
		} else {
			built++
		}
		m.curtains[r.ID] = r.Curtain
		tris += r.Curtain.Mesh.TriangleCount()
		if r.Curtain.Base.Fallback {
			fallback++
		}
	}
	m.status = fmt.Sprintf("built %d curtains  %s triangles", built, humanize.Comma(int64(tris)))
	if fallback > 0 {
		m.status += fmt.Sprintf("  %d on deep fallback", fallback)
	}
	if failed > 0 {
		m.status += fmt.Sprintf("  %d degenerate", failed)
	}
	if m.showAttrs {
		m.refreshAttrs()
	}
	return true
}

// selectedCurtain returns the curtain of the selected boundary, if built.
func (m Model) selectedCurtain() (curtain.Curtain, bool) {
	if m.selected < 0 || m.selected >= len(m.boundaries) {
		return curtain.Curtain{}, false
	}
	c, ok := m.curtains[m.boundaries[m.selected].ID]
	return c, ok
}
