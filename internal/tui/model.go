package tui

import (
	"context"
	"os"

	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"geocurtain/internal/curtain"
	"geocurtain/internal/geom"
	"geocurtain/internal/logging"
)

type viewMode int

const (
	planView viewMode = iota
	profileView
)

// Options wires the viewer to a curtain service.
type Options struct {
	Service *curtain.Service
	Policy  geom.ExtractPolicy
	Log     logging.Logger
}

type Model struct {
	width  int
	height int

	showSidebar bool
	helpVisible bool
	mode        viewMode

	zoom    float64
	offsetX int
	offsetY int

	status string

	// File explorer
	cwd     string
	l       list.Model
	items   []list.Item
	selPath string

	// Data
	data       geom.Dataset
	boundaries []geom.Boundary
	bbox       geom.BBox
	selected   int

	// Curtains, keyed by boundary ID. gen identifies the build whose
	// results may be applied; anything older is dropped.
	svc      *curtain.Service
	policy   geom.ExtractPolicy
	log      logging.Logger
	curtains map[string]curtain.Curtain
	failed   map[string]error
	gen      uint64
	building bool
	cancel   context.CancelFunc
	pending  tea.Cmd

	// last rendered map size (for inspect)
	mapW int
	mapH int

	// paste mode
	pasteMode bool
	ta        textarea.Model

	// layer visibility
	showBoundaries bool
	showMarkers    bool
	showSamples    bool

	// inspect popup
	inspectPopup string

	// hover state
	hovering    bool
	hoverMicX   int
	hoverMicY   int
	hoverHasGeo bool
	hoverLon    float64
	hoverLat    float64
	hoverInfo   string

	// attributes table
	showAttrs bool
	tbl       table.Model
}

func New(opts Options) Model {
	log := opts.Log
	if log == nil {
		log = logging.Noop()
	}
	m := Model{
		helpVisible:    true,
		zoom:           1.0,
		status:         "geocurtain ready",
		svc:            opts.Service,
		policy:         opts.Policy,
		log:            log,
		curtains:       map[string]curtain.Curtain{},
		failed:         map[string]error{},
		showBoundaries: true,
		showMarkers:    true,
		showSamples:    true,
	}
	m.cwd, _ = os.Getwd()
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Boundary files"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(true)

	m.ta = textarea.New()
	m.ta.Placeholder = "Paste WKT (LINESTRING, POLYGON, MULTI*). Enter builds curtains; Esc cancels."
	m.ta.CharLimit = 0
	m.ta.SetWidth(50)
	m.ta.SetHeight(6)

	m.tbl = table.New(table.WithFocused(true))
	m.tbl.SetHeight(12)
	m.refreshDir()
	return m
}

// NewWithPath preloads a boundary file; its curtains are built once the
// program starts.
func NewWithPath(opts Options, path string) Model {
	m := New(opts)
	m.pending = m.loadPath(path)
	return m
}

func (m Model) Init() tea.Cmd { return m.pending }
