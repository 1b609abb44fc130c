package curtain

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"geocurtain/internal/geom"
)

// CurtainDoc is the wire form of one curtain: renderer-ready flat buffers
// plus the frame it lives in.
type CurtainDoc struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind,omitempty"`
	Closed    bool          `json:"closed"`
	Anchor    geom.GeoPoint `json:"anchor"`
	Placement Placement     `json:"placement"`
	SafeBase  float64       `json:"safe_base"`
	Fallback  bool          `json:"fallback"`
	Reason    string        `json:"reason,omitempty"`
	TopZ      float64       `json:"top_z"`
	BottomZ   float64       `json:"bottom_z"`
	Vertices  []float32     `json:"vertices"`
	Indices   []uint32      `json:"indices"`
	Error     string        `json:"error,omitempty"`
}

// Document is what the build command writes and the HTTP API returns.
type Document struct {
	Curtains    []CurtainDoc `json:"curtains"`
	Diagnostics []string     `json:"diagnostics"`
}

func NewCurtainDoc(c Curtain) CurtainDoc {
	return CurtainDoc{
		ID:        c.ID,
		Kind:      c.Kind,
		Closed:    c.Closed,
		Anchor:    c.Frame.Anchor,
		Placement: c.Placement,
		SafeBase:  c.Base.Elevation,
		Fallback:  c.Base.Fallback,
		Reason:    c.Base.Reason,
		TopZ:      c.TopZ,
		BottomZ:   c.BottomZ,
		Vertices:  c.Mesh.FlatVertices(),
		Indices:   c.Mesh.FlatIndices(),
	}
}

// NewDocument collects batch results. Superseded results are left out;
// other failures are kept with their error so callers see every boundary.
func NewDocument(results []Result, diagnostics []string) Document {
	doc := Document{Curtains: []CurtainDoc{}, Diagnostics: diagnostics}
	if doc.Diagnostics == nil {
		doc.Diagnostics = []string{}
	}
	for _, r := range results {
		if isSuperseded(r.Err) {
			continue
		}
		d := NewCurtainDoc(r.Curtain)
		d.ID = r.ID
		if r.Err != nil {
			d.Error = r.Err.Error()
		}
		doc.Curtains = append(doc.Curtains, d)
	}
	return doc
}

func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteOBJ writes curtains as Wavefront OBJ, one object per curtain.
// Positions are local meters (x east, y north, z up); the anchor of each
// object is written as a comment.
func WriteOBJ(w io.Writer, curtains []Curtain) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# geocurtain")
	offset := uint32(1)
	for _, c := range curtains {
		if c.Mesh.Empty() {
			continue
		}
		fmt.Fprintf(bw, "o %s\n", objName(c.ID))
		fmt.Fprintf(bw, "# anchor %s %s safe_base %s\n", ff(c.Frame.Anchor.Lng), ff(c.Frame.Anchor.Lat), ff(c.Base.Elevation))
		for _, v := range c.Mesh.Vertices {
			fmt.Fprintf(bw, "v %s %s %s\n", ff(v[0]), ff(v[1]), ff(v[2]))
		}
		for _, t := range c.Mesh.Indices {
			fmt.Fprintf(bw, "f %d %d %d\n", t[0]+offset, t[1]+offset, t[2]+offset)
		}
		offset += uint32(len(c.Mesh.Vertices))
	}
	return bw.Flush()
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func objName(id string) string {
	if id == "" {
		return "curtain"
	}
	b := []byte(id)
	for i, c := range b {
		if c == ' ' || c == '\t' {
			b[i] = '_'
		}
	}
	return string(b)
}
