// Package overlay computes the minimal set of drawing operations that moves a
// map surface from its previous overlays to the ones the current focus needs.
package overlay

import (
	"sort"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/rendis/denguemap/internal/model"
)

type Kind string

const (
	KindArea    Kind = "area"
	KindPin     Kind = "pin"
	KindMarker  Kind = "marker"
	KindCluster Kind = "cluster"
)

// Stacking order; higher draws on top.
const (
	zArea         = 1
	zAreaSelected = 2
	zMarker       = 5
	zCluster      = 6
	zPin          = 10
)

// Visual is everything about an overlay that a surface has to draw. Two
// overlays with equal IDs and Visuals look the same.
type Visual struct {
	Color        model.Color
	StrokeWeight float64
	FillOpacity  float64
	ZIndex       int
	Selected     bool
	Position     orb.Point // anchor for point overlays
	Count        int       // members of a cluster
	Valid        bool      // pins only
	Label        string
}

// Overlay is one drawable element.
type Overlay struct {
	ID       string
	Kind     Kind
	Geometry orb.Geometry // immutable boundary geometry for areas, nil otherwise
	Visual   Visual
}

// Set is the overlays currently on a surface, keyed by ID.
type Set map[string]Overlay

// Diff is the change needed to move a surface from one Set to the next.
type Diff struct {
	ToAdd     []Overlay
	ToRemove  []Overlay
	ToRestyle []Overlay
	Next      Set
}

// Empty reports whether applying the diff would change nothing.
func (d Diff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToRestyle) == 0
}

// Visibility toggles which markers are drawn. Nil maps show everything.
type Visibility struct {
	Kinds    map[model.ReportKind]bool
	Statuses map[string]bool
}

func (v Visibility) shows(r model.Report) bool {
	if v.Kinds != nil && !v.Kinds[r.Kind] {
		return false
	}
	if v.Statuses != nil && !v.Statuses[r.Status] {
		return false
	}
	return true
}

// State is what the surface should show.
type State struct {
	Areas        []model.ResolvedArea   // load order
	SelectedArea *model.BoundaryFeature // at most one area is highlighted
	Pin          *model.Pin
	Markers      []model.Report
	Visibility   Visibility
}

type Options struct {
	// ClusterThreshold is the visible marker count above which markers are grouped.
	// Zero disables clustering.
	ClusterThreshold int
	// ClusterPrecision is the geohash length of a cluster cell.
	ClusterPrecision int
}

// Renderer turns a State into overlays and diffs them against the previous set.
// It holds no domain state.
type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	if opts.ClusterPrecision <= 0 {
		opts.ClusterPrecision = 7
	}
	return &Renderer{opts: opts}
}

// Render computes the diff from prev to the overlays st requires. Calling it
// again with diff.Next and the same st yields an empty diff.
func (r *Renderer) Render(prev Set, st State) Diff {
	next := r.Build(st)
	return Compute(prev, next)
}

// Build lays out the full overlay set for st.
func (r *Renderer) Build(st State) Set {
	next := make(Set, len(st.Areas)+len(st.Markers)+1)

	claimed := make(map[string]bool, len(st.Areas))
	for _, a := range st.Areas {
		if a.Boundary == nil {
			continue
		}
		// The first boundary with a key owns "area:<key>"; later ones that
		// normalize to the same name are drawn under their load position.
		id := "area:" + a.Key()
		if claimed[a.Key()] {
			id += "#" + strconv.Itoa(a.Boundary.Order)
		}
		claimed[a.Key()] = true
		o := areaOverlay(id, a, st.SelectedArea != nil && a.Boundary == st.SelectedArea)
		next[o.ID] = o
	}

	if st.Pin != nil {
		o := pinOverlay(*st.Pin)
		next[o.ID] = o
	}

	var visible []model.Report
	for _, m := range st.Markers {
		if _, ok := m.Location(); !ok || !st.Visibility.shows(m) {
			continue
		}
		visible = append(visible, m)
	}
	if r.opts.ClusterThreshold > 0 && len(visible) > r.opts.ClusterThreshold {
		for _, o := range clusterMarkers(visible, r.opts.ClusterPrecision) {
			next[o.ID] = o
		}
	} else {
		for _, m := range visible {
			o := markerOverlay(m)
			next[o.ID] = o
		}
	}
	return next
}

// Compute diffs two overlay sets. Output slices are sorted by ID.
func Compute(prev, next Set) Diff {
	d := Diff{Next: next}
	for id, o := range next {
		old, ok := prev[id]
		switch {
		case !ok:
			d.ToAdd = append(d.ToAdd, o)
		case old.Visual != o.Visual:
			d.ToRestyle = append(d.ToRestyle, o)
		}
	}
	for id, o := range prev {
		if _, ok := next[id]; !ok {
			d.ToRemove = append(d.ToRemove, o)
		}
	}
	sortByID(d.ToAdd)
	sortByID(d.ToRemove)
	sortByID(d.ToRestyle)
	return d
}

// Apply returns the set that results from applying d to prev.
func (s Set) Apply(d Diff) Set {
	out := make(Set, len(s)+len(d.ToAdd))
	for id, o := range s {
		out[id] = o
	}
	for _, o := range d.ToRemove {
		delete(out, o.ID)
	}
	for _, o := range d.ToAdd {
		out[o.ID] = o
	}
	for _, o := range d.ToRestyle {
		out[o.ID] = o
	}
	return out
}

func sortByID(os []Overlay) {
	sort.Slice(os, func(i, j int) bool { return os[i].ID < os[j].ID })
}

func areaOverlay(id string, a model.ResolvedArea, selected bool) Overlay {
	v := Visual{
		Color:        a.Style.Color,
		StrokeWeight: 1,
		FillOpacity:  0.35,
		ZIndex:       zArea,
		Label:        a.Boundary.DisplayName,
	}
	if selected {
		v.StrokeWeight = 3
		v.FillOpacity = 0.6
		v.ZIndex = zAreaSelected
		v.Selected = true
	}
	return Overlay{
		ID:       id,
		Kind:     KindArea,
		Geometry: a.Boundary.Geometry,
		Visual:   v,
	}
}

func pinOverlay(p model.Pin) Overlay {
	v := Visual{
		ZIndex:   zPin,
		Position: p.Point,
		Valid:    p.Valid,
		Color:    model.Color{Name: "black", Hex: "#111827"},
	}
	if !p.Valid {
		v.Color = model.Color{Name: "gray", Hex: "#6B7280"}
		v.Label = "outside coverage"
	} else if p.ContainingArea != nil && p.ContainingArea.Boundary != nil {
		v.Label = p.ContainingArea.Boundary.DisplayName
	}
	return Overlay{ID: "pin:" + p.ID, Kind: KindPin, Visual: v}
}

var markerColors = map[model.ReportKind]model.Color{
	model.KindReport:       {Name: "purple", Hex: "#7C3AED"},
	model.KindBreedingSite: {Name: "amber", Hex: "#F59E0B"},
	model.KindIntervention: {Name: "cyan", Hex: "#06B6D4"},
}

func markerOverlay(r model.Report) Overlay {
	p, _ := r.Location()
	c, ok := markerColors[r.Kind]
	if !ok {
		c = markerColors[model.KindReport]
	}
	return Overlay{
		ID:   "marker:" + r.ID,
		Kind: KindMarker,
		Visual: Visual{
			Color:    c,
			ZIndex:   zMarker,
			Position: p,
			Label:    string(r.Kind) + " " + r.Status,
		},
	}
}
