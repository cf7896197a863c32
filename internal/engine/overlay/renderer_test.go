package overlay

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"

	"github.com/rendis/denguemap/internal/engine/geo"
	"github.com/rendis/denguemap/internal/engine/style"
	"github.com/rendis/denguemap/internal/model"
)

func areas(t *testing.T) []model.ResolvedArea {
	t.Helper()
	idx, _, err := geo.LoadEmbedded(nil)
	if err != nil {
		t.Fatalf("loading boundaries: %v", err)
	}
	cs := style.IndexClassifications([]model.ClassificationRecord{
		{Name: "Commonwealth", PatternType: model.PatternSpike},
	})
	return style.Join(idx.Features(), cs)
}

func boundary(all []model.ResolvedArea, key string) *model.BoundaryFeature {
	for _, a := range all {
		if a.Key() == key {
			return a.Boundary
		}
	}
	return nil
}

func selectedCount(s Set) int {
	n := 0
	for _, o := range s {
		if o.Kind == KindArea && o.Visual.Selected {
			n++
		}
	}
	return n
}

func TestRenderIsIdempotent(t *testing.T) {
	r := NewRenderer(Options{})
	all := areas(t)
	st := State{
		Areas:        all,
		SelectedArea: boundary(all, "commonwealth"),
		Pin:          &model.Pin{ID: "p1", Point: orb.Point{121.06, 14.73}, Valid: true},
		Markers: []model.Report{
			{ID: "r1", Kind: model.KindReport, Status: "open", Lat: 14.70, Lng: 121.08},
		},
	}

	first := r.Render(nil, st)
	if len(first.ToAdd) != 11 || len(first.ToRemove) != 0 || len(first.ToRestyle) != 0 {
		t.Fatalf("first render: add=%d remove=%d restyle=%d", len(first.ToAdd), len(first.ToRemove), len(first.ToRestyle))
	}

	second := r.Render(first.Next, st)
	if !second.Empty() {
		t.Fatalf("second render not empty: %+v", second)
	}
}

func TestSingleSelectedHighlight(t *testing.T) {
	r := NewRenderer(Options{})
	all := areas(t)

	d := r.Render(nil, State{Areas: all, SelectedArea: boundary(all, "commonwealth")})
	if got := selectedCount(d.Next); got != 1 {
		t.Fatalf("selected areas = %d, want 1", got)
	}
	sel := d.Next["area:commonwealth"]
	if sel.Visual.ZIndex <= d.Next["area:payatas"].Visual.ZIndex {
		t.Errorf("selected z-index %d not above unselected", sel.Visual.ZIndex)
	}
	if sel.Visual.StrokeWeight <= d.Next["area:payatas"].Visual.StrokeWeight {
		t.Errorf("selected stroke not thicker")
	}

	d2 := r.Render(d.Next, State{Areas: all, SelectedArea: boundary(all, "holy spirit")})
	if len(d2.ToAdd) != 0 || len(d2.ToRemove) != 0 {
		t.Fatalf("moving selection should only restyle: %+v", d2)
	}
	if len(d2.ToRestyle) != 2 {
		t.Fatalf("restyled %d overlays, want 2", len(d2.ToRestyle))
	}
	if d2.ToRestyle[0].ID != "area:commonwealth" || d2.ToRestyle[1].ID != "area:holy spirit" {
		t.Errorf("restyle order = %s, %s", d2.ToRestyle[0].ID, d2.ToRestyle[1].ID)
	}
	if got := selectedCount(d2.Next); got != 1 {
		t.Fatalf("selected areas after move = %d, want 1", got)
	}
}

const collidingNames = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"name":"Alpha"},
   "geometry":{"type":"Polygon","coordinates":[[[10,10],[11,10],[11,11],[10,11],[10,10]]]}},
  {"type":"Feature","properties":{"name":"Barangay Alpha"},
   "geometry":{"type":"Polygon","coordinates":[[[4,4],[5,4],[5,5],[4,5],[4,4]]]}}]}`

func TestCollidingNamesKeepBothAreas(t *testing.T) {
	idx, _, err := geo.Load([]byte(collidingNames), nil)
	if err != nil {
		t.Fatalf("loading boundaries: %v", err)
	}
	all := style.Join(idx.Features(), style.Classifications{})
	first := idx.ByName("alpha")
	dup := idx.LocateLatLng(4.5, 4.5)
	if first == nil || dup == nil || first == dup {
		t.Fatalf("fixture: first=%v dup=%v", first, dup)
	}

	r := NewRenderer(Options{})
	d := r.Render(nil, State{Areas: all, SelectedArea: first})
	if len(d.Next) != 2 {
		t.Fatalf("got %d area overlays, want 2", len(d.Next))
	}
	owner, ok := d.Next["area:alpha"]
	if !ok {
		t.Fatalf("no overlay for the first-loaded boundary: %v", d.Next)
	}
	want := orb.Bound{Min: orb.Point{10, 10}, Max: orb.Point{11, 11}}
	if got := owner.Geometry.Bound(); got != want {
		t.Errorf("area:alpha drawn at %v, want %v", got, want)
	}
	if !owner.Visual.Selected || selectedCount(d.Next) != 1 {
		t.Errorf("selection should highlight only the first-loaded boundary")
	}

	d2 := r.Render(d.Next, State{Areas: all, SelectedArea: dup})
	if len(d2.ToAdd) != 0 || len(d2.ToRemove) != 0 || len(d2.ToRestyle) != 2 {
		t.Fatalf("moving selection to the duplicate: %+v", d2)
	}
	if d2.Next["area:alpha"].Visual.Selected || selectedCount(d2.Next) != 1 {
		t.Errorf("duplicate selection highlighted the wrong area")
	}
}

func TestAreaColorsFollowStyle(t *testing.T) {
	d := NewRenderer(Options{}).Render(nil, State{Areas: areas(t)})
	if got := d.Next["area:commonwealth"].Visual.Color.Hex; got != "#EF4444" {
		t.Errorf("commonwealth color = %s, want red", got)
	}
	if got := d.Next["area:payatas"].Visual.Color.Hex; got != "#F97316" {
		t.Errorf("payatas color = %s, want orange from boundary hint", got)
	}
	if got := d.Next["area:tandang sora"].Visual.Color.Hex; got != "#6B7280" {
		t.Errorf("tandang sora color = %s, want gray", got)
	}
}

func TestPinMoveRestylesSameOverlay(t *testing.T) {
	r := NewRenderer(Options{})
	pin := model.Pin{ID: "p1", Point: orb.Point{121.06, 14.73}, Valid: true}
	d := r.Render(nil, State{Pin: &pin})

	pin.Point = orb.Point{121.09, 14.70}
	d2 := r.Render(d.Next, State{Pin: &pin})
	if len(d2.ToRestyle) != 1 || d2.ToRestyle[0].ID != "pin:p1" {
		t.Fatalf("pin move diff = %+v", d2)
	}

	d3 := r.Render(d2.Next, State{})
	if len(d3.ToRemove) != 1 || d3.ToRemove[0].Kind != KindPin {
		t.Fatalf("pin clear diff = %+v", d3)
	}
}

func TestInvalidPinIsMarked(t *testing.T) {
	pin := model.Pin{ID: "p1", Point: orb.Point{120.0, 14.0}}
	d := NewRenderer(Options{}).Render(nil, State{Pin: &pin})
	o := d.Next["pin:p1"]
	if o.Visual.Valid || o.Visual.Label != "outside coverage" {
		t.Fatalf("invalid pin overlay = %+v", o.Visual)
	}
}

func TestMarkerVisibility(t *testing.T) {
	markers := []model.Report{
		{ID: "a", Kind: model.KindReport, Status: "open", Lat: 14.70, Lng: 121.08},
		{ID: "b", Kind: model.KindBreedingSite, Status: "open", Lat: 14.71, Lng: 121.08},
		{ID: "c", Kind: model.KindIntervention, Status: "done", Lat: 14.72, Lng: 121.08},
		{ID: "bad", Kind: model.KindReport, Status: "open"},
	}
	r := NewRenderer(Options{})

	tests := []struct {
		name string
		vis  Visibility
		want []string
	}{
		{"all", Visibility{}, []string{"a", "b", "c"}},
		{"kinds", Visibility{Kinds: map[model.ReportKind]bool{model.KindBreedingSite: true}}, []string{"b"}},
		{"statuses", Visibility{Statuses: map[string]bool{"open": true}}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Render(nil, State{Markers: markers, Visibility: tt.vis})
			if len(d.ToAdd) != len(tt.want) {
				t.Fatalf("got %d markers, want %d", len(d.ToAdd), len(tt.want))
			}
			for i, id := range tt.want {
				if d.ToAdd[i].ID != "marker:"+id {
					t.Errorf("marker %d = %s, want %s", i, d.ToAdd[i].ID, id)
				}
			}
		})
	}
}

func TestClusteringAboveThreshold(t *testing.T) {
	var markers []model.Report
	for i := 0; i < 5; i++ {
		markers = append(markers, model.Report{
			ID: fmt.Sprintf("near-%d", i), Kind: model.KindReport,
			Lat: 14.700001 + float64(i)*1e-6, Lng: 121.080001,
		})
	}
	markers = append(markers, model.Report{ID: "far", Kind: model.KindReport, Lat: 14.66, Lng: 121.02})

	r := NewRenderer(Options{ClusterThreshold: 3, ClusterPrecision: 6})
	d := r.Render(nil, State{Markers: markers})
	if len(d.Next) != 2 {
		t.Fatalf("got %d overlays, want one cluster and one marker: %+v", len(d.Next), d.Next)
	}
	var cluster Overlay
	for _, o := range d.Next {
		if o.Kind == KindCluster {
			cluster = o
		}
	}
	if cluster.Visual.Count != 5 {
		t.Fatalf("cluster count = %d, want 5", cluster.Visual.Count)
	}
	if _, ok := d.Next["marker:far"]; !ok {
		t.Errorf("lone marker should stay unclustered")
	}

	below := NewRenderer(Options{ClusterThreshold: 10}).Render(nil, State{Markers: markers})
	if len(below.Next) != 6 {
		t.Errorf("below threshold got %d overlays, want 6", len(below.Next))
	}
}

func TestApplyMatchesNext(t *testing.T) {
	r := NewRenderer(Options{})
	all := areas(t)
	d1 := r.Render(nil, State{Areas: all, SelectedArea: boundary(all, "commonwealth")})
	d2 := r.Render(d1.Next, State{Areas: all[:3]})

	got := d1.Next.Apply(d2)
	if len(got) != len(d2.Next) {
		t.Fatalf("applied set has %d overlays, want %d", len(got), len(d2.Next))
	}
	for id, o := range d2.Next {
		if got[id].Visual != o.Visual {
			t.Errorf("%s differs after apply", id)
		}
	}
}
