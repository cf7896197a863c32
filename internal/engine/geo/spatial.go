package geo

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/rendis/denguemap/internal/model"
)

// rtreego treats touching rectangles as disjoint, so bounds are padded to keep
// points on a polygon's bounding edge in the candidate set.
const boundPad = 1e-9

// boundarySpatial adapts a BoundaryFeature to rtreego.Spatial.
type boundarySpatial struct {
	feature *model.BoundaryFeature
	rect    rtreego.Rect
}

func (b *boundarySpatial) Bounds() rtreego.Rect {
	return b.rect
}

func newBoundarySpatial(f *model.BoundaryFeature) (*boundarySpatial, error) {
	rect, err := rtreego.NewRect(
		rtreego.Point{f.Bound.Min.Lon() - boundPad, f.Bound.Min.Lat() - boundPad},
		[]float64{
			f.Bound.Max.Lon() - f.Bound.Min.Lon() + 2*boundPad,
			f.Bound.Max.Lat() - f.Bound.Min.Lat() + 2*boundPad,
		},
	)
	if err != nil {
		return nil, err
	}
	return &boundarySpatial{feature: f, rect: rect}, nil
}

// candidateIndex narrows point queries to boundaries whose bounds contain the point.
type candidateIndex struct {
	tree *rtreego.Rtree
}

func newCandidateIndex(features []*model.BoundaryFeature) (*candidateIndex, error) {
	tree := rtreego.NewTree(2, 25, 50)
	for _, f := range features {
		s, err := newBoundarySpatial(f)
		if err != nil {
			return nil, err
		}
		tree.Insert(s)
	}
	return &candidateIndex{tree: tree}, nil
}

// candidates returns the boundaries whose bounds may contain p, in load order.
func (ci *candidateIndex) candidates(p orb.Point) []*model.BoundaryFeature {
	query, err := rtreego.NewRect(
		rtreego.Point{p.Lon() - boundPad/2, p.Lat() - boundPad/2},
		[]float64{boundPad, boundPad},
	)
	if err != nil {
		return nil
	}

	hits := ci.tree.SearchIntersect(query)
	out := make([]*model.BoundaryFeature, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*boundarySpatial).feature)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}
