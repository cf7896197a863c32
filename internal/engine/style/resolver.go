// Package style turns boundary and classification data into display styles.
package style

import (
	"github.com/rendis/denguemap/internal/engine/geo"
	"github.com/rendis/denguemap/internal/model"
)

// Palette is the only place pattern colors are defined.
var palette = map[model.PatternType]model.Color{
	model.PatternSpike:       {Name: "red", Hex: "#EF4444"},
	model.PatternGradualRise: {Name: "orange", Hex: "#F97316"},
	model.PatternStability:   {Name: "blue", Hex: "#3B82F6"},
	model.PatternDecline:     {Name: "green", Hex: "#22C55E"},
	model.PatternNone:        {Name: "gray", Hex: "#6B7280"},
}

var labels = map[model.PatternType]string{
	model.PatternSpike:       "Spike",
	model.PatternGradualRise: "Gradual Rise",
	model.PatternStability:   "Stable",
	model.PatternDecline:     "Declining",
	model.PatternNone:        "No Pattern",
}

// ColorFor returns the palette entry for a pattern; unknown patterns are gray.
func ColorFor(p model.PatternType) model.Color {
	if c, ok := palette[p]; ok {
		return c
	}
	return palette[model.PatternNone]
}

// LabelFor returns the human label of a pattern.
func LabelFor(p model.PatternType) string {
	if l, ok := labels[p]; ok {
		return l
	}
	return labels[model.PatternNone]
}

// Legend lists the palette in severity order.
func Legend() []model.Style {
	order := []model.PatternType{
		model.PatternSpike, model.PatternGradualRise, model.PatternStability,
		model.PatternDecline, model.PatternNone,
	}
	out := make([]model.Style, 0, len(order))
	for _, p := range order {
		out = append(out, model.Style{PatternType: p, Color: ColorFor(p), Label: LabelFor(p)})
	}
	return out
}

// Resolve merges a boundary with its classification. Classification fields win,
// then hints embedded in the boundary file, then none/unknown. Either argument
// may be nil and the result depends only on the arguments.
func Resolve(b *model.BoundaryFeature, c *model.ClassificationRecord) model.Style {
	pattern := model.PatternType("")
	risk := model.RiskLevel("")

	if c != nil {
		pattern = c.PatternType
		risk = c.RiskLevel
	}
	if b != nil {
		if pattern == "" {
			pattern = b.Properties.PatternHint
		}
		if risk == "" {
			risk = b.Properties.RiskHint
		}
	}
	if _, ok := palette[pattern]; !ok {
		pattern = model.PatternNone
	}
	if risk == "" {
		risk = model.RiskUnknown
	}

	return model.Style{
		PatternType: pattern,
		RiskLevel:   risk,
		Color:       ColorFor(pattern),
		Label:       LabelFor(pattern),
	}
}

// Classifications is a classification feed keyed by normalized area name.
type Classifications map[string]*model.ClassificationRecord

// IndexClassifications keys records by normalized name. When two records share
// a key the later one wins, since feeds list newer analyses last.
func IndexClassifications(records []model.ClassificationRecord) Classifications {
	out := make(Classifications, len(records))
	for i := range records {
		rec := records[i]
		key := geo.NormalizeName(rec.Name)
		if key == "" {
			continue
		}
		out[key] = &rec
	}
	return out
}

// ResolveArea builds the ResolvedArea for one boundary.
func (cs Classifications) ResolveArea(b *model.BoundaryFeature) model.ResolvedArea {
	if b == nil {
		return model.ResolvedArea{Style: Resolve(nil, nil)}
	}
	c := cs[b.NormalizedName]
	return model.ResolvedArea{
		Boundary:       b,
		Classification: c,
		Style:          Resolve(b, c),
	}
}

// Join resolves every boundary, in the order given.
func Join(boundaries []*model.BoundaryFeature, cs Classifications) []model.ResolvedArea {
	out := make([]model.ResolvedArea, 0, len(boundaries))
	for _, b := range boundaries {
		out = append(out, cs.ResolveArea(b))
	}
	return out
}
