package geo

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/rendis/denguemap/internal/model"
)

//go:embed geodata/qc_barangays.geojson
var barangaysFS embed.FS

// SkippedFeature records a dataset entry that could not be indexed.
type SkippedFeature struct {
	Position int
	Name     string
	Err      error
}

// LoadReport summarizes a dataset load.
type LoadReport struct {
	Loaded     int
	Skipped    []SkippedFeature
	Collisions []string // normalized keys claimed by more than one feature
}

// Err joins the per-feature problems, or returns nil for a clean load.
func (r LoadReport) Err() error {
	var errs []error
	for _, s := range r.Skipped {
		errs = append(errs, fmt.Errorf("feature %d (%q): %w", s.Position, s.Name, s.Err))
	}
	for _, key := range r.Collisions {
		errs = append(errs, fmt.Errorf("%q: %w", key, model.ErrNameCollision))
	}
	return errors.Join(errs...)
}

// BoundaryIndex answers point-in-polygon and name queries over a boundary dataset.
// It is read-only once built.
type BoundaryIndex struct {
	features []*model.BoundaryFeature // load order
	byKey    map[string]*model.BoundaryFeature
	spatial  *candidateIndex
	bound    orb.Bound
}

// LoadEmbedded builds an index from the bundled Quezon City dataset.
func LoadEmbedded(logger *slog.Logger) (*BoundaryIndex, LoadReport, error) {
	data, err := barangaysFS.ReadFile("geodata/qc_barangays.geojson")
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("reading embedded geojson: %w", err)
	}
	return Load(data, logger)
}

// Load parses a GeoJSON FeatureCollection. Features without a name or a valid
// Polygon/MultiPolygon geometry are skipped and reported; only a document that
// is not a FeatureCollection at all fails the load.
func Load(data []byte, logger *slog.Logger) (*BoundaryIndex, LoadReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Decode features one by one so a single bad geometry does not sink the collection.
	var raw struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, LoadReport{}, fmt.Errorf("parsing geojson: %w", err)
	}
	if raw.Type != "FeatureCollection" {
		return nil, LoadReport{}, fmt.Errorf("parsing geojson: type %q is not a FeatureCollection: %w", raw.Type, model.ErrMalformedBoundary)
	}

	idx := &BoundaryIndex{
		byKey: make(map[string]*model.BoundaryFeature),
	}
	var report LoadReport

	for i, msg := range raw.Features {
		f, err := geojson.UnmarshalFeature(msg)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedFeature{Position: i, Err: fmt.Errorf("%w: %v", model.ErrMalformedBoundary, err)})
			logger.Warn("boundary skipped", "position", i, "err", err)
			continue
		}

		bf, err := newBoundaryFeature(f, len(idx.features))
		if err != nil {
			name := propString(f.Properties, "name")
			report.Skipped = append(report.Skipped, SkippedFeature{Position: i, Name: name, Err: err})
			logger.Warn("boundary skipped", "position", i, "name", name, "err", err)
			continue
		}

		if prev, ok := idx.byKey[bf.NormalizedName]; ok {
			// First loaded keeps the key; the duplicate stays locatable by point.
			report.Collisions = append(report.Collisions, bf.NormalizedName)
			logger.Warn("boundary name collision",
				"key", bf.NormalizedName, "kept", prev.Name, "duplicate", bf.Name)
		} else {
			idx.byKey[bf.NormalizedName] = bf
		}

		if len(idx.features) == 0 {
			idx.bound = bf.Bound
		} else {
			idx.bound = idx.bound.Union(bf.Bound)
		}
		idx.features = append(idx.features, bf)
	}

	spatial, err := newCandidateIndex(idx.features)
	if err != nil {
		return nil, report, fmt.Errorf("building spatial index: %w", err)
	}
	idx.spatial = spatial
	report.Loaded = len(idx.features)

	logger.Info("boundaries loaded",
		"loaded", report.Loaded, "skipped", len(report.Skipped), "collisions", len(report.Collisions))
	return idx, report, nil
}

func newBoundaryFeature(f *geojson.Feature, order int) (*model.BoundaryFeature, error) {
	name := strings.TrimSpace(propString(f.Properties, "name"))
	if name == "" {
		return nil, fmt.Errorf("%w: missing name", model.ErrMalformedBoundary)
	}
	key := NormalizeName(name)
	if key == "" {
		return nil, fmt.Errorf("%w: name %q normalizes to nothing", model.ErrMalformedBoundary, name)
	}

	var mp orb.MultiPolygon
	switch g := f.Geometry.(type) {
	case orb.MultiPolygon:
		mp = g
	case orb.Polygon:
		mp = orb.MultiPolygon{g}
	case nil:
		return nil, fmt.Errorf("%w: missing geometry", model.ErrMalformedBoundary)
	default:
		return nil, fmt.Errorf("%w: unexpected geometry type %T", model.ErrMalformedBoundary, g)
	}

	mp, err := validMultiPolygon(mp)
	if err != nil {
		return nil, err
	}

	props := model.BoundaryProperties{
		Name:        name,
		District:    propString(f.Properties, "district"),
		City:        propString(f.Properties, "city"),
		PatternHint: model.ParsePatternType(firstString(f.Properties, "pattern", "status")),
		RiskHint:    model.ParseRiskLevel(firstString(f.Properties, "risk_level", "risk")),
	}

	display := propString(f.Properties, "display_name")
	if display == "" {
		display = displayName(name)
	}

	return &model.BoundaryFeature{
		Name:           name,
		NormalizedName: key,
		DisplayName:    display,
		Geometry:       mp,
		Bound:          mp.Bound(),
		Properties:     props,
		Order:          order,
	}, nil
}

// validMultiPolygon checks every outer ring and closes rings left open by the producer.
func validMultiPolygon(mp orb.MultiPolygon) (orb.MultiPolygon, error) {
	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: empty geometry", model.ErrMalformedBoundary)
	}
	out := make(orb.MultiPolygon, 0, len(mp))
	for _, poly := range mp {
		if len(poly) == 0 {
			return nil, fmt.Errorf("%w: polygon without rings", model.ErrMalformedBoundary)
		}
		fixed := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			for _, p := range ring {
				if !model.CoordinatesInRange(p.Lat(), p.Lon()) {
					return nil, fmt.Errorf("%w: coordinate %v out of range", model.ErrMalformedBoundary, p)
				}
			}
			if len(ring) > 0 && !ring.Closed() {
				ring = append(ring[:len(ring):len(ring)], ring[0])
			}
			if len(ring) < 4 {
				return nil, fmt.Errorf("%w: ring with %d points", model.ErrMalformedBoundary, len(ring))
			}
			fixed = append(fixed, ring)
		}
		out = append(out, fixed)
	}
	return out, nil
}

// propString reads a string property; non-string values count as absent.
func propString(props geojson.Properties, key string) string {
	v, _ := props[key].(string)
	return v
}

func firstString(props geojson.Properties, keys ...string) string {
	for _, k := range keys {
		if v := propString(props, k); v != "" {
			return v
		}
	}
	return ""
}

// displayName drops a "Barangay" prefix but keeps the original casing.
func displayName(name string) string {
	words := strings.Fields(name)
	if len(words) > 1 && namePrefixes[strings.TrimSuffix(strings.ToLower(words[0]), ".")] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// Locate returns the boundary containing p ([lng, lat]), or nil. Points on an
// edge shared by two boundaries resolve to the one loaded first.
func (bi *BoundaryIndex) Locate(p orb.Point) *model.BoundaryFeature {
	if bi == nil || bi.spatial == nil {
		return nil
	}
	for _, f := range bi.spatial.candidates(p) {
		if planar.MultiPolygonContains(f.Geometry, p) {
			return f
		}
	}
	return nil
}

// LocateLatLng is Locate for callers holding lat/lng separately.
func (bi *BoundaryIndex) LocateLatLng(lat, lng float64) *model.BoundaryFeature {
	return bi.Locate(orb.Point{lng, lat})
}

// ByName looks a boundary up by any spelling that normalizes to its key.
func (bi *BoundaryIndex) ByName(name string) *model.BoundaryFeature {
	if bi == nil {
		return nil
	}
	return bi.byKey[NormalizeName(name)]
}

// Centroid returns the area-weighted centroid of a boundary, falling back to
// the bound center for degenerate geometry.
func (bi *BoundaryIndex) Centroid(f *model.BoundaryFeature) orb.Point {
	if f == nil {
		return orb.Point{}
	}
	c, area := planar.CentroidArea(f.Geometry)
	if area == 0 {
		return f.Bound.Center()
	}
	return c
}

// Features returns the indexed boundaries in load order.
func (bi *BoundaryIndex) Features() []*model.BoundaryFeature {
	if bi == nil {
		return nil
	}
	return bi.features
}

func (bi *BoundaryIndex) Len() int {
	if bi == nil {
		return 0
	}
	return len(bi.features)
}

// Bound covers the whole operational region.
func (bi *BoundaryIndex) Bound() orb.Bound {
	if bi == nil {
		return orb.Bound{}
	}
	return bi.bound
}

// Names returns display names sorted alphabetically, for dropdowns.
func (bi *BoundaryIndex) Names() []string {
	if bi == nil {
		return nil
	}
	names := make([]string, 0, len(bi.byKey))
	for _, f := range bi.byKey {
		names = append(names, f.DisplayName)
	}
	sort.Strings(names)
	return names
}

// Search returns up to limit boundaries matching a free-text query. Prefix
// matches on the normalized key rank before substring matches.
func (bi *BoundaryIndex) Search(query string, limit int) []*model.BoundaryFeature {
	q := NormalizeName(query)
	if bi == nil || q == "" {
		return nil
	}

	var prefix, contains []*model.BoundaryFeature
	for _, f := range bi.features {
		if bi.byKey[f.NormalizedName] != f {
			continue
		}
		switch {
		case strings.HasPrefix(f.NormalizedName, q):
			prefix = append(prefix, f)
		case strings.Contains(f.NormalizedName, q):
			contains = append(contains, f)
		}
	}
	byName := func(s []*model.BoundaryFeature) {
		sort.SliceStable(s, func(i, j int) bool {
			return s[i].NormalizedName < s[j].NormalizedName
		})
	}
	byName(prefix)
	byName(contains)

	out := append(prefix, contains...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
