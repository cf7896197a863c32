package style

import (
	"testing"

	"github.com/rendis/denguemap/internal/model"
)

func boundary(name string, hint model.PatternType) *model.BoundaryFeature {
	return &model.BoundaryFeature{
		Name:           name,
		NormalizedName: name,
		Properties:     model.BoundaryProperties{Name: name, PatternHint: hint},
	}
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name        string
		b           *model.BoundaryFeature
		c           *model.ClassificationRecord
		wantPattern model.PatternType
		wantRisk    model.RiskLevel
		wantColor   string
	}{
		{
			name:        "classification wins over hint",
			b:           boundary("commonwealth", model.PatternDecline),
			c:           &model.ClassificationRecord{Name: "commonwealth", PatternType: model.PatternSpike, RiskLevel: model.RiskHigh},
			wantPattern: model.PatternSpike,
			wantRisk:    model.RiskHigh,
			wantColor:   "red",
		},
		{
			name:        "hint used when classification has no pattern",
			b:           boundary("payatas", model.PatternGradualRise),
			c:           &model.ClassificationRecord{Name: "payatas", RiskLevel: model.RiskMedium},
			wantPattern: model.PatternGradualRise,
			wantRisk:    model.RiskMedium,
			wantColor:   "orange",
		},
		{
			name:        "hint used when classification missing",
			b:           boundary("holy spirit", model.PatternStability),
			wantPattern: model.PatternStability,
			wantRisk:    model.RiskUnknown,
			wantColor:   "blue",
		},
		{
			name:        "nothing known",
			b:           boundary("bahay toro", ""),
			wantPattern: model.PatternNone,
			wantRisk:    model.RiskUnknown,
			wantColor:   "gray",
		},
		{
			name:        "no boundary",
			c:           &model.ClassificationRecord{PatternType: model.PatternDecline, RiskLevel: model.RiskLow},
			wantPattern: model.PatternDecline,
			wantRisk:    model.RiskLow,
			wantColor:   "green",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.b, tt.c)
			if got.PatternType != tt.wantPattern {
				t.Errorf("pattern = %q, want %q", got.PatternType, tt.wantPattern)
			}
			if got.RiskLevel != tt.wantRisk {
				t.Errorf("risk = %q, want %q", got.RiskLevel, tt.wantRisk)
			}
			if got.Color.Name != tt.wantColor {
				t.Errorf("color = %q, want %q", got.Color.Name, tt.wantColor)
			}
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	b := boundary("commonwealth", "")
	c := &model.ClassificationRecord{PatternType: model.PatternSpike, RiskLevel: model.RiskHigh}
	if Resolve(b, c) != Resolve(b, c) {
		t.Fatal("Resolve returned different styles for identical input")
	}
}

func TestLateClassificationJoin(t *testing.T) {
	bs := []*model.BoundaryFeature{boundary("commonwealth", ""), boundary("fairview", "")}

	before := Join(bs, nil)
	if before[0].Style.Color.Name != "gray" {
		t.Fatalf("before feed: color = %q, want gray", before[0].Style.Color.Name)
	}

	cs := IndexClassifications([]model.ClassificationRecord{
		{Name: "Barangay Commonwealth", PatternType: model.PatternSpike, RiskLevel: model.RiskHigh},
		{Name: "unknown place", PatternType: model.PatternDecline},
	})
	after := Join(bs, cs)
	if after[0].Style.Color.Name != "red" || after[0].Classification == nil {
		t.Errorf("after feed: commonwealth = %+v, want red with classification", after[0])
	}
	if after[1].Classification != nil || after[1].Style.PatternType != model.PatternNone {
		t.Errorf("after feed: fairview = %+v, want unresolved none", after[1])
	}
}

func TestIndexClassificationsLaterWins(t *testing.T) {
	cs := IndexClassifications([]model.ClassificationRecord{
		{Name: "Fairview", PatternType: model.PatternSpike},
		{Name: "fairview", PatternType: model.PatternDecline},
	})
	if got := cs["fairview"].PatternType; got != model.PatternDecline {
		t.Errorf("pattern = %q, want decline", got)
	}
}

func TestLegendMatchesColorFor(t *testing.T) {
	for _, entry := range Legend() {
		if entry.Color != ColorFor(entry.PatternType) {
			t.Errorf("legend color for %q diverges from palette", entry.PatternType)
		}
	}
	if ColorFor("bogus").Name != "gray" {
		t.Error("unknown pattern should be gray")
	}
}
