package geo

import (
	"math"

	"github.com/paulmach/orb"
	. "gopkg.in/check.v1"

	"github.com/rendis/denguemap/internal/model"
)

type ProximitySuite struct{}

var _ = Suite(&ProximitySuite{})

func (s *ProximitySuite) TestDistanceIdentityAndSymmetry(c *C) {
	pts := []orb.Point{
		{121.08, 14.70},
		{121.02, 14.65},
		{-3.7038, 40.4168},
		{151.20, -33.86},
	}
	for _, a := range pts {
		c.Assert(DistanceMeters(a, a), Equals, 0.0)
		for _, b := range pts {
			c.Assert(DistanceMeters(a, b), Equals, DistanceMeters(b, a))
		}
	}
}

func (s *ProximitySuite) TestDistanceKnownValue(c *C) {
	// one degree of latitude is ~111.19 km on a 6371 km sphere
	d := DistanceMeters(orb.Point{121.0, 14.0}, orb.Point{121.0, 15.0})
	c.Assert(math.Abs(d-111195) < 50, Equals, true, Commentf("got %f", d))
}

func (s *ProximitySuite) reports() []model.Report {
	return []model.Report{
		{ID: "far", Lat: 14.80, Lng: 121.08},
		{ID: "b", Lat: 14.701, Lng: 121.08},
		{ID: "a", Lat: 14.701, Lng: 121.08},
		{ID: "near", Lat: 14.7001, Lng: 121.08},
		{ID: "null-island", Lat: 0, Lng: 0},
		{ID: "nan", Lat: math.NaN(), Lng: 121.0},
		{ID: "mid", Lat: 14.705, Lng: 121.08},
	}
}

func (s *ProximitySuite) TestNearestSortedAndBounded(c *C) {
	ref := orb.Point{121.08, 14.70}
	got := Nearest(ref, s.reports(), NearestOptions{RadiusMeters: 1000})

	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.Item.ID
		c.Assert(r.DistanceMeters <= 1000, Equals, true)
		if i > 0 {
			c.Assert(got[i-1].DistanceMeters <= r.DistanceMeters, Equals, true)
		}
	}
	c.Assert(ids, DeepEquals, []string{"near", "a", "b", "mid"})
}

func (s *ProximitySuite) TestNearestLimit(c *C) {
	got := Nearest(orb.Point{121.08, 14.70}, s.reports(), NearestOptions{RadiusMeters: 1000, Limit: 2})
	c.Assert(got, HasLen, 2)
	c.Assert(got[0].Item.ID, Equals, "near")
	c.Assert(got[1].Item.ID, Equals, "a")
}

func (s *ProximitySuite) TestNearestUnbounded(c *C) {
	got := Nearest(orb.Point{121.08, 14.70}, s.reports(), NearestOptions{})
	c.Assert(got, HasLen, 5)
	c.Assert(got[4].Item.ID, Equals, "far")
}

func (s *ProximitySuite) TestNearestEmpty(c *C) {
	c.Assert(Nearest[model.Report](orb.Point{121, 14}, nil, NearestOptions{RadiusMeters: 10}), HasLen, 0)
}

func (s *ProximitySuite) TestReportsWithin(c *C) {
	idx, _, err := LoadEmbedded(nil)
	c.Assert(err, IsNil)
	f := idx.ByName("commonwealth")
	inside := ReportsWithin(f, s.reports())
	c.Assert(inside, HasLen, 4)

	counts := idx.CountByArea(s.reports())
	c.Assert(counts["commonwealth"], Equals, 4)
	c.Assert(counts["payatas"], Equals, 0)
}
