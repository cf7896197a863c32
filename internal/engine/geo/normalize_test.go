package geo

import . "gopkg.in/check.v1"

type NormalizeSuite struct{}

var _ = Suite(&NormalizeSuite{})

func (s *NormalizeSuite) TestVariantsShareAKey(c *C) {
	for _, in := range []string{"Barangay Bahay Toro", "bahay-toro", "  Bahay Toro  ", "Bahay  Toro.", "brgy bahay toro"} {
		c.Assert(NormalizeName(in), Equals, "bahay toro", Commentf("input %q", in))
	}
}

func (s *NormalizeSuite) TestAccentsAndPunctuation(c *C) {
	c.Assert(NormalizeName("Santo Niño"), Equals, "santo nino")
	c.Assert(NormalizeName("St. Ignatius"), Equals, "st ignatius")
	c.Assert(NormalizeName("U.P. Campus"), Equals, "up campus")
	c.Assert(NormalizeName("UP Campus"), Equals, "up campus")
	c.Assert(NormalizeName("Sto. Niño (Galas)"), Equals, "sto nino galas")
	c.Assert(NormalizeName("D'Alvarez"), Equals, "dalvarez")
	c.Assert(NormalizeName("San Isidro/Galas"), Equals, "san isidro galas")
}

func (s *NormalizeSuite) TestPrefixOnlyIsKept(c *C) {
	c.Assert(NormalizeName("Barangay"), Equals, "barangay")
	c.Assert(NormalizeName(""), Equals, "")
	c.Assert(NormalizeName(" - "), Equals, "")
}
