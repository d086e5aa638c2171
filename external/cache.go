package external

import (
	"slices"
	"strings"
)

// Cache is the read-only external reference data consulted by rules.
// It is only ever constructed complete.
type Cache struct {
	data               Data
	learningDeliveries map[string]LARSLearningDelivery
	ulns               map[int64]struct{}
	postcodes          map[string]struct{}
	organisations      map[int]Organisation
}

// NewCache indexes d into a cache
func NewCache(d Data) *Cache {
	c := &Cache{
		data:               d,
		learningDeliveries: make(map[string]LARSLearningDelivery, len(d.LearningDeliveries)),
		ulns:               make(map[int64]struct{}, len(d.ULNs)),
		postcodes:          make(map[string]struct{}, len(d.Postcodes)),
		organisations:      make(map[int]Organisation, len(d.Organisations)),
	}
	for _, ld := range d.LearningDeliveries {
		c.learningDeliveries[strings.ToUpper(ld.LearnAimRef)] = ld
	}
	for _, uln := range d.ULNs {
		c.ulns[uln] = struct{}{}
	}
	for _, pc := range d.Postcodes {
		c.postcodes[normalisePostcode(pc.Postcode)] = struct{}{}
	}
	for _, org := range d.Organisations {
		c.organisations[org.UKPRN] = org
	}
	return c
}

// LearningDelivery returns the LARS entry for an aim reference, ignoring case
func (c *Cache) LearningDelivery(learnAimRef string) (LARSLearningDelivery, bool) {
	ld, ok := c.learningDeliveries[strings.ToUpper(learnAimRef)]
	return ld, ok
}

// Framework returns the framework for a programme type, framework and pathway
func (c *Cache) Framework(progType, fworkCode, pwayCode int) (Framework, bool) {
	for _, fw := range c.data.Frameworks {
		if fw.ProgType == progType && fw.FworkCode == fworkCode && fw.PwayCode == pwayCode {
			return fw, true
		}
	}
	return Framework{}, false
}

// FrameworkAimExists reports whether the aim belongs to the given framework
func (c *Cache) FrameworkAimExists(learnAimRef string, progType, fworkCode, pwayCode int) bool {
	fw, ok := c.Framework(progType, fworkCode, pwayCode)
	if !ok {
		return false
	}
	for _, aim := range fw.Aims {
		if strings.EqualFold(aim.LearnAimRef, learnAimRef) {
			return true
		}
	}
	return false
}

// HasULN reports whether the unique learner number is known
func (c *Cache) HasULN(uln int64) bool {
	_, ok := c.ulns[uln]
	return ok
}

// HasPostcode reports whether the postcode is known, ignoring case and spacing
func (c *Cache) HasPostcode(postcode string) bool {
	_, ok := c.postcodes[normalisePostcode(postcode)]
	return ok
}

// Organisation returns the organisation registered under ukprn
func (c *Cache) Organisation(ukprn int) (Organisation, bool) {
	org, ok := c.organisations[ukprn]
	return org, ok
}

// Data returns the plain content of the cache for serialisation
func (c *Cache) Data() Data {
	return Data{
		LearningDeliveries: slices.Clone(c.data.LearningDeliveries),
		Frameworks:         slices.Clone(c.data.Frameworks),
		ULNs:               slices.Clone(c.data.ULNs),
		Postcodes:          slices.Clone(c.data.Postcodes),
		Organisations:      slices.Clone(c.data.Organisations),
	}
}

func normalisePostcode(pc string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(pc), " ", ""))
}
