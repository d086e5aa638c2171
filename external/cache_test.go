package external

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referenceYAML = `
learning_deliveries:
  - learn_aim_ref: ZPROG001
    learn_aim_ref_type: "1"
    effective_from: 2013-08-01
  - learn_aim_ref: "50086832"
    learn_aim_ref_type: "0003"
    notional_nvq_level: "2"
    effective_from: 2012-09-01
    effective_to: 2019-07-31
frameworks:
  - fwork_code: 420
    prog_type: 2
    pway_code: 1
    effective_from: 2013-08-01
    aims:
      - learn_aim_ref: "50086832"
        framework_component_type: 1
ulns: [1000000004, 9999999999]
postcodes:
  - postcode: CV1 2WT
organisations:
  - ukprn: 10006341
    legal_org_type: PLTD
    partner_ukprn: true
`

func TestParseData(t *testing.T) {
	d, err := ParseData([]byte(referenceYAML))
	require.NoError(t, err)

	require.Len(t, d.LearningDeliveries, 2)
	assert.Equal(t, "50086832", d.LearningDeliveries[1].LearnAimRef)
	require.NotNil(t, d.LearningDeliveries[1].EffectiveTo)
	assert.Equal(t, 2019, d.LearningDeliveries[1].EffectiveTo.Year())
	require.Len(t, d.Frameworks, 1)
	require.Len(t, d.Frameworks[0].Aims, 1)
	assert.Equal(t, []int64{1000000004, 9999999999}, d.ULNs)
}

func TestCacheQueries(t *testing.T) {
	d, err := ParseData([]byte(referenceYAML))
	require.NoError(t, err)
	c := NewCache(d)

	ld, ok := c.LearningDelivery("zprog001")
	require.True(t, ok)
	assert.Equal(t, "1", ld.LearnAimRefType)

	_, ok = c.LearningDelivery("XXXX0000")
	assert.False(t, ok)

	assert.True(t, c.FrameworkAimExists("50086832", 2, 420, 1))
	assert.False(t, c.FrameworkAimExists("50086832", 3, 420, 1))
	assert.False(t, c.FrameworkAimExists("ZPROG001", 2, 420, 1))

	fw, ok := c.Framework(2, 420, 1)
	require.True(t, ok)
	assert.Len(t, fw.Aims, 1)
	_, ok = c.Framework(2, 420, 2)
	assert.False(t, ok)

	assert.True(t, c.HasPostcode(" cv1 2wt "))
	assert.False(t, c.HasPostcode("CV1 2WU"))

	assert.True(t, c.HasULN(9999999999))
	assert.False(t, c.HasULN(1))

	_, ok = c.Organisation(10000000)
	assert.False(t, ok)
}

func TestCacheDataIsACopy(t *testing.T) {
	d, err := ParseData([]byte(referenceYAML))
	require.NoError(t, err)
	c := NewCache(d)

	out := c.Data()
	out.ULNs[0] = 42
	out.Frameworks = nil

	assert.True(t, c.HasULN(1000000004))
	_, ok := c.Framework(2, 420, 1)
	assert.True(t, ok)
	assert.Equal(t, int64(1000000004), c.Data().ULNs[0])
}
