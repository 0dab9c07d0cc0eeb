package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdixon97/legend-simflow/internal/metad"
	"github.com/tdixon97/legend-simflow/internal/testutil"
)

const testRunid = "l200-p03-r001-phy"

// writeDtmapMetadata populates the hardware and dataset metadata needed by
// the drift-time map helpers: two germanium channels of which only one has
// a complete crystal record, and one auxiliary channel.
func writeDtmapMetadata(t *testing.T, p *testutil.Production) {
	t.Helper()

	p.WriteMetadata(t, "datasets/runinfo.yaml", `
p03:
  r001:
    phy:
      start_key: 20230601T000000Z
`)
	p.WriteMetadata(t, "hardware/configuration/channelmaps/l200-chmap-20230101T000000Z.yaml", `
V00001A:
  system: geds
  name: V00001A
B00002C:
  system: geds
  name: B00002C
PMT01:
  system: pmts
  name: PMT01
`)
	p.WriteMetadata(t, "hardware/detectors/germanium/diodes/V00001A.yaml", `
type: icpc
production:
  order: 1
  crystal: A
`)
	p.WriteMetadata(t, "hardware/detectors/germanium/diodes/B00002C.yaml", `
type: bege
production:
  order: 2
  crystal: C
`)
	p.WriteMetadata(t, "hardware/detectors/germanium/crystals.yaml", `
V01A:
  impurity_curve:
    parameters: [0.1, 0.2]
    corrections:
      scale: 0.95
B02C:
  impurity_curve:
    parameters: [0.3]
`)
}

func TestCrystalMeta(t *testing.T) {
	p := testutil.NewProduction(t)
	writeDtmapMetadata(t, p)
	_, store := p.Load(t)

	t.Run("resolves the crystal record", func(t *testing.T) {
		diode, err := store.GetMapping("hardware", "detectors", "germanium", "diodes", "V00001A")
		require.NoError(t, err)

		crystal, err := CrystalMeta(store, diode)
		require.NoError(t, err)
		require.NotNil(t, crystal)
		_, ok := crystal.Get("impurity_curve")
		assert.True(t, ok)
	})

	t.Run("unknown crystal yields nil without error", func(t *testing.T) {
		diode, err := store.GetMapping("hardware", "detectors", "germanium", "diodes", "B00002C")
		require.NoError(t, err)

		// Point the diode at a crystal with no database record.
		prod := metad.NewMapping()
		prod.Set("order", 99)
		prod.Set("crystal", "Z")
		diode.Set("production", prod)
		crystal, err := CrystalMeta(store, diode)
		require.NoError(t, err)
		assert.Nil(t, crystal)
	})

	t.Run("unknown detector type", func(t *testing.T) {
		diode, err := store.GetMapping("hardware", "detectors", "germanium", "diodes", "V00001A")
		require.NoError(t, err)
		diode.Set("type", "scintillator")

		_, err = CrystalMeta(store, diode)
		assert.ErrorContains(t, err, "unknown HPGe detector type")
	})
}

func TestStartKey(t *testing.T) {
	p := testutil.NewProduction(t)
	writeDtmapMetadata(t, p)
	_, store := p.Load(t)

	t.Run("resolves through runinfo", func(t *testing.T) {
		sk, err := StartKey(store, testRunid)
		require.NoError(t, err)
		assert.Equal(t, "20230601T000000Z", sk)
	})

	t.Run("malformed runid", func(t *testing.T) {
		_, err := StartKey(store, "l200-p03-r001")
		assert.ErrorContains(t, err, "not in the format")
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := StartKey(store, "l200-p03-r999-phy")
		assert.Error(t, err)
	})
}

func TestHpgesValidForDtmap(t *testing.T) {
	p := testutil.NewProduction(t)
	writeDtmapMetadata(t, p)
	cfg, store := p.Load(t)

	// B00002C's crystal record lacks the scale correction, PMT01 is not a
	// germanium channel; only V00001A survives the filter.
	hpges, err := HpgesValidForDtmap(cfg, store, testRunid)
	require.NoError(t, err)
	assert.Equal(t, []string{"V00001A"}, hpges)
}

func TestDtmapOutputs(t *testing.T) {
	p := testutil.NewProduction(t, testutil.WithRunlist(testRunid))
	writeDtmapMetadata(t, p)
	cfg, store := p.Load(t)

	out, err := DtmapOutputs(cfg, store, testRunid)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], testRunid+"-V00001A-hpge-drift-time-map.lh5")

	merged := MergedDtmapOutputs(cfg)
	require.Len(t, merged, 1)
	assert.Contains(t, merged[0], testRunid+"-hpge-drift-time-maps.lh5")
}
