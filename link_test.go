package leosim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTopology(t *testing.T) (*NodeArena, *TopologyController) {
	arena := NewNodeArena()
	require.NoError(t, arena.AddSatellite("satA", 0))
	require.NoError(t, arena.AddSatellite("satB", 0))
	require.NoError(t, arena.AddGroundStation("gsC", "Reston"))

	addrs := NewAddressBook()
	sched := NewScheduler()
	tc := NewTopologyController(addrs, NewLogger(), sched, 10e6, 2e6)
	return arena, tc
}

func TestEnsureLinkIdempotent(t *testing.T) {
	arena, tc := newTestTopology(t)

	l1, err := tc.EnsureLink(arena, "satA", "satB")
	require.NoError(t, err)
	l2, err := tc.EnsureLink(arena, "satB", "satA")
	require.NoError(t, err)

	assert.Same(t, l1, l2)
}

func TestLinkClassByEndpointKind(t *testing.T) {
	arena, tc := newTestTopology(t)

	isl, err := tc.EnsureLink(arena, "satA", "satB")
	require.NoError(t, err)
	assert.Equal(t, InterSatelliteLink, isl.Class())

	feeder, err := tc.EnsureLink(arena, "satA", "gsC")
	require.NoError(t, err)
	assert.Equal(t, FeederLink, feeder.Class())
}

func TestEnableLinkRecomputesDelay(t *testing.T) {
	arena, tc := newTestTopology(t)
	_, err := tc.EnsureLink(arena, "satA", "satB")
	require.NoError(t, err)

	tc.EnableLink("satA", "satB", speedOfLightKmPerSec) // 1 light-second away
	link, present := tc.GetLink("satA", "satB")
	require.True(t, present)

	assert.True(t, link.Active())
	assert.InDelta(t, 1.0, link.PropagationDelay(), 1e-9)

	tc.EnableLink("satA", "satB", 2*speedOfLightKmPerSec)
	assert.InDelta(t, 2.0, link.PropagationDelay(), 1e-9)
}

func TestIsActiveSymmetric(t *testing.T) {
	arena, tc := newTestTopology(t)
	_, err := tc.EnsureLink(arena, "satA", "satB")
	require.NoError(t, err)
	tc.EnableLink("satA", "satB", 100)

	assert.True(t, tc.IsActive("satA", "satB"))
	assert.True(t, tc.IsActive("satB", "satA"))

	tc.DisableLink("satB", "satA")
	assert.False(t, tc.IsActive("satA", "satB"))
}

func TestEnableUnknownLinkIsWarningNotError(t *testing.T) {
	_, tc := newTestTopology(t)
	assert.NotPanics(t, func() { tc.EnableLink("nope", "nada", 10) })
	assert.False(t, tc.IsActive("nope", "nada"))
}
