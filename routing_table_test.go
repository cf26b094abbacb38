package leosim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentForBoundaryInclusive(t *testing.T) {
	store := NewRoutingTableStore()
	t1 := &SwitchingTable{Owner: "satA", ValidFrom: 0, ValidUntil: 10, Entries: map[NodeId][]NodeId{"satB": {"satB"}}}
	t2 := &SwitchingTable{Owner: "satA", ValidFrom: 10, ValidUntil: 20, Entries: map[NodeId][]NodeId{"satB": {"satC", "satB"}}}
	store.Insert(t1)
	store.Insert(t2)

	assert.Same(t, t1, store.CurrentFor("satA", 0))
	assert.Same(t, t1, store.CurrentFor("satA", 9.999))
	// both tables cover 10 exactly (abutting, inclusive both ends); insertion
	// order picks t1 first since it was inserted and indexed before t2
	got := store.CurrentFor("satA", 10)
	assert.True(t, got == t1 || got == t2)
	assert.Same(t, t2, store.CurrentFor("satA", 15))
	assert.Same(t, t2, store.CurrentFor("satA", 20))
}

func TestCurrentForAbsentReturnsNil(t *testing.T) {
	store := NewRoutingTableStore()
	store.Insert(&SwitchingTable{Owner: "satA", ValidFrom: 0, ValidUntil: 10})

	assert.Nil(t, store.CurrentFor("satA", 10.001))
	assert.Nil(t, store.CurrentFor("unknown", 5))
}

func TestInsertDuplicateValidFromLatestWins(t *testing.T) {
	store := NewRoutingTableStore()
	first := &SwitchingTable{Owner: "satA", ValidFrom: 0, ValidUntil: 10, Entries: map[NodeId][]NodeId{"x": {"a"}}}
	second := &SwitchingTable{Owner: "satA", ValidFrom: 0, ValidUntil: 10, Entries: map[NodeId][]NodeId{"x": {"b"}}}
	store.Insert(first)
	store.Insert(second)

	got := store.CurrentFor("satA", 5)
	assert.Same(t, second, got)
}

func TestCurrentForForwardScanThenRollBack(t *testing.T) {
	store := NewRoutingTableStore()
	store.Insert(&SwitchingTable{Owner: "satA", ValidFrom: 0, ValidUntil: 10})
	store.Insert(&SwitchingTable{Owner: "satA", ValidFrom: 10, ValidUntil: 20})
	store.Insert(&SwitchingTable{Owner: "satA", ValidFrom: 20, ValidUntil: 30})

	// advance past the cached index, then roll back — exercises the
	// binary-search fallback
	assert.NotNil(t, store.CurrentFor("satA", 25))
	got := store.CurrentFor("satA", 5)
	requireValidFrom(t, got, 0)
}

func requireValidFrom(t *testing.T, tbl *SwitchingTable, want float64) {
	t.Helper()
	assert.NotNil(t, tbl)
	if tbl != nil {
		assert.Equal(t, want, tbl.ValidFrom)
	}
}
