package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/pdu"
)

func TestDupFilterEvictsOldest(t *testing.T) {
	var f dupFilter
	key := func(i int) dupKey {
		return dupKey{value: 0xC00000000000 | uint64(i), kind: address.Random, typ: pdu.TypeAdvInd}
	}
	for i := 0; i < DuplicateFilterSize; i++ {
		assert.True(t, f.add(key(i)))
	}
	assert.False(t, f.add(key(0)))
	assert.False(t, f.add(key(DuplicateFilterSize-1)))

	// one past capacity pushes out the first key only
	assert.True(t, f.add(key(DuplicateFilterSize)))
	assert.True(t, f.add(key(0)))
	assert.False(t, f.add(key(2)))
	assert.Equal(t, DuplicateFilterSize, f.n)

	f.reset()
	assert.True(t, f.add(key(2)))
}

func TestDupFilterKeyIncludesKindAndType(t *testing.T) {
	var f dupFilter
	k := dupKey{value: 1, kind: address.Public, typ: pdu.TypeAdvInd}
	assert.True(t, f.add(k))
	assert.True(t, f.add(dupKey{value: 1, kind: address.Random, typ: pdu.TypeAdvInd}))
	assert.True(t, f.add(dupKey{value: 1, kind: address.Public, typ: pdu.TypeScanRsp}))
	assert.False(t, f.add(k))
}

func TestDupFilterDoesNotAllocate(t *testing.T) {
	var f dupFilter
	i := 0
	allocs := testing.AllocsPerRun(200, func() {
		f.add(dupKey{value: uint64(i), kind: address.Random})
		i++
	})
	assert.Zero(t, allocs)
}
