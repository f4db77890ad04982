package holdings

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	id "xftledger/pkg/domain"
)

func addr(n int) id.Address {
	return id.Address(fmt.Sprintf("0x%040x", n))
}

func TestAddRemove(t *testing.T) {
	x := NewIndex()

	x.Add(addr(1))
	x.Add(addr(2))
	x.Add(addr(3))
	assert.Equal(t, 3, x.Len())
	assert.True(t, x.Contains(addr(2)))

	// Removing the middle entry exercises swap-and-pop.
	x.Remove(addr(2))
	assert.Equal(t, 2, x.Len())
	assert.False(t, x.Contains(addr(2)))
	assert.True(t, x.Contains(addr(1)))
	assert.True(t, x.Contains(addr(3)))

	x.Remove(addr(3))
	x.Remove(addr(1))
	assert.Equal(t, 0, x.Len())
}

func TestIdempotentRepairs(t *testing.T) {
	x := NewIndex()

	// Double add is a no-op.
	x.Add(addr(1))
	x.Add(addr(1))
	assert.Equal(t, 1, x.Len())

	// Removing an absent holder is a no-op.
	x.Remove(addr(9))
	assert.Equal(t, 1, x.Len())

	// Sync repairs in either direction.
	x.Sync(addr(1), false)
	assert.False(t, x.Contains(addr(1)))
	x.Sync(addr(2), true)
	x.Sync(addr(2), true)
	assert.Equal(t, 1, x.Len())
}

func TestAllReturnsCopy(t *testing.T) {
	x := NewIndex()
	for i := range 5 {
		x.Add(addr(i))
	}

	snapshot := x.All()
	assert.Len(t, snapshot, 5)

	// Mutating the index while iterating the snapshot must be safe; this is
	// exactly what maturity settlement does.
	for _, a := range snapshot {
		x.Remove(a)
	}
	assert.Equal(t, 0, x.Len())
	assert.Len(t, snapshot, 5)
}

func TestSwapAndPopConsistency(t *testing.T) {
	x := NewIndex()
	for i := range 100 {
		x.Add(addr(i))
	}
	// Remove every even holder, then verify membership is exact.
	for i := 0; i < 100; i += 2 {
		x.Remove(addr(i))
	}
	assert.Equal(t, 50, x.Len())
	for i := range 100 {
		assert.Equal(t, i%2 == 1, x.Contains(addr(i)), "holder %d", i)
	}
	assert.Len(t, x.All(), 50)
}
