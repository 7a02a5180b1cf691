package pgalloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tchajed/goose/machine/disk"
)

func TestAllocUntilEmpty(t *testing.T) {
	assert := assert.New(t)
	p := MkPool(4)
	assert.Equal(uint64(4), p.NumFree())

	seen := make(map[*byte]bool)
	for i := 0; i < 4; i++ {
		pg := p.Alloc()
		assert.NotNil(pg)
		assert.Equal(int(disk.BlockSize), len(pg))
		assert.Equal(allocJunk, pg[0], "page should be junk-filled")
		assert.False(seen[&pg[0]], "pages should be distinct")
		seen[&pg[0]] = true
	}
	assert.Equal(uint64(0), p.NumFree())
	assert.Nil(p.Alloc(), "exhausted pool returns nil")
}

func TestFreeRecycles(t *testing.T) {
	assert := assert.New(t)
	p := MkPool(1)
	pg := p.Alloc()
	assert.Nil(p.Alloc())

	p.Free(pg)
	assert.Equal(uint64(1), p.NumFree())
	pg2 := p.Alloc()
	assert.NotNil(pg2)
}

func TestBadFree(t *testing.T) {
	p := MkPool(2)
	assert.Panics(t, func() {
		p.Free(make(disk.Block, disk.BlockSize))
	}, "foreign page")
	assert.Panics(t, func() {
		pg := p.Alloc()
		p.Free(pg[1:])
	}, "misaligned page")
}

func TestDoubleFree(t *testing.T) {
	p := MkPool(2)
	pg := p.Alloc()
	p.Free(pg)
	assert.Panics(t, func() { p.Free(pg) })
}

func TestConcurrentAllocFree(t *testing.T) {
	assert := assert.New(t)
	const nthread = 4
	const iters = 100
	p := MkPool(nthread)
	var wg sync.WaitGroup
	for i := 0; i < nthread; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				pg := p.Alloc()
				if pg != nil {
					pg[0] = 0xcc
					p.Free(pg)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(uint64(nthread), p.NumFree())
}
