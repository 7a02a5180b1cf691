package bcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tchajed/goose/machine/disk"

	"github.com/krmmzs/go-xv6/common"
)

const diskSz uint64 = 100

func mkData(b byte) disk.Block {
	blk := make(disk.Block, disk.BlockSize)
	for i := range blk {
		blk[i] = b
	}
	return blk
}

func TestReadWrite(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(diskSz)
	bc := MkBcache(d, 10)

	b := bc.Bread(3)
	copy(b.Data, mkData(0xaa))
	bc.Bwrite(b)
	bc.Brelse(b)

	assert.Equal(mkData(0xaa), d.Read(3), "write should go through to disk")
}

func TestSingleCopy(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(diskSz)
	bc := MkBcache(d, 10)

	b := bc.Bread(5)
	bc.Brelse(b)
	b2 := bc.Bread(5)
	defer bc.Brelse(b2)
	assert.True(b == b2, "same block should use the same buffer")
}

func TestCachedReadSkipsDisk(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(diskSz)
	d.Write(7, mkData(1))
	bc := MkBcache(d, 10)

	b := bc.Bread(7)
	assert.Equal(byte(1), b.Data[0])
	bc.Brelse(b)

	// change the block underneath the cache
	d.Write(7, mkData(2))
	b = bc.Bread(7)
	assert.Equal(byte(1), b.Data[0], "cached content should win")
	bc.Brelse(b)
}

func TestPinPreventsEviction(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(diskSz)
	d.Write(10, mkData(1))
	bc := MkBcache(d, 2)

	b := bc.Bread(10)
	bc.Pin(b)
	bc.Brelse(b)

	// cycle enough blocks through the cache to evict anything
	// unpinned
	for bn := common.Bnum(20); bn < 25; bn++ {
		b2 := bc.Bread(bn)
		bc.Brelse(b2)
	}

	d.Write(10, mkData(2))
	b3 := bc.Bread(10)
	assert.True(b == b3, "pinned buffer should survive eviction")
	assert.Equal(byte(1), b3.Data[0])
	bc.Brelse(b3)
	bc.Unpin(b3)
}

func TestNoBuffersPanics(t *testing.T) {
	d := disk.NewMemDisk(diskSz)
	bc := MkBcache(d, 1)

	// hold the only buffer so the second Bread has no victim; the
	// cache mutex dies with the panic, so don't touch bc afterwards
	bc.Bread(1)
	assert.Panics(t, func() { bc.Bread(2) })
}

func TestOutOfRangePanics(t *testing.T) {
	d := disk.NewMemDisk(diskSz)
	bc := MkBcache(d, 10)
	assert.Panics(t, func() { bc.Bread(diskSz) })
}

func TestConcurrentAccess(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(diskSz)
	bc := MkBcache(d, 10)

	const nthread = 4
	const iters = 50
	var wg sync.WaitGroup
	for i := 0; i < nthread; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				b := bc.Bread(9)
				b.Data[0] = b.Data[0] + 1
				bc.Brelse(b)
			}
		}()
	}
	wg.Wait()

	b := bc.Bread(9)
	defer bc.Brelse(b)
	assert.Equal(byte(nthread*iters), b.Data[0])
}
