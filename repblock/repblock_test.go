package repblock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tchajed/goose/machine/disk"

	"github.com/krmmzs/go-xv6/bcache"
	"github.com/krmmzs/go-xv6/common"
	"github.com/krmmzs/go-xv6/fslog"
	"github.com/krmmzs/go-xv6/super"
)

func mkBlock(b0 byte) disk.Block {
	b := make(disk.Block, disk.BlockSize)
	b[0] = b0
	return b
}

func setup(d disk.Disk) (*fslog.Log, *bcache.Bcache, common.Bnum) {
	fs := super.MkFsSuper(d)
	bc := bcache.MkBcache(d, common.NBUF)
	return fslog.MkLog(bc, fs), bc, fs.DataBnum(0)
}

func reopen(d disk.Disk) (*fslog.Log, *bcache.Bcache, common.Bnum) {
	fs := super.LoadFsSuper(d)
	bc := bcache.MkBcache(d, common.NBUF)
	return fslog.MkLog(bc, fs), bc, fs.DataBnum(0)
}

func TestRepBlock(t *testing.T) {
	d := disk.NewMemDisk(100)
	log, bc, a := setup(d)
	rb := Open(log, bc, a)

	rb.Write(mkBlock(1))
	b := rb.Read()
	assert.Equal(t, byte(1), b[0])
	assert.True(t, rb.Verify(), "copies should agree after a write")
}

func TestRepBlockRecovery(t *testing.T) {
	d := disk.NewMemDisk(100)
	log, bc, a := setup(d)
	rb := Open(log, bc, a)
	rb.Write(mkBlock(1))

	log2, bc2, a2 := reopen(d)
	rb2 := Open(log2, bc2, a2)
	b := rb2.Read()
	assert.Equal(t, byte(1), b[0], "rep block should be crash safe")
	assert.True(t, rb2.Verify())
}

func TestRepBlockConcurrent(t *testing.T) {
	d := disk.NewMemDisk(100)
	log, bc, a := setup(d)
	rb := Open(log, bc, a)

	var wg sync.WaitGroup
	for i := byte(1); i <= 4; i++ {
		wg.Add(1)
		val := i
		go func() {
			defer wg.Done()
			rb.Write(mkBlock(val))
		}()
	}
	wg.Wait()

	assert.True(t, rb.Verify(), "copies should agree after racing writes")
	b := rb.Read()
	assert.Contains(t, []byte{1, 2, 3, 4}, b[0], "value should be one of the writes")
}
