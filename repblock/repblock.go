// Package repblock keeps two on-disk copies of a block in sync,
// updating both in a single logged operation.
package repblock

import (
	"sync"

	"github.com/goose-lang/std"
	"github.com/tchajed/goose/machine/disk"

	"github.com/krmmzs/go-xv6/bcache"
	"github.com/krmmzs/go-xv6/common"
	"github.com/krmmzs/go-xv6/fslog"
	"github.com/krmmzs/go-xv6/util"
)

type RepBlock struct {
	log *fslog.Log
	bc  *bcache.Bcache

	m  *sync.Mutex
	b0 common.Bnum
	b1 common.Bnum
}

// Open sets up a replicated block over the pair a, a+1. Updates are
// atomic, so the two copies can only disagree while an update's
// operation is still uncommitted.
func Open(log *fslog.Log, bc *bcache.Bcache, a common.Bnum) *RepBlock {
	return &RepBlock{
		log: log,
		bc:  bc,
		m:   new(sync.Mutex),
		b0:  a,
		b1:  a + 1,
	}
}

func (rb *RepBlock) Write(b disk.Block) {
	rb.m.Lock()
	rb.log.BeginOp()
	for _, bn := range []common.Bnum{rb.b0, rb.b1} {
		buf := rb.bc.Bread(bn)
		copy(buf.Data, b)
		rb.log.Write(buf)
		rb.bc.Brelse(buf)
	}
	rb.log.EndOp()
	rb.m.Unlock()
}

// Read returns the block's current value. Both copies agree between
// operations, so reading the primary suffices.
func (rb *RepBlock) Read() disk.Block {
	rb.m.Lock()
	rb.log.BeginOp()
	buf := rb.bc.Bread(rb.b0)
	b := util.CloneByteSlice(buf.Data)
	rb.bc.Brelse(buf)
	rb.log.EndOp()
	rb.m.Unlock()
	return b
}

// Verify reads both copies and reports whether they agree.
func (rb *RepBlock) Verify() bool {
	rb.m.Lock()
	rb.log.BeginOp()
	buf0 := rb.bc.Bread(rb.b0)
	b0 := util.CloneByteSlice(buf0.Data)
	rb.bc.Brelse(buf0)
	buf1 := rb.bc.Bread(rb.b1)
	b1 := util.CloneByteSlice(buf1.Data)
	rb.bc.Brelse(buf1)
	rb.log.EndOp()
	rb.m.Unlock()
	return std.BytesEqual(b0, b1)
}
