// Package fslog provides a write-ahead log for atomic multi-block
// disk updates.
//
// Callers bracket each atomic operation with BeginOp and EndOp, and
// route every block update through Write instead of writing the disk
// directly:
//
//	l.BeginOp()
//	b := bc.Bread(bn)
//	// modify b.Data
//	l.Write(b)
//	bc.Brelse(b)
//	l.EndOp()
//
// An operation may stage at most MAXOPBLOCKS blocks. BeginOp admits
// an operation only when the log has room for it at full size,
// counting every other admitted operation at full size as well, so an
// admitted operation never runs out of log space mid-way.
//
// Nothing commits until the last outstanding operation ends; the
// whole window of operations then becomes durable at once (group
// commit). Commit copies the new block contents into the log's
// staging area, then writes the log header naming their home
// addresses. The header write is the commit point: once it is durable
// the entire window has happened, before it none of it has. Commit
// then installs the blocks to their home addresses and frees the log.
// A block written by several operations in one window occupies a
// single staging slot (absorption).
//
// MkLog recovers from whatever a crash left behind. A window whose
// header reached the disk is reinstalled; anything less is discarded
// wholesale. Either way every operation remains all-or-nothing.
package fslog

import (
	"sync"

	"github.com/krmmzs/go-xv6/bcache"
	"github.com/krmmzs/go-xv6/common"
	"github.com/krmmzs/go-xv6/super"
	"github.com/krmmzs/go-xv6/util"
)

// MkLog initializes logging over the log region described by fs and
// runs crash recovery. It must complete before anything else uses the
// disk.
func MkLog(bc *bcache.Bcache, fs *super.FsSuper) *Log {
	if common.LOGBLOCKS > common.HDRADDRS {
		panic("mklog: too big a logheader")
	}
	if fs.NLog < 2 || fs.NLog-1 > common.LOGBLOCKS {
		panic("mklog: bad log size")
	}
	if fs.NLog-1 < common.MAXOPBLOCKS {
		// BeginOp could never admit an operation
		panic("mklog: log too small for an operation")
	}
	ml := new(sync.Mutex)
	l := &Log{
		mu:          ml,
		bc:          bc,
		start:       fs.LogStart,
		size:        fs.NLog,
		outstanding: 0,
		committing:  false,
		lh:          logHdr{n: 0, blocks: make([]common.Bnum, common.LOGBLOCKS)},
		condSpace:   sync.NewCond(ml),
		condCommit:  sync.NewCond(ml),
	}
	l.recoverLog()
	return l
}

// BeginOp reserves room for an operation of up to MAXOPBLOCKS block
// writes, waiting as needed for an in-progress commit to finish and
// for log space.
func (l *Log) BeginOp() {
	l.mu.Lock()
	for {
		if l.committing {
			l.condCommit.Wait()
			continue
		}
		if l.lh.n+(l.outstanding+1)*common.MAXOPBLOCKS > l.capacity() {
			// this op might exhaust the log; wait for space
			l.condSpace.Wait()
			continue
		}
		l.outstanding += 1
		break
	}
	l.mu.Unlock()
}

// EndOp ends an operation. When the last outstanding operation ends,
// the accumulated window commits; EndOp returns only after the commit
// is durable.
func (l *Log) EndOp() {
	var doCommit = false
	l.mu.Lock()
	if l.outstanding == 0 {
		panic("endop: no outstanding operation")
	}
	l.outstanding -= 1
	if l.committing {
		panic("endop: already committing")
	}
	if l.outstanding == 0 {
		doCommit = true
		l.committing = true
	} else {
		// this op's reservation frees up space
		l.condSpace.Broadcast()
	}
	l.mu.Unlock()

	if doCommit {
		// commit without holding the lock: no operations are open,
		// so only EndOp touches the staged blocks
		l.commit()
		l.mu.Lock()
		l.committing = false
		l.condCommit.Broadcast()
		l.condSpace.Broadcast()
		l.mu.Unlock()
	}
}

// Write records b as part of the pending window and pins it in the
// cache until it is installed. The caller must hold b locked and must
// be inside an operation. Writing a block already staged in this
// window reuses its slot.
func (l *Log) Write(b *bcache.Buf) {
	l.mu.Lock()
	if l.lh.n >= common.LOGBLOCKS || l.lh.n >= l.capacity() {
		panic("logwrite: too big a transaction")
	}
	if l.outstanding == 0 {
		panic("logwrite: outside of an operation")
	}
	var i uint64
	for i = 0; i < l.lh.n; i++ {
		if l.lh.blocks[i] == b.Blkno { // absorption
			util.DPrintf(5, "logwrite: absorb %d\n", b.Blkno)
			break
		}
	}
	l.lh.blocks[i] = b.Blkno
	if i == l.lh.n {
		l.bc.Pin(b)
		l.lh.n += 1
	}
	l.mu.Unlock()
}
